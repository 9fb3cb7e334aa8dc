package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// Types whose output must keep its exact shape: padding or truncating them
// would break a check digit or a mandated pattern, so preserveLength is
// satisfied by reseeding instead (and ultimately ignored if impossible).
var fixedFormat = map[string]bool{
	"CreditCard":  true,
	"BusinessABN": true,
	"BusinessACN": true,
	"NINO":        true,
	"VINNumber":   true,
	"SortCode":    true,
	"UKPostcode":  true,
	"Email":       true,
	"Phone":       true,
}

// Numeric types pad with trailing zeros rather than spaces.
var digitPadded = map[string]bool{
	"PostCode": true,
	"ZipCode":  true,
}

func fitLength(baseType, out string, target int, _ *rng) (string, bool) {
	if target <= 0 || len(out) == target {
		return out, true
	}
	if fixedFormat[baseType] {
		return out, false
	}
	if len(out) > target {
		return out[:target], true
	}
	pad := byte(' ')
	if digitPadded[baseType] {
		pad = '0'
	}
	return out + strings.Repeat(string(pad), target-len(out)), true
}

func applyFormatting(out string, f *Formatting) string {
	if f == nil {
		return out
	}
	if f.Pattern != "" && strings.Contains(f.Pattern, "%s") {
		out = fmt.Sprintf(f.Pattern, out)
	}
	if f.AddPrefix != "" {
		out = f.AddPrefix + out
	}
	if f.AddSuffix != "" {
		out = out + f.AddSuffix
	}
	switch strings.ToLower(f.Transform) {
	case "upper":
		out = strings.ToUpper(out)
	case "lower":
		out = strings.ToLower(out)
	case "title":
		out = titleCase(out)
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func validate(out string, v *Validation) (string, bool) {
	if out == "" {
		return "empty value", false
	}
	if v == nil {
		return "", true
	}
	if v.MinLength > 0 && len(out) < v.MinLength {
		return fmt.Sprintf("shorter than MinLength %d", v.MinLength), false
	}
	if v.MaxLength > 0 && len(out) > v.MaxLength {
		return fmt.Sprintf("longer than MaxLength %d", v.MaxLength), false
	}
	if v.Regex != "" {
		re, err := regexp.Compile(v.Regex)
		if err != nil {
			return fmt.Sprintf("invalid validation regex: %s", err), false
		}
		if !re.MatchString(out) {
			return fmt.Sprintf("does not match %s", v.Regex), false
		}
	}
	if len(v.AllowedValues) > 0 {
		for _, a := range v.AllowedValues {
			if out == a {
				return "", true
			}
		}
		return "not in AllowedValues", false
	}
	return "", true
}
