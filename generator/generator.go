// Package generator produces deterministic, format-plausible synthetic
// values for PII columns. The same (dataType, original, seed, preserveLength)
// input yields the same output on every machine: all randomness is derived
// from a SHA-256-based 64-bit state, never from a host-specific hash or RNG.
package generator

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// Request carries everything that determines a synthetic value.
type Request struct {
	DataType       string
	Original       string
	Seed           string
	PreserveLength bool
	Locale         string // "" or "AU" (default), "UK"
	Formatting     *Formatting
	Validation     *Validation
}

// Formatting is applied after generation, before validation.
type Formatting struct {
	AddPrefix string `json:"AddPrefix,omitempty"`
	AddSuffix string `json:"AddSuffix,omitempty"`
	Pattern   string `json:"Pattern,omitempty"` // %s is replaced with the generated value
	Transform string `json:"Transform,omitempty"` // upper, lower, title
}

// Validation constrains the final value. A value failing validation causes
// a bounded number of regeneration attempts before GenerationError.
type Validation struct {
	Regex         string   `json:"Regex,omitempty"`
	MinLength     int      `json:"MinLength,omitempty"`
	MaxLength     int      `json:"MaxLength,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty"`
}

// GenerationError reports a cell whose synthetic value could not be produced.
type GenerationError struct {
	DataType string
	Reason   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for data type %s: %s", e.DataType, e.Reason)
}

const (
	validationAttempts = 16
	lengthAttempts     = 8
)

type genFunc func(r *rng, original string) string

var generators = map[string]genFunc{
	"FirstName":           genFirstName,
	"LastName":            genLastName,
	"FullName":            genFullName,
	"Email":               genEmail,
	"Phone":               genPhoneAU,
	"FullAddress":         genFullAddress,
	"AddressLine1":        genAddressLine1,
	"AddressLine2":        genAddressLine2,
	"City":                genCity,
	"State":               genState,
	"StateAbbr":           genStateAbbr,
	"PostCode":            genPostCode,
	"ZipCode":             genZipCode,
	"Country":             genCountry,
	"UKPostcode":          genUKPostcode,
	"CreditCard":          genCreditCard,
	"NINO":                genNINO,
	"SortCode":            genSortCode,
	"LicenseNumber":       genLicenseNumber,
	"CompanyName":         genCompanyName,
	"BusinessABN":         genBusinessABN,
	"BusinessACN":         genBusinessACN,
	"VehicleRegistration": genVehicleRegistration,
	"VINNumber":           genVINNumber,
	"VehicleMakeModel":    genVehicleMakeModel,
	"EngineNumber":        genEngineNumber,
	"GPSCoordinate":       genGPSCoordinate,
	"RouteCode":           genRouteCode,
	"DepotLocation":       genDepotLocation,
	"Date":                genDate,
	"DateOfBirth":         genDateOfBirth,
}

// aliases resolve alternative names onto a single generator, so equal
// originals under either name map to the same synthetic value.
var aliases = map[string]string{
	"Suburb": "City",
}

// Low-cardinality types whose values are worth caching; everything else is
// effectively unique per row and caching it would only burn memory.
var cachedByDefault = map[string]bool{
	"FirstName":        true,
	"LastName":         true,
	"FullName":         true,
	"City":             true,
	"State":            true,
	"StateAbbr":        true,
	"Country":          true,
	"PostCode":         true,
	"ZipCode":          true,
	"UKPostcode":       true,
	"CompanyName":      true,
	"VehicleMakeModel": true,
	"RouteCode":        true,
	"DepotLocation":    true,
}

// BaseType resolves alias names (e.g. Suburb) to the canonical type name.
// Unknown names are returned unchanged; IsStandard reports whether the
// result has a generator.
func BaseType(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

func IsStandard(name string) bool {
	_, ok := generators[BaseType(name)]
	return ok
}

func CachedByDefault(name string) bool {
	return cachedByDefault[BaseType(name)]
}

// case-insensitive types are normalized before hashing so "Jane@X.com" and
// "jane@x.com" obfuscate identically.
var caseInsensitive = map[string]bool{
	"Email":      true,
	"UKPostcode": true,
}

func normalize(baseType, original string) string {
	s := strings.TrimSpace(original)
	if caseInsensitive[baseType] {
		s = strings.ToLower(s)
	}
	return s
}

// stableHash derives the 64-bit generator state. SHA-256 keeps it
// byte-portable across architectures and Go versions.
func stableHash(seed, baseType, normalized string) uint64 {
	h := sha256.Sum256([]byte(seed + "|" + baseType + "|" + normalized))
	return binary.BigEndian.Uint64(h[:8])
}

func rehash(s uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s)
	h := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(h[:8])
}

// Generate is the deterministic value generator. It is pure: no state
// survives between calls and no call ever mutates shared data.
func Generate(req Request) (string, error) {
	baseType := BaseType(req.DataType)
	gen, ok := generators[baseType]
	if !ok {
		return "", &GenerationError{DataType: req.DataType, Reason: "unknown data type"}
	}
	if baseType == "Phone" && req.Locale == "UK" {
		gen = genPhoneUK
	}

	s := stableHash(req.Seed, baseType, normalize(baseType, req.Original))

	var lastReason string
	for attempt := 0; attempt < validationAttempts; attempt++ {
		r := &rng{state: s}
		out := gen(r, req.Original)

		if req.PreserveLength {
			fitted, ok := fitLength(baseType, out, len(req.Original), r)
			if !ok {
				// length target conflicts with the format; vary the seed
				if attempt < lengthAttempts {
					s = rehash(s)
					lastReason = "preserveLength conflicts with format"
					continue
				}
				// fall back to the natural format rather than emit a
				// checksum-breaking truncation
				fitted = out
			}
			out = fitted
		}

		out = applyFormatting(out, req.Formatting)

		if reason, ok := validate(out, req.Validation); !ok {
			lastReason = reason
			s = rehash(s)
			continue
		}
		return out, nil
	}
	return "", &GenerationError{DataType: req.DataType, Reason: lastReason}
}
