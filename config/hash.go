package config

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// HashMapping computes the checkpoint identity of a mapping: SHA-256 over
// the canonical JSON rendering (sorted keys, no insignificant whitespace),
// base64url-encoded and truncated to 16 characters. Two renderings of the
// same document — reordered keys, different indentation, YAML vs JSON —
// hash identically.
func HashMapping(raw []byte) (string, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(b.String()))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16], nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			if err := writeCanonical(b, x[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case json.Number:
		b.WriteString(x.String())
	default:
		eb, err := json.Marshal(x)
		if err != nil {
			return fmt.Errorf("cannot canonicalize %T: %w", v, err)
		}
		b.Write(eb)
	}
	return nil
}
