// Package text holds identifier and name normalization shared by the
// pipeline stages. Patient record numbers arrive from the source systems
// as integers, floats and a handful of string formats (including
// dot-as-thousands-separator); everything funnels through PatientID before
// it is trusted as a join key.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PatientID converts a raw identifier value into a canonical integer
// record number. The second return is false when the value is
// unrepresentable and must be discarded. Zero is never a valid id.
//
// The rule order matters: "875831.0" style floats are truncated, dotted
// strings such as "520.124" are treated as thousands-separated, and a
// float with a real fractional part is rejected rather than guessed.
func PatientID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		return nonZero(int64(v))
	case int32:
		return nonZero(int64(v))
	case int64:
		return nonZero(v)
	case float32:
		return floatID(float64(v))
	case float64:
		return floatID(v)
	case string:
		return stringID(v)
	default:
		return 0, false
	}
}

func nonZero(n int64) (int64, bool) {
	if n <= 0 {
		return 0, false
	}
	return n, true
}

func floatID(f float64) (int64, bool) {
	if f != float64(int64(f)) {
		// Decimal record numbers do not exist; the caller logs these.
		return 0, false
	}
	return nonZero(int64(f))
}

func stringID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if allDigits(s) {
		return nonZero(parseDigits(s))
	}
	// Formatted numbers with dots ("520.124" -> 520124). Dots only count
	// as thousands separators when every group after the first has
	// exactly three digits; "12.5" is a fraction, not a grouped number.
	if thousandsGrouped(s) {
		cleaned := strings.ReplaceAll(s, ".", "")
		return nonZero(parseDigits(cleaned))
	}
	return 0, false
}

func thousandsGrouped(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups) < 2 {
		return false
	}
	if len(groups[0]) < 1 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseDigits(s string) int64 {
	var n int64
	for _, r := range s {
		n = n*10 + int64(r-'0')
		if n < 0 {
			// Overflowed; no real record number is this long.
			return 0
		}
	}
	return n
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes combining diacritical marks ("transferência" ->
// "transferencia").
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// FirstName normalizes a full name down to its comparable first token:
// trimmed, lower-cased, accent-stripped. Returns "" for blank input.
func FirstName(full string) string {
	s := StripAccents(strings.ToLower(strings.TrimSpace(full)))
	if s == "" {
		return ""
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		s = s[:i]
	}
	return s
}

// CollapseSpaces lower-cases, trims and collapses internal whitespace runs
// to single spaces. Used for outcome label comparison.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
