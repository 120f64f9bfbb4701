package notify

import (
	"strings"
	"unicode"
)

// NormalizePhone converts a free-form phone number into international
// digits without a leading plus. Numbers written with a national trunk
// prefix ("0...") get defaultCountry prepended; "00" and "+" prefixes are
// treated as international. An empty result means the input had no digits.
func NormalizePhone(raw, defaultCountry string) string {
	raw = strings.TrimSpace(raw)
	international := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case international:
		return digits
	case strings.HasPrefix(digits, "00"):
		return digits[2:]
	case strings.HasPrefix(digits, "0") && defaultCountry != "":
		return strings.TrimLeft(defaultCountry, "+") + digits[1:]
	}

	// A number already carrying the country code followed by a stray
	// trunk zero, e.g. 9720501234567.
	if cc := strings.TrimLeft(defaultCountry, "+"); cc != "" && strings.HasPrefix(digits, cc+"0") {
		return cc + digits[len(cc)+1:]
	}
	return digits
}
