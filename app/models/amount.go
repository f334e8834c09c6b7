package models

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a currency string from the external exports into a
// decimal. Upstream values use a comma decimal separator and may carry a
// currency prefix and group spaces ("р.3 207,38"). Malformed input degrades
// to zero instead of failing: the exports are not under our control and a
// single bad cell must not break a whole report.
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '.' && b.Len() > 0:
			// a dot before any digit belongs to a prefix like "р.", not the number
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			// group separator, drop
		default:
			// currency symbol or letter prefix, drop
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict is the variant used by the notification checker: a value
// that does not parse must skip the rule rather than be treated as zero.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return decimal.NewFromString(cleaned)
}
