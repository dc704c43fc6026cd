package customer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizePhone converts a Nigerian phone number to 234XXXXXXXXXX.
//
// Accepted shapes after non-digits are stripped:
//   - 0XXXXXXXXXX (11 digits, local trunk prefix)
//   - 234XXXXXXXXXX (13 digits, already canonical)
//   - XXXXXXXXXX (10 digit subscriber number, not starting with 0)
//
// Anything else is rejected with ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	digits := digitsOnly(raw)

	switch {
	case len(digits) == 11 && digits[0] == '0':
		return "234" + digits[1:], nil
	case len(digits) == 13 && strings.HasPrefix(digits, "234"):
		return digits, nil
	case len(digits) == 10 && digits[0] != '0':
		return "234" + digits, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseOptionalNonNegativeNumber parses an optional amount such as a carried
// forward debt. It never fails: blank, unparseable or negative input yields def.
// Thousands separators are accepted ("1,500.50"). Values are held to
// float64 range: anything that overflows to infinity is unparseable.
func ParseOptionalNonNegativeNumber(input string, def decimal.Decimal) decimal.Decimal {
	s := strings.ReplaceAll(CleanCell(input), ",", "")
	if s == "" {
		return def
	}

	// decimal syntax rejects hex floats, NaN and Inf spellings that
	// strconv would accept.
	if _, err := decimal.NewFromString(s); err != nil {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f < 0 {
		return def
	}
	return decimal.NewFromFloat(f)
}

// CleanCell trims whitespace and a leading byte order mark from a cell value.
func CleanCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
