package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCents converts a printed decimal amount ("2.42", "$1,234.00", "3.99-")
// to integer cents. Receipts print at most two decimal places; parsing stays
// in integer space to avoid float drift when amounts are summed later.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "-") { // trailing-minus markdown convention
		neg = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("parse cents: empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cents %q: %w", s, err)
	}
	cents := w * 100
	switch len(frac) {
	case 0:
	case 1:
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cents %q: %w", s, err)
		}
		cents += f * 10
	case 2:
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cents %q: %w", s, err)
		}
		cents += f
	default:
		return 0, fmt.Errorf("parse cents %q: more than two decimal places", s)
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatCents renders integer cents as a decimal string ("242" -> "2.42").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
