package heuristic

import (
	"regexp"
	"strings"

	"github.com/pantrytrack/receipt-parser/constants"
	"github.com/pantrytrack/receipt-parser/internal/common"
)

// Tag classifies one aspect of a printed receipt line. A line may carry
// several tags at once (a price line with a tax-status suffix is both PRICE
// and PRICE_TAX_FLAG).
type Tag string

const (
	TagCodeName       Tag = "CODE_NAME"
	TagPrice          Tag = "PRICE"
	TagPriceTaxFlag   Tag = "PRICE_TAX_FLAG"
	TagCategoryHeader Tag = "CATEGORY_HEADER"
	TagDiscount       Tag = "DISCOUNT"
	TagSubtotal       Tag = "SUBTOTAL"
	TagTotal          Tag = "TOTAL"
	TagDepartment     Tag = "DEPARTMENT"
	TagNoise          Tag = "NOISE"
)

// RawLine is one input line with the tags the rule table assigned to it.
type RawLine struct {
	Index int
	Text  string
	Tags  []Tag
}

// Has reports whether the line carries the given tag.
func (l RawLine) Has(t Tag) bool {
	for _, tag := range l.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

// Tagging is purely local: every rule sees one line's text and nothing else.
// That locality is what guarantees a neighboring item's code or name can
// never change how the current line is classified.
var (
	// leading numeric token of typical UPC length followed by alphabetic text
	reCodeName = regexp.MustCompile(`^\s*(\d{7,13})\s+([A-Za-z].*?)\s*$`)

	// a lone decimal amount, optional currency sign, optional trailing-minus
	// markdown, optional one-letter tax-status suffix
	rePrice = regexp.MustCompile(`^\s*\$?(\d{1,4}\.\d{2})(-)?(?:\s+([A-Z]))?\s*$`)

	reSubtotal = regexp.MustCompile(`(?i)^\s*SUB\s?TOTAL\b`)
	reTotal    = regexp.MustCompile(`(?i)^\s*\**\s*(TOTAL|TAX)\b`)

	// markdown/adjustment lines; these reference the prior sale line's code
	// after the slash, which is exactly why they must never match CODE_NAME
	reDiscount = regexp.MustCompile(`(?i)^\s*(TPD|INST\s*SV|INSTANT\s+SAVINGS|MEMBER\s+SAVINGS|COUPON|MARKDOWN)\b`)

	// trailing amount on discount and subtotal/total lines
	reTrailingAmount = regexp.MustCompile(`\$?(\d{1,5}\.\d{2})(-)?\s*$`)
)

// TagLine classifies a single line. It never consults neighboring lines.
func TagLine(index int, text string) RawLine {
	line := RawLine{Index: index, Text: text}
	trimmed := strings.TrimSpace(text)

	switch {
	case reSubtotal.MatchString(trimmed):
		line.Tags = append(line.Tags, TagSubtotal)
	case reTotal.MatchString(trimmed):
		line.Tags = append(line.Tags, TagTotal)
	case reCodeName.MatchString(trimmed):
		line.Tags = append(line.Tags, TagCodeName)
	case reDiscount.MatchString(trimmed):
		line.Tags = append(line.Tags, TagDiscount)
		if reTrailingAmount.MatchString(trimmed) {
			line.Tags = append(line.Tags, TagPrice)
		}
	case rePrice.MatchString(trimmed):
		m := rePrice.FindStringSubmatch(trimmed)
		line.Tags = append(line.Tags, TagPrice)
		if m[2] == "-" {
			line.Tags = append(line.Tags, TagDiscount)
		}
		if m[3] != "" {
			line.Tags = append(line.Tags, TagPriceTaxFlag)
		}
	case constants.IsDepartment(trimmed):
		line.Tags = append(line.Tags, TagCategoryHeader, TagDepartment)
	}

	if len(line.Tags) == 0 {
		line.Tags = append(line.Tags, TagNoise)
	}
	return line
}

// TagLines classifies every line independently.
func TagLines(lines []string) []RawLine {
	out := make([]RawLine, 0, len(lines))
	for i, text := range lines {
		out = append(out, TagLine(i, text))
	}
	return out
}

// SplitCodeName splits a CODE_NAME line into its numeric code and item name.
func SplitCodeName(text string) (code, name string, ok bool) {
	m := reCodeName.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// PriceCents extracts the amount from a PRICE-tagged line in integer cents.
// Trailing-minus markdowns come back negative.
func PriceCents(text string) (cents int64, taxFlag string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if m := rePrice.FindStringSubmatch(trimmed); m != nil {
		c, err := common.ParseCents(m[1])
		if err != nil {
			return 0, "", false
		}
		if m[2] == "-" {
			c = -c
		}
		return c, m[3], true
	}
	// discount lines carry their amount at the end
	if m := reTrailingAmount.FindStringSubmatch(trimmed); m != nil {
		c, err := common.ParseCents(m[1])
		if err != nil {
			return 0, "", false
		}
		if m[2] == "-" {
			c = -c
		}
		return c, "", true
	}
	return 0, "", false
}

// SummaryAmountCents extracts the printed amount from a SUBTOTAL/TOTAL line.
func SummaryAmountCents(text string) (int64, bool) {
	m := reTrailingAmount.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	c, err := common.ParseCents(m[1])
	if err != nil {
		return 0, false
	}
	return c, true
}
