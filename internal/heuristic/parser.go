package heuristic

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pantrytrack/receipt-parser/internal/common"
)

// Config holds the thresholds the heuristic pass needs.
type Config struct {
	SubtotalToleranceCents int64 // default 5
}

// ResolvedItem is an item with its final heuristic price.
type ResolvedItem struct {
	Code       string
	RawName    string
	PriceCents int64
	Department string
}

// Parse is the summary of one heuristic pass over a receipt.
type Parse struct {
	Merchant      string
	Items         []ResolvedItem
	SubtotalCents *int64
	TotalCents    *int64
	Notes         []string
	Confidence    float32

	// tagging statistics feeding the escalation gate
	LineCount       int
	NoiseCount      int
	CodeNameCount   int
	MultiPriceItems int // items that closed with more than one candidate
}

// Parser runs the deterministic segmentation-and-pricing pass.
type Parser struct {
	logger *slog.Logger
	cfg    Config
}

func NewParser(cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SubtotalToleranceCents <= 0 {
		cfg.SubtotalToleranceCents = 5
	}
	return &Parser{logger: logger, cfg: cfg}
}

// Parse tags, segments, and prices one complete receipt text.
func (p *Parser) Parse(text string) *Parse {
	start := time.Now()
	lines := splitLines(text)
	tagged := TagLines(lines)

	out := &Parse{LineCount: len(tagged)}
	for _, l := range tagged {
		if l.Has(TagNoise) {
			out.NoiseCount++
		}
		if l.Has(TagCodeName) {
			out.CodeNameCount++
		}
	}

	out.Merchant = detectMerchant(tagged)
	out.SubtotalCents, out.TotalCents = detectSummaryAmounts(tagged)

	candidates, notes := ResolveItems(tagged)
	out.Notes = notes
	for _, c := range candidates {
		price, superseded := SelectPrice(c)
		if len(superseded) > 0 {
			out.MultiPriceItems++
			for _, s := range superseded {
				out.Notes = append(out.Notes, fmt.Sprintf(
					"item %q: price %s superseded by %s",
					c.RawName, common.FormatCents(s), common.FormatCents(price)))
			}
		}
		out.Items = append(out.Items, ResolvedItem{
			Code:       c.Code,
			RawName:    c.RawName,
			PriceCents: price,
			Department: c.Department,
		})
	}

	out.Confidence = p.score(out)

	p.logger.Debug("heuristic.parse.ok",
		"lines", out.LineCount,
		"items", len(out.Items),
		"code_name_lines", out.CodeNameCount,
		"noise_lines", out.NoiseCount,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// ItemSumCents sums the resolved item prices.
func (p *Parse) ItemSumCents() int64 {
	var sum int64
	for _, it := range p.Items {
		sum += it.PriceCents
	}
	return sum
}

// ReferenceTotalCents is the printed amount items should reconcile against,
// preferring the subtotal (pre-tax) over the total.
func (p *Parse) ReferenceTotalCents() (int64, bool) {
	if p.SubtotalCents != nil {
		return *p.SubtotalCents, true
	}
	if p.TotalCents != nil {
		return *p.TotalCents, true
	}
	return 0, false
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// detectMerchant takes the first untagged alphabetic line printed before any
// item: receipts lead with the chain's banner line.
func detectMerchant(lines []RawLine) string {
	for _, l := range lines {
		if l.Has(TagCodeName) {
			return ""
		}
		if l.Has(TagNoise) {
			t := strings.TrimSpace(l.Text)
			if t != "" && strings.IndexFunc(t, isLetter) >= 0 {
				return t
			}
		}
	}
	return ""
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func detectSummaryAmounts(lines []RawLine) (subtotal, total *int64) {
	for _, l := range lines {
		if l.Has(TagSubtotal) && subtotal == nil {
			if c, ok := SummaryAmountCents(l.Text); ok {
				subtotal = &c
			}
		}
		if l.Has(TagTotal) && total == nil && !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(l.Text)), "TAX") {
			if c, ok := SummaryAmountCents(l.Text); ok {
				total = &c
			}
		}
	}
	return subtotal, total
}
