package entity

import (
	"github.com/pantrytrack/receipt-parser/constants"
)

// ParsedItem is one purchased line item in its durable, post-normalization
// form. Prices are integer cents so downstream sums never drift.
type ParsedItem struct {
	RawName    string                `json:"raw_name"`
	ParsedName string                `json:"parsed_name"`
	PriceCents int64                 `json:"price_cents"`
	Department string                `json:"department,omitempty"`
	Merchant   string                `json:"merchant,omitempty"`
	Source     constants.ParseMethod `json:"source"`
	Confidence float32               `json:"confidence"`
}

// NormalizationResult reports how a raw item name was resolved to a
// canonical one.
type NormalizationResult struct {
	Original   string                        `json:"original"`
	Normalized string                        `json:"normalized"`
	Confidence float32                       `json:"confidence"`
	Method     constants.NormalizationMethod `json:"method"`
}

// ReceiptParseResult is the final output of one parse invocation.
//
// Invariant: the sum of item prices should approximate TotalCents (when
// detected) within the configured tolerance; any mismatch is appended to
// ProcessingNotes, never silently discarded.
type ReceiptParseResult struct {
	Success         bool                  `json:"success"`
	Merchant        string                `json:"merchant,omitempty"`
	Items           []ParsedItem          `json:"items"`
	SubtotalCents   *int64                `json:"subtotal_cents,omitempty"`
	TotalCents      *int64                `json:"total_cents,omitempty"`
	Confidence      float32               `json:"confidence"`
	Method          constants.ParseMethod `json:"method"`
	NeedsReview     bool                  `json:"needs_review"`
	ProcessingNotes []string              `json:"processing_notes"`
}

// ItemSumCents sums item prices.
func (r *ReceiptParseResult) ItemSumCents() int64 {
	var sum int64
	for _, it := range r.Items {
		sum += it.PriceCents
	}
	return sum
}

// AddNote appends a processing note.
func (r *ReceiptParseResult) AddNote(note string) {
	r.ProcessingNotes = append(r.ProcessingNotes, note)
}
