package llm

import "context"

// LineItem is one extracted purchase as the model returns it. Price stays a
// decimal string at this boundary; the pipeline converts to cents.
type LineItem struct {
	ItemName string `json:"item_name"`
	Price    string `json:"price"` // decimal, e.g. "6.99"
}

// ItemExtraction is the normalized shape we want from the LLM.
type ItemExtraction struct {
	Merchant string     `json:"merchant,omitempty"`
	Items    []LineItem `json:"items"`
	Total    string     `json:"total,omitempty"` // decimal
}

// ExtractRequest carries one receipt's text plus the hints a backend may
// fold into its prompt.
type ExtractRequest struct {
	OCRText       string
	MerchantHint  string
	DetectedTotal string // decimal; "" when no subtotal/total was printed

	// CorrectiveNote is set on retries to tell the model what was wrong
	// with its previous response.
	CorrectiveNote string
}

// ItemExtractor is the interface the pipeline depends on. Implementations
// make one attempt; StructuredExtractor layers the retry budget on top.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, req ExtractRequest) (ItemExtraction, []byte /*rawJSON*/, error)
}
