package llm

import (
	"strings"
)

const maxPromptOCRBytes = 6000

// BuildSystemPrompt composes the system message: strict schema adherence
// plus the pricing conventions printed receipts follow.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a retail receipt line-item extractor. Return ONLY JSON that matches the provided JSON Schema.",
		"Extract every purchased item with its final price. When a discounted price is printed directly beneath an item's original price, the discounted price is the final one.",
		"Department or category headers (GROCERY, DELI, MISCELLANEOUS, ...) are not items.",
		"Ignore tax lines, payment lines, change due, and membership banners.",
		"Prices are plain decimal strings with up to two decimal places, no currency symbols.",
		"Include 'merchant' and 'total' when they are visible on the receipt.",
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the receipt text and any hints, including the
// corrective instruction on retries.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if m := strings.TrimSpace(req.MerchantHint); m != "" {
		b.WriteString("Merchant hint: ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	if t := strings.TrimSpace(req.DetectedTotal); t != "" {
		b.WriteString("The receipt prints a subtotal of ")
		b.WriteString(t)
		b.WriteString("; extracted item prices must sum to it.\n")
	}
	if note := strings.TrimSpace(req.CorrectiveNote); note != "" {
		b.WriteString("Correction to your previous response: ")
		b.WriteString(note)
		b.WriteString("\n")
	}

	ocr := strings.TrimSpace(req.OCRText)
	b.WriteString("\nOCR text:\n")
	if len(ocr) > maxPromptOCRBytes {
		b.WriteString(ocr[:maxPromptOCRBytes])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(ocr)
	}
	return b.String()
}
