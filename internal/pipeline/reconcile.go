package pipeline

import (
	"fmt"

	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/entity"
)

// Reconcile sums final item prices against the printed subtotal/total. On a
// mismatch beyond tolerance it appends a note with the signed delta, lowers
// confidence, and flags the receipt for manual review. Items are never
// removed or adjusted, and this function never fails.
func Reconcile(res *entity.ReceiptParseResult, toleranceCents int64) {
	ref := res.SubtotalCents
	if ref == nil {
		ref = res.TotalCents
	}
	if ref == nil {
		return
	}

	delta := res.ItemSumCents() - *ref
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	if abs <= toleranceCents {
		return
	}

	res.AddNote(fmt.Sprintf(
		"reconciliation mismatch: item sum %s differs from printed %s by %+d cents",
		common.FormatCents(res.ItemSumCents()), common.FormatCents(*ref), delta))
	res.NeedsReview = true
	res.Confidence *= 0.7
}
