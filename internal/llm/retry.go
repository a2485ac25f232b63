package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pantrytrack/receipt-parser/internal/common"
)

// StructuredExtractor layers the retry budget over a single-attempt backend.
// Each failed attempt (schema violation or financial mismatch against the
// detected total) feeds a corrective instruction into the next one. When the
// budget runs out, the best attempt seen so far is returned together with an
// error describing the shortfall; the caller records the note instead of
// failing the parse.
type StructuredExtractor struct {
	backend        ItemExtractor
	budget         int
	toleranceCents int64
	logger         *slog.Logger
}

func NewStructuredExtractor(backend ItemExtractor, budget int, toleranceCents int64, logger *slog.Logger) *StructuredExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if budget <= 0 {
		budget = 2
	}
	if toleranceCents <= 0 {
		toleranceCents = 5
	}
	return &StructuredExtractor{
		backend:        backend,
		budget:         budget,
		toleranceCents: toleranceCents,
		logger:         logger,
	}
}

func (e *StructuredExtractor) ExtractItems(ctx context.Context, req ExtractRequest) (ItemExtraction, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	var (
		best     ItemExtraction
		bestRaw  []byte
		lastErr  error
		haveBest bool
	)

	for attempt := 1; attempt <= e.budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return best, bestRaw, err
		}

		out, raw, err := e.backend.ExtractItems(ctx, req)
		if err != nil {
			lastErr = err
			req.CorrectiveNote = fmt.Sprintf("your previous response was rejected: %v. Return ONLY JSON matching the schema.", err)
			e.logger.Warn("llm.extract.attempt_failed",
				"req_id", rid, "attempt", attempt, "error", err)
			continue
		}

		// keep the schema-valid attempt with the most items as the fallback
		if !haveBest || len(out.Items) > len(best.Items) {
			best, bestRaw, haveBest = out, raw, true
		}

		if mismatch := e.financialMismatch(out, req.DetectedTotal); mismatch != "" {
			lastErr = fmt.Errorf("financial mismatch: %s", mismatch)
			req.CorrectiveNote = mismatch + " Re-extract the items so their prices sum to the printed subtotal."
			e.logger.Warn("llm.extract.financial_mismatch",
				"req_id", rid, "attempt", attempt, "detail", mismatch)
			continue
		}

		e.logger.Info("llm.extract.ok",
			"req_id", rid,
			"attempt", attempt,
			"items", len(out.Items),
			"merchant", out.Merchant,
			"total", out.Total,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, raw, nil
	}

	e.logger.Error("llm.extract.budget_exhausted",
		"req_id", rid,
		"attempts", e.budget,
		"best_items", len(best.Items),
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return best, bestRaw, fmt.Errorf("retry budget (%d) exhausted: %w", e.budget, lastErr)
}

// financialMismatch checks the returned items against the detected receipt
// total; an empty string means consistent (or nothing to check against).
func (e *StructuredExtractor) financialMismatch(out ItemExtraction, detectedTotal string) string {
	if detectedTotal == "" {
		return ""
	}
	want, err := common.ParseCents(detectedTotal)
	if err != nil {
		return ""
	}
	var sum int64
	for _, it := range out.Items {
		c, err := common.ParseCents(it.Price)
		if err != nil {
			return fmt.Sprintf("item %q has unparsable price %q.", it.ItemName, it.Price)
		}
		sum += c
	}
	delta := sum - want
	if delta < 0 {
		delta = -delta
	}
	if delta > e.toleranceCents {
		return fmt.Sprintf("extracted item prices sum to %s but the receipt prints %s.",
			common.FormatCents(sum), common.FormatCents(want))
	}
	return ""
}
