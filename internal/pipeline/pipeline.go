package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pantrytrack/receipt-parser/constants"
	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/entity"
	"github.com/pantrytrack/receipt-parser/internal/heuristic"
	"github.com/pantrytrack/receipt-parser/internal/llm"
	"github.com/pantrytrack/receipt-parser/internal/normalize"
)

// Config holds the pipeline's behavior knobs. There is no module-level
// state: everything the pipeline needs arrives here at construction time.
type Config struct {
	EscalationThreshold    float32 // default 0.70
	RetryBudget            int     // default 2
	FuzzyMatchThreshold    float64 // default 0.72
	SubtotalToleranceCents int64   // default 5
}

func (c Config) withDefaults() Config {
	if c.EscalationThreshold <= 0 {
		c.EscalationThreshold = 0.70
	}
	if c.RetryBudget <= 0 {
		c.RetryBudget = 2
	}
	if c.FuzzyMatchThreshold <= 0 {
		c.FuzzyMatchThreshold = 0.72
	}
	if c.SubtotalToleranceCents <= 0 {
		c.SubtotalToleranceCents = 5
	}
	return c
}

// Parser runs a full receipt parse: heuristic pass, escalation gate,
// optional generative fallback, normalization, reconciliation. One Parser
// serves concurrent parses; it holds no per-receipt state.
type Parser struct {
	logger     *slog.Logger
	cfg        Config
	heuristic  *heuristic.Parser
	extractor  llm.ItemExtractor // nil disables escalation
	normalizer *normalize.Normalizer
}

func NewParser(cfg Config, normalizer *normalize.Normalizer, extractor llm.ItemExtractor, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Parser{
		logger:     logger,
		cfg:        cfg,
		heuristic:  heuristic.NewParser(heuristic.Config{SubtotalToleranceCents: cfg.SubtotalToleranceCents}, logger),
		extractor:  extractor,
		normalizer: normalizer,
	}
}

// Parse processes one complete receipt text. It always returns a result;
// the worst case is an empty item list with Success=false and a note. The
// context bounds only the generative fallback's network round trip.
func (p *Parser) Parse(ctx context.Context, ocrText, merchantHint string) *entity.ReceiptParseResult {
	start := time.Now()
	res := &entity.ReceiptParseResult{
		Method:          constants.MethodHeuristic,
		ProcessingNotes: []string{},
		Items:           []entity.ParsedItem{},
	}

	if strings.TrimSpace(ocrText) == "" {
		res.AddNote("no content: receipt text is empty")
		return res
	}

	h := p.heuristic.Parse(ocrText)
	if h.LineCount == 0 {
		res.AddNote("no content: no recognizable lines")
		return res
	}

	res.Merchant = h.Merchant
	if res.Merchant == "" {
		res.Merchant = strings.TrimSpace(merchantHint)
	}
	res.SubtotalCents = h.SubtotalCents
	res.TotalCents = h.TotalCents
	res.Confidence = h.Confidence
	res.ProcessingNotes = append(res.ProcessingNotes, h.Notes...)

	reasons := p.escalationReasons(h)
	switch {
	case len(reasons) == 0:
		p.appendHeuristicItems(res, h)

	case p.extractor == nil:
		res.AddNote("escalation skipped (no extractor configured): " + strings.Join(reasons, "; "))
		p.appendHeuristicItems(res, h)

	default:
		res.AddNote("escalated to generative extractor: " + strings.Join(reasons, "; "))
		p.escalate(ctx, res, h, ocrText)
	}

	Reconcile(res, p.cfg.SubtotalToleranceCents)

	res.Success = len(res.Items) > 0
	if !res.Success {
		res.AddNote("no items could be extracted from this receipt")
	}

	p.logger.Info("pipeline.parse.done",
		"merchant", res.Merchant,
		"items", len(res.Items),
		"method", res.Method,
		"confidence", res.Confidence,
		"needs_review", res.NeedsReview,
		"notes", len(res.ProcessingNotes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Parser) escalationReasons(h *heuristic.Parse) []string {
	var reasons []string
	if len(h.Items) == 0 {
		reasons = append(reasons, "zero items resolved")
	}
	if h.Confidence < p.cfg.EscalationThreshold {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below threshold %.2f", h.Confidence, p.cfg.EscalationThreshold))
	}
	if len(h.Items) != h.CodeNameCount {
		reasons = append(reasons, fmt.Sprintf("resolved %d items from %d item code lines", len(h.Items), h.CodeNameCount))
	}
	return reasons
}

// appendHeuristicItems normalizes and carries over the heuristic item list.
func (p *Parser) appendHeuristicItems(res *entity.ReceiptParseResult, h *heuristic.Parse) {
	for _, it := range h.Items {
		nr := p.normalizer.Normalize(it.RawName, res.Merchant)
		res.Items = append(res.Items, entity.ParsedItem{
			RawName:    it.RawName,
			ParsedName: nr.Normalized,
			PriceCents: it.PriceCents,
			Department: it.Department,
			Merchant:   res.Merchant,
			Source:     constants.MethodHeuristic,
			Confidence: 0.5*h.Confidence + 0.5*nr.Confidence,
		})
	}
}

// escalate routes the raw text to the generative extractor. A valid
// extraction fully supersedes the heuristic item list; the two sources are
// never merged, to avoid double-counting. On exhaustion with no usable
// partial, the heuristic items stand.
func (p *Parser) escalate(ctx context.Context, res *entity.ReceiptParseResult, h *heuristic.Parse, ocrText string) {
	req := llm.ExtractRequest{
		OCRText:      ocrText,
		MerchantHint: res.Merchant,
	}
	if ref, ok := h.ReferenceTotalCents(); ok {
		req.DetectedTotal = common.FormatCents(ref)
	}

	out, _, err := p.extractor.ExtractItems(ctx, req)
	baseConfidence := float32(0.8)
	if err != nil {
		if len(out.Items) == 0 {
			res.AddNote(fmt.Sprintf("generative extraction failed, keeping heuristic result: %v", err))
			p.appendHeuristicItems(res, h)
			return
		}
		res.AddNote(fmt.Sprintf("generative extraction incomplete (best partial kept): %v", err))
		baseConfidence = 0.5
	}

	res.Method = constants.MethodGenerative
	res.Confidence = baseConfidence
	if res.Merchant == "" {
		res.Merchant = strings.TrimSpace(out.Merchant)
	}
	if res.TotalCents == nil && out.Total != "" {
		if c, perr := common.ParseCents(out.Total); perr == nil {
			res.TotalCents = &c
		}
	}

	for _, it := range out.Items {
		cents, perr := common.ParseCents(it.Price)
		if perr != nil {
			res.AddNote(fmt.Sprintf("generative item %q skipped: unparsable price %q", it.ItemName, it.Price))
			continue
		}
		nr := p.normalizer.Normalize(it.ItemName, res.Merchant)
		res.Items = append(res.Items, entity.ParsedItem{
			RawName:    it.ItemName,
			ParsedName: nr.Normalized,
			PriceCents: cents,
			Merchant:   res.Merchant,
			Source:     constants.MethodGenerative,
			Confidence: 0.5*baseConfidence + 0.5*nr.Confidence,
		})
	}
}
