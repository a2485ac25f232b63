package normalize

import (
	"log/slog"
	"strings"

	"github.com/pantrytrack/receipt-parser/constants"
	"github.com/pantrytrack/receipt-parser/internal/entity"
)

// Normalizer maps truncated/abbreviated printed item names to canonical
// product names. Strategies are tried in order, first success wins:
// abbreviation dictionary, merchant rule table, fuzzy catalog match,
// pass-through. Normalize is a pure function of its arguments and the
// immutable reference data, so batches can run in any order.
type Normalizer struct {
	data           *RefData
	fuzzyThreshold float64
	logger         *slog.Logger
}

func New(data *RefData, fuzzyThreshold float64, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = 0.72
	}
	return &Normalizer{data: data, fuzzyThreshold: fuzzyThreshold, logger: logger}
}

// Normalize resolves one raw item name within a merchant context.
func (n *Normalizer) Normalize(rawName, merchant string) entity.NormalizationResult {
	original := rawName
	tokens := tokenize(rawName)
	if len(tokens) == 0 {
		return entity.NormalizationResult{
			Original:   original,
			Normalized: strings.TrimSpace(rawName),
			Confidence: 0,
			Method:     constants.NormPassthrough,
		}
	}

	// 1) dictionary: expand token-level abbreviations; succeeds only when
	// every token resolves to dictionary or catalog vocabulary
	expanded, unresolved := n.expandTokens(tokens)
	if unresolved == 0 {
		return entity.NormalizationResult{
			Original:   original,
			Normalized: strings.Join(expanded, " "),
			Confidence: 0.95,
			Method:     constants.NormDictionary,
		}
	}

	// 2) merchant rule table: chain-specific substitutions applied to the
	// tokens the dictionary could not place
	if rules, ok := n.data.RulesFor(merchant); ok {
		ruled, unresolved := n.applyMerchantRules(expanded, rules)
		if unresolved == 0 && len(ruled) > 0 {
			return entity.NormalizationResult{
				Original:   original,
				Normalized: strings.Join(ruled, " "),
				Confidence: 0.90,
				Method:     constants.NormMerchantRule,
			}
		}
		expanded = ruled
	}

	// 3) fuzzy match against the canonical catalog
	if candidate := strings.Join(expanded, " "); candidate != "" {
		if best, score := n.bestCatalogMatch(candidate); score >= n.fuzzyThreshold {
			return entity.NormalizationResult{
				Original:   original,
				Normalized: best,
				Confidence: float32(score) * 0.9,
				Method:     constants.NormFuzzyMatch,
			}
		}
	}

	// 4) pass-through
	return entity.NormalizationResult{
		Original:   original,
		Normalized: strings.TrimSpace(rawName),
		Confidence: 0.2,
		Method:     constants.NormPassthrough,
	}
}

// NormalizeBatch applies Normalize independently to each name. There is no
// cross-item state: ordering of the batch cannot affect any single result.
func (n *Normalizer) NormalizeBatch(rawNames []string, merchant string) []entity.NormalizationResult {
	out := make([]entity.NormalizationResult, len(rawNames))
	for i, name := range rawNames {
		out[i] = n.Normalize(name, merchant)
	}
	return out
}

// expandTokens replaces dictionary abbreviations and counts tokens that
// neither the dictionary nor the catalog vocabulary accounts for.
func (n *Normalizer) expandTokens(tokens []string) (expanded []string, unresolved int) {
	expanded = make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if exp, ok := n.data.Abbreviations[tok]; ok {
			expanded = append(expanded, strings.Fields(exp)...)
			continue
		}
		if !n.data.knownWord(tok) {
			unresolved++
		}
		expanded = append(expanded, tok)
	}
	return expanded, unresolved
}

func (n *Normalizer) applyMerchantRules(tokens []string, rules MerchantRules) (out []string, unresolved int) {
	out = make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if sub, ok := rules.Rules[tok]; ok {
			if sub == "" {
				continue // dropped brand/marker token
			}
			out = append(out, strings.Fields(strings.ToUpper(sub))...)
			continue
		}
		if !n.data.knownWord(tok) {
			if _, inDict := n.data.Abbreviations[tok]; !inDict {
				unresolved++
			}
		}
		out = append(out, tok)
	}
	return out, unresolved
}

func tokenize(s string) []string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Fields(s)
}
