package normalize

import (
	"github.com/agext/levenshtein"
)

var fuzzyParams = levenshtein.NewParams()

// bestCatalogMatch scores the candidate against every canonical product
// name and returns the best match. Catalog order breaks ties, which keeps
// repeated calls deterministic.
func (n *Normalizer) bestCatalogMatch(candidate string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, product := range n.data.Catalog {
		score := levenshtein.Similarity(candidate, product, fuzzyParams)
		if score > bestScore {
			best, bestScore = product, score
		}
	}
	return best, bestScore
}
