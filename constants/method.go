package constants

// ParseMethod identifies which stage produced the final item list.
type ParseMethod string

const (
	MethodHeuristic  ParseMethod = "heuristic"
	MethodGenerative ParseMethod = "generative"
)

// NormalizationMethod identifies the strategy that resolved a raw item name.
type NormalizationMethod string

const (
	NormDictionary   NormalizationMethod = "dictionary"
	NormMerchantRule NormalizationMethod = "merchant_rule"
	NormFuzzyMatch   NormalizationMethod = "fuzzy_match"
	NormPassthrough  NormalizationMethod = "passthrough"
)
