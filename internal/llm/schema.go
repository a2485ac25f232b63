package llm

// BuildLineItemsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is passed to the model as a structured output constraint
// and also used locally to validate the response.
func BuildLineItemsJSONSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"item_name": map[string]any{"type": "string", "minLength": 1},
			"price":     decimalProp(),
		},
		"required": []string{"item_name", "price"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"merchant": map[string]any{"type": "string"},
			"total":    decimalProp(),
			"items": map[string]any{
				"type":  "array",
				"items": item,
			},
		},
		"required": []string{"items"},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`, // markdowns can go negative
	}
}
