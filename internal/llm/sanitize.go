package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes the markdown code fences some models wrap JSON in.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// SanitizeExtraction normalizes a model response toward the strict schema:
//   - renames known synonyms (line_items -> items, merchant_name -> merchant)
//   - coerces numeric prices/totals to decimal strings
//   - drops items missing a name or a usable price
//   - removes unknown keys (additionalProperties is false)
//
// It returns the cleaned JSON plus the list of adjustments for logging.
func SanitizeExtraction(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	rename("line_items", "items")
	rename("lineItems", "items")
	rename("merchant_name", "merchant")
	rename("store", "merchant")
	rename("grand_total", "total")
	rename("subtotal", "total")

	if v, ok := m["total"]; ok {
		if s, changed := coerceDecimal(v); s != "" {
			m["total"] = s
			if changed {
				dropped = append(dropped, "total(coerced)")
			}
		} else {
			delete(m, "total")
			dropped = append(dropped, "total(unusable)")
		}
	}

	items, _ := m["items"].([]any)
	cleaned := make([]any, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("items[%d](not object)", i))
			continue
		}
		renameItem := func(from, to string) {
			if v, ok := obj[from]; ok {
				if _, exists := obj[to]; !exists {
					obj[to] = v
				}
				delete(obj, from)
			}
		}
		renameItem("name", "item_name")
		renameItem("description", "item_name")
		renameItem("amount", "price")

		name, _ := obj["item_name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			dropped = append(dropped, fmt.Sprintf("items[%d](no name)", i))
			continue
		}
		price, changed := coerceDecimal(obj["price"])
		if price == "" {
			dropped = append(dropped, fmt.Sprintf("items[%d](no price)", i))
			continue
		}
		if changed {
			dropped = append(dropped, fmt.Sprintf("items[%d].price(coerced)", i))
		}
		cleaned = append(cleaned, map[string]any{"item_name": name, "price": price})
	}
	m["items"] = cleaned

	allowed := map[string]struct{}{"merchant": {}, "items": {}, "total": {}}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}
	if v, ok := m["merchant"].(string); ok {
		s := strings.TrimSpace(v)
		if s == "" {
			delete(m, "merchant")
			dropped = append(dropped, "merchant(empty)")
		} else {
			m["merchant"] = s
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// coerceDecimal renders a JSON value as a two-decimal string when possible.
// changed reports whether the value needed rewriting.
func coerceDecimal(v any) (s string, changed bool) {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", t), true
	case string:
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		if trimmed == "" || strings.EqualFold(trimmed, "null") {
			return "", false
		}
		return trimmed, trimmed != t
	default:
		return "", false
	}
}
