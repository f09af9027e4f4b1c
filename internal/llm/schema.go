package llm

// BuildDocumentJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It checks types only; format rules (postal code, dates) are soft checks in SanitizeFields.
func BuildDocumentJSONSchema() map[string]any {
	props := map[string]any{
		"name":        nullableString(),
		"address":     nullableString(),
		"postalcode":  nullableString(),
		"city":        nullableString(),
		"birthday":    nullableString(),
		"date":        nullableString(),
		"time":        nullableString(),
		"handwritten": map[string]any{"type": "boolean"},
		"signed":      map[string]any{"type": "boolean"},
		"stamp":       nullableString(),
		"confidence":  map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}
