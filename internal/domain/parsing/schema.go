package parsing

import (
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

const schemaName = "treatment_plan"

// planSchema is the strict json_schema the model output must follow. In
// strict mode every property is required; optional values are nullable.
func planSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"items", "confidence", "notes"},
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"original_text", "teeth", "taxonomy_code", "description", "category"},
					"properties": map[string]any{
						"original_text": map[string]any{"type": "string"},
						"teeth": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"taxonomy_code": map[string]any{"type": []string{"string", "null"}},
						"description":   map[string]any{"type": "string"},
						"category": map[string]any{
							"type": "string",
							"enum": taxonomy.CategoryStrings(),
						},
					},
				},
			},
			"confidence": map[string]any{"type": "number"},
			"notes":      map[string]any{"type": []string{"string", "null"}},
		},
	}
}
