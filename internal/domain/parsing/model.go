package parsing

// PlanItem is one structured entry extracted from a free-text plan.
type PlanItem struct {
	ID           string   `json:"id"`
	OriginalText string   `json:"original_text"`
	Teeth        []string `json:"teeth"`
	TaxonomyCode *string  `json:"taxonomy_code"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
}

// Result is the parser output.
type Result struct {
	Items      []PlanItem `json:"items"`
	Confidence float64    `json:"confidence"`
	Notes      *string    `json:"notes,omitempty"`
}
