package plan

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

// Plan maps to the treatment_plans table. Items are stored as JSONB.
type Plan struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	Title          *string            `db:"title" json:"title,omitempty"`
	RawInput       string             `db:"raw_input" json:"raw_input"`
	Items          []parsing.PlanItem `db:"treatment_items" json:"treatment_items"`
	Status         string             `db:"status" json:"status"`
	Confidence     *float64           `db:"parsing_confidence" json:"parsing_confidence,omitempty"`
	ParsingNotes   *string            `db:"parsing_notes" json:"parsing_notes,omitempty"`
	DentistryTypes []string           `db:"dentistry_types" json:"dentistry_types"`
	TeethInvolved  []string           `db:"teeth_involved" json:"teeth_involved"`
	CreatedBy      *string            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// Plan statuses.
const (
	StatusDraft     = "draft"
	StatusParsed    = "parsed"
	StatusConfirmed = "confirmed"
	StatusArchived  = "archived"
)

var validStatuses = map[string]bool{
	StatusDraft: true, StatusParsed: true, StatusConfirmed: true, StatusArchived: true,
}

func ValidStatus(s string) bool { return validStatuses[s] }

// Editable reports whether raw input and items may still change once
// sequences reference the plan.
func (p *Plan) Editable() bool {
	return p.Status == StatusDraft || p.Status == StatusParsed
}

// Derive recomputes dentistry_types and teeth_involved from the items.
// Wildcards are expanded and codes that are not valid FDI teeth are left out.
func (p *Plan) Derive() {
	cats := map[string]bool{}
	teeth := map[string]bool{}
	for _, it := range p.Items {
		if it.Category != "" {
			cats[it.Category] = true
		}
		for _, t := range taxonomy.ExpandTeeth(it.Teeth) {
			if taxonomy.ValidToothCode(t) {
				teeth[t] = true
			}
		}
	}
	p.DentistryTypes = sortedKeys(cats)
	p.TeethInvolved = sortedKeys(teeth)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
