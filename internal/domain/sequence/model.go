package sequence

import (
	"time"

	"github.com/google/uuid"
)

// Sequence maps to the treatment_sequences table.
type Sequence struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PlanID           uuid.UUID  `db:"plan_id" json:"plan_id"`
	CaseID           *uuid.UUID `db:"case_id" json:"case_id,omitempty"`
	Status           string     `db:"status" json:"status"`
	PatientAgeRange  *string    `db:"patient_age_range" json:"patient_age_range,omitempty"`
	PatientSex       *string    `db:"patient_sex" json:"patient_sex,omitempty"`
	BudgetConstraint *string    `db:"budget_constraint" json:"budget_constraint,omitempty"`
	TimeConstraint   *string    `db:"time_constraint" json:"time_constraint,omitempty"`
	AnxietyLevel     *string    `db:"anxiety_level" json:"anxiety_level,omitempty"`
	Priorities       []string   `db:"priorities" json:"priorities,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy        *string    `db:"created_by" json:"created_by,omitempty"`
	ReviewedBy       *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes      *string    `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedAt       *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	Appointments []*AppointmentGroup `db:"-" json:"appointments"`
}

// AppointmentGroup maps to the appointment_groups table.
type AppointmentGroup struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	SequenceID               uuid.UUID `db:"sequence_id" json:"sequence_id"`
	Position                 int       `db:"position" json:"position"`
	Title                    string    `db:"title" json:"title"`
	AppointmentType          *string   `db:"appointment_type" json:"appointment_type,omitempty"`
	Objectives               *string   `db:"objectives" json:"objectives,omitempty"`
	DelayValue               *int      `db:"delay_value" json:"delay_value,omitempty"`
	DelayUnit                *string   `db:"delay_unit" json:"delay_unit,omitempty"`
	DelayReason              *string   `db:"delay_reason" json:"delay_reason,omitempty"`
	DelayRationale           *string   `db:"delay_rationale" json:"delay_rationale,omitempty"`
	EstimatedDurationMinutes int       `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`

	Treatments []*Treatment `db:"-" json:"treatments"`
}

// Treatment maps to the treatments table.
type Treatment struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	AppointmentGroupID       uuid.UUID `db:"appointment_group_id" json:"appointment_group_id"`
	Position                 int       `db:"position" json:"position"`
	TreatmentType            string    `db:"treatment_type" json:"treatment_type"`
	TreatmentCategory        string    `db:"treatment_category" json:"treatment_category"`
	Teeth                    []string  `db:"teeth" json:"teeth"`
	Rationale                *string   `db:"rationale" json:"rationale,omitempty"`
	EstimatedDurationMinutes int       `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	OrderConstraint          string    `db:"order_constraint" json:"order_constraint"`
	OrderRationale           *string   `db:"order_rationale" json:"order_rationale,omitempty"`
	PlanItemIDs              []string  `db:"plan_item_ids" json:"plan_item_ids"`
}

// Sequence statuses.
const (
	StatusDraft         = "draft"
	StatusSubmitted     = "submitted"
	StatusUnderReview   = "under_review"
	StatusApproved      = "approved"
	StatusNeedsRevision = "needs_revision"
)

// Order constraints.
const (
	ConstraintFlexible  = "flexible"
	ConstraintPreferred = "preferred"
	ConstraintStrict    = "strict"
)

var validStatuses = map[string]bool{
	StatusDraft: true, StatusSubmitted: true, StatusUnderReview: true,
	StatusApproved: true, StatusNeedsRevision: true,
}

var validConstraints = map[string]bool{
	ConstraintFlexible: true, ConstraintPreferred: true, ConstraintStrict: true,
}

var validDelayUnits = map[string]bool{
	"days": true, "weeks": true, "months": true,
}

var validAgeRanges = map[string]bool{
	"0-17": true, "18-30": true, "31-45": true, "46-60": true, "61-75": true, "76+": true,
}

var validSexes = map[string]bool{
	"male": true, "female": true, "other": true,
}

var validLevels = map[string]bool{
	"none": true, "low": true, "moderate": true, "high": true,
}

var validPriorities = map[string]bool{
	"aesthetics": true, "function": true, "cost": true,
	"speed": true, "comfort": true, "longevity": true,
}

// ValidStatus reports whether s is a known sequence status.
func ValidStatus(s string) bool { return validStatuses[s] }

// TreatmentCount returns the number of treatments across all appointments.
func (s *Sequence) TreatmentCount() int {
	n := 0
	for _, a := range s.Appointments {
		n += len(a.Treatments)
	}
	return n
}

// TotalDurationMinutes sums the appointment durations.
func (s *Sequence) TotalDurationMinutes() int {
	n := 0
	for _, a := range s.Appointments {
		n += a.EstimatedDurationMinutes
	}
	return n
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
