package sequence

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a sequence does not exist.
	ErrNotFound = errors.New("sequence not found")
	// ErrPlanNotFound is returned when a sequence references a missing plan.
	ErrPlanNotFound = errors.New("treatment plan not found")
)

// Repository defines the persistence interface for sequences and their
// appointment/treatment tree. Tree writes are individual statements; callers
// sequence them.
type Repository interface {
	Create(ctx context.Context, seq *Sequence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sequence, error)
	Update(ctx context.Context, seq *Sequence) error
	UpdateStatus(ctx context.Context, seq *Sequence) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Sequence, int, error)

	DeleteTreatments(ctx context.Context, sequenceID uuid.UUID) error
	DeleteAppointmentGroups(ctx context.Context, sequenceID uuid.UUID) error
	InsertAppointmentGroup(ctx context.Context, g *AppointmentGroup) error
	InsertTreatments(ctx context.Context, groupID uuid.UUID, treatments []*Treatment) error
	ListAppointmentGroups(ctx context.Context, sequenceID uuid.UUID) ([]*AppointmentGroup, error)
	ListTreatments(ctx context.Context, groupID uuid.UUID) ([]*Treatment, error)
}
