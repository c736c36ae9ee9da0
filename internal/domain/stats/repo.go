package stats

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Counts(ctx context.Context) (*Counts, error)
	// ApprovedSequenceIDs returns approved sequences, oldest first.
	ApprovedSequenceIDs(ctx context.Context) ([]uuid.UUID, error)
}
