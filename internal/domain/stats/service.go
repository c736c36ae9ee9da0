package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/plan"
	"github.com/scherkao31/dentseq-data-sub000/internal/domain/sequence"
)

type SequenceLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*sequence.Sequence, error)
}

type PlanGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

// Record is one line of the dataset export.
type Record struct {
	Sequence *sequence.Sequence `json:"sequence"`
	Plan     *plan.Plan         `json:"plan"`
}

type Service struct {
	repo      Repository
	sequences SequenceLoader
	plans     PlanGetter
	log       zerolog.Logger
}

func NewService(repo Repository, sequences SequenceLoader, plans PlanGetter, log zerolog.Logger) *Service {
	return &Service{repo: repo, sequences: sequences, plans: plans, log: log.With().Str("component", "stats").Logger()}
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	c, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return Build(*c), nil
}

// Export writes every approved sequence with its plan as one JSON object per
// line. Sequences deleted while the export runs are skipped. It returns the
// number of records written.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	ids, err := s.repo.ApprovedSequenceIDs(ctx)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		seq, err := s.sequences.Load(ctx, id)
		if errors.Is(err, sequence.ErrNotFound) {
			s.log.Warn().Str("sequence_id", id.String()).Msg("sequence vanished during export")
			continue
		}
		if err != nil {
			return n, fmt.Errorf("load sequence %s: %w", id, err)
		}
		p, err := s.plans.Get(ctx, seq.PlanID)
		if err != nil {
			return n, fmt.Errorf("load plan %s of sequence %s: %w", seq.PlanID, id, err)
		}
		if err := enc.Encode(Record{Sequence: seq, Plan: p}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
