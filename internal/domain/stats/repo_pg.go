package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Counts(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	var err error
	if c.PlansByStatus, err = r.groupCount(ctx, `SELECT status, COUNT(*) FROM treatment_plans GROUP BY status`); err != nil {
		return nil, err
	}
	if c.SequencesByStatus, err = r.groupCount(ctx, `SELECT status, COUNT(*) FROM treatment_sequences GROUP BY status`); err != nil {
		return nil, err
	}
	if c.TreatmentsByCategory, err = r.groupCount(ctx, `SELECT treatment_category, COUNT(*) FROM treatments GROUP BY treatment_category`); err != nil {
		return nil, err
	}
	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM appointment_groups),
			(SELECT COUNT(*) FROM treatments),
			(SELECT AVG(parsing_confidence) FROM treatment_plans WHERE parsing_confidence IS NOT NULL)`,
	).Scan(&c.Appointments, &c.Treatments, &c.MeanParsingConfidence)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) groupCount(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := map[string]int{}
	var key string
	var n int
	_, err = pgx.ForEachRow(rows, []any{&key, &n}, func() error {
		out[key] = n
		return nil
	})
	return out, err
}

func (r *repoPG) ApprovedSequenceIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM treatment_sequences WHERE status = 'approved' ORDER BY reviewed_at NULLS LAST, created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
