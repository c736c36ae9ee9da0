package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const planCols = `id, title, raw_input, treatment_items, status, parsing_confidence, parsing_notes,
	dentistry_types, teeth_involved, created_by, created_at, updated_at`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	var items []byte
	err := row.Scan(&p.ID, &p.Title, &p.RawInput, &items, &p.Status, &p.Confidence, &p.ParsingNotes,
		&p.DentistryTypes, &p.TeethInvolved, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return nil, fmt.Errorf("decode treatment_items of plan %s: %w", p.ID, err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO treatment_plans (id, title, raw_input, treatment_items, status, parsing_confidence,
			parsing_notes, dentistry_types, teeth_involved, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		p.ID, p.Title, p.RawInput, items, p.Status, p.Confidence,
		p.ParsingNotes, p.DentistryTypes, p.TeethInvolved, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return scanPlan(r.pool.QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Plan) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		UPDATE treatment_plans SET
			title = $2, raw_input = $3, treatment_items = $4, status = $5,
			parsing_confidence = $6, parsing_notes = $7,
			dentistry_types = $8, teeth_involved = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Title, p.RawInput, items, p.Status,
		p.Confidence, p.ParsingNotes,
		p.DentistryTypes, p.TeethInvolved,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatment_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Plan, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if status, ok := params["status"]; ok {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}
	if createdBy, ok := params["created_by"]; ok {
		where += fmt.Sprintf(` AND created_by = $%d`, idx)
		args = append(args, createdBy)
		idx++
	}
	if category, ok := params["category"]; ok {
		where += fmt.Sprintf(` AND $%d = ANY(dentistry_types)`, idx)
		args = append(args, category)
		idx++
	}
	if tooth, ok := params["tooth"]; ok {
		where += fmt.Sprintf(` AND $%d = ANY(teeth_involved)`, idx)
		args = append(args, tooth)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM treatment_plans`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + planCols + ` FROM treatment_plans` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountSequences(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM treatment_sequences WHERE plan_id = $1`, id).Scan(&n)
	return n, err
}
