package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryable abstracts pgxpool.Pool so tests and tools can pass a single
// connection.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repoPG struct {
	pool queryable
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const seqCols = `id, plan_id, case_id, status,
	patient_age_range, patient_sex, budget_constraint, time_constraint, anxiety_level, priorities,
	notes, created_by, reviewed_by, review_notes, reviewed_at, created_at, updated_at`

func scanSequence(row pgx.Row) (*Sequence, error) {
	var s Sequence
	err := row.Scan(&s.ID, &s.PlanID, &s.CaseID, &s.Status,
		&s.PatientAgeRange, &s.PatientSex, &s.BudgetConstraint, &s.TimeConstraint, &s.AnxietyLevel, &s.Priorities,
		&s.Notes, &s.CreatedBy, &s.ReviewedBy, &s.ReviewNotes, &s.ReviewedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Sequence) error {
	s.ID = uuid.New()
	if s.Priorities == nil {
		s.Priorities = []string{}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO treatment_sequences (id, plan_id, case_id, status,
			patient_age_range, patient_sex, budget_constraint, time_constraint, anxiety_level, priorities,
			notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		s.ID, s.PlanID, s.CaseID, s.Status,
		s.PatientAgeRange, s.PatientSex, s.BudgetConstraint, s.TimeConstraint, s.AnxietyLevel, s.Priorities,
		s.Notes, s.CreatedBy,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapPlanFK(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return scanSequence(r.pool.QueryRow(ctx, `SELECT `+seqCols+` FROM treatment_sequences WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Sequence) error {
	if s.Priorities == nil {
		s.Priorities = []string{}
	}
	err := r.pool.QueryRow(ctx, `
		UPDATE treatment_sequences SET
			plan_id = $2, case_id = $3,
			patient_age_range = $4, patient_sex = $5, budget_constraint = $6,
			time_constraint = $7, anxiety_level = $8, priorities = $9,
			notes = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.PlanID, s.CaseID,
		s.PatientAgeRange, s.PatientSex, s.BudgetConstraint,
		s.TimeConstraint, s.AnxietyLevel, s.Priorities,
		s.Notes,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return mapPlanFK(err)
}

func (r *repoPG) UpdateStatus(ctx context.Context, s *Sequence) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE treatment_sequences SET
			status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Status, s.ReviewedBy, s.ReviewNotes, s.ReviewedAt,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatment_sequences WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Sequence, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if planID, ok := params["plan_id"]; ok {
		where += fmt.Sprintf(` AND plan_id = $%d`, idx)
		args = append(args, planID)
		idx++
	}
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

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM treatment_sequences`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + seqCols + ` FROM treatment_sequences` + where +
		fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// -- Tree --

func (r *repoPG) DeleteTreatments(ctx context.Context, sequenceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM treatments
		WHERE appointment_group_id IN (SELECT id FROM appointment_groups WHERE sequence_id = $1)`,
		sequenceID)
	return err
}

func (r *repoPG) DeleteAppointmentGroups(ctx context.Context, sequenceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM appointment_groups WHERE sequence_id = $1`, sequenceID)
	return err
}

func (r *repoPG) InsertAppointmentGroup(ctx context.Context, g *AppointmentGroup) error {
	g.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_groups (id, sequence_id, position, title, appointment_type, objectives,
			delay_value, delay_unit, delay_reason, delay_rationale, estimated_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		g.ID, g.SequenceID, g.Position, g.Title, g.AppointmentType, g.Objectives,
		g.DelayValue, g.DelayUnit, g.DelayReason, g.DelayRationale, g.EstimatedDurationMinutes,
	)
	return err
}

const insertTreatmentSQL = `
	INSERT INTO treatments (id, appointment_group_id, position, treatment_type, treatment_category,
		teeth, rationale, estimated_duration_minutes, order_constraint, order_rationale, plan_item_ids)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// InsertTreatments writes all treatments of one group in a single batch.
func (r *repoPG) InsertTreatments(ctx context.Context, groupID uuid.UUID, treatments []*Treatment) error {
	if len(treatments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range treatments {
		t.ID = uuid.New()
		t.AppointmentGroupID = groupID
		batch.Queue(insertTreatmentSQL,
			t.ID, t.AppointmentGroupID, t.Position, t.TreatmentType, t.TreatmentCategory,
			nonNil(t.Teeth), t.Rationale, t.EstimatedDurationMinutes, t.OrderConstraint, t.OrderRationale,
			nonNil(t.PlanItemIDs),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	for range treatments {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

const groupCols = `id, sequence_id, position, title, appointment_type, objectives,
	delay_value, delay_unit, delay_reason, delay_rationale, estimated_duration_minutes`

func (r *repoPG) ListAppointmentGroups(ctx context.Context, sequenceID uuid.UUID) ([]*AppointmentGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+groupCols+` FROM appointment_groups WHERE sequence_id = $1 ORDER BY position`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*AppointmentGroup
	for rows.Next() {
		var g AppointmentGroup
		if err := rows.Scan(&g.ID, &g.SequenceID, &g.Position, &g.Title, &g.AppointmentType, &g.Objectives,
			&g.DelayValue, &g.DelayUnit, &g.DelayReason, &g.DelayRationale, &g.EstimatedDurationMinutes); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

const treatmentCols = `id, appointment_group_id, position, treatment_type, treatment_category,
	teeth, rationale, estimated_duration_minutes, order_constraint, order_rationale, plan_item_ids`

func (r *repoPG) ListTreatments(ctx context.Context, groupID uuid.UUID) ([]*Treatment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+treatmentCols+` FROM treatments WHERE appointment_group_id = $1 ORDER BY position`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.AppointmentGroupID, &t.Position, &t.TreatmentType, &t.TreatmentCategory,
			&t.Teeth, &t.Rationale, &t.EstimatedDurationMinutes, &t.OrderConstraint, &t.OrderRationale,
			&t.PlanItemIDs); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

// mapPlanFK turns a foreign-key violation on plan_id into ErrPlanNotFound.
func mapPlanFK(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrPlanNotFound
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
