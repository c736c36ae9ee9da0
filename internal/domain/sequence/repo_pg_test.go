package sequence

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m))
}

func insertPlan(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO treatment_plans (id, raw_input, status) VALUES ($1, '46 démonter CC + prov, 36 impl', 'parsed')`, id); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	return id
}

func TestRepoPG_SaveLoadRoundTrip(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	svc := NewService(NewRepo(pool), nil, zerolog.Nop())

	seq := buildSequence(t)
	seq.PlanID = insertPlan(t, pool)
	if err := svc.Create(ctx, seq); err != nil {
		t.Fatalf("create: %v", err)
	}
	want := shape(seq)

	loaded, err := svc.Load(ctx, seq.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := shape(loaded); got != want {
		t.Errorf("round trip changed the tree:\n got %s\nwant %s", got, want)
	}
	if strVal(loaded.PatientAgeRange) != "46-60" || len(loaded.Priorities) != 2 {
		t.Errorf("patient context not persisted: %+v", loaded)
	}

	// full replace with a smaller tree
	loaded.Appointments = loaded.Appointments[:1]
	if err := svc.Update(ctx, loaded); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := svc.Load(ctx, seq.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Appointments) != 1 || len(again.Appointments[0].Treatments) != 2 {
		t.Errorf("expected 1 appointment with 2 treatments, got %s", shape(again))
	}
	var rows int
	pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM treatments t
		JOIN appointment_groups g ON g.id = t.appointment_group_id
		WHERE g.sequence_id = $1`, seq.ID).Scan(&rows)
	if rows != 2 {
		t.Errorf("expected previous tree rows removed, got %d treatments", rows)
	}
}

func TestRepoPG_MissingPlan(t *testing.T) {
	pool := dbtest.Pool(t)
	seq := buildSequence(t)
	seq.Status = StatusDraft
	err := NewRepo(pool).Create(context.Background(), seq)
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestRepoPG_StatusSearchDelete(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	svc := NewService(NewRepo(pool), nil, zerolog.Nop())
	planID := insertPlan(t, pool)

	a, b := buildSequence(t), buildSequence(t)
	a.PlanID, b.PlanID = planID, planID
	svc.Create(ctx, a)
	svc.Create(ctx, b)

	if _, err := svc.UpdateStatus(ctx, a.ID, StatusApproved, "reviewer-1", strPtr("ok")); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved || strVal(got.ReviewedBy) != "reviewer-1" || got.ReviewedAt == nil {
		t.Errorf("review not stamped: %+v", got)
	}

	items, total, err := svc.Search(ctx, map[string]string{"plan_id": planID.String(), "status": StatusApproved}, 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("expected only the approved sequence, got %d", total)
	}

	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var groups int
	pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment_groups WHERE sequence_id = $1`, b.ID).Scan(&groups)
	if groups != 0 {
		t.Errorf("expected groups removed with the sequence, got %d", groups)
	}
	if _, err := svc.Load(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
