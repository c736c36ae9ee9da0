package plan

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/parsing"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m))
}

func newPlan(raw string, items ...parsing.PlanItem) *Plan {
	p := &Plan{RawInput: raw, Status: StatusParsed, Items: items}
	p.Derive()
	return p
}

func TestRepoPG_CRUD(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	conf := 0.9
	p := newPlan("46 démonter CC + prov",
		parsing.PlanItem{ID: "item-1", OriginalText: "46 démonter CC", Teeth: []string{"46"}, Description: "Dépose couronne", Category: "prosthodontic"},
	)
	p.Confidence = &conf
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "item-1" || got.Items[0].Teeth[0] != "46" {
		t.Errorf("items not round-tripped: %+v", got.Items)
	}
	if got.Confidence == nil || *got.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", got.Confidence)
	}

	got.Status = StatusConfirmed
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.GetByID(ctx, p.ID)
	if again.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", again.Status)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, got); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestRepoPG_SearchFilters(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	endo := newPlan("36 TR",
		parsing.PlanItem{ID: "item-1", Teeth: []string{"36"}, Category: "endodontic"})
	surg := newPlan("48 extraction",
		parsing.PlanItem{ID: "item-1", Teeth: []string{"48"}, Category: "surgical"})
	surg.Status = StatusArchived
	repo.Create(ctx, endo)
	repo.Create(ctx, surg)

	cases := []struct {
		params map[string]string
		want   uuid.UUID
	}{
		{map[string]string{"category": "endodontic"}, endo.ID},
		{map[string]string{"tooth": "48"}, surg.ID},
		{map[string]string{"status": StatusArchived}, surg.ID},
	}
	for _, tc := range cases {
		items, total, err := repo.Search(ctx, tc.params, 10, 0)
		if err != nil {
			t.Fatalf("search %v: %v", tc.params, err)
		}
		if total != 1 || len(items) != 1 || items[0].ID != tc.want {
			t.Errorf("search %v: expected one match, got %d", tc.params, total)
		}
	}

	_, total, _ := repo.Search(ctx, map[string]string{}, 1, 0)
	if total != 2 {
		t.Errorf("expected total 2 regardless of limit, got %d", total)
	}
}

func TestRepoPG_CountSequences(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	p := newPlan("46 CC")
	repo.Create(ctx, p)
	for i := 0; i < 2; i++ {
		if _, err := pool.Exec(ctx, `INSERT INTO treatment_sequences (id, plan_id, status) VALUES ($1, $2, 'draft')`, uuid.New(), p.ID); err != nil {
			t.Fatalf("insert sequence: %v", err)
		}
	}
	n, err := repo.CountSequences(ctx, p.ID)
	if err != nil || n != 2 {
		t.Errorf("expected 2 sequences, got %d (%v)", n, err)
	}
}
