package formoptions

import (
	"context"
	"os"
	"testing"

	"github.com/scherkao31/dentseq-data-sub000/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m))
}

func TestRepoPG_GetPut(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	cfg, err := repo.Get(ctx)
	if err != nil || cfg != nil {
		t.Fatalf("expected nil document before first save, got %+v (%v)", cfg, err)
	}

	doc := &Config{DelayReasons: []Option{{Value: "orthodontic_wait", Label: "Attente ortho", Enabled: true, Custom: true}}}
	if err := repo.Put(ctx, doc, "admin-1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc.DelayReasons[0].Enabled = false
	if err := repo.Put(ctx, doc, ""); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.DelayReasons) != 1 || got.DelayReasons[0].Enabled || !got.DelayReasons[0].Custom {
		t.Errorf("expected the latest document, got %+v", got.DelayReasons)
	}

	var rows int
	var updatedBy *string
	pool.QueryRow(ctx, `SELECT COUNT(*), MAX(updated_by) FROM app_settings WHERE key = $1`, SettingsKey).Scan(&rows, &updatedBy)
	if rows != 1 || updatedBy != nil {
		t.Errorf("expected a single upserted row with cleared updater, got %d / %v", rows, updatedBy)
	}
}
