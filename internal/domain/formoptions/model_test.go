package formoptions

import (
	"testing"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if len(cfg.Treatments) != len(taxonomy.Builtin) {
		t.Errorf("expected %d treatments, got %d", len(taxonomy.Builtin), len(cfg.Treatments))
	}
	for _, o := range cfg.Treatments {
		if !o.Enabled || o.Custom {
			t.Errorf("%s: builtins must be enabled and not custom", o.Value)
		}
	}
	if len(cfg.AppointmentTypes) == 0 || len(cfg.DelayReasons) == 0 {
		t.Error("expected builtin appointment types and delay reasons")
	}
}

func TestMerge(t *testing.T) {
	stored := &Config{
		Treatments: []TreatmentOption{
			{Option: Option{Value: "amalgam", Enabled: false}},
			{Option: Option{Value: "composite", Label: "Composite (résine)", Enabled: true}, DefaultDuration: 40},
			{Option: Option{Value: "laser_perio", Label: "Laser parodontal", Enabled: true}, Category: "periodontal", DefaultDuration: 50},
		},
		DelayReasons: []Option{{Value: "holiday", Label: "Vacances", Enabled: true}},
	}
	got := Merge(Defaults(), stored)

	if len(got.Treatments) != len(taxonomy.Builtin)+1 {
		t.Fatalf("expected builtins plus one custom, got %d", len(got.Treatments))
	}
	byValue := map[string]TreatmentOption{}
	for _, o := range got.Treatments {
		byValue[o.Value] = o
	}
	if byValue["amalgam"].Enabled {
		t.Error("expected amalgam disabled")
	}
	if c := byValue["composite"]; c.Label != "Composite (résine)" || c.DefaultDuration != 40 || c.Category != "restorative" {
		t.Errorf("unexpected composite override: %+v", c)
	}
	if l := byValue["laser_perio"]; !l.Custom || l.Category != "periodontal" {
		t.Errorf("expected custom treatment, got %+v", l)
	}
	if got.Treatments[len(got.Treatments)-1].Value != "laser_perio" {
		t.Error("custom treatments are appended after builtins")
	}
	if len(got.AppointmentTypes) != len(builtinAppointmentTypes) {
		t.Error("builtins missing from the document must be kept")
	}
	last := got.DelayReasons[len(got.DelayReasons)-1]
	if last.Value != "holiday" || !last.Custom {
		t.Errorf("expected custom delay reason, got %+v", last)
	}
}

func TestMerge_BuiltinMatchIgnoresCase(t *testing.T) {
	stored := &Config{Treatments: []TreatmentOption{
		{Option: Option{Value: " Composite", Enabled: true}},
	}}
	if err := Validate(stored); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := Merge(Defaults(), stored)
	if len(got.Treatments) != len(taxonomy.Builtin) {
		t.Errorf("expected no custom entry, got %d treatments", len(got.Treatments))
	}
	e, ok := got.Catalog().Lookup("composite")
	if !ok || e.Category != taxonomy.CategoryRestorative || e.DefaultDuration != 30 {
		t.Errorf("expected builtin composite kept, got %+v (%v)", e, ok)
	}
}

func TestMerge_NilStored(t *testing.T) {
	d := Defaults()
	if Merge(d, nil) != d {
		t.Error("expected defaults when nothing is stored")
	}
}

func TestConfig_Catalog(t *testing.T) {
	cfg := Merge(Defaults(), &Config{Treatments: []TreatmentOption{
		{Option: Option{Value: "amalgam", Enabled: false}},
		{Option: Option{Value: "laser_perio", Label: "Laser", Enabled: true}, Category: "periodontal", DefaultDuration: 50},
	}})
	cat := cfg.Catalog()
	if _, ok := cat.Lookup("amalgam"); ok {
		t.Error("disabled treatments must not be in the catalog")
	}
	e, ok := cat.Lookup("laser_perio")
	if !ok || e.Category != taxonomy.CategoryPeriodontal || e.DefaultDuration != 50 {
		t.Errorf("expected custom treatment in catalog, got %+v", e)
	}
	if _, ok := cat.Lookup("composite"); !ok {
		t.Error("expected enabled builtins in catalog")
	}
}
