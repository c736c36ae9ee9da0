package taxonomy

import "testing"

func TestValidToothCode(t *testing.T) {
	valid := []string{"11", "18", "21", "36", "46", "48", "41"}
	for _, c := range valid {
		if !ValidToothCode(c) {
			t.Errorf("%q should be valid", c)
		}
	}
	invalid := []string{"", "1", "10", "19", "51", "09", "111", "a1", "4b", "00"}
	for _, c := range invalid {
		if ValidToothCode(c) {
			t.Errorf("%q should be invalid", c)
		}
	}
}

func TestValidateTeeth(t *testing.T) {
	bad := ValidateTeeth([]string{"11", "59", "36", "x"})
	if len(bad) != 2 || bad[0] != "59" || bad[1] != "x" {
		t.Errorf("unexpected invalid codes: %v", bad)
	}
	if ValidateTeeth([]string{"11", "46"}) != nil {
		t.Error("expected nil for valid teeth")
	}
}

func TestQuadrant(t *testing.T) {
	if Quadrant("36") != 3 {
		t.Errorf("expected quadrant 3, got %d", Quadrant("36"))
	}
	if Quadrant("99") != 0 {
		t.Error("expected 0 for invalid code")
	}
}

func TestExpandTeeth(t *testing.T) {
	got := ExpandTeeth([]string{"q2", "46"})
	if len(got) != 9 {
		t.Fatalf("expected 9 teeth, got %d: %v", len(got), got)
	}
	if got[0] != "21" || got[7] != "28" || got[8] != "46" {
		t.Errorf("unexpected expansion: %v", got)
	}
	if n := len(ExpandTeeth([]string{"all"})); n != 32 {
		t.Errorf("expected 32 teeth for all, got %d", n)
	}
	if !IsWildcard("ALL") || !IsWildcard("Q4") || IsWildcard("Q5") {
		t.Error("wildcard detection mismatch")
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()
	e, ok := c.Lookup("Composite")
	if !ok {
		t.Fatal("expected composite in builtin catalog")
	}
	if e.Category != CategoryRestorative || e.DefaultDuration != 30 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if _, ok := c.Lookup("does-not-exist"); ok {
		t.Error("expected miss for unknown code")
	}
}

func TestCatalog_AddReplaces(t *testing.T) {
	c := NewCatalog([]Entry{{Code: "a", Category: CategoryOther, DefaultDuration: 10}})
	c.Add(Entry{Code: "A", Category: CategoryImplant, DefaultDuration: 20})
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
	e, _ := c.Lookup("a")
	if e.DefaultDuration != 20 {
		t.Errorf("expected replaced entry, got %+v", e)
	}
}

func TestCatalog_ZeroValue(t *testing.T) {
	var c *Catalog
	if _, ok := c.Lookup("x"); ok {
		t.Error("nil catalog should miss")
	}
	var z Catalog
	z.Add(Entry{Code: "x"})
	if z.Len() != 1 {
		t.Error("zero catalog should accept entries")
	}
}

func TestBuiltinCategoriesValid(t *testing.T) {
	for _, e := range Builtin {
		if !ValidCategory(string(e.Category)) {
			t.Errorf("%s has invalid category %q", e.Code, e.Category)
		}
		if e.DefaultDuration <= 0 {
			t.Errorf("%s has non-positive duration", e.Code)
		}
	}
	if len(Categories) != 10 {
		t.Errorf("expected 10 categories, got %d", len(Categories))
	}
}
