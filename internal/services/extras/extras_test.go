package extras

import (
	"testing"

	"github.com/kwabenadev/chopdesk/internal/models"
)

func intPtr(n int) *int { return &n }

func singleGroup() models.ExtrasGroup {
	return models.ExtrasGroup{
		ID:         "sauce",
		Title:      "Sauce",
		ExtrasType: models.ExtrasSingle,
		Required:   true,
	}
}

func multiGroup() models.ExtrasGroup {
	return models.ExtrasGroup{
		ID:           "toppings",
		Title:        "Toppings",
		ExtrasType:   models.ExtrasMultiple,
		MinSelection: intPtr(2),
		MaxSelection: intPtr(3),
	}
}

func TestSelectSingle_ReplacesSelection(t *testing.T) {
	e := NewEngine([]models.ExtrasGroup{singleGroup()}, nil)

	if err := e.SelectSingle("sauce", models.ExtrasOption{ID: "shito", FoodName: "Shito"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := e.SelectSingle("sauce", models.ExtrasOption{ID: "pepper", FoodName: "Pepper"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := e.Selected("sauce")
	if len(got) != 1 || got[0].ID != "pepper" {
		t.Errorf("Expected selection replaced with pepper, got %v", got)
	}
}

func TestSelectMultiple_AddAndRemove(t *testing.T) {
	var reported []Selection
	e := NewEngine([]models.ExtrasGroup{multiGroup()}, func(s Selection) {
		reported = append(reported, s)
	})

	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "egg"}, true)
	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "wele"}, true)
	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "egg"}, false)

	got := e.Selected("toppings")
	if len(got) != 1 || got[0].ID != "wele" {
		t.Errorf("Expected only wele selected, got %v", got)
	}
	if len(reported) != 3 {
		t.Errorf("Expected 3 change reports, got %d", len(reported))
	}
}

func TestSelectMultiple_ReportsEmptySet(t *testing.T) {
	var last *Selection
	e := NewEngine([]models.ExtrasGroup{multiGroup()}, func(s Selection) {
		last = &s
	})

	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "egg"}, true)
	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "egg"}, false)

	if last == nil {
		t.Fatal("Expected a change report for the empty set")
	}
	if len(last.Options) != 0 {
		t.Errorf("Expected empty selection reported, got %v", last.Options)
	}
	if last.GroupID != "toppings" {
		t.Errorf("Expected report for toppings, got %s", last.GroupID)
	}
}

func TestSelect_UnknownGroup(t *testing.T) {
	e := NewEngine(nil, nil)
	if err := e.SelectSingle("ghost", models.ExtrasOption{ID: "x"}); err == nil {
		t.Error("Expected error for unknown group")
	}
	if err := e.SelectMultiple("ghost", models.ExtrasOption{ID: "x"}, true); err == nil {
		t.Error("Expected error for unknown group")
	}
}

func TestSyncExternal_VersionGating(t *testing.T) {
	e := NewEngine([]models.ExtrasGroup{multiGroup()}, nil)

	// Two local mutations bring the version to 2
	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "egg"}, true)
	_ = e.SelectMultiple("toppings", models.ExtrasOption{ID: "wele"}, true)

	// A stale external push must not clobber the local set
	if e.SyncExternal("toppings", []models.ExtrasOption{{ID: "stale"}}, 1) {
		t.Error("Expected stale sync to be rejected")
	}
	if got := e.Selected("toppings"); len(got) != 2 {
		t.Errorf("Expected local selection preserved, got %v", got)
	}

	// A current-or-newer push is applied
	if !e.SyncExternal("toppings", []models.ExtrasOption{{ID: "fresh"}}, 5) {
		t.Error("Expected newer sync to be applied")
	}
	if got := e.Selected("toppings"); len(got) != 1 || got[0].ID != "fresh" {
		t.Errorf("Expected synced selection, got %v", got)
	}
	if e.Version("toppings") != 5 {
		t.Errorf("Expected version 5, got %d", e.Version("toppings"))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		group     models.ExtrasGroup
		size      int
		wantError bool
	}{
		{"required empty", singleGroup(), 0, true},
		{"required satisfied", singleGroup(), 1, false},
		{"single with two", singleGroup(), 2, true},
		{"multiple below min", multiGroup(), 1, true},
		{"multiple at min", multiGroup(), 2, false},
		{"multiple at max", multiGroup(), 3, false},
		{"multiple above max", multiGroup(), 4, true},
		{"optional multiple empty", multiGroup(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateGroup(tt.group, tt.size)
			if tt.wantError && msg == "" {
				t.Error("Expected a validation message")
			}
			if !tt.wantError && msg != "" {
				t.Errorf("Expected no validation message, got %q", msg)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	groups := []models.ExtrasGroup{singleGroup(), multiGroup()}
	selections := map[string][]models.ExtrasOption{
		"toppings": {{ID: "egg"}},
	}

	result := ValidateAll(groups, selections)
	if len(result) != 2 {
		t.Fatalf("Expected 2 validation messages, got %d", len(result))
	}
	if _, ok := result["sauce"]; !ok {
		t.Error("Expected required sauce group to fail")
	}
	if _, ok := result["toppings"]; !ok {
		t.Error("Expected under-min toppings group to fail")
	}
}
