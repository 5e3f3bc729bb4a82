package provider

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCategoryMap(t *testing.T) {
	t.Run("default_map", func(t *testing.T) {
		m, err := LoadCategoryMap("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		name, ok := m.Lookup("FOOD_AND_DRINK")
		if !ok || name != "Food & Dining" {
			t.Errorf("expected Food & Dining, got %q (found=%v)", name, ok)
		}
		name, ok = m.Lookup("INCOME")
		if !ok || name != "Income" {
			t.Errorf("expected Income, got %q (found=%v)", name, ok)
		}
		if _, ok := m.Lookup("SOMETHING_UNMAPPED"); ok {
			t.Error("expected unmapped label to miss")
		}
	})

	t.Run("file_override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "map.json")
		if err := os.WriteFile(path, []byte(`{"CUSTOM_LABEL": "Groceries"}`), 0o644); err != nil {
			t.Fatal(err)
		}

		m, err := LoadCategoryMap(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		name, ok := m.Lookup("CUSTOM_LABEL")
		if !ok || name != "Groceries" {
			t.Errorf("expected Groceries, got %q (found=%v)", name, ok)
		}
		// The override replaces, not merges.
		if _, ok := m.Lookup("FOOD_AND_DRINK"); ok {
			t.Error("expected default entries to be absent after override")
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		if _, err := LoadCategoryMap("/nonexistent/map.json"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid_json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCategoryMap(path); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}
