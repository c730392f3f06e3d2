package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codyseavey/card-catalog/internal/models"
)

func TestBundledFallbackCatalog(t *testing.T) {
	fc := testFallback(t)

	base := fc.Cards(models.PartitionBaseOnly)
	all := fc.Cards(models.PartitionWithAlternates)
	if len(base) == 0 || len(all) <= len(base) {
		t.Fatalf("expected base cards and alternates, got %d base / %d all", len(base), len(all))
	}
	for _, c := range base {
		if c.IsAlternate {
			t.Errorf("base-only partition contains alternate %s", c.ID)
		}
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("expected sorted ids, %s before %s", all[i-1].ID, all[i].ID)
		}
	}

	// Every alternate shares its base card's ban list.
	byID := make(map[string]models.Card, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	for _, c := range all {
		if !c.IsAlternate {
			continue
		}
		parent, ok := byID[c.BaseID]
		if !ok {
			t.Errorf("alternate %s has no base card", c.ID)
			continue
		}
		for _, f := range models.AllFormats() {
			if c.BanList(f) != parent.BanList(f) {
				t.Errorf("alternate %s %s=%d, base has %d", c.ID, f, c.BanList(f), parent.BanList(f))
			}
		}
	}
}

func TestLoadFallbackCatalog_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", "{", "decode"},
		{"empty", "[]", "empty"},
		{"missing id", `[{"name":"x"}]`, "without id"},
		{"duplicate", `[{"id":"A-1","banListRE":3,"banListRL":3,"banListLI":3},{"id":"A-1"}]`, "duplicate"},
		{"bad severity", `[{"id":"A-1","banListRE":9,"banListRL":3,"banListLI":3}]`, "invalid RE severity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFallbackCatalog(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewFallbackCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.json")
	data := `[{"id":"B-2","banListRE":3,"banListRL":3,"banListLI":3},{"id":"B-1-01","banListRE":1,"banListRL":3,"banListLI":3},{"id":"B-1","banListRE":1,"banListRL":3,"banListLI":3}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := NewFallbackCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.Count() != 3 {
		t.Errorf("expected 3 cards, got %d", fc.Count())
	}

	cards, _ := fc.FetchCatalog(context.Background(), false)
	if len(cards) != 2 || cards[0].ID != "B-1" {
		t.Errorf("unexpected base-only cards %+v", cards)
	}

	// All hands out a copy.
	all := fc.All()
	all[0].Name = "mutated"
	if fc.Cards(models.PartitionWithAlternates)[0].Name == "mutated" {
		t.Error("All must not alias the fallback data")
	}

	if _, err := NewFallbackCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
