package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/skuforge/demandcast/internal/api"
)

func testObservation(sku string, year int, month time.Month, sold int) api.SalesObservation {
	return api.SalesObservation{
		Date:         time.Date(year, month, 15, 0, 0, 0, 0, time.UTC),
		SKU:          sku,
		SoldQuantity: sold,
		UnitPrice:    10,
	}
}

func TestMemoryStore_AppendLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	defer s.Close()

	err := s.Append(ctx, []api.SalesObservation{
		testObservation("B", 2024, time.March, 5),
		testObservation("A", 2024, time.January, 10),
		testObservation("A", 2024, time.February, 20),
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	forA, err := s.Load(ctx, "A")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(forA) != 2 {
		t.Fatalf("Expected 2 observations for A, got %d", len(forA))
	}
	if forA[0].Date.After(forA[1].Date) {
		t.Error("Expected observations ordered by date")
	}

	all, err := s.Load(ctx, ScopeAll)
	if err != nil {
		t.Fatalf("Load all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 observations total, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Date.Before(all[i-1].Date) {
			t.Error("Expected global load ordered by date")
		}
	}
}

func TestMemoryStore_SKUs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	defer s.Close()

	s.Append(ctx, []api.SalesObservation{
		testObservation("B", 2024, time.January, 1),
		testObservation("A", 2024, time.January, 1),
		testObservation("B", 2024, time.February, 1),
	})

	skus, err := s.SKUs(ctx)
	if err != nil {
		t.Fatalf("SKUs failed: %v", err)
	}
	if len(skus) != 2 || skus[0] != "A" || skus[1] != "B" {
		t.Errorf("Expected sorted [A B], got %v", skus)
	}
}

func TestMemoryStore_UnknownSKU(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	defer s.Close()

	out, err := s.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Expected no observations for unknown SKU, got %d", len(out))
	}
}

func TestMemoryStore_SnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "observations.json")

	first := NewMemoryStore(path)
	err := first.Append(ctx, []api.SalesObservation{
		testObservation("A", 2024, time.January, 10),
		testObservation("A", 2024, time.February, 20),
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := NewMemoryStore(path)
	defer second.Close()

	restored, err := second.Load(ctx, "A")
	if err != nil {
		t.Fatalf("Load after restart failed: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("Expected 2 restored observations, got %d", len(restored))
	}
	if restored[0].SoldQuantity != 10 || restored[1].SoldQuantity != 20 {
		t.Errorf("Restored quantities differ: %+v", restored)
	}
}
