package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/store"
)

func TestDecayWeight(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name string
		kind core.InteractionKind
		age  time.Duration
		want float64
	}{
		{"like fresh", core.InteractionLike, 3 * day, 5.0},
		{"like recent", core.InteractionLike, 20 * day, 3.0},
		{"like stale", core.InteractionLike, 60 * day, 1.5},
		{"like expired", core.InteractionLike, 120 * day, 0},
		{"click fresh", core.InteractionClick, 3 * day, 3.0},
		{"click recent", core.InteractionClick, 20 * day, 2.0},
		{"click stale", core.InteractionClick, 60 * day, 1.0},
		{"click expired", core.InteractionClick, 120 * day, 0},
		{"like boundary 7d", core.InteractionLike, 7 * day, 5.0},
		{"like boundary 30d", core.InteractionLike, 30 * day, 3.0},
		{"like boundary 90d", core.InteractionLike, 90 * day, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecayWeight(tt.kind, tt.age); got != tt.want {
				t.Errorf("DecayWeight(%s, %v) = %v, want %v", tt.kind, tt.age, got, tt.want)
			}
		})
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRefreshScoresAndBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{
		ID: "item1", GeoID: 7, Price: 50, Platform: "web", InStock: true,
		Categories: map[string]string{"gender": "f", "age": "18-25", "category": "books"},
	})

	// one fresh like (5.0) + one recent click (2.0) on the same item
	mem.AddLike("u1", "item1", now.Add(-2*24*time.Hour))
	mem.AddClick("u2", "item1", now.Add(-20*24*time.Hour))

	agg := New(mem, mem, WithClock(fixedClock(now)))
	n, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	// exact bucket + geo rollup bucket
	if n != 2 {
		t.Fatalf("Refresh() wrote %d records, want 2", n)
	}

	exact, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{
		GeoID: 7, Gender: "f", AgeGroup: "18-25", Category: "books", Limit: 10,
	})
	if err != nil {
		t.Fatalf("QueryPopularity() error = %v", err)
	}
	if len(exact) != 2 { // exact row + rollup row both match a relaxed query
		t.Fatalf("exact bucket query returned %d records, want 2", len(exact))
	}
	if exact[0].Score != 7.0 {
		t.Errorf("score = %v, want 7.0 (like 5.0 + click 2.0)", exact[0].Score)
	}

	rollup, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{
		GeoID: 7, OnlyRollup: true, Limit: 10,
	})
	if err != nil {
		t.Fatalf("QueryPopularity(rollup) error = %v", err)
	}
	if len(rollup) != 1 || rollup[0].Score != 7.0 {
		t.Errorf("rollup bucket = %+v, want single record with score 7.0", rollup)
	}
}

func TestRefreshSkipsIneligibleItems(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{ID: "sold_out", GeoID: 7, InStock: false, Categories: map[string]string{}})
	mem.AddItem(&core.ItemFacts{ID: "private", GeoID: 7, InStock: true, OwnerID: "u9", Categories: map[string]string{}})
	mem.AddLike("u1", "sold_out", now.Add(-time.Hour))
	mem.AddLike("u1", "private", now.Add(-time.Hour))
	mem.AddLike("u1", "unknown", now.Add(-time.Hour)) // no facts row at all

	agg := New(mem, mem, WithClock(fixedClock(now)))
	n, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Refresh() wrote %d records, want 0 (all items ineligible)", n)
	}
}

func TestRefreshReplacesOldGeneration(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{ID: "item1", GeoID: 7, InStock: true, Categories: map[string]string{}})
	mem.AddLike("u1", "item1", now.Add(-time.Hour))

	agg := New(mem, mem, WithClock(fixedClock(now)))
	if _, err := agg.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	// second cycle far in the future: every interaction outside the window
	later := now.Add(200 * 24 * time.Hour)
	agg2 := New(mem, mem, WithClock(fixedClock(later)))
	if _, err := agg2.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	got, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{GeoID: 7, Limit: 10})
	if err != nil {
		t.Fatalf("QueryPopularity() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("stale generation still visible: %+v", got)
	}
}
