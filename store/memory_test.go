package store

import (
	"context"
	"testing"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

func TestQueryPopularityDimensionRelaxation(t *testing.T) {
	mem := NewMemoryStore()
	err := mem.ReplacePopularity(context.Background(), []core.PopularityRecord{
		{Bucket: core.DemographicBucket{GeoID: 1, Gender: "f", AgeGroup: "18-25", Category: "books"}, ItemID: "exact", Score: 9},
		{Bucket: core.AnyBucket(1), ItemID: "rollup", Score: 5},
		{Bucket: core.DemographicBucket{GeoID: 1, Gender: "m", AgeGroup: "any", Category: "any"}, ItemID: "male", Score: 7},
	})
	if err != nil {
		t.Fatal(err)
	}

	// specific query matches exact rows and "any" rollups, not other values
	got, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{
		GeoID: 1, Gender: "f", AgeGroup: "18-25", Category: "books", Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ItemID)
	}
	if len(ids) != 2 || ids[0] != "exact" || ids[1] != "rollup" {
		t.Errorf("ids = %v, want [exact rollup]", ids)
	}

	// unrestricted dimension matches everything in geo
	all, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{GeoID: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("unrestricted query returned %d rows, want 3", len(all))
	}
}

func TestGetUserLikesNewestFirst(t *testing.T) {
	mem := NewMemoryStore()
	base := time.Now()
	mem.AddLike("u1", "old", base.Add(-time.Hour))
	mem.AddLike("u1", "new", base)

	likes, err := mem.GetUserLikes(context.Background(), "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(likes) != 2 || likes[0] != "new" {
		t.Errorf("likes = %v, want newest first", likes)
	}
}

func TestItemSimilarityCanonicalLookup(t *testing.T) {
	mem := NewMemoryStore()
	edge := core.CanonicalEdge("zzz", "aaa", 0.4, 3, 5, 4)
	if edge.ItemA != "aaa" || edge.ItemB != "zzz" {
		t.Fatalf("CanonicalEdge did not normalize order: %+v", edge)
	}
	if edge.TotalLikesA != 4 || edge.TotalLikesB != 5 {
		t.Fatalf("CanonicalEdge did not swap totals: %+v", edge)
	}
	if err := mem.ReplaceItemSimilarities(context.Background(), []core.ItemSimilarityEdge{edge}); err != nil {
		t.Fatal(err)
	}

	for _, pair := range [][2]string{{"aaa", "zzz"}, {"zzz", "aaa"}} {
		got, err := mem.GetItemSimilarity(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if got != 0.4 {
			t.Errorf("similarity(%s, %s) = %v, want 0.4", pair[0], pair[1], got)
		}
	}
	// absent pair reads as zero, not an error
	got, err := mem.GetItemSimilarity(context.Background(), "aaa", "unknown")
	if err != nil || got != 0 {
		t.Errorf("absent pair = %v, %v, want 0, nil", got, err)
	}
}

func TestCacheTTLAndCleanup(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemoryStore()
	mem.Now = func() time.Time { return now }

	if err := mem.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(context.Background(), "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := mem.Get(context.Background(), "k"); err != nil {
		t.Fatalf("Get() before TTL error = %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := mem.Get(context.Background(), "k"); !core.IsCacheMiss(err) {
		t.Errorf("Get() after TTL error = %v, want cache miss", err)
	}

	removed := mem.Cleanup()
	if removed != 1 {
		t.Errorf("Cleanup() removed %d entries, want 1 (no-expiry key stays)", removed)
	}
	if _, err := mem.Get(context.Background(), "forever"); err != nil {
		t.Errorf("no-expiry key evicted: %v", err)
	}
}
