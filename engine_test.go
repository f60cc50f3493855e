package santarec

import (
	"context"
	"testing"

	"github.com/Flcn/SantaRecommendationEngine/config"
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/service"
	"github.com/Flcn/SantaRecommendationEngine/store"
)

func seedEngine(t *testing.T, cfg *config.Settings) (*store.MemoryStore, *Engine) {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{
		ID: "cheap", GeoID: 7, Price: 50, Platform: "web", InStock: true,
		Categories: map[string]string{"category": "books"},
	})
	mem.AddItem(&core.ItemFacts{
		ID: "pricey", GeoID: 7, Price: 9000, Platform: "web", InStock: true,
		Categories: map[string]string{"category": "books"},
	})
	if err := mem.ReplacePopularity(context.Background(), []core.PopularityRecord{
		{Bucket: core.AnyBucket(7), ItemID: "cheap", Score: 5},
		{Bucket: core.AnyBucket(7), ItemID: "pricey", Score: 9},
	}); err != nil {
		t.Fatal(err)
	}
	eng, err := NewEngineWithStores(cfg, mem, mem, mem, nil)
	if err != nil {
		t.Fatalf("NewEngineWithStores() error = %v", err)
	}
	return mem, eng
}

func TestEngineEndToEnd(t *testing.T) {
	_, eng := seedEngine(t, config.Default())

	resp, err := eng.Service.Popular(context.Background(), service.PopularRequest{GeoID: 7})
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].ItemID != "pricey" {
		t.Errorf("items = %+v, want pricey first", resp.Items)
	}
}

func TestEngineAppliesExclusionRules(t *testing.T) {
	cfg := config.Default()
	cfg.ExclusionRules = []string{`item.price > 5000.0`}
	_, eng := seedEngine(t, cfg)

	resp, err := eng.Service.Popular(context.Background(), service.PopularRequest{GeoID: 7})
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ItemID != "cheap" {
		t.Errorf("items = %+v, want only cheap (rule excludes pricey)", resp.Items)
	}
}

func TestEngineRejectsBadRule(t *testing.T) {
	cfg := config.Default()
	cfg.ExclusionRules = []string{`item.price >`}
	mem := store.NewMemoryStore()
	if _, err := NewEngineWithStores(cfg, mem, mem, mem, nil); err == nil {
		t.Error("expected error for malformed exclusion rule")
	}
}

func TestEngineRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Similarity.Strategy = "matrix_factorization"
	mem := store.NewMemoryStore()
	if _, err := NewEngineWithStores(cfg, mem, mem, mem, nil); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
