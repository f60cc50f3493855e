package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Flcn/SantaRecommendationEngine/aggregator"
	"github.com/Flcn/SantaRecommendationEngine/cache"
	"github.com/Flcn/SantaRecommendationEngine/config"
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/profile"
	"github.com/Flcn/SantaRecommendationEngine/similarity"
	"github.com/Flcn/SantaRecommendationEngine/store"
)

func newScheduler(mem *store.MemoryStore) *Scheduler {
	return &Scheduler{
		Aggregator: aggregator.New(mem, mem),
		Profiles:   profile.NewBuilder(mem, mem),
		Strategy:   similarity.NewItemCooccurrence(mem, mem),
		Rec:        mem,
		KV:         mem,
		Results:    cache.New(mem),
	}
}

func TestFullSyncPopulatesEverything(t *testing.T) {
	now := time.Now()
	mem := store.NewMemoryStore()
	for _, id := range []string{"a", "b"} {
		mem.AddItem(&core.ItemFacts{
			ID: id, GeoID: 7, Price: 100, Platform: "web", InStock: true,
			Categories: map[string]string{"category": "books"},
		})
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		mem.AddLike(u, "a", now.Add(-time.Hour))
		mem.AddLike(u, "b", now.Add(-time.Hour))
	}

	s := newScheduler(mem)
	if err := s.FullSync(context.Background()); err != nil {
		t.Fatalf("FullSync() error = %v", err)
	}

	pop, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{GeoID: 7, Limit: 10})
	if err != nil || len(pop) == 0 {
		t.Errorf("popularity empty after full sync: %v, %v", pop, err)
	}
	if _, err := mem.GetProfile(context.Background(), "u1"); err != nil {
		t.Errorf("profile missing after full sync: %v", err)
	}
	sim, err := mem.GetItemSimilarity(context.Background(), "a", "b")
	if err != nil || sim == 0 {
		t.Errorf("similarity missing after full sync: %v, %v", sim, err)
	}
}

func TestRefreshUserRebuildsProfile(t *testing.T) {
	now := time.Now()
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{ID: "a", GeoID: 7, InStock: true, Categories: map[string]string{"category": "books"}})
	mem.AddLike("u1", "a", now)

	s := newScheduler(mem)
	if err := s.RefreshUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RefreshUser() error = %v", err)
	}
	p, err := mem.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.InteractionCount != 1 {
		t.Errorf("InteractionCount = %d, want 1", p.InteractionCount)
	}
}

func TestRefreshUserInvalidatesCachedProfileOnTierCrossing(t *testing.T) {
	now := time.Now()
	mem := store.NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		mem.AddItem(&core.ItemFacts{ID: id, GeoID: 7, InStock: true, Categories: map[string]string{"category": "books"}})
	}
	// existing COLD profile (2 interactions), also cached
	old := core.NewUserProfile("u1")
	old.InteractionCount = 2
	if err := mem.PutProfile(context.Background(), old); err != nil {
		t.Fatal(err)
	}
	s := newScheduler(mem)
	s.Results.SetProfile(context.Background(), old)

	// third like crosses into WARM
	mem.AddLike("u1", "a", now)
	mem.AddLike("u1", "b", now)
	mem.AddLike("u1", "c", now)

	if err := s.RefreshUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RefreshUser() error = %v", err)
	}
	if cached, ok := s.Results.GetProfile(context.Background(), "u1"); ok && cached.InteractionCount == 2 {
		t.Error("stale COLD profile still cached after tier crossing")
	}
	p, err := mem.GetProfile(context.Background(), "u1")
	if err != nil || p.InteractionCount != 3 {
		t.Errorf("stored profile = %+v, %v, want 3 interactions", p, err)
	}
}

func TestNeedsSimilarityRebuild(t *testing.T) {
	s := &Scheduler{} // zero SimilarityMinLikes falls back to the overlap default
	tests := []struct {
		name     string
		old, new int
		want     bool
	}{
		{"first interaction crosses NEW boundary", 0, 1, true},
		{"second like crosses overlap minimum", 1, 2, true},
		{"third like crosses WARM boundary", 2, 3, true},
		{"within WARM no rebuild", 3, 4, false},
		{"no change", 2, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.needsSimilarityRebuild(tt.old, tt.new); got != tt.want {
				t.Errorf("needsSimilarityRebuild(%d, %d) = %v, want %v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}

func TestRefreshUserNoInteractionsIsNoop(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newScheduler(mem)
	if err := s.RefreshUser(context.Background(), "ghost"); err != nil {
		t.Fatalf("RefreshUser() error = %v, want nil for zero-interaction user", err)
	}
}

func TestSchedulerRunsJobsImmediatelyOnStart(t *testing.T) {
	now := time.Now()
	mem := store.NewMemoryStore()
	mem.AddItem(&core.ItemFacts{ID: "a", GeoID: 7, InStock: true, Categories: map[string]string{"category": "books"}})
	mem.AddLike("u1", "a", now.Add(-time.Hour))

	s := newScheduler(mem)
	// long interval: a refresh within the test window can only come from
	// the startup run, not the ticker
	s.Intervals.PopularityInterval = config.Duration(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pop, err := mem.QueryPopularity(context.Background(), core.PopularityQuery{GeoID: 7, Limit: 10})
		if err == nil && len(pop) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("popularity not refreshed on startup before the first tick")
}

func TestRunOnceReportsFailure(t *testing.T) {
	s := newScheduler(store.NewMemoryStore())
	s.Log = zap.NewNop().Sugar()
	ctx := context.Background()

	if s.runOnce(ctx, "failing", func(context.Context) error { return errors.New("boom") }) {
		t.Error("runOnce() = true for failing job, want false")
	}
	if s.runOnce(ctx, "panicking", func(context.Context) error { panic("boom") }) {
		t.Error("runOnce() = true for panicking job, want false")
	}
	if !s.runOnce(ctx, "healthy", func(context.Context) error { return nil }) {
		t.Error("runOnce() = false for healthy job, want true")
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newScheduler(mem)
	s.Intervals.PopularityInterval = config.Duration(time.Hour)
	s.Intervals.ProfileInterval = config.Duration(time.Hour)
	s.Intervals.SimilarityInterval = config.Duration(time.Hour)
	s.Intervals.CleanupInterval = config.Duration(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
