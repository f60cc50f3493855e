package similarity

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/store"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		co, totalA, totalB int
		want               float64
	}{
		{3, 5, 4, 0.5}, // 3 / (5 + 4 - 3)
		{4, 4, 4, 1.0},
		{1, 10, 10, 1.0 / 19.0},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := jaccard(tt.co, tt.totalA, tt.totalB); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("jaccard(%d, %d, %d) = %v, want %v", tt.co, tt.totalA, tt.totalB, got, tt.want)
		}
	}
}

// seedCooccurrence sets up likes so that pair (A, B) has co-occurrence 3,
// totalA 5, totalB 4 => Jaccard 0.5, while pair (C, D) stays below the
// co-occurrence threshold.
func seedCooccurrence(t *testing.T) *store.MemoryStore {
	t.Helper()
	now := time.Now()
	mem := store.NewMemoryStore()
	for _, u := range []string{"u1", "u2", "u3"} {
		mem.AddLike(u, "itemA", now)
		mem.AddLike(u, "itemB", now)
	}
	mem.AddLike("u4", "itemA", now)
	mem.AddLike("u5", "itemA", now)
	mem.AddLike("u6", "itemB", now)
	// only two users share C and D: below MinCooccurrence
	mem.AddLike("u7", "itemC", now)
	mem.AddLike("u7", "itemD", now)
	mem.AddLike("u8", "itemC", now)
	mem.AddLike("u8", "itemD", now)
	return mem
}

func TestItemCooccurrenceBuild(t *testing.T) {
	mem := seedCooccurrence(t)
	s := NewItemCooccurrence(mem, mem)

	n, err := s.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Build() wrote %d edges, want 1 (C/D pair below threshold)", n)
	}

	// lookup must be order-independent
	got, err := mem.GetItemSimilarity(context.Background(), "itemA", "itemB")
	if err != nil {
		t.Fatalf("GetItemSimilarity() error = %v", err)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("similarity(A,B) = %v, want 0.5", got)
	}
	rev, err := mem.GetItemSimilarity(context.Background(), "itemB", "itemA")
	if err != nil {
		t.Fatalf("GetItemSimilarity(reversed) error = %v", err)
	}
	if rev != got {
		t.Errorf("reversed lookup = %v, want %v (order-independent)", rev, got)
	}

	// identical item is always 1.0 without an edge
	self, err := mem.GetItemSimilarity(context.Background(), "itemA", "itemA")
	if err != nil || self != 1.0 {
		t.Errorf("similarity(A,A) = %v, %v, want 1.0, nil", self, err)
	}
}

func TestItemCooccurrenceCandidates(t *testing.T) {
	mem := seedCooccurrence(t)
	s := NewItemCooccurrence(mem, mem)
	if _, err := s.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// u4 liked only itemA; its single neighbor is itemB with score 0.5,
	// affinity = 0.5 / 1 liked item
	got, err := s.CandidatesForUser(context.Background(), "u4", 10)
	if err != nil {
		t.Fatalf("CandidatesForUser() error = %v", err)
	}
	if len(got) != 1 || got[0].ItemID != "itemB" {
		t.Fatalf("candidates = %+v, want single itemB", got)
	}
	if math.Abs(got[0].Score-0.5) > 1e-9 {
		t.Errorf("affinity = %v, want 0.5", got[0].Score)
	}

	// u1 already liked both A and B: nothing left to recommend
	own, err := s.CandidatesForUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("CandidatesForUser(u1) error = %v", err)
	}
	if len(own) != 0 {
		t.Errorf("candidates for u1 = %+v, want none (all liked)", own)
	}
}

func TestItemCooccurrenceBuildForUser(t *testing.T) {
	mem := seedCooccurrence(t)
	s := NewItemCooccurrence(mem, mem)

	// no full build has run; the partial rebuild for u1 must create the A/B edge
	if err := s.BuildForUser(context.Background(), "u1"); err != nil {
		t.Fatalf("BuildForUser() error = %v", err)
	}
	got, err := mem.GetItemSimilarity(context.Background(), "itemB", "itemA")
	if err != nil {
		t.Fatalf("GetItemSimilarity() error = %v", err)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("similarity after partial rebuild = %v, want 0.5", got)
	}
}

func TestUserOverlapBuildAndCandidates(t *testing.T) {
	now := time.Now()
	mem := store.NewMemoryStore()
	// u1 and u2 share two likes; u3 shares only one with u1
	mem.AddLike("u1", "x1", now)
	mem.AddLike("u1", "x2", now)
	mem.AddLike("u2", "x1", now)
	mem.AddLike("u2", "x2", now)
	mem.AddLike("u2", "x3", now)
	mem.AddLike("u3", "x1", now)
	mem.AddLike("u3", "x9", now)

	s := NewUserOverlap(mem, mem)
	if _, err := s.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	similar, err := s.Related(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}
	if len(similar) != 1 || similar[0].ID != "u2" {
		t.Fatalf("similar users = %+v, want only u2 (u3 overlap below threshold)", similar)
	}
	// overlap 2, normalized by floor 20
	if math.Abs(similar[0].Score-0.1) > 1e-9 {
		t.Errorf("score = %v, want 0.1 (2/20)", similar[0].Score)
	}

	cands, err := s.CandidatesForUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("CandidatesForUser() error = %v", err)
	}
	if len(cands) != 1 || cands[0].ItemID != "x3" {
		t.Errorf("candidates = %+v, want only x3 (x1/x2 already liked)", cands)
	}
}
