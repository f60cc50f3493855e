package ranker

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/recall"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		count int
		want  Tier
	}{
		{0, TierNew},
		{1, TierCold},
		{2, TierCold},
		{3, TierWarm},
		{100, TierWarm},
	}
	for _, tt := range tests {
		if got := TierFor(tt.count); got != tt.want {
			t.Errorf("TierFor(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for _, tier := range []Tier{TierNew, TierCold, TierWarm} {
		var sum float64
		prev := math.Inf(1)
		for _, cw := range Weights(tier) {
			sum += cw.Weight
			if cw.Weight > prev {
				t.Errorf("tier %v weights not in descending order", tier)
			}
			prev = cw.Weight
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("tier %v weights sum = %v, want 1.0", tier, sum)
		}
	}
}

func TestCrossesTierBoundary(t *testing.T) {
	tests := []struct {
		old, new int
		want     bool
	}{
		{0, 1, true},
		{1, 2, false},
		{2, 3, true},
		{3, 10, false},
	}
	for _, tt := range tests {
		if got := CrossesTierBoundary(tt.old, tt.new); got != tt.want {
			t.Errorf("CrossesTierBoundary(%d, %d) = %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}

// stubSource is a recall source with canned output.
type stubSource struct {
	name  string
	items []*core.Item
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error) {
	return s.items, s.err
}

func item(id string, score, rawPop float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.SetRawPopularity(rawPop)
	return it
}

func warmContext(count int) *core.RecommendContext {
	p := core.NewUserProfile("u1")
	p.InteractionCount = count
	return &core.RecommendContext{UserID: "u1", GeoID: 1, Profile: p}
}

func TestRankWarmBlend(t *testing.T) {
	b := NewBlender(
		&stubSource{name: recall.SourceCollaborative, items: []*core.Item{
			item("item1", 0.8, 0), item("item2", 0.4, 0),
		}},
		&stubSource{name: recall.SourceContent, items: []*core.Item{
			item("item1", 0.5, 0),
		}},
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{
			item("item3", 10, 10),
		}},
	)

	got, err := b.Rank(context.Background(), warmContext(5))
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got.Algorithm != "collaborative" {
		t.Errorf("algorithm = %s, want collaborative", got.Algorithm)
	}
	if len(got.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got.Candidates))
	}
	// normalized per component then weighted:
	// item1 = 0.5*(0.8/0.8) + 0.3*(0.5/0.5) = 0.8
	// item2 = 0.5*(0.4/0.8) = 0.25
	// item3 = 0.2*(10/10) = 0.2
	wantScores := map[string]float64{"item1": 0.8, "item2": 0.25, "item3": 0.2}
	for i, wantID := range []string{"item1", "item2", "item3"} {
		c := got.Candidates[i]
		if c.ItemID != wantID {
			t.Errorf("position %d = %s, want %s", i, c.ItemID, wantID)
			continue
		}
		if math.Abs(c.Score-wantScores[wantID]) > 1e-9 {
			t.Errorf("%s score = %v, want %v", wantID, c.Score, wantScores[wantID])
		}
	}
}

func TestRankDegradesOnEmptyStrongComponent(t *testing.T) {
	b := NewBlender(
		&stubSource{name: recall.SourceCollaborative}, // nothing precomputed yet
		&stubSource{name: recall.SourceContent, items: []*core.Item{item("c1", 0.5, 0)}},
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{item("p1", 3, 3)}},
	)

	got, err := b.Rank(context.Background(), warmContext(5))
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got.Algorithm != "content_based" {
		t.Errorf("algorithm = %s, want content_based", got.Algorithm)
	}
}

func TestRankSourceFailureNeverFailsRequest(t *testing.T) {
	b := NewBlender(
		&stubSource{name: recall.SourceCollaborative, err: errors.New("edges store down")},
		&stubSource{name: recall.SourceContent, err: core.ErrNoProfile},
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{item("p1", 3, 3)}},
	)

	got, err := b.Rank(context.Background(), warmContext(5))
	if err != nil {
		t.Fatalf("Rank() error = %v, want nil (degrade, not fail)", err)
	}
	if got.Algorithm != "popular_fallback" {
		t.Errorf("algorithm = %s, want popular_fallback", got.Algorithm)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ItemID != "p1" {
		t.Errorf("candidates = %+v, want only p1", got.Candidates)
	}
}

func TestRankNewUserIsPurePopularity(t *testing.T) {
	b := NewBlender(
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{item("p1", 3, 3)}},
		&stubSource{name: recall.SourceContent, items: []*core.Item{item("c1", 9, 0)}},
		&stubSource{name: recall.SourceCollaborative},
	)

	got, err := b.Rank(context.Background(), &core.RecommendContext{GeoID: 1})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got.Algorithm != "popular_fallback" {
		t.Errorf("algorithm = %s, want popular_fallback", got.Algorithm)
	}
	// NEW tier never consults content even when it would have results
	if len(got.Candidates) != 1 || got.Candidates[0].ItemID != "p1" {
		t.Errorf("candidates = %+v, want only p1", got.Candidates)
	}
}

func TestRankExcludesLikedItems(t *testing.T) {
	b := NewBlender(
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{
			item("liked", 9, 9), item("fresh", 3, 3),
		}},
	)
	rctx := &core.RecommendContext{GeoID: 1, LikedItems: []string{"liked"}}

	got, err := b.Rank(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].ItemID != "fresh" {
		t.Errorf("candidates = %+v, want only fresh", got.Candidates)
	}
}

func TestRankTieBreak(t *testing.T) {
	// same blended score: higher raw popularity first, then lower item id
	b := NewBlender(
		&stubSource{name: recall.SourcePopularity, items: []*core.Item{
			item("zz", 5, 8), item("aa", 5, 8), item("mm", 5, 9),
		}},
	)

	got, err := b.Rank(context.Background(), &core.RecommendContext{GeoID: 1})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	wantOrder := []string{"mm", "aa", "zz"}
	for i, want := range wantOrder {
		if got.Candidates[i].ItemID != want {
			t.Errorf("position %d = %s, want %s", i, got.Candidates[i].ItemID, want)
		}
	}
}
