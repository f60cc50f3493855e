package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/pkg/conv"
)

// content-based 打分权重。各分量取值 [0,1]，总权重和为 1。
const (
	categoryMatchWeight   = 0.4
	priceProximityWeight  = 0.3
	platformMatchWeight   = 0.2
	popularityPriorWeight = 0.1
)

// 画像里取前几个偏好类别作为候选池来源。
const topPreferredCategories = 3

// ContentSource 基于用户画像的内容匹配召回。
//
// 候选池来自用户最偏好的几个类别的热门物品，再按画像逐项重打分：
// 类别匹配 0.4 + 价格贴近度 0.3 + 平台匹配 0.2 + 热度先验 0.1。
// 无画像（NEW 层用户）返回 ErrNoProfile，由混排层降级到热度。
type ContentSource struct {
	facts core.FactStore
	rec   core.RecStore
}

// NewContentSource 创建内容召回源。
func NewContentSource(facts core.FactStore, rec core.RecStore) *ContentSource {
	return &ContentSource{facts: facts, rec: rec}
}

func (s *ContentSource) Name() string { return SourceContent }

func (s *ContentSource) Recall(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error) {
	p := rctx.Profile
	if p == nil || len(p.CategoryWeights) == 0 {
		return nil, core.ErrNoProfile
	}

	// 候选池：偏好 top 类别的热门物品 + geo 上卷兜底
	pool := make(map[string]float64) // itemID -> raw popularity
	for _, key := range conv.MapKeysByWeight(p.CategoryWeights, topPreferredCategories) {
		dim, value, ok := strings.Cut(key, ":")
		if !ok || dim != "category" {
			continue
		}
		records, err := s.rec.QueryPopularity(ctx, core.PopularityQuery{
			GeoID:    rctx.GeoID,
			Category: value,
			Limit:    limit,
		})
		if err != nil {
			return nil, fmt.Errorf("recall: query category popularity: %w", err)
		}
		for _, r := range records {
			if r.Score > pool[r.ItemID] {
				pool[r.ItemID] = r.Score
			}
		}
	}
	if len(pool) < limit {
		rollup, err := s.rec.QueryPopularity(ctx, core.PopularityQuery{
			GeoID:      rctx.GeoID,
			OnlyRollup: true,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("recall: query rollup popularity: %w", err)
		}
		for _, r := range rollup {
			if _, ok := pool[r.ItemID]; !ok {
				pool[r.ItemID] = r.Score
			}
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pool))
	var maxPop float64
	for id, pop := range pool {
		ids = append(ids, id)
		if pop > maxPop {
			maxPop = pop
		}
	}
	facts, err := s.facts.GetItemFacts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("recall: get item facts: %w", err)
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		if rctx.Liked(id) {
			continue
		}
		f, ok := facts[id]
		if !ok || !f.Recommendable() {
			continue
		}
		score := s.matchScore(p, f)
		if maxPop > 0 {
			score += popularityPriorWeight * (pool[id] / maxPop)
		}
		it := core.NewItem(id)
		it.Score = score
		it.Source = SourceContent
		it.SetRawPopularity(pool[id])
		out = append(out, it)
	}

	sortItems(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// matchScore 计算物品对画像的匹配分（不含热度先验）。
func (s *ContentSource) matchScore(p *core.UserProfile, f *core.ItemFacts) float64 {
	var catScore float64
	for dim, value := range f.Categories {
		if w := p.CategoryWeight(dim + ":" + value); w > catScore {
			catScore = w
		}
	}
	score := categoryMatchWeight * catScore
	score += platformMatchWeight * p.PlatformWeight(f.Platform)
	score += priceProximityWeight * priceProximity(p.AvgPrice, f.Price)
	return score
}

// priceProximity 计算价格贴近度：与偏好均价的相对偏差的补值，截断到 [0,1]。
func priceProximity(avgPrice, price float64) float64 {
	if avgPrice <= 0 || price <= 0 {
		return 0
	}
	d := price - avgPrice
	if d < 0 {
		d = -d
	}
	prox := 1 - d/avgPrice
	if prox < 0 {
		return 0
	}
	return prox
}
