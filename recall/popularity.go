package recall

import (
	"context"
	"fmt"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// PopularitySource 从预计算热度记录召回候选。
//
// 查询先命中请求的精确人群桶；候选不足时放宽到同 geo 的全量上卷桶，
// 按物品去重并保留更高分。原始热度分记入 Item 的 raw_popularity，
// 供混排层做确定性 tie-break。
type PopularitySource struct {
	rec core.RecStore
}

// NewPopularitySource 创建热度召回源。
func NewPopularitySource(rec core.RecStore) *PopularitySource {
	return &PopularitySource{rec: rec}
}

func (s *PopularitySource) Name() string { return SourcePopularity }

func (s *PopularitySource) Recall(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error) {
	records, err := s.rec.QueryPopularity(ctx, core.PopularityQuery{
		GeoID:    rctx.GeoID,
		Gender:   rctx.Gender,
		AgeGroup: rctx.AgeGroup,
		Category: rctx.Category,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("recall: query popularity: %w", err)
	}

	seen := make(map[string]*core.Item, len(records))
	out := make([]*core.Item, 0, limit)
	appendRecords := func(records []core.PopularityRecord) {
		for _, r := range records {
			if rctx.Liked(r.ItemID) {
				continue
			}
			if it, ok := seen[r.ItemID]; ok {
				// 同一物品命中多个桶：保留更高分
				if r.Score > it.Score {
					it.Score = r.Score
					it.SetRawPopularity(r.Score)
				}
				continue
			}
			it := core.NewItem(r.ItemID)
			it.Score = r.Score
			it.Source = SourcePopularity
			it.SetRawPopularity(r.Score)
			seen[r.ItemID] = it
			out = append(out, it)
		}
	}
	appendRecords(records)

	// 精确桶不足：放宽到同 geo 的全量上卷桶补齐
	if len(out) < limit {
		rollup, err := s.rec.QueryPopularity(ctx, core.PopularityQuery{
			GeoID:      rctx.GeoID,
			OnlyRollup: true,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("recall: query rollup popularity: %w", err)
		}
		appendRecords(rollup)
	}

	sortItems(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
