package recall

import (
	"context"
	"fmt"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/similarity"
)

// CollaborativeSource 基于相似度策略的协同召回。
// 策略（物品共现 / 用户重合）通过 similarity.Strategy 接口注入，源本身不感知差异。
type CollaborativeSource struct {
	strategy similarity.Strategy
}

// NewCollaborativeSource 创建协同召回源。
func NewCollaborativeSource(strategy similarity.Strategy) *CollaborativeSource {
	return &CollaborativeSource{strategy: strategy}
}

func (s *CollaborativeSource) Name() string { return SourceCollaborative }

func (s *CollaborativeSource) Recall(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error) {
	if rctx.UserID == "" {
		return nil, nil
	}
	cands, err := s.strategy.CandidatesForUser(ctx, rctx.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("recall: %s candidates: %w", s.strategy.Name(), err)
	}

	out := make([]*core.Item, 0, len(cands))
	for _, c := range cands {
		// 策略已排除预计算时的已喜欢集合；请求上下文里可能有更新的
		if rctx.Liked(c.ItemID) {
			continue
		}
		it := core.NewItem(c.ItemID)
		it.Score = c.Score
		it.Source = SourceCollaborative
		out = append(out, it)
	}
	return out, nil
}
