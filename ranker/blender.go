package ranker

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/recall"
)

// 默认上限
const (
	DefaultMaxCandidates = 200
	DefaultSourceTimeout = 800 * time.Millisecond
)

// Blender 并发扇出召回源并按层级权重混排。
type Blender struct {
	sources map[string]recall.Source

	MaxCandidates int
	SourceTimeout time.Duration
}

// NewBlender 创建 Blender。sources 按 Name 索引。
func NewBlender(sources ...recall.Source) *Blender {
	m := make(map[string]recall.Source, len(sources))
	for _, s := range sources {
		m[s.Name()] = s
	}
	return &Blender{
		sources:       m,
		MaxCandidates: DefaultMaxCandidates,
		SourceTimeout: DefaultSourceTimeout,
	}
}

// Rank 按用户层级扇出召回、归一化、加权混排。
//
// 降级语义：某个分量失败或为空时只是不贡献分数，排名退化为其余分量的
// 混排，Algorithm 标记相应降到实际生效的最强分量。全部为空时返回空列表，
// 不返回错误。
func (b *Blender) Rank(ctx context.Context, rctx *core.RecommendContext) (*core.CandidateList, error) {
	count := 0
	if rctx.Profile != nil {
		count = rctx.Profile.InteractionCount
	}
	weights := Weights(TierFor(count))

	// 并发扇出，各源独立超时；失败按空结果处理
	results := make(map[string][]*core.Item, len(weights))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, cw := range weights {
		src, ok := b.sources[cw.Source]
		if !ok {
			continue
		}
		name := cw.Source
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, b.SourceTimeout)
			defer cancel()
			items, err := src.Recall(sctx, rctx, b.MaxCandidates)
			if err != nil {
				// 数据不足与上游失败同样降级：该分量不贡献分数
				return nil
			}
			mu.Lock()
			results[name] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return b.blend(rctx, weights, results), nil
}

// blend 归一化各分量分数到 [0,1]，按权重加和，排除已喜欢物品。
func (b *Blender) blend(rctx *core.RecommendContext, weights []ComponentWeight, results map[string][]*core.Item) *core.CandidateList {
	type blended struct {
		score  float64
		rawPop float64
		source string
	}
	acc := make(map[string]*blended)

	algorithm := "popular_fallback"
	algorithmSet := false
	for _, cw := range weights {
		items := results[cw.Source]
		if len(items) == 0 {
			continue
		}
		if !algorithmSet {
			// 权重降序遍历：第一个有产出的分量决定 algorithm 标记
			algorithm = algorithmLabel(cw.Source)
			algorithmSet = true
		}
		var max float64
		for _, it := range items {
			if it.Score > max {
				max = it.Score
			}
		}
		for _, it := range items {
			if rctx.Liked(it.ID) {
				continue
			}
			norm := 0.0
			if max > 0 {
				norm = it.Score / max
			}
			e, ok := acc[it.ID]
			if !ok {
				e = &blended{source: cw.Source}
				acc[it.ID] = e
			}
			e.score += cw.Weight * norm
			if rp := it.RawPopularity(); rp > e.rawPop {
				e.rawPop = rp
			}
		}
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := acc[ids[i]], acc[ids[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		// 确定性 tie-break：原始热度高者在前，再按物品 id 升序
		if a.rawPop != b.rawPop {
			return a.rawPop > b.rawPop
		}
		return ids[i] < ids[j]
	})
	if len(ids) > b.MaxCandidates {
		ids = ids[:b.MaxCandidates]
	}

	cands := make([]core.Candidate, 0, len(ids))
	for _, id := range ids {
		cands = append(cands, core.Candidate{ItemID: id, Score: acc[id].score, Source: acc[id].source})
	}
	return &core.CandidateList{
		Algorithm:  algorithm,
		Candidates: cands,
		ComputedAt: time.Now(),
	}
}

// algorithmLabel 把分量源名映射为对外的 algorithm_used 标记。
func algorithmLabel(source string) string {
	switch source {
	case recall.SourceCollaborative:
		return "collaborative"
	case recall.SourceContent:
		return "content_based"
	default:
		return "popular_fallback"
	}
}
