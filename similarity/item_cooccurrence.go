package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// ItemCooccurrence 的默认阈值与上限。
const (
	DefaultMinCooccurrence = 3
	DefaultMinScore        = 0.1
	DefaultMaxBuildUsers   = 10000
	DefaultMaxLikesPerUser = 100
	DefaultMaxLikers       = 1000
	DefaultMaxNeighbors    = 50
	DefaultBuildLookback   = 90 * 24 * time.Hour
)

// ItemCooccurrence 是基于物品共现的相似度策略（首选）。
//
// 全量 Build 扫描活跃用户的喜欢集合，统计物品对的共现次数，
// 以 Jaccard 系数 co / (totalA + totalB - co) 作为相似分。
// 只保留共现 >= MinCooccurrence 且分数 >= MinScore 的边；
// 边按规范序（item_a < item_b）存储，查询与入参顺序无关。
type ItemCooccurrence struct {
	facts core.FactStore
	rec   core.RecStore

	MinCooccurrence int
	MinScore        float64
	MaxBuildUsers   int
	MaxLikesPerUser int
	MaxLikers       int
	MaxNeighbors    int
	BuildLookback   time.Duration

	now func() time.Time
}

// NewItemCooccurrence 用默认阈值创建策略。
func NewItemCooccurrence(facts core.FactStore, rec core.RecStore) *ItemCooccurrence {
	return &ItemCooccurrence{
		facts:           facts,
		rec:             rec,
		MinCooccurrence: DefaultMinCooccurrence,
		MinScore:        DefaultMinScore,
		MaxBuildUsers:   DefaultMaxBuildUsers,
		MaxLikesPerUser: DefaultMaxLikesPerUser,
		MaxLikers:       DefaultMaxLikers,
		MaxNeighbors:    DefaultMaxNeighbors,
		BuildLookback:   DefaultBuildLookback,
		now:             time.Now,
	}
}

func (s *ItemCooccurrence) Name() string { return "item_cooccurrence" }

type pairKey struct{ a, b string }

// Build 全量重建物品相似度矩阵并原子替换旧一代。
func (s *ItemCooccurrence) Build(ctx context.Context) (int, error) {
	users, err := s.facts.ListActiveUsers(ctx, s.now().Add(-s.BuildLookback), s.MaxBuildUsers)
	if err != nil {
		return 0, fmt.Errorf("similarity: list active users: %w", err)
	}

	co := make(map[pairKey]int)
	totals := make(map[string]int)
	for _, userID := range users {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		likes, err := s.facts.GetUserLikes(ctx, userID, s.MaxLikesPerUser)
		if err != nil {
			return 0, fmt.Errorf("similarity: get likes for %s: %w", userID, err)
		}
		for _, id := range likes {
			totals[id]++
		}
		for i := 0; i < len(likes); i++ {
			for j := i + 1; j < len(likes); j++ {
				a, b := likes[i], likes[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				co[pairKey{a, b}]++
			}
		}
	}

	edges := make([]core.ItemSimilarityEdge, 0, len(co))
	for k, c := range co {
		if c < s.MinCooccurrence {
			continue
		}
		score := jaccard(c, totals[k.a], totals[k.b])
		if score < s.MinScore {
			continue
		}
		edges = append(edges, core.CanonicalEdge(k.a, k.b, score, c, totals[k.a], totals[k.b]))
	}

	if err := s.rec.ReplaceItemSimilarities(ctx, edges); err != nil {
		return 0, fmt.Errorf("similarity: replace edges: %w", err)
	}
	return len(edges), nil
}

// BuildForUser 局部重算：只重算该用户喜欢物品两两之间的边并增量写入。
// 用于交互数跨越层级边界时的即时重建，全量矩阵留给调度周期。
func (s *ItemCooccurrence) BuildForUser(ctx context.Context, userID string) error {
	likes, err := s.facts.GetUserLikes(ctx, userID, s.MaxLikesPerUser)
	if err != nil {
		return fmt.Errorf("similarity: get likes for %s: %w", userID, err)
	}
	if len(likes) < 2 {
		return nil
	}

	// 每个物品的喜欢者集合，受 MaxLikers 约束
	likers := make(map[string]map[string]struct{}, len(likes))
	for _, itemID := range likes {
		us, err := s.facts.GetItemLikers(ctx, itemID, s.MaxLikers)
		if err != nil {
			return fmt.Errorf("similarity: get likers for %s: %w", itemID, err)
		}
		set := make(map[string]struct{}, len(us))
		for _, u := range us {
			set[u] = struct{}{}
		}
		likers[itemID] = set
	}

	edges := make([]core.ItemSimilarityEdge, 0)
	for i := 0; i < len(likes); i++ {
		for j := i + 1; j < len(likes); j++ {
			a, b := likes[i], likes[j]
			if a == b {
				continue
			}
			setA, setB := likers[a], likers[b]
			c := 0
			for u := range setA {
				if _, ok := setB[u]; ok {
					c++
				}
			}
			if c < s.MinCooccurrence {
				continue
			}
			score := jaccard(c, len(setA), len(setB))
			if score < s.MinScore {
				continue
			}
			edges = append(edges, core.CanonicalEdge(a, b, score, c, len(setA), len(setB)))
		}
	}
	if len(edges) == 0 {
		return nil
	}
	if err := s.rec.UpsertItemSimilarities(ctx, edges); err != nil {
		return fmt.Errorf("similarity: upsert edges: %w", err)
	}
	return nil
}

// Related 返回某物品的相似邻居，分数降序。
func (s *ItemCooccurrence) Related(ctx context.Context, itemID string, limit int) ([]Neighbor, error) {
	if limit <= 0 || limit > s.MaxNeighbors {
		limit = s.MaxNeighbors
	}
	edges, err := s.rec.ItemNeighbors(ctx, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity: item neighbors: %w", err)
	}
	out := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		other := e.ItemA
		if other == itemID {
			other = e.ItemB
		}
		out = append(out, Neighbor{ID: other, Score: e.Score})
	}
	return out, nil
}

// CandidatesForUser 返回协同候选：用户已喜欢物品的邻居，
// 亲和度 = 候选与各喜欢物品相似分之和 / 喜欢物品数（缺边计 0）。
func (s *ItemCooccurrence) CandidatesForUser(ctx context.Context, userID string, limit int) ([]core.Candidate, error) {
	likes, err := s.facts.GetUserLikes(ctx, userID, s.MaxLikesPerUser)
	if err != nil {
		return nil, fmt.Errorf("similarity: get likes for %s: %w", userID, err)
	}
	if len(likes) == 0 {
		return nil, nil
	}
	liked := make(map[string]struct{}, len(likes))
	for _, id := range likes {
		liked[id] = struct{}{}
	}

	sums := make(map[string]float64)
	for _, itemID := range likes {
		neighbors, err := s.Related(ctx, itemID, s.MaxNeighbors)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if _, own := liked[n.ID]; own {
				continue
			}
			sums[n.ID] += n.Score
		}
	}

	out := make([]core.Candidate, 0, len(sums))
	denom := float64(len(likes))
	for id, sum := range sums {
		out = append(out, core.Candidate{ItemID: id, Score: sum / denom, Source: s.Name()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// jaccard 计算共现 Jaccard 系数：co / (totalA + totalB - co)。
func jaccard(co, totalA, totalB int) float64 {
	union := totalA + totalB - co
	if union <= 0 {
		return 0
	}
	return float64(co) / float64(union)
}

var _ Strategy = (*ItemCooccurrence)(nil)
