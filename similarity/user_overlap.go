package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// UserOverlap 的默认阈值与上限。
const (
	DefaultMinOverlap       = 2
	DefaultOverlapNormFloor = 20
	DefaultCandidateBatch   = 50
	DefaultMaxSimilarUsers  = 20
)

// UserOverlap 是遗留的用户×用户相似度策略。
//
// 相似分 = 喜欢集合交集大小 / max(OverlapNormFloor, 交集大小)，
// 交集 < MinOverlap 的边丢弃。候选池取活跃用户的前 CandidateBatch 个：
// 这是当年上线时的取巧，用户量一大覆盖率坍塌，全量比较又是 O(用户²)，
// 所以该策略只作回退保留，不再演进。
type UserOverlap struct {
	facts core.FactStore
	rec   core.RecStore

	MinOverlap       int
	OverlapNormFloor int
	CandidateBatch   int
	MaxLikesPerUser  int
	MaxSimilarUsers  int
	BuildLookback    time.Duration

	now func() time.Time
}

// NewUserOverlap 用默认阈值创建策略。
func NewUserOverlap(facts core.FactStore, rec core.RecStore) *UserOverlap {
	return &UserOverlap{
		facts:            facts,
		rec:              rec,
		MinOverlap:       DefaultMinOverlap,
		OverlapNormFloor: DefaultOverlapNormFloor,
		CandidateBatch:   DefaultCandidateBatch,
		MaxLikesPerUser:  DefaultMaxLikesPerUser,
		MaxSimilarUsers:  DefaultMaxSimilarUsers,
		BuildLookback:    DefaultBuildLookback,
		now:              time.Now,
	}
}

func (s *UserOverlap) Name() string { return "user_overlap" }

// Build 重建批次内所有活跃用户的相似用户边。
func (s *UserOverlap) Build(ctx context.Context) (int, error) {
	users, err := s.facts.ListActiveUsers(ctx, s.now().Add(-s.BuildLookback), s.CandidateBatch)
	if err != nil {
		return 0, fmt.Errorf("similarity: list active users: %w", err)
	}
	total := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.buildEdges(ctx, userID, users)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// BuildForUser 重算单个用户对批次候选池的相似边。
func (s *UserOverlap) BuildForUser(ctx context.Context, userID string) error {
	pool, err := s.facts.ListActiveUsers(ctx, s.now().Add(-s.BuildLookback), s.CandidateBatch)
	if err != nil {
		return fmt.Errorf("similarity: list active users: %w", err)
	}
	_, err = s.buildEdges(ctx, userID, pool)
	return err
}

func (s *UserOverlap) buildEdges(ctx context.Context, userID string, pool []string) (int, error) {
	likes, err := s.facts.GetUserLikes(ctx, userID, s.MaxLikesPerUser)
	if err != nil {
		return 0, fmt.Errorf("similarity: get likes for %s: %w", userID, err)
	}
	mine := make(map[string]struct{}, len(likes))
	for _, id := range likes {
		mine[id] = struct{}{}
	}

	edges := make([]core.UserSimilarityEdge, 0)
	for _, other := range pool {
		if other == userID {
			continue
		}
		theirs, err := s.facts.GetUserLikes(ctx, other, s.MaxLikesPerUser)
		if err != nil {
			return 0, fmt.Errorf("similarity: get likes for %s: %w", other, err)
		}
		overlap := 0
		for _, id := range theirs {
			if _, ok := mine[id]; ok {
				overlap++
			}
		}
		if overlap < s.MinOverlap {
			continue
		}
		denom := s.OverlapNormFloor
		if overlap > denom {
			denom = overlap
		}
		edges = append(edges, core.UserSimilarityEdge{
			UserID:        userID,
			SimilarUserID: other,
			Score:         float64(overlap) / float64(denom),
		})
	}
	if err := s.rec.ReplaceUserSimilarities(ctx, userID, edges); err != nil {
		return 0, fmt.Errorf("similarity: replace user edges: %w", err)
	}
	return len(edges), nil
}

// Related 返回某用户的相似用户，分数降序。
func (s *UserOverlap) Related(ctx context.Context, userID string, limit int) ([]Neighbor, error) {
	if limit <= 0 || limit > s.MaxSimilarUsers {
		limit = s.MaxSimilarUsers
	}
	edges, err := s.rec.SimilarUsers(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity: similar users: %w", err)
	}
	out := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		out = append(out, Neighbor{ID: e.SimilarUserID, Score: e.Score})
	}
	return out, nil
}

// CandidatesForUser 返回协同候选：相似用户喜欢过、而本用户没喜欢过的物品，
// 亲和度 = Σ(相似用户分数)，同一物品被多个相似用户喜欢则累积。
func (s *UserOverlap) CandidatesForUser(ctx context.Context, userID string, limit int) ([]core.Candidate, error) {
	similar, err := s.Related(ctx, userID, s.MaxSimilarUsers)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return nil, nil
	}

	likes, err := s.facts.GetUserLikes(ctx, userID, s.MaxLikesPerUser)
	if err != nil {
		return nil, fmt.Errorf("similarity: get likes for %s: %w", userID, err)
	}
	mine := make(map[string]struct{}, len(likes))
	for _, id := range likes {
		mine[id] = struct{}{}
	}

	sums := make(map[string]float64)
	for _, n := range similar {
		theirs, err := s.facts.GetUserLikes(ctx, n.ID, s.MaxLikesPerUser)
		if err != nil {
			return nil, fmt.Errorf("similarity: get likes for %s: %w", n.ID, err)
		}
		for _, id := range theirs {
			if _, own := mine[id]; own {
				continue
			}
			sums[id] += n.Score
		}
	}

	out := make([]core.Candidate, 0, len(sums))
	for id, sum := range sums {
		out = append(out, core.Candidate{ItemID: id, Score: sum, Source: s.Name()})
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

var _ Strategy = (*UserOverlap)(nil)
