// Package similarity 实现协同过滤的两种相似度策略。
//
// 两种策略实现同一个 Strategy 接口，协同召回源只依赖接口，不感知策略差异：
//   - ItemCooccurrence（首选）：物品×物品共现 + Jaccard，索引规模 O(物品²) 上界
//     但实际被共现阈值裁剪；单用户事件触发可做局部重算。
//   - UserOverlap（遗留）：用户×用户喜欢集合交集。候选池受批次上界约束，
//     规模是 O(用户²) 的全量两两比较，用户量一上来就不可行，仅作回退保留。
package similarity

import (
	"context"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// Neighbor 是相似度查询的一条结果：相关实体与对称相似分。
type Neighbor struct {
	ID    string
	Score float64 // [0,1]
}

// Strategy 是相似度策略的统一接口。
//
// 契约：
//   - 相似分对称且落在 [0,1]
//   - 所有查询受显式上限约束
//   - Related 与 CandidatesForUser 只读预计算索引，不现场计算
type Strategy interface {
	// Name 返回策略名（用于日志与 algorithm 标记）
	Name() string

	// Build 全量重建相似度索引，返回写入的边数。
	Build(ctx context.Context) (int, error)

	// BuildForUser 针对单个用户做事件触发的局部重建
	//（用户交互数跨越层级边界时调用，不等调度周期）。
	BuildForUser(ctx context.Context, userID string) error

	// Related 返回与某实体最相似的邻居，分数降序。
	Related(ctx context.Context, id string, limit int) ([]Neighbor, error)

	// CandidatesForUser 返回某用户的协同候选（已排除其已喜欢物品），
	// 分数为用户对候选的亲和度，降序。
	CandidatesForUser(ctx context.Context, userID string, limit int) ([]core.Candidate, error)
}
