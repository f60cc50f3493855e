// Package recall 定义候选召回源。
//
// 每个召回源对应一个算法分量（热度 / 内容 / 协同），
// 由 ranker 并发扇出调用并按层级权重混排。
package recall

import (
	"context"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// Source 是召回源的统一接口。
//
// 契约：
//   - 返回的 Item.Score 是该分量的原始分，归一化由混排层负责
//   - 已喜欢物品在源内排除（个性化源）
//   - 数据不足是预期情形：返回 INSUFFICIENT_DATA 类错误或空列表，
//     由混排层降级处理，绝不视为故障
type Source interface {
	// Name 返回源名称（用于日志与 algorithm 标记）
	Name() string

	// Recall 返回至多 limit 个候选，分数降序。
	Recall(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error)
}

// 源名称常量，与 algorithm_used 标记对应。
const (
	SourcePopularity    = "popularity"
	SourceContent       = "content"
	SourceCollaborative = "collaborative"
)
