// Package pipeline 把排序后的处理逻辑拆成可组合的 Node 链。
//
// 排序产出的候选要依次经过事实水合、过滤、截断等阶段才能对外返回，
// 每个阶段统一采用"输入 items -> 输出 items"的形态，方便组合与观测。
package pipeline

import (
	"context"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindHydrate     Kind = "hydrate"     // 水合阶段：为候选挂载实时事实
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindPostProcess Kind = "postprocess" // 后处理阶段：截断或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// Pipeline 把后处理逻辑组织为 Node 链，顺序执行。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
