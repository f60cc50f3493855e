package filter

import (
	"context"
	"fmt"

	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/pipeline"
	"github.com/Flcn/SantaRecommendationEngine/pkg/utils"
)

// HydrateNode 为候选批量挂载实时物品事实，供后续过滤器使用。
// 事实缺失的候选保留事实为 nil，由资格过滤剔除。
type HydrateNode struct {
	Facts core.FactStore
}

func (n *HydrateNode) Name() string { return "filter.hydrate" }

func (n *HydrateNode) Kind() pipeline.Kind { return pipeline.KindHydrate }

func (n *HydrateNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	facts, err := n.Facts.GetItemFacts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate items: %w", err)
	}
	for _, item := range items {
		if f, ok := facts[item.ID]; ok {
			item.SetFacts(f)
		}
	}
	return items, nil
}

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string { return "filter.node" }

func (n *FilterNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		shouldFilter := false
		filterReason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时记录但不中断流程
				continue
			}
			if ok {
				shouldFilter = true
				filterReason = f.Name()
				break
			}
		}

		if shouldFilter {
			// 记录过滤原因，用于调试/观测
			item.PutLabel("filtered", utils.Label{Value: "true", Source: filterReason})
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

var _ pipeline.Node = (*HydrateNode)(nil)
var _ pipeline.Node = (*FilterNode)(nil)
