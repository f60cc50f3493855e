// Package filter 实现候选的属性过滤链。
//
// 过滤永远作用在实时事实上：候选可能来自缓存的旧排序，但库存、
// 可见性、价格等约束每次读取都重新判断。资格过滤（有货、非私有、
// geo 匹配）无条件参与，请求方的价格/类别/平台等条件按需叠加。
package filter

import (
	"context"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// EligibilityFilter 是无条件的资格过滤：
// 事实缺失、无货、私有物品、geo 不匹配的候选一律剔除。
type EligibilityFilter struct{}

func (f *EligibilityFilter) Name() string { return "filter.eligibility" }

func (f *EligibilityFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	facts := item.Facts()
	if !facts.Recommendable() {
		return true, nil
	}
	if rctx.GeoID != 0 && facts.GeoID != rctx.GeoID {
		return true, nil
	}
	return false, nil
}

// PriceRangeFilter 按闭区间过滤价格。边界本身保留；0 表示该侧不设限。
type PriceRangeFilter struct {
	Min float64
	Max float64
}

func (f *PriceRangeFilter) Name() string { return "filter.price_range" }

func (f *PriceRangeFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	facts := item.Facts()
	if facts == nil {
		return true, nil
	}
	if f.Min > 0 && facts.Price < f.Min {
		return true, nil
	}
	if f.Max > 0 && facts.Price > f.Max {
		return true, nil
	}
	return false, nil
}

// CategoryFilter 按类别维度做精确匹配过滤（category / suitable_for /
// acquaintance_level 共用，Dim 指定维度）。
type CategoryFilter struct {
	Dim   string
	Value string
}

func (f *CategoryFilter) Name() string { return "filter." + f.Dim }

func (f *CategoryFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	facts := item.Facts()
	if facts == nil {
		return true, nil
	}
	return facts.Categories[f.Dim] != f.Value, nil
}

// PlatformFilter 按平台做精确匹配过滤。
type PlatformFilter struct {
	Platform string
}

func (f *PlatformFilter) Name() string { return "filter.platform" }

func (f *PlatformFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	facts := item.Facts()
	if facts == nil {
		return true, nil
	}
	return facts.Platform != f.Platform, nil
}
