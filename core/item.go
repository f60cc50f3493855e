package core

import "github.com/Flcn/SantaRecommendationEngine/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、来源算法、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策；Source 标记产出该候选的算法分量。
type Item struct {
	ID     string
	Score  float64
	Source string
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Facts 返回挂载在候选上的物品实时事实；未挂载时为 nil。
// 过滤链依赖它做资格与属性判断，由水合节点在过滤前填充。
func (it *Item) Facts() *ItemFacts {
	if it.Meta == nil {
		return nil
	}
	f, _ := it.Meta["facts"].(*ItemFacts)
	return f
}

// SetFacts 挂载物品实时事实。
func (it *Item) SetFacts(f *ItemFacts) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta["facts"] = f
}

// RawPopularity 返回物品的原始热度分（混排 tie-break 用），未知时为 0。
func (it *Item) RawPopularity() float64 {
	if it.Meta == nil {
		return 0
	}
	if v, ok := it.Meta["raw_popularity"].(float64); ok {
		return v
	}
	return 0
}

// SetRawPopularity 记录物品的原始热度分。
func (it *Item) SetRawPopularity(score float64) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta["raw_popularity"] = score
}
