// Package ranker 实现算法层级路由与多源混排。
//
// 层级由用户交互数决定，是一个封闭集合：
//
//	NEW  (0 次)   —— 纯热度
//	COLD (1–2 次) —— 内容 0.7 / 热度 0.3
//	WARM (>=3 次) —— 协同 0.5 / 内容 0.3 / 热度 0.2
//
// 权重表驱动，不散落 if/else。强分量在请求期失效时逐级降到次弱层，
// 绝不让请求失败。
package ranker

import "github.com/Flcn/SantaRecommendationEngine/recall"

// Tier 是算法层级。
type Tier int

const (
	TierNew Tier = iota
	TierCold
	TierWarm
)

// 层级边界
const (
	coldThreshold = 1
	warmThreshold = 3
)

// TierFor 按交互数路由层级。
func TierFor(interactionCount int) Tier {
	switch {
	case interactionCount < coldThreshold:
		return TierNew
	case interactionCount < warmThreshold:
		return TierCold
	default:
		return TierWarm
	}
}

func (t Tier) String() string {
	switch t {
	case TierNew:
		return "new"
	case TierCold:
		return "cold"
	case TierWarm:
		return "warm"
	}
	return "unknown"
}

// ComponentWeight 是层级权重表的一行：分量源名 + 混排权重。
// 每层的行按权重降序排列，降级与回补都按这个顺序走。
type ComponentWeight struct {
	Source string
	Weight float64
}

// tierWeights 是全部层级的权重表。每层权重和为 1。
var tierWeights = map[Tier][]ComponentWeight{
	TierNew: {
		{Source: recall.SourcePopularity, Weight: 1.0},
	},
	TierCold: {
		{Source: recall.SourceContent, Weight: 0.7},
		{Source: recall.SourcePopularity, Weight: 0.3},
	},
	TierWarm: {
		{Source: recall.SourceCollaborative, Weight: 0.5},
		{Source: recall.SourceContent, Weight: 0.3},
		{Source: recall.SourcePopularity, Weight: 0.2},
	},
}

// Weights 返回某层级的分量权重（权重降序）。
func Weights(t Tier) []ComponentWeight {
	return tierWeights[t]
}

// CrossesTierBoundary 判断交互数从 old 到 new 是否跨越了层级边界。
// 跨越时画像与相似度需要提前重建，不等调度周期。
func CrossesTierBoundary(oldCount, newCount int) bool {
	return TierFor(oldCount) != TierFor(newCount)
}
