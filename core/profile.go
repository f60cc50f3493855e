package core

import "time"

// UserProfile 是从用户喜欢历史派生的偏好画像。
//
// 一句话定义：用户画像 = 个性化链路的"路由信号 + 内容偏好特征源"
//
// 它不是某一个算法，而是：
//   - 驱动算法层级路由（NEW / COLD / WARM 按 InteractionCount 切换）
//   - 驱动 content-based 召回的类别/平台/价格匹配
//   - 按计划重建，或在 InteractionCount 跨越层级边界时提前重建
//
// 不变式：两次重建之间 InteractionCount 单调不减。
type UserProfile struct {
	UserID string

	// 偏好权重（归一化，和为 1）
	// CategoryWeights 的 key 形如 "{维度}:{取值}"，例如 "category:books"
	CategoryWeights map[string]float64
	PlatformWeights map[string]float64

	// 价格偏好
	AvgPrice      float64
	PriceRangeMin float64
	PriceRangeMax float64

	// 路由信号
	InteractionCount  int
	LastInteractionAt time.Time

	// 元数据
	ComputedAt time.Time
}

// NewUserProfile 创建一个空画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:          userID,
		CategoryWeights: make(map[string]float64),
		PlatformWeights: make(map[string]float64),
		ComputedAt:      time.Now(),
	}
}

// CategoryWeight 获取某个类别 key 的偏好权重。
func (p *UserProfile) CategoryWeight(key string) float64 {
	if p == nil || p.CategoryWeights == nil {
		return 0
	}
	return p.CategoryWeights[key]
}

// PlatformWeight 获取某个平台的偏好权重。
func (p *UserProfile) PlatformWeight(platform string) float64 {
	if p == nil || p.PlatformWeights == nil {
		return 0
	}
	return p.PlatformWeights[platform]
}
