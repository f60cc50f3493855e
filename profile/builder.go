// Package profile 从用户的喜欢历史构建偏好画像。
//
// 画像是个性化链路的路由信号与内容偏好特征源：
// InteractionCount 驱动算法层级切换，类别/平台/价格权重驱动 content-based 召回。
package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// 默认上限
const (
	DefaultMaxLikes       = 100
	DefaultBatchSize      = 200
	DefaultActiveLookback = 30 * 24 * time.Hour
)

// 参与类别权重统计的物品维度。
// 物品的 Categories 里可能还有别的 key，只有这些进入画像。
var profileDims = []string{"category", "suitable_for", "acquaintance_level"}

// Builder 构建并持久化用户画像。
type Builder struct {
	facts core.FactStore
	rec   core.RecStore

	maxLikes int
	now      func() time.Time
}

// Option 定制 Builder。
type Option func(*Builder)

// WithMaxLikes 设置画像构建读取的喜欢历史上限。
func WithMaxLikes(n int) Option {
	return func(b *Builder) { b.maxLikes = n }
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder 创建 Builder。
func NewBuilder(facts core.FactStore, rec core.RecStore, opts ...Option) *Builder {
	b := &Builder{
		facts:    facts,
		rec:      rec,
		maxLikes: DefaultMaxLikes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildForUser 重算并持久化某用户的画像。
// 零交互用户不产生画像：返回 core.ErrNoProfile，且不落库（调用方回退到热度层）。
func (b *Builder) BuildForUser(ctx context.Context, userID string) (*core.UserProfile, error) {
	likes, err := b.facts.GetUserLikes(ctx, userID, b.maxLikes)
	if err != nil {
		return nil, fmt.Errorf("profile: get user likes: %w", err)
	}
	if len(likes) == 0 {
		return nil, core.ErrNoProfile
	}

	facts, err := b.facts.GetItemFacts(ctx, likes)
	if err != nil {
		return nil, fmt.Errorf("profile: get item facts: %w", err)
	}

	p := core.NewUserProfile(userID)
	p.InteractionCount = len(likes)

	catCounts := make(map[string]float64)
	platCounts := make(map[string]float64)
	var catTotal, platTotal float64
	var priceSum float64
	var priceN int

	for _, itemID := range likes {
		f, ok := facts[itemID]
		if !ok {
			// 物品已下架/删除：仍计入 InteractionCount，但不贡献偏好特征
			continue
		}
		for _, dim := range profileDims {
			if v := f.Categories[dim]; v != "" {
				catCounts[dim+":"+v]++
				catTotal++
			}
		}
		if f.Platform != "" {
			platCounts[f.Platform]++
			platTotal++
		}
		if f.Price > 0 {
			priceSum += f.Price
			priceN++
			if priceN == 1 || f.Price < p.PriceRangeMin {
				p.PriceRangeMin = f.Price
			}
			if f.Price > p.PriceRangeMax {
				p.PriceRangeMax = f.Price
			}
		}
	}

	// 归一化：权重和为 1；单一类别历史 => 该类别权重 1.0
	for k, c := range catCounts {
		p.CategoryWeights[k] = c / catTotal
	}
	for k, c := range platCounts {
		p.PlatformWeights[k] = c / platTotal
	}
	if priceN > 0 {
		p.AvgPrice = priceSum / float64(priceN)
	}

	now := b.now()
	p.LastInteractionAt = now // 以构建时间近似；事实侧不回传单条时间戳
	p.ComputedAt = now

	if err := b.rec.PutProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("profile: put profile: %w", err)
	}
	return p, nil
}

// RefreshActive 重建回看窗口内所有活跃用户的画像。
// 单个用户失败不阻断批次，返回成功数与首个错误。
func (b *Builder) RefreshActive(ctx context.Context, lookback time.Duration, limit int) (int, error) {
	if lookback <= 0 {
		lookback = DefaultActiveLookback
	}
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	users, err := b.facts.ListActiveUsers(ctx, b.now().Add(-lookback), limit)
	if err != nil {
		return 0, fmt.Errorf("profile: list active users: %w", err)
	}

	built := 0
	var firstErr error
	for _, userID := range users {
		if ctx.Err() != nil {
			return built, ctx.Err()
		}
		if _, err := b.BuildForUser(ctx, userID); err != nil {
			if core.IsInsufficientData(err) {
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		built++
	}
	return built, firstErr
}
