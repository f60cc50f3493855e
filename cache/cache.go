package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// TTL 分档。
//
// 热度结果的 TTL 对齐聚合周期：重算没发生，缓存就不会过期失效。
// 个性化结果 TTL 极短：用户一个新交互就该改变排序。
// 画像 TTL 长，层级跨越时由事件触发提前失效。
const (
	DefaultPopularTTL      = 15 * time.Minute
	DefaultPersonalizedTTL = 5 * time.Second
	DefaultProfileTTL      = 4 * time.Hour
)

// ResultCache 在 core.Cache 之上实现排序结果与画像的 JSON 编解码缓存。
type ResultCache struct {
	kv core.Cache

	PopularTTL      time.Duration
	PersonalizedTTL time.Duration
	ProfileTTL      time.Duration
}

// New 创建 ResultCache。
func New(kv core.Cache) *ResultCache {
	return &ResultCache{
		kv:              kv,
		PopularTTL:      DefaultPopularTTL,
		PersonalizedTTL: DefaultPersonalizedTTL,
		ProfileTTL:      DefaultProfileTTL,
	}
}

// GetResult 读取缓存的候选列表。
// 未命中、损坏、后端不可用统一返回 (nil, false)；损坏的条目顺手删除。
func (c *ResultCache) GetResult(ctx context.Context, key string) (*core.CandidateList, bool) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var cl core.CandidateList
	if err := json.Unmarshal(raw, &cl); err != nil {
		_ = c.kv.Delete(ctx, key)
		return nil, false
	}
	return &cl, true
}

// SetResult 写入候选列表。写失败静默忽略（advisory 契约）。
func (c *ResultCache) SetResult(ctx context.Context, key string, cl *core.CandidateList, ttl time.Duration) {
	raw, err := json.Marshal(cl)
	if err != nil {
		return
	}
	_ = c.kv.Set(ctx, key, raw, ttl)
}

// GetProfile 读取缓存的用户画像。
func (c *ResultCache) GetProfile(ctx context.Context, userID string) (*core.UserProfile, bool) {
	raw, err := c.kv.Get(ctx, ProfileKey(userID))
	if err != nil {
		return nil, false
	}
	var p core.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		_ = c.kv.Delete(ctx, ProfileKey(userID))
		return nil, false
	}
	return &p, true
}

// SetProfile 写入用户画像缓存。
func (c *ResultCache) SetProfile(ctx context.Context, p *core.UserProfile) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.kv.Set(ctx, ProfileKey(p.UserID), raw, c.ProfileTTL)
}

// InvalidateProfile 提前失效某用户的画像缓存（层级跨越时调用）。
func (c *ResultCache) InvalidateProfile(ctx context.Context, userID string) {
	_ = c.kv.Delete(ctx, ProfileKey(userID))
}
