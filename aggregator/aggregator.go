// Package aggregator 把原始交互事实聚合为按人群桶划分的时间衰减热度分。
//
// 聚合是全量重算式的：每个周期从只读事实库拉取回看窗口内的全部交互，
// 重新计算每个 (人群桶, 物品) 的热度分，然后原子地替换上一代记录。
// 不做增量修补，避免衰减权重随时间漂移。
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// 默认参数
const (
	DefaultLookback  = 90 * 24 * time.Hour
	DefaultMaxEvents = 500000
)

// 衰减分档边界
const (
	freshWindow  = 7 * 24 * time.Hour
	recentWindow = 30 * 24 * time.Hour
	staleWindow  = 90 * 24 * time.Hour
)

// DecayWeight 返回某类交互在给定时间差下的热度权重。
// 三档阶梯衰减；超出最老一档直接归零，而不是渐近衰减。
func DecayWeight(kind core.InteractionKind, age time.Duration) float64 {
	if age > staleWindow {
		return 0
	}
	switch kind {
	case core.InteractionLike:
		switch {
		case age <= freshWindow:
			return 5.0
		case age <= recentWindow:
			return 3.0
		default:
			return 1.5
		}
	case core.InteractionClick:
		switch {
		case age <= freshWindow:
			return 3.0
		case age <= recentWindow:
			return 2.0
		default:
			return 1.0
		}
	}
	return 0
}

// Aggregator 驱动热度记录的重算。
type Aggregator struct {
	facts core.FactStore
	rec   core.RecStore

	lookback  time.Duration
	maxEvents int

	// now 可注入，测试时固定时钟
	now func() time.Time
}

// Option 定制 Aggregator。
type Option func(*Aggregator)

// WithLookback 设置回看窗口。
func WithLookback(d time.Duration) Option {
	return func(a *Aggregator) { a.lookback = d }
}

// WithMaxEvents 设置单次重算拉取的交互上限。
func WithMaxEvents(n int) Option {
	return func(a *Aggregator) { a.maxEvents = n }
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New 创建 Aggregator。
func New(facts core.FactStore, rec core.RecStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		facts:     facts,
		rec:       rec,
		lookback:  DefaultLookback,
		maxEvents: DefaultMaxEvents,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type bucketKey struct {
	bucket core.DemographicBucket
	itemID string
}

// Refresh 执行一轮全量重算并原子替换热度记录。
// 返回写入的记录条数。
func (a *Aggregator) Refresh(ctx context.Context) (int, error) {
	now := a.now()
	since := now.Add(-a.lookback)

	events, err := a.facts.ListInteractions(ctx, since, a.maxEvents)
	if err != nil {
		return 0, fmt.Errorf("aggregator: list interactions: %w", err)
	}
	if len(events) == 0 {
		// 零交互也要提交空代：过期的旧代比空代更误导
		if err := a.rec.ReplacePopularity(ctx, nil); err != nil {
			return 0, fmt.Errorf("aggregator: replace popularity: %w", err)
		}
		return 0, nil
	}

	// 批量拉取物品事实做资格校验
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.ItemID]; ok {
			continue
		}
		seen[ev.ItemID] = struct{}{}
		ids = append(ids, ev.ItemID)
	}
	facts, err := a.facts.GetItemFacts(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("aggregator: get item facts: %w", err)
	}

	scores := make(map[bucketKey]float64)
	for _, ev := range events {
		f := facts[ev.ItemID]
		if !f.Recommendable() {
			continue
		}
		w := DecayWeight(ev.Kind, now.Sub(ev.OccurredAt))
		if w == 0 {
			continue
		}
		// 精确人群桶 + 同 geo 的全量上卷桶，查询才能逐级放宽
		exact := itemBucket(f)
		scores[bucketKey{bucket: exact, itemID: ev.ItemID}] += w
		if rollup := core.AnyBucket(f.GeoID); rollup != exact {
			scores[bucketKey{bucket: rollup, itemID: ev.ItemID}] += w
		}
	}

	records := make([]core.PopularityRecord, 0, len(scores))
	for k, score := range scores {
		records = append(records, core.PopularityRecord{
			Bucket:     k.bucket,
			ItemID:     k.itemID,
			Score:      score,
			ComputedAt: now,
		})
	}
	// 确定性输出顺序，方便 diff 与调试
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Bucket != b.Bucket {
			if a.Bucket.GeoID != b.Bucket.GeoID {
				return a.Bucket.GeoID < b.Bucket.GeoID
			}
			if a.Bucket.Gender != b.Bucket.Gender {
				return a.Bucket.Gender < b.Bucket.Gender
			}
			if a.Bucket.AgeGroup != b.Bucket.AgeGroup {
				return a.Bucket.AgeGroup < b.Bucket.AgeGroup
			}
			return a.Bucket.Category < b.Bucket.Category
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ItemID < b.ItemID
	})

	if err := a.rec.ReplacePopularity(ctx, records); err != nil {
		return 0, fmt.Errorf("aggregator: replace popularity: %w", err)
	}
	return len(records), nil
}

// itemBucket 从物品事实派生精确人群桶；缺失的维度落到 "any"。
func itemBucket(f *core.ItemFacts) core.DemographicBucket {
	b := core.DemographicBucket{
		GeoID:    f.GeoID,
		Gender:   f.Categories["gender"],
		AgeGroup: f.Categories["age"],
		Category: f.Categories["category"],
	}
	if b.Gender == "" {
		b.Gender = core.BucketAny
	}
	if b.AgeGroup == "" {
		b.AgeGroup = core.BucketAny
	}
	if b.Category == "" {
		b.Category = core.BucketAny
	}
	return b
}
