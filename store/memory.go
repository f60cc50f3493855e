package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// MemoryStore 是内存实现的事实库 + 推荐库 + 缓存三合一，用于测试/开发/原型。
// 进程重启后数据丢失。Now 可注入，方便测试 TTL 与时间衰减。
type MemoryStore struct {
	mu sync.RWMutex

	// 事实侧（FactStore）
	interactions []core.InteractionEvent
	items        map[string]*core.ItemFacts
	userLikes    map[string][]string // 新的在前
	itemLikers   map[string][]string

	// 预计算侧（RecStore）
	popularity []core.PopularityRecord
	profiles   map[string]*core.UserProfile
	itemEdges  map[string]map[string]core.ItemSimilarityEdge // canonical: a -> b -> edge
	userEdges  map[string][]core.UserSimilarityEdge

	// 缓存侧（Cache）
	kv map[string]memEntry

	// Now 返回当前时间；默认 time.Now，测试可替换
	Now func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time // 零值表示不过期
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:      make(map[string]*core.ItemFacts),
		userLikes:  make(map[string][]string),
		itemLikers: make(map[string][]string),
		profiles:   make(map[string]*core.UserProfile),
		itemEdges:  make(map[string]map[string]core.ItemSimilarityEdge),
		userEdges:  make(map[string][]core.UserSimilarityEdge),
		kv:         make(map[string]memEntry),
		Now:        time.Now,
	}
}

func (m *MemoryStore) Name() string { return "memory" }

// ========== 测试数据注入 ==========

// AddItem 注入一条物品事实。
func (m *MemoryStore) AddItem(f *core.ItemFacts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[f.ID] = f
}

// AddInteraction 注入一条交互事实，并维护喜欢集合的倒排。
func (m *MemoryStore) AddInteraction(ev core.InteractionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, ev)
	if ev.Kind != core.InteractionLike {
		return
	}
	m.userLikes[ev.UserID] = append([]string{ev.ItemID}, m.userLikes[ev.UserID]...)
	m.itemLikers[ev.ItemID] = append(m.itemLikers[ev.ItemID], ev.UserID)
}

// AddLike 便捷注入一条喜欢事实。
func (m *MemoryStore) AddLike(userID, itemID string, at time.Time) {
	m.AddInteraction(core.InteractionEvent{UserID: userID, ItemID: itemID, Kind: core.InteractionLike, OccurredAt: at})
}

// AddClick 便捷注入一条点击事实。
func (m *MemoryStore) AddClick(userID, itemID string, at time.Time) {
	m.AddInteraction(core.InteractionEvent{UserID: userID, ItemID: itemID, Kind: core.InteractionClick, OccurredAt: at})
}

// ========== FactStore ==========

func (m *MemoryStore) ListInteractions(ctx context.Context, since time.Time, limit int) ([]core.InteractionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.InteractionEvent, 0, len(m.interactions))
	for _, ev := range m.interactions {
		if ev.OccurredAt.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetUserLikes(ctx context.Context, userID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	likes := m.userLikes[userID]
	if limit > 0 && len(likes) > limit {
		likes = likes[:limit]
	}
	out := make([]string, len(likes))
	copy(out, likes)
	return out, nil
}

func (m *MemoryStore) GetItemLikers(ctx context.Context, itemID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	likers := m.itemLikers[itemID]
	if limit > 0 && len(likers) > limit {
		likers = likers[:limit]
	}
	out := make([]string, len(likers))
	copy(out, likers)
	return out, nil
}

func (m *MemoryStore) GetItemFacts(ctx context.Context, itemIDs []string) (map[string]*core.ItemFacts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*core.ItemFacts, len(itemIDs))
	for _, id := range itemIDs {
		if f, ok := m.items[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (m *MemoryStore) ListActiveUsers(ctx context.Context, since time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, ev := range m.interactions {
		if ev.Kind != core.InteractionLike || ev.OccurredAt.Before(since) {
			continue
		}
		if !seen[ev.UserID] {
			seen[ev.UserID] = true
			out = append(out, ev.UserID)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ========== RecStore ==========

func (m *MemoryStore) ReplacePopularity(ctx context.Context, records []core.PopularityRecord) error {
	next := make([]core.PopularityRecord, len(records))
	copy(next, records)
	// 新代完整构建后一次性切换，读者不会看到半写状态
	m.mu.Lock()
	m.popularity = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) QueryPopularity(ctx context.Context, q core.PopularityQuery) ([]core.PopularityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.PopularityRecord, 0)
	for _, r := range m.popularity {
		if r.Bucket.GeoID != q.GeoID {
			continue
		}
		if q.OnlyRollup {
			if r.Bucket.Gender != core.BucketAny || r.Bucket.AgeGroup != core.BucketAny || r.Bucket.Category != core.BucketAny {
				continue
			}
		} else if !dimMatch(r.Bucket.Gender, q.Gender) ||
			!dimMatch(r.Bucket.AgeGroup, q.AgeGroup) ||
			!dimMatch(r.Bucket.Category, q.Category) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// dimMatch 实现查询维度的放宽语义：查询值为空则不限定；
// 否则命中同值行或 "any" 上卷行。
func dimMatch(rowVal, queryVal string) bool {
	if queryVal == "" {
		return true
	}
	return rowVal == queryVal || rowVal == core.BucketAny
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) PutProfile(ctx context.Context, p *core.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *MemoryStore) ReplaceItemSimilarities(ctx context.Context, edges []core.ItemSimilarityEdge) error {
	next := make(map[string]map[string]core.ItemSimilarityEdge, len(edges))
	for _, e := range edges {
		if next[e.ItemA] == nil {
			next[e.ItemA] = make(map[string]core.ItemSimilarityEdge)
		}
		next[e.ItemA][e.ItemB] = e
	}
	m.mu.Lock()
	m.itemEdges = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) UpsertItemSimilarities(ctx context.Context, edges []core.ItemSimilarityEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range edges {
		if m.itemEdges[e.ItemA] == nil {
			m.itemEdges[e.ItemA] = make(map[string]core.ItemSimilarityEdge)
		}
		m.itemEdges[e.ItemA][e.ItemB] = e
	}
	return nil
}

func (m *MemoryStore) ItemNeighbors(ctx context.Context, itemID string, limit int) ([]core.ItemSimilarityEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.ItemSimilarityEdge, 0)
	for _, e := range m.itemEdges[itemID] {
		out = append(out, e)
	}
	for a, row := range m.itemEdges {
		if a == itemID {
			continue
		}
		if e, ok := row[itemID]; ok {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemA+out[i].ItemB < out[j].ItemA+out[j].ItemB
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetItemSimilarity(ctx context.Context, a, b string) (float64, error) {
	if a == b {
		return 1.0, nil
	}
	if a > b {
		a, b = b, a
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row, ok := m.itemEdges[a]; ok {
		if e, ok := row[b]; ok {
			return e.Score, nil
		}
	}
	return 0, nil
}

func (m *MemoryStore) ReplaceUserSimilarities(ctx context.Context, userID string, edges []core.UserSimilarityEdge) error {
	next := make([]core.UserSimilarityEdge, len(edges))
	copy(next, edges)
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Score != next[j].Score {
			return next[i].Score > next[j].Score
		}
		return next[i].SimilarUserID < next[j].SimilarUserID
	})
	m.mu.Lock()
	m.userEdges[userID] = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SimilarUsers(ctx context.Context, userID string, limit int) ([]core.UserSimilarityEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edges := m.userEdges[userID]
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	out := make([]core.UserSimilarityEdge, len(edges))
	copy(out, edges)
	return out, nil
}

// ========== Cache ==========

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.kv[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	if !e.expires.IsZero() && m.Now().After(e.expires) {
		return nil, core.ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = m.Now().Add(ttl)
	}
	m.kv[key] = e
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

// Cleanup 清除已过期的缓存条目（后台清理任务调用；读路径本身是惰性过期的）。
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	removed := 0
	for k, e := range m.kv {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.kv, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Close() error { return nil }

// 确保 MemoryStore 实现了三个领域接口
var _ core.FactStore = (*MemoryStore)(nil)
var _ core.RecStore = (*MemoryStore)(nil)
var _ core.Cache = (*MemoryStore)(nil)
