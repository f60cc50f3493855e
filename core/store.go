package core

import (
	"context"
	"time"
)

// FactStore 是交互/物品事实的只读领域接口（主库侧）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 每个查询都带显式上限（limit），保证延迟与数据规模无关
type FactStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ListInteractions 列出 since 之后的交互事实（like + click），按时间倒序。
	ListInteractions(ctx context.Context, since time.Time, limit int) ([]InteractionEvent, error)

	// GetUserLikes 获取用户喜欢的物品 id 列表，按时间倒序。
	GetUserLikes(ctx context.Context, userID string, limit int) ([]string, error)

	// GetItemLikers 获取喜欢某物品的用户 id 列表。
	GetItemLikers(ctx context.Context, itemID string, limit int) ([]string, error)

	// GetItemFacts 批量读取物品实时事实；缺失的物品不出现在结果中。
	GetItemFacts(ctx context.Context, itemIDs []string) (map[string]*ItemFacts, error)

	// ListActiveUsers 列出 since 之后有喜欢行为的用户。
	ListActiveUsers(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// PopularityQuery 是热度记录的查询条件。
// 维度值为空表示不限定（匹配任意值或 "any" 上卷行）。
type PopularityQuery struct {
	GeoID    int64
	Gender   string
	AgeGroup string
	Category string

	// OnlyRollup 为 true 时只命中全量上卷桶（gender/age/category 均为 "any"）
	OnlyRollup bool

	Limit int
}

// RecStore 是预计算产物的读写领域接口（推荐库侧）：
// 热度记录、用户画像、相似度边。
//
// 所有 Replace* 操作对读者必须是原子的：完整写入新代后再切换可见，
// 任何读者都不能观察到半写状态。
type RecStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ReplacePopularity 以新一代热度记录整体替换旧一代。
	ReplacePopularity(ctx context.Context, records []PopularityRecord) error

	// QueryPopularity 按人群桶查询热度记录，分数降序。
	QueryPopularity(ctx context.Context, q PopularityQuery) ([]PopularityRecord, error)

	// GetProfile 读取用户画像；无画像时返回 ErrStoreNotFound。
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)

	// PutProfile 写入（upsert）用户画像。
	PutProfile(ctx context.Context, p *UserProfile) error

	// ReplaceItemSimilarities 以新一代物品相似度边整体替换旧一代。
	// 每条边必须满足规范顺序（ItemA < ItemB）。
	ReplaceItemSimilarities(ctx context.Context, edges []ItemSimilarityEdge) error

	// UpsertItemSimilarities 增量写入若干物品相似度边（事件触发的局部重算用）。
	UpsertItemSimilarities(ctx context.Context, edges []ItemSimilarityEdge) error

	// ItemNeighbors 查询某物品的相似邻居边，分数降序，受 limit 约束。
	// 返回的边中该物品可能在 ItemA 或 ItemB 位（存储是规范序的）。
	ItemNeighbors(ctx context.Context, itemID string, limit int) ([]ItemSimilarityEdge, error)

	// GetItemSimilarity 读取两个物品间的相似度；无边时返回 0（不是错误）。
	// 入参顺序无关：实现负责换算到规范序。
	GetItemSimilarity(ctx context.Context, a, b string) (float64, error)

	// ReplaceUserSimilarities 整体替换某用户的相似用户边。
	ReplaceUserSimilarities(ctx context.Context, userID string, edges []UserSimilarityEdge) error

	// SimilarUsers 查询某用户的相似用户边，分数降序。
	SimilarUsers(ctx context.Context, userID string, limit int) ([]UserSimilarityEdge, error)
}

// Cache 是低延迟 TTL KV 缓存的领域接口。
//
// 契约：缓存是 advisory 的。未命中、损坏、不可用一律回落到全量重算，
// 绝不向调用方转化为错误。
type Cache interface {
	// Name 返回缓存后端名称（用于日志/监控）
	Name() string

	// Get 读取 key；未命中返回 ErrCacheMiss。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入 key，ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除 key。
	Delete(ctx context.Context, key string) error

	// Close 关闭连接/释放资源。
	Close() error
}
