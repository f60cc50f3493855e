package core

import "time"

// InteractionKind 是交互事实的类型。交互事实是只读、追加式的输入。
type InteractionKind string

const (
	InteractionLike  InteractionKind = "like"
	InteractionClick InteractionKind = "click"
)

// InteractionEvent 是一条不可变的交互事实。
type InteractionEvent struct {
	UserID     string
	ItemID     string
	Kind       InteractionKind
	OccurredAt time.Time
}

// DemographicBucket 划分热度分数的人群维度元组。
// 任一维度为 "any" 表示该维度上卷（rolled-up），用于查询时逐级放宽。
type DemographicBucket struct {
	GeoID    int64
	Gender   string
	AgeGroup string
	Category string
}

// BucketAny 是上卷维度的占位值。
const BucketAny = "any"

// AnyBucket 返回某个 geo 的全量上卷桶。
func AnyBucket(geoID int64) DemographicBucket {
	return DemographicBucket{GeoID: geoID, Gender: BucketAny, AgeGroup: BucketAny, Category: BucketAny}
}

// PopularityRecord 是聚合器的输出：某人群桶内某物品的时间衰减热度分。
// 每个周期全量重算，不做增量修补；旧代在新代提交后才清除。
type PopularityRecord struct {
	Bucket     DemographicBucket
	ItemID     string
	Score      float64
	ComputedAt time.Time
}

// ItemSimilarityEdge 是物品相似度边，规范化存储：ItemA < ItemB。
// Score 为 Jaccard 系数，取值 [0,1]。
type ItemSimilarityEdge struct {
	ItemA        string
	ItemB        string
	Score        float64
	CoOccurrence int
	TotalLikesA  int
	TotalLikesB  int
}

// CanonicalEdge 按规范顺序（较小 id 在前）返回一条边，避免镜像重复行。
func CanonicalEdge(a, b string, score float64, co, totalA, totalB int) ItemSimilarityEdge {
	if a > b {
		a, b = b, a
		totalA, totalB = totalB, totalA
	}
	return ItemSimilarityEdge{
		ItemA:        a,
		ItemB:        b,
		Score:        score,
		CoOccurrence: co,
		TotalLikesA:  totalA,
		TotalLikesB:  totalB,
	}
}

// UserSimilarityEdge 是用户相似度边（legacy user-based 策略的产物）。
type UserSimilarityEdge struct {
	UserID        string
	SimilarUserID string
	Score         float64
}

// ItemFacts 是物品的实时事实（只读主库侧），过滤与画像构建都依赖它。
// Categories 的 key 是类别维度（category / gender / age / suitable_for /
// acquaintance_level），value 是取值。
type ItemFacts struct {
	ID         string
	GeoID      int64
	Price      float64
	Platform   string
	Categories map[string]string
	InStock    bool
	OwnerID    string // 非空表示私有物品，不可对外推荐
	CreatedAt  time.Time
}

// Recommendable 判断物品是否可对外推荐：有货且非私有。
func (f *ItemFacts) Recommendable() bool {
	return f != nil && f.InStock && f.OwnerID == ""
}

// Candidate 是候选列表中的一项：物品、混排分、来源算法。
type Candidate struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// CandidateList 是一次排序的瞬态产物：过滤前的有序候选序列。
// 结果缓存存的就是它（过滤永远在读取后重做）。
type CandidateList struct {
	Algorithm  string      `json:"algorithm"`
	Candidates []Candidate `json:"candidates"`
	ComputedAt time.Time   `json:"computed_at"`
}

// ItemIDs 返回候选的物品 id 序列（保持排序）。
func (cl *CandidateList) ItemIDs() []string {
	if cl == nil {
		return nil
	}
	ids := make([]string, 0, len(cl.Candidates))
	for _, c := range cl.Candidates {
		ids = append(ids, c.ItemID)
	}
	return ids
}
