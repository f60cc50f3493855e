package core

import "github.com/Flcn/SantaRecommendationEngine/pkg/utils"

// RecommendContext 承载用户/人群/实时信息，贯穿整条排序链路透传。
type RecommendContext struct {
	UserID string // 匿名热度请求时可为空
	GeoID  int64

	// 请求方给定（或用户自带）的人群维度；空值表示该维度不限定
	Gender   string
	AgeGroup string
	Category string

	// Profile 是用户偏好画像；nil 表示无画像（NEW 层）
	Profile *UserProfile

	// LikedItems 是用户已喜欢物品集合，个性化输出在任何阶段都要排除它们
	LikedItems []string

	// Labels 是请求级标签，可驱动链路行为（如实验分桶、降级标记）
	Labels map[string]utils.Label

	// Params 请求级上下文参数（实时特征、调试开关等）
	Params map[string]any
}

// Bucket 返回该请求对应的人群桶；未限定的维度取 "any"。
func (rctx *RecommendContext) Bucket() DemographicBucket {
	b := DemographicBucket{
		GeoID:    rctx.GeoID,
		Gender:   rctx.Gender,
		AgeGroup: rctx.AgeGroup,
		Category: rctx.Category,
	}
	if b.Gender == "" {
		b.Gender = BucketAny
	}
	if b.AgeGroup == "" {
		b.AgeGroup = BucketAny
	}
	if b.Category == "" {
		b.Category = BucketAny
	}
	return b
}

// Liked 判断某物品是否已被该用户喜欢。
func (rctx *RecommendContext) Liked(itemID string) bool {
	for _, id := range rctx.LikedItems {
		if id == itemID {
			return true
		}
	}
	return false
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
