// Package cache 实现排序结果与画像的指纹化 TTL 缓存。
//
// 契约：缓存是 advisory 的。未命中、损坏、后端不可用一律当作未命中
// 回落到全量重算，绝不向调用方转化为错误。
package cache

import (
	"strconv"
	"strings"
)

// KeyPrefix 是缓存键的版本前缀。升版即整体作废旧键，不做逐键迁移。
const KeyPrefix = "v3"

// Fingerprint 对影响排序的维度做确定性编码。
//
// 只编码排序相关维度：请求类型、人群元组（或用户）、geo、分页游标。
// 过滤条件不进指纹——缓存的是过滤前候选，过滤在每次读取后重做，
// 同一人群下不同过滤组合共享一份缓存。
func Fingerprint(kind string, parts ...string) string {
	b := make([]string, 0, len(parts)+2)
	b = append(b, KeyPrefix, kind)
	b = append(b, parts...)
	return strings.Join(b, ":")
}

// PopularKey 生成匿名热度请求的缓存键。
func PopularKey(geoID int64, gender, ageGroup, category string, page, limit int) string {
	return Fingerprint("popular",
		strconv.FormatInt(geoID, 10),
		dim(gender), dim(ageGroup), dim(category),
		strconv.Itoa(page), strconv.Itoa(limit),
	)
}

// PersonalizedKey 生成个性化请求的缓存键。
func PersonalizedKey(userID string, geoID int64, page, limit int) string {
	return Fingerprint("personalized",
		userID,
		strconv.FormatInt(geoID, 10),
		strconv.Itoa(page), strconv.Itoa(limit),
	)
}

// ProfileKey 生成用户画像的缓存键。
func ProfileKey(userID string) string {
	return Fingerprint("profile", userID)
}

// dim 把空维度编码为占位符，避免相邻空维度产生指纹歧义。
func dim(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
