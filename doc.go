// Package santarec 是一个目录物品推荐引擎（Santa Recommendation Engine）。
//
// 设计要点：
// - 分层排序：按用户交互数路由算法层级（热度 → 内容 → 协同），权重表驱动混排
// - 预计算优先：热度、画像、相似度矩阵全部离线重算，请求期只读 + 缓存
// - 过滤后置：缓存的是过滤前候选，库存/可见性/请求条件每次读取重新判断
// - 故障兜底：内部失败降级为带 *_error 标记的空响应，核心绝不抛未处理故障
package santarec

import (
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/pipeline"
	"github.com/Flcn/SantaRecommendationEngine/service"
)

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type Item = core.Item
type RecommendContext = core.RecommendContext
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node

type PopularRequest = service.PopularRequest
type PersonalizedRequest = service.PersonalizedRequest
type Response = service.Response
