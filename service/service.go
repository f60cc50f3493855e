package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Flcn/SantaRecommendationEngine/cache"
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/filter"
	"github.com/Flcn/SantaRecommendationEngine/pipeline"
	"github.com/Flcn/SantaRecommendationEngine/ranker"
	"github.com/Flcn/SantaRecommendationEngine/recall"
	"github.com/Flcn/SantaRecommendationEngine/similarity"
)

// 已喜欢集合在请求期的读取上限。
const maxLikedItems = 100

// Service 是推荐引擎的对外编排层。
//
// 故障语义：核心绝不向调用方抛未处理故障。内部失败（上游不可用、
// panic）兜底为带 *_error 标记的空响应；只有非法请求返回错误。
type Service struct {
	facts   core.FactStore
	rec     core.RecStore
	results *cache.ResultCache

	pop     recall.Source
	blender *ranker.Blender

	exclusions []filter.Filter

	log *zap.SugaredLogger
	sf  singleflight.Group
}

// Option 定制 Service。
type Option func(*Service)

// WithLogger 注入结构化日志。
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithExclusionFilters 注入运维侧排除规则过滤器。
func WithExclusionFilters(filters []filter.Filter) Option {
	return func(s *Service) { s.exclusions = filters }
}

// WithMaxCandidates 设置混排候选上限。
func WithMaxCandidates(n int) Option {
	return func(s *Service) { s.blender.MaxCandidates = n }
}

// WithSourceTimeout 设置单个召回源的超时。
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Service) { s.blender.SourceTimeout = d }
}

// New 组装 Service：由存储接口与相似度策略构建全部召回源与混排器。
func New(facts core.FactStore, rec core.RecStore, kv core.Cache, strategy similarity.Strategy, opts ...Option) *Service {
	pop := recall.NewPopularitySource(rec)
	s := &Service{
		facts:   facts,
		rec:     rec,
		results: cache.New(kv),
		pop:     pop,
		blender: ranker.NewBlender(
			pop,
			recall.NewContentSource(facts, rec),
			recall.NewCollaborativeSource(strategy),
		),
		log: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results 暴露结果缓存（后台任务的画像失效要用）。
func (s *Service) Results() *cache.ResultCache { return s.results }

// Popular 返回某人群桶的热度推荐。
// 只有非法请求返回 error；内部失败兜底为 popular_error 空响应。
func (s *Service) Popular(ctx context.Context, req PopularRequest) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("popular request panicked", "geo_id", req.GeoID, "panic", r)
			resp, err = errorResponse(AlgorithmPopularError, req.Page, req.Limit, start), nil
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	rctx := &core.RecommendContext{
		GeoID:    req.GeoID,
		Gender:   req.Gender,
		AgeGroup: req.AgeGroup,
		Category: req.Category,
	}

	key := cache.PopularKey(req.GeoID, req.Gender, req.AgeGroup, req.Category, req.Page, req.Limit)
	list, hit := s.results.GetResult(ctx, key)
	if !hit {
		list, err = s.computeOnce(ctx, key, func() (*core.CandidateList, error) {
			items, err := s.pop.Recall(ctx, rctx, s.blender.MaxCandidates)
			if err != nil {
				return nil, err
			}
			return toCandidateList(AlgorithmPopular, items), nil
		}, s.results.PopularTTL)
		if err != nil {
			s.log.Warnw("popular ranking failed", "geo_id", req.GeoID, "err", err)
			return errorResponse(AlgorithmPopularError, req.Page, req.Limit, start), nil
		}
	}

	items, err := s.postProcess(ctx, rctx, list, req.Filters)
	if err != nil {
		s.log.Warnw("popular post-process failed", "geo_id", req.GeoID, "err", err)
		return errorResponse(AlgorithmPopularError, req.Page, req.Limit, start), nil
	}

	page, pg := paginate(items, req.Page, req.Limit)
	return &Response{
		Items:             page,
		Pagination:        pg,
		AlgorithmUsed:     list.Algorithm,
		CacheHit:          hit,
		ComputationTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// Personalized 返回某用户的个性化推荐。
// 算法层级由画像路由；无画像用户落到热度兜底。
func (s *Service) Personalized(ctx context.Context, req PersonalizedRequest) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("personalized request panicked", "user_id", req.UserID, "panic", r)
			resp, err = errorResponse(AlgorithmPersonalizedError, req.Page, req.Limit, start), nil
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:  req.UserID,
		GeoID:   req.GeoID,
		Profile: s.loadProfile(ctx, req.UserID),
	}
	liked, err := s.facts.GetUserLikes(ctx, req.UserID, maxLikedItems)
	if err != nil {
		// 喜欢集合读不到时继续：混排与过滤仍可工作，排除兜不住的
		// 部分由缓存过期后的下次重算补上
		s.log.Warnw("liked items unavailable", "user_id", req.UserID, "err", err)
	}
	rctx.LikedItems = liked

	key := cache.PersonalizedKey(req.UserID, req.GeoID, req.Page, req.Limit)
	list, hit := s.results.GetResult(ctx, key)
	if !hit {
		list, err = s.computeOnce(ctx, key, func() (*core.CandidateList, error) {
			return s.blender.Rank(ctx, rctx)
		}, s.results.PersonalizedTTL)
		if err != nil {
			s.log.Warnw("personalized ranking failed", "user_id", req.UserID, "err", err)
			return errorResponse(AlgorithmPersonalizedError, req.Page, req.Limit, start), nil
		}
	}

	items, err := s.postProcess(ctx, rctx, list, req.Filters)
	if err != nil {
		s.log.Warnw("personalized post-process failed", "user_id", req.UserID, "err", err)
		return errorResponse(AlgorithmPersonalizedError, req.Page, req.Limit, start), nil
	}

	page, pg := paginate(items, req.Page, req.Limit)
	return &Response{
		Items:             page,
		Pagination:        pg,
		AlgorithmUsed:     list.Algorithm,
		CacheHit:          hit,
		ComputationTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// computeOnce 经 singleflight 收拢同一指纹的并发重算，成功后写缓存。
func (s *Service) computeOnce(ctx context.Context, key string, compute func() (*core.CandidateList, error), ttl time.Duration) (*core.CandidateList, error) {
	v, err, _ := s.sf.Do(key, func() (any, error) {
		list, err := compute()
		if err != nil {
			return nil, err
		}
		s.results.SetResult(ctx, key, list, ttl)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.CandidateList), nil
}

// loadProfile 读取画像：缓存优先，落库兜底。无画像返回 nil（NEW 层）。
func (s *Service) loadProfile(ctx context.Context, userID string) *core.UserProfile {
	if p, ok := s.results.GetProfile(ctx, userID); ok {
		return p
	}
	p, err := s.rec.GetProfile(ctx, userID)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			s.log.Warnw("profile load failed", "user_id", userID, "err", err)
		}
		return nil
	}
	s.results.SetProfile(ctx, p)
	return p
}

// postProcess 在缓存/重算产物上重做过滤：水合实时事实、应用资格 +
// 请求条件 + 运维排除规则，保持排序顺序。
func (s *Service) postProcess(ctx context.Context, rctx *core.RecommendContext, list *core.CandidateList, criteria filter.Criteria) ([]RecommendedItem, error) {
	items := make([]*core.Item, 0, len(list.Candidates))
	for _, c := range list.Candidates {
		if rctx.Liked(c.ItemID) {
			continue
		}
		it := core.NewItem(c.ItemID)
		it.Score = c.Score
		it.Source = c.Source
		items = append(items, it)
	}

	filters := filter.Chain(criteria)
	filters = append(filters, s.exclusions...)
	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&filter.HydrateNode{Facts: s.facts},
		&filter.FilterNode{Filters: filters},
	}}
	kept, err := p.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]RecommendedItem, 0, len(kept))
	for _, it := range kept {
		out = append(out, RecommendedItem{ItemID: it.ID, Score: it.Score, Source: it.Source})
	}
	return out, nil
}

func toCandidateList(algorithm string, items []*core.Item) *core.CandidateList {
	cands := make([]core.Candidate, 0, len(items))
	for _, it := range items {
		cands = append(cands, core.Candidate{ItemID: it.ID, Score: it.Score, Source: it.Source})
	}
	return &core.CandidateList{Algorithm: algorithm, Candidates: cands, ComputedAt: time.Now()}
}

func errorResponse(algorithm string, page, limit int, start time.Time) *Response {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Response{
		Items:             []RecommendedItem{},
		Pagination:        Pagination{Page: page, Limit: limit},
		AlgorithmUsed:     algorithm,
		ComputationTimeMS: time.Since(start).Milliseconds(),
	}
}
