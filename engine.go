package santarec

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Flcn/SantaRecommendationEngine/aggregator"
	"github.com/Flcn/SantaRecommendationEngine/config"
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/filter"
	"github.com/Flcn/SantaRecommendationEngine/profile"
	"github.com/Flcn/SantaRecommendationEngine/service"
	"github.com/Flcn/SantaRecommendationEngine/similarity"
	"github.com/Flcn/SantaRecommendationEngine/store"
)

// Engine 是按配置组装好的完整引擎：对外服务 + 后台调度。
// 宿主进程把 Service 接到自己的传输层，把 Scheduler.Run 放进一个 goroutine。
type Engine struct {
	Service   *service.Service
	Scheduler *service.Scheduler

	kv    core.Cache
	pg    *store.PostgresStore
	log   *zap.Logger
	owned bool // 是否由 Engine 负责关闭连接
}

// NewEngine 按配置组装引擎：Postgres 双库 + Redis 缓存 + 配置的相似度策略。
func NewEngine(ctx context.Context, cfg *config.Settings) (*Engine, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := store.NewPostgresStore(ctx, cfg.MainDatabaseURL, cfg.RecDatabaseURL)
	if err != nil {
		return nil, err
	}
	kv, err := store.NewRedisCache(cfg.RedisURL)
	if err != nil {
		pg.Close()
		return nil, err
	}

	eng, err := assemble(cfg, pg, pg, kv, log)
	if err != nil {
		pg.Close()
		_ = kv.Close()
		return nil, err
	}
	eng.pg = pg
	eng.owned = true
	return eng, nil
}

// NewEngineWithStores 用注入的存储组装引擎（测试或自管连接的场景）。
func NewEngineWithStores(cfg *config.Settings, facts core.FactStore, rec core.RecStore, kv core.Cache, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return assemble(cfg, facts, rec, kv, log)
}

func assemble(cfg *config.Settings, facts core.FactStore, rec core.RecStore, kv core.Cache, log *zap.Logger) (*Engine, error) {
	strategy, err := buildStrategy(cfg, facts, rec)
	if err != nil {
		return nil, err
	}
	exclusions, err := filter.NewRuleFilters(cfg.ExclusionRules)
	if err != nil {
		return nil, err
	}

	sugar := log.Sugar()
	svc := service.New(facts, rec, kv, strategy,
		service.WithLogger(sugar),
		service.WithExclusionFilters(exclusions),
		service.WithMaxCandidates(cfg.MaxCandidates),
		service.WithSourceTimeout(cfg.SourceTimeout.Std()),
	)
	results := svc.Results()
	results.PopularTTL = cfg.Cache.PopularTTL.Std()
	results.PersonalizedTTL = cfg.Cache.PersonalizedTTL.Std()
	results.ProfileTTL = cfg.Cache.ProfileTTL.Std()

	sched := &service.Scheduler{
		Aggregator: aggregator.New(facts, rec,
			aggregator.WithLookback(cfg.PopularityLookback.Std()),
			aggregator.WithMaxEvents(cfg.MaxEvents),
		),
		Profiles:  profile.NewBuilder(facts, rec),
		Strategy:  strategy,
		Rec:       rec,
		KV:        kv,
		Results:   results,
		Intervals: cfg.Jobs,

		SimilarityMinLikes: cfg.Similarity.MinOverlap,

		Log: sugar,
	}

	return &Engine{Service: svc, Scheduler: sched, kv: kv, log: log}, nil
}

// buildStrategy 按配置选择相似度策略并应用阈值。
func buildStrategy(cfg *config.Settings, facts core.FactStore, rec core.RecStore) (similarity.Strategy, error) {
	sim := cfg.Similarity
	switch sim.Strategy {
	case "item_cooccurrence":
		s := similarity.NewItemCooccurrence(facts, rec)
		s.MinCooccurrence = sim.MinCooccurrence
		s.MinScore = sim.MinScore
		s.MaxLikesPerUser = sim.MaxLikesPerUser
		s.MaxNeighbors = sim.MaxNeighbors
		return s, nil
	case "user_overlap":
		s := similarity.NewUserOverlap(facts, rec)
		s.MinOverlap = sim.MinOverlap
		s.MaxSimilarUsers = sim.MaxSimilarUsers
		s.MaxLikesPerUser = sim.MaxLikesPerUser
		return s, nil
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q", sim.Strategy)
	}
}

// Close 释放 Engine 持有的连接。
func (e *Engine) Close() error {
	if !e.owned {
		return nil
	}
	if e.pg != nil {
		e.pg.Close()
	}
	_ = e.log.Sync()
	return e.kv.Close()
}
