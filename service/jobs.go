package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Flcn/SantaRecommendationEngine/aggregator"
	"github.com/Flcn/SantaRecommendationEngine/cache"
	"github.com/Flcn/SantaRecommendationEngine/config"
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/profile"
	"github.com/Flcn/SantaRecommendationEngine/ranker"
	"github.com/Flcn/SantaRecommendationEngine/similarity"
)

// Cleaner 是可主动清理过期条目的缓存后端（内存实现需要；
// Redis 依赖原生过期，不实现此接口）。
type Cleaner interface {
	Cleanup() int
}

// Scheduler 驱动预计算的后台循环：
// 热度重算、画像重建、相似度矩阵重建、缓存清理。
// 各循环独立调度，单次迭代的 panic/错误不拖垮循环本身。
type Scheduler struct {
	Aggregator *aggregator.Aggregator
	Profiles   *profile.Builder
	Strategy   similarity.Strategy
	Rec        core.RecStore
	KV         core.Cache
	Results    *cache.ResultCache
	Intervals  config.JobSettings

	// SimilarityMinLikes 是用户开始参与相似度计算的最小喜欢数。
	// 交互数跨过该值时同样提前重建相似度边。零值用 DefaultMinOverlap。
	SimilarityMinLikes int

	Log *zap.SugaredLogger
}

// Run 启动全部后台循环，阻塞到 ctx 取消。
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop(gctx, "popularity_refresh", s.Intervals.PopularityInterval.Std(), func(ctx context.Context) error {
			n, err := s.Aggregator.Refresh(ctx)
			if err == nil {
				s.Log.Infow("popularity refreshed", "records", n)
			}
			return err
		})
	})
	g.Go(func() error {
		return s.loop(gctx, "profile_refresh", s.Intervals.ProfileInterval.Std(), func(ctx context.Context) error {
			n, err := s.Profiles.RefreshActive(ctx, 0, 0)
			if err == nil {
				s.Log.Infow("profiles refreshed", "built", n)
			}
			return err
		})
	})
	g.Go(func() error {
		return s.loop(gctx, "similarity_rebuild", s.Intervals.SimilarityInterval.Std(), func(ctx context.Context) error {
			n, err := s.Strategy.Build(ctx)
			if err == nil {
				s.Log.Infow("similarity rebuilt", "strategy", s.Strategy.Name(), "edges", n)
			}
			return err
		})
	})
	g.Go(func() error {
		return s.loop(gctx, "cache_cleanup", s.Intervals.CleanupInterval.Std(), func(ctx context.Context) error {
			if c, ok := s.KV.(Cleaner); ok {
				removed := c.Cleanup()
				s.Log.Infow("cache cleaned", "removed", removed)
			}
			return nil
		})
	})
	return g.Wait()
}

// 失败后的重试间隔（比正常周期短，不让一次故障空转一整个周期）。
const jobRetryDelay = time.Minute

// loop 执行任务：启动时立即跑一次，之后按固定周期；单次迭代隔离
// panic 与错误，失败后按较短的重试间隔再试。
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return nil
	}
	retry := jobRetryDelay
	if interval < retry {
		retry = interval
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if s.runOnce(ctx, name, fn) {
				timer.Reset(interval)
			} else {
				timer.Reset(retry)
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, name string, fn func(context.Context) error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Errorw("job panicked", "job", name, "panic", r)
			ok = false
		}
	}()
	if err := fn(ctx); err != nil {
		if ctx.Err() == nil {
			s.Log.Warnw("job failed", "job", name, "err", err)
		}
		return false
	}
	return true
}

// FullSync 一次性全量重算（部署后或数据修复时调用）：
// 相似度矩阵 → 热度记录 → 用户画像 → 缓存清理。
func (s *Scheduler) FullSync(ctx context.Context) error {
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	edges, err := s.Strategy.Build(ctx)
	if err != nil {
		return err
	}
	s.Log.Infow("full sync: similarity rebuilt", "edges", edges)

	records, err := s.Aggregator.Refresh(ctx)
	if err != nil {
		return err
	}
	s.Log.Infow("full sync: popularity refreshed", "records", records)

	built, err := s.Profiles.RefreshActive(ctx, 0, 0)
	if err != nil {
		return err
	}
	s.Log.Infow("full sync: profiles rebuilt", "built", built)

	if c, ok := s.KV.(Cleaner); ok {
		c.Cleanup()
	}
	return nil
}

// RefreshUser 是事件触发的单用户重建：新交互落库后由上游调用。
// 画像立即重建；交互数跨越层级边界时同步重建该用户的相似度边，
// 并失效画像缓存，让下一个请求立刻走新层级。
func (s *Scheduler) RefreshUser(ctx context.Context, userID string) error {
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	oldCount := 0
	if old, err := s.Rec.GetProfile(ctx, userID); err == nil {
		oldCount = old.InteractionCount
	}

	p, err := s.Profiles.BuildForUser(ctx, userID)
	if err != nil {
		if core.IsInsufficientData(err) {
			return nil
		}
		return err
	}

	if s.Results != nil {
		s.Results.InvalidateProfile(ctx, userID)
	}
	if s.needsSimilarityRebuild(oldCount, p.InteractionCount) {
		s.Log.Infow("rebuild boundary crossed", "user_id", userID, "old", oldCount, "new", p.InteractionCount)
		if err := s.Strategy.BuildForUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// needsSimilarityRebuild 判断交互数变化是否要求提前重建相似度边：
// 跨越层级边界，或跨过相似度计算的最小喜欢数。
func (s *Scheduler) needsSimilarityRebuild(oldCount, newCount int) bool {
	if ranker.CrossesTierBoundary(oldCount, newCount) {
		return true
	}
	minLikes := s.SimilarityMinLikes
	if minLikes <= 0 {
		minLikes = similarity.DefaultMinOverlap
	}
	return oldCount < minLikes && newCount >= minLikes
}
