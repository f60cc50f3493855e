// Package config 提供引擎的 YAML 配置加载与环境变量覆盖。
//
// 默认值即生产值：不给配置文件也能跑起来，配置文件只覆盖需要改的项。
// 连接串类设置支持环境变量覆盖，便于部署侧注入。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 是支持 "15m" / "900s" 字面量的 time.Duration 包装
// （yaml.v3 不原生解码 time.Duration）。裸数字按秒解释，对齐原始配置习惯。
type Duration time.Duration

// Std 返回标准库的 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration node: %w", err)
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Settings 是引擎的全部可调参数。
type Settings struct {
	// 连接串
	MainDatabaseURL string `yaml:"main_database_url"`
	RecDatabaseURL  string `yaml:"rec_database_url"`
	RedisURL        string `yaml:"redis_url"`

	// 缓存 TTL
	Cache CacheSettings `yaml:"cache"`

	// 分页
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`

	// 混排
	MaxCandidates int      `yaml:"max_candidates"`
	SourceTimeout Duration `yaml:"source_timeout"`

	// 聚合
	PopularityLookback Duration `yaml:"popularity_lookback"`
	MaxEvents          int      `yaml:"max_events"`

	// 相似度
	Similarity SimilaritySettings `yaml:"similarity"`

	// 后台任务周期
	Jobs JobSettings `yaml:"jobs"`

	// 运维侧排除规则（CEL 表达式，命中即剔除）
	ExclusionRules []string `yaml:"exclusion_rules"`
}

// CacheSettings 是缓存 TTL 分档。
type CacheSettings struct {
	PopularTTL      Duration `yaml:"popular_ttl"`
	PersonalizedTTL Duration `yaml:"personalized_ttl"`
	ProfileTTL      Duration `yaml:"profile_ttl"`
}

// SimilaritySettings 是相似度策略的阈值与上限。
type SimilaritySettings struct {
	Strategy        string  `yaml:"strategy"` // item_cooccurrence / user_overlap
	MinCooccurrence int     `yaml:"min_cooccurrence"`
	MinScore        float64 `yaml:"min_score"`
	MinOverlap      int     `yaml:"min_overlap"`
	MaxSimilarUsers int     `yaml:"max_similar_users"`
	MaxLikesPerUser int     `yaml:"max_likes_per_user"`
	MaxNeighbors    int     `yaml:"max_neighbors"`
}

// JobSettings 是后台任务的调度周期。
type JobSettings struct {
	PopularityInterval Duration `yaml:"popularity_interval"`
	ProfileInterval    Duration `yaml:"profile_interval"`
	SimilarityInterval Duration `yaml:"similarity_interval"`
	CleanupInterval    Duration `yaml:"cleanup_interval"`
}

// Default 返回生产默认配置。
func Default() *Settings {
	return &Settings{
		RedisURL: "redis://localhost:6379/0",
		Cache: CacheSettings{
			PopularTTL:      Duration(15 * time.Minute),
			PersonalizedTTL: Duration(5 * time.Second),
			ProfileTTL:      Duration(4 * time.Hour),
		},
		DefaultPageSize:    20,
		MaxPageSize:        100,
		MaxCandidates:      200,
		SourceTimeout:      Duration(800 * time.Millisecond),
		PopularityLookback: Duration(90 * 24 * time.Hour),
		MaxEvents:          500000,
		Similarity: SimilaritySettings{
			Strategy:        "item_cooccurrence",
			MinCooccurrence: 3,
			MinScore:        0.1,
			MinOverlap:      2,
			MaxSimilarUsers: 20,
			MaxLikesPerUser: 100,
			MaxNeighbors:    50,
		},
		Jobs: JobSettings{
			PopularityInterval: Duration(15 * time.Minute),
			ProfileInterval:    Duration(30 * time.Minute),
			SimilarityInterval: Duration(time.Hour),
			CleanupInterval:    Duration(6 * time.Hour),
		},
	}
}

// Load 从 YAML 文件加载配置并应用环境变量覆盖。
// path 为空时只用默认值 + 环境变量。
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	s.applyEnv()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// applyEnv 应用环境变量覆盖（只覆盖连接串类设置）。
func (s *Settings) applyEnv() {
	if v := os.Getenv("MAIN_DATABASE_URL"); v != "" {
		s.MainDatabaseURL = v
	}
	if v := os.Getenv("REC_DATABASE_URL"); v != "" {
		s.RecDatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		s.RedisURL = v
	}
}

func (s *Settings) validate() error {
	if s.DefaultPageSize <= 0 || s.MaxPageSize <= 0 || s.DefaultPageSize > s.MaxPageSize {
		return fmt.Errorf("config: invalid page sizes (default %d, max %d)", s.DefaultPageSize, s.MaxPageSize)
	}
	if s.MaxCandidates <= 0 {
		return fmt.Errorf("config: max_candidates must be positive")
	}
	switch s.Similarity.Strategy {
	case "item_cooccurrence", "user_overlap":
	default:
		return fmt.Errorf("config: unknown similarity strategy %q", s.Similarity.Strategy)
	}
	return nil
}
