// Package service 是引擎的对外编排层：
// 请求校验、缓存读写、排序、过滤、分页、故障兜底与后台任务。
package service

import (
	"github.com/Flcn/SantaRecommendationEngine/core"
	"github.com/Flcn/SantaRecommendationEngine/filter"
)

// 分页默认值与上限。
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// algorithm_used 的取值集合。
const (
	AlgorithmPopular           = "popular"
	AlgorithmPopularFallback   = "popular_fallback"
	AlgorithmContentBased      = "content_based"
	AlgorithmCollaborative     = "collaborative"
	AlgorithmPopularError      = "popular_error"
	AlgorithmPersonalizedError = "personalized_error"
)

// PopularRequest 是匿名热度推荐请求。
type PopularRequest struct {
	GeoID    int64  `json:"geo_id"`
	Gender   string `json:"gender,omitempty"`
	AgeGroup string `json:"age_group,omitempty"`
	Category string `json:"category,omitempty"`

	Filters filter.Criteria `json:"filters"`

	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PersonalizedRequest 是个性化推荐请求。
type PersonalizedRequest struct {
	UserID string `json:"user_id"`
	GeoID  int64  `json:"geo_id"`

	Filters filter.Criteria `json:"filters"`

	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// RecommendedItem 是响应中的一项。
type RecommendedItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Pagination 是响应的分页元数据。
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Response 是推荐响应。
type Response struct {
	Items             []RecommendedItem `json:"items"`
	Pagination        Pagination        `json:"pagination"`
	AlgorithmUsed     string            `json:"algorithm_used"`
	CacheHit          bool              `json:"cache_hit"`
	ComputationTimeMS int64             `json:"computation_time_ms"`
}

// validatePage 校验并规范化分页参数。零值取默认，超限截断，负值拒绝。
func validatePage(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "page must be positive")
	}
	if limit < 0 {
		return 0, 0, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "limit must be positive")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, nil
}

func validateCriteria(c filter.Criteria) error {
	if c.MinPrice < 0 || c.MaxPrice < 0 {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "price bounds must be non-negative")
	}
	if c.MinPrice > 0 && c.MaxPrice > 0 && c.MinPrice > c.MaxPrice {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "min_price exceeds max_price")
	}
	return nil
}

// Validate 校验热度请求。非法请求在边界拒绝，不进入核心。
func (r *PopularRequest) Validate() error {
	if r.GeoID <= 0 {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "geo_id is required")
	}
	if err := validateCriteria(r.Filters); err != nil {
		return err
	}
	page, limit, err := validatePage(r.Page, r.Limit)
	if err != nil {
		return err
	}
	r.Page, r.Limit = page, limit
	return nil
}

// Validate 校验个性化请求。
func (r *PersonalizedRequest) Validate() error {
	if r.UserID == "" {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "user_id is required")
	}
	if r.GeoID <= 0 {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "geo_id is required")
	}
	if err := validateCriteria(r.Filters); err != nil {
		return err
	}
	page, limit, err := validatePage(r.Page, r.Limit)
	if err != nil {
		return err
	}
	r.Page, r.Limit = page, limit
	return nil
}

// paginate 对过滤后的完整列表做 1 起始分页。
// 越界页返回空列表而不是错误（翻页翻过头是正常交互）。
func paginate(items []RecommendedItem, page, limit int) ([]RecommendedItem, Pagination) {
	total := len(items)
	totalPages := (total + limit - 1) / limit

	p := Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}

	start := (page - 1) * limit
	if start >= total {
		return []RecommendedItem{}, p
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], p
}
