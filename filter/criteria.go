package filter

// Criteria 是请求方给定的过滤条件。零值字段表示不过滤该项。
type Criteria struct {
	MinPrice          float64
	MaxPrice          float64
	Category          string
	SuitableFor       string
	AcquaintanceLevel string
	Platform          string
}

// Chain 把过滤条件转换为过滤器链。资格过滤永远在链首。
func Chain(c Criteria) []Filter {
	filters := []Filter{&EligibilityFilter{}}
	if c.MinPrice > 0 || c.MaxPrice > 0 {
		filters = append(filters, &PriceRangeFilter{Min: c.MinPrice, Max: c.MaxPrice})
	}
	if c.Category != "" {
		filters = append(filters, &CategoryFilter{Dim: "category", Value: c.Category})
	}
	if c.SuitableFor != "" {
		filters = append(filters, &CategoryFilter{Dim: "suitable_for", Value: c.SuitableFor})
	}
	if c.AcquaintanceLevel != "" {
		filters = append(filters, &CategoryFilter{Dim: "acquaintance_level", Value: c.AcquaintanceLevel})
	}
	if c.Platform != "" {
		filters = append(filters, &PlatformFilter{Platform: c.Platform})
	}
	return filters
}
