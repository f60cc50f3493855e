package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// RuleFilter 是 CEL 表达式驱动的排除规则过滤器，规则命中（表达式为 true）
// 的候选被剔除。规则由运维侧配置下发，改规则不用改代码。
//
// 表达式语法（CEL 标准语法）：
//   - 属性：item.price > 500 / item.platform == "mobile"
//   - 类别：item.categories["category"] == "alcohol"
//   - 逻辑：item.price > 500 && item.geo_id == 7
//   - 请求侧：rctx.user_id == "" （匿名请求才命中）
//
// 示例：
//   - `item.categories["category"] == "alcohol"` → 屏蔽酒类
//   - `item.price > 10000` → 屏蔽超高价物品
type RuleFilter struct {
	expr string
	prg  cel.Program
}

// NewRuleFilter 编译一条排除规则。表达式编译一次，之后并发复用。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile rule %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program rule %q: %w", expr, err)
	}
	return &RuleFilter{expr: expr, prg: prg}, nil
}

// NewRuleFilters 批量编译排除规则，任一条编译失败即返回错误。
func NewRuleFilters(exprs []string) ([]Filter, error) {
	out := make([]Filter, 0, len(exprs))
	for _, expr := range exprs {
		if expr == "" {
			continue
		}
		f, err := NewRuleFilter(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (f *RuleFilter) Name() string { return "filter.rule(" + f.expr + ")" }

func (f *RuleFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	out, _, err := f.prg.Eval(f.buildInput(rctx, item))
	if err != nil {
		// 缺字段等求值错误按不命中处理，规则失效不该误杀候选
		return false, nil
	}
	hit, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q must return boolean, got %T", f.expr, out.Value())
	}
	return hit, nil
}

// buildInput 构建 CEL 表达式的输入数据。
func (f *RuleFilter) buildInput(rctx *core.RecommendContext, item *core.Item) map[string]any {
	itemInput := map[string]any{
		"id":     item.ID,
		"score":  item.Score,
		"source": item.Source,
	}
	if facts := item.Facts(); facts != nil {
		itemInput["price"] = facts.Price
		itemInput["platform"] = facts.Platform
		itemInput["geo_id"] = facts.GeoID
		itemInput["in_stock"] = facts.InStock
		itemInput["categories"] = facts.Categories
	}
	return map[string]any{
		"item": itemInput,
		"rctx": map[string]any{
			"user_id":   rctx.UserID,
			"geo_id":    rctx.GeoID,
			"gender":    rctx.Gender,
			"age_group": rctx.AgeGroup,
		},
	}
}

var _ Filter = (*RuleFilter)(nil)
