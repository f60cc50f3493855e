// Package conv 提供类型转换、map/slice 转换等泛型工具，用于简化各模块中的重复逻辑。
package conv

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ToString 将 any 转为 string。
// 仅支持 string 类型，否则返回 ("", false)。
func ToString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MapToFloat64 将 map[string]any 转为 map[string]float64，无法转换的条目被跳过。
func MapToFloat64(m map[string]any) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := ToFloat64(v); ok {
			out[k] = f
		}
	}
	return out
}

// MapKeysByWeight 返回 map 中权重最高的前 n 个 key（降序；同权重按 key 升序，保证确定性）。
func MapKeysByWeight(m map[string]float64, n int) []string {
	if len(m) == 0 || n <= 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// 简单选择排序：规模很小（类别/平台数量），无需引入 sort 闭包分配
	for i := 0; i < len(keys); i++ {
		best := i
		for j := i + 1; j < len(keys); j++ {
			if m[keys[j]] > m[keys[best]] ||
				(m[keys[j]] == m[keys[best]] && keys[j] < keys[best]) {
				best = j
			}
		}
		keys[i], keys[best] = keys[best], keys[i]
	}
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
