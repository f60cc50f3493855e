package recall

import (
	"sort"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// sortItems 按分数降序排序；同分时先比原始热度（降序）再比物品 id（升序），
// 保证输出确定性。
func sortItems(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].RawPopularity() != items[j].RawPopularity() {
			return items[i].RawPopularity() > items[j].RawPopularity()
		}
		return items[i].ID < items[j].ID
	})
}
