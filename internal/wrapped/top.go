package wrapped

import (
	"sort"

	"github.com/verte-zerg/bongostats/internal/model"
)

// DefaultTop is the number of ranked inputs in a report.
const DefaultTop = 10

// ClickSuffix is appended to mouse labels in rankings.
const ClickSuffix = " CLICK"

// TopInputs ranks keys and mouse buttons together by count. Ties are broken by
// name so the order is stable.
func TopInputs(keys map[int]int64, mouse map[string]int64, names func(int) string, limit int) []model.RankedInput {
	items := make([]model.RankedInput, 0, len(keys)+len(mouse))
	for code, n := range keys {
		items = append(items, model.RankedInput{Name: names(code), Count: n})
	}
	for label, n := range mouse {
		items = append(items, model.RankedInput{Name: label + ClickSuffix, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Name < items[j].Name
		}
		return items[i].Count > items[j].Count
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
