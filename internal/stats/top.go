package stats

import (
	"sort"

	"github.com/verte-zerg/bongostats/internal/model"
)

// BusiestDays returns the n days with the most inputs, earliest first on ties.
func BusiestDays(days []model.DayTotal, n int) []model.DayTotal {
	if n <= 0 || len(days) == 0 {
		return nil
	}
	items := make([]model.DayTotal, len(days))
	copy(items, days)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Inputs() == items[j].Inputs() {
			return items[i].Day < items[j].Day
		}
		return items[i].Inputs() > items[j].Inputs()
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// ActiveDays counts days with at least one input.
func ActiveDays(days []model.DayTotal) int {
	n := 0
	for _, d := range days {
		if d.Inputs() > 0 {
			n++
		}
	}
	return n
}
