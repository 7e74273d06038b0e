// Package counters holds the in-memory tallies for the current day.
package counters

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/bongostats/internal/model"
)

// Merge combines the on-disk record with the in-memory one by taking the
// larger value for every key and for the open time.
func Merge(existing, current model.CounterSet) model.CounterSet {
	out := existing.Clone()
	for code, n := range current.KeyPressCounts {
		if n > out.KeyPressCounts[code] {
			out.KeyPressCounts[code] = n
		}
	}
	for label, n := range current.MouseButtonCounts {
		if n > out.MouseButtonCounts[label] {
			out.MouseButtonCounts[label] = n
		}
	}
	if current.TotalMinutesOpen > out.TotalMinutesOpen {
		out.TotalMinutesOpen = current.TotalMinutesOpen
	}
	return out
}

// Regression returns the first entry of merged that is below existing.
func Regression(existing, merged model.CounterSet) (string, bool) {
	codes := make([]int, 0, len(existing.KeyPressCounts))
	for code := range existing.KeyPressCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		if merged.KeyPressCounts[code] < existing.KeyPressCounts[code] {
			return fmt.Sprintf("key %d", code), true
		}
	}

	labels := make([]string, 0, len(existing.MouseButtonCounts))
	for label := range existing.MouseButtonCounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if merged.MouseButtonCounts[label] < existing.MouseButtonCounts[label] {
			return "mouse " + label, true
		}
	}

	if merged.TotalMinutesOpen < existing.TotalMinutesOpen {
		return "totalMinutesOpen", true
	}
	return "", false
}

// AddInto sums src into dst per key.
func AddInto(dst *model.CounterSet, src model.CounterSet) {
	if dst.KeyPressCounts == nil {
		dst.KeyPressCounts = map[int]int64{}
	}
	if dst.MouseButtonCounts == nil {
		dst.MouseButtonCounts = map[string]int64{}
	}
	for code, n := range src.KeyPressCounts {
		dst.KeyPressCounts[code] += n
	}
	for label, n := range src.MouseButtonCounts {
		dst.MouseButtonCounts[label] += n
	}
	dst.TotalMinutesOpen += src.TotalMinutesOpen
}
