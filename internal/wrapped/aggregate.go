// Package wrapped builds year-level summaries from the daily files.
package wrapped

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/remeh/sizedwaitgroup"

	"github.com/verte-zerg/bongostats/internal/counters"
	"github.com/verte-zerg/bongostats/internal/dayfile"
	"github.com/verte-zerg/bongostats/internal/keynames"
	"github.com/verte-zerg/bongostats/internal/model"
)

// Aggregator sums every daily file of a year folder.
type Aggregator struct {
	Names   func(code int) string
	Logger  *slog.Logger
	Workers int
	Top     int
}

type parsed struct {
	name string
	rec  dayfile.Record
	err  error
}

// Year reads dir (a DATA/<year> folder) and returns the summed report. A
// missing folder yields an empty report; unreadable files are skipped.
func (a Aggregator) Year(dir string, year int) (model.AggregateReport, error) {
	report := model.AggregateReport{
		Year:              year,
		KeyPressCounts:    map[int]int64{},
		MouseButtonCounts: map[string]int64{},
		TopInputs:         []model.RankedInput{},
		Daily:             []model.DayTotal{},
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, nil
		}
		return report, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !dayfile.IsDailyFileName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	results := a.parseAll(dir, names)
	logger := a.logger()
	total := model.NewCounterSet()
	for _, res := range results {
		if res.err != nil {
			logger.Warn("skipping daily file", "file", res.name, "err", res.err)
			report.SkippedFiles++
			continue
		}
		report.Days++
		counters.AddInto(&total, res.rec.Counts)

		date, ok := dayfile.DateFromFileName(res.name, year)
		if !ok {
			if res.rec.Date.IsZero() {
				continue
			}
			date = res.rec.Date
		}
		report.Daily = append(report.Daily, model.DayTotal{
			Date:        date,
			Day:         date.Format("2006-01-02"),
			KeyPresses:  res.rec.Counts.KeyTotal(),
			MouseClicks: res.rec.Counts.MouseTotal(),
			MinutesOpen: res.rec.Counts.TotalMinutesOpen,
		})
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date.Before(report.Daily[j].Date)
	})

	report.KeyPressCounts = total.KeyPressCounts
	report.MouseButtonCounts = total.MouseButtonCounts
	report.TotalMinutesOpen = total.TotalMinutesOpen
	report.TotalKeyPresses = total.KeyTotal()
	report.TotalMouseClicks = total.MouseTotal()
	report.TotalInputs = report.TotalKeyPresses + report.TotalMouseClicks
	report.TopInputs = TopInputs(total.KeyPressCounts, total.MouseButtonCounts, a.names(), a.top())
	return report, nil
}

func (a Aggregator) parseAll(dir string, names []string) []parsed {
	results := make([]parsed, len(names))
	swg := sizedwaitgroup.New(a.workers())
	for i, name := range names {
		swg.Add()
		go func(i int, name string) {
			defer swg.Done()
			rec, err := readDay(filepath.Join(dir, name))
			results[i] = parsed{name: name, rec: rec, err: err}
		}(i, name)
	}
	swg.Wait()
	return results
}

func readDay(path string) (dayfile.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dayfile.Record{}, err
	}
	return dayfile.Decode(data)
}

func (a Aggregator) names() func(int) string {
	if a.Names != nil {
		return a.Names
	}
	return keynames.Name
}

func (a Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (a Aggregator) workers() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.NumCPU()
}

func (a Aggregator) top() int {
	if a.Top > 0 {
		return a.Top
	}
	return DefaultTop
}
