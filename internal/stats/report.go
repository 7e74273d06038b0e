package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
	"github.com/verte-zerg/bongostats/internal/wrapped"
)

// HistorySource is the part of the history index the reports read.
type HistorySource interface {
	ListDays(ctx context.Context, from, to time.Time) ([]model.DayTotal, error)
	KeyTotals(ctx context.Context, from, to time.Time) (map[int]int64, error)
}

// History contains indexed day totals for a date range.
type History struct {
	From time.Time
	To   time.Time
	Days []model.DayTotal
	Keys map[int]int64
}

// BuildHistory loads the indexed days between from and to, inclusive.
func BuildHistory(ctx context.Context, src HistorySource, from, to time.Time) (History, error) {
	days, err := src.ListDays(ctx, from, to)
	if err != nil {
		return History{}, fmt.Errorf("failed to list days: %w", err)
	}
	keys, err := src.KeyTotals(ctx, from, to)
	if err != nil {
		return History{}, fmt.Errorf("failed to sum keys: %w", err)
	}
	return History{From: from, To: to, Days: days, Keys: keys}, nil
}

// Options controls text rendering.
type Options struct {
	Width int
	Color bool
	Top   int
	Names func(code int) string
}

func (o Options) top() int {
	if o.Top > 0 {
		return o.Top
	}
	return wrapped.DefaultTop
}

// RenderWrapped prints the year summary.
func RenderWrapped(w io.Writer, report model.AggregateReport, opts Options) error {
	if _, err := fmt.Fprintf(w, "%d Wrapped\n\n", report.Year); err != nil {
		return err
	}
	if report.Days == 0 {
		_, err := fmt.Fprintln(w, "No activity recorded this year.")
		return err
	}
	summary := [][]string{
		{"Days recorded", FormatCount(int64(report.Days))},
		{"Key presses", FormatCount(report.TotalKeyPresses)},
		{"Mouse clicks", FormatCount(report.TotalMouseClicks)},
		{"Total inputs", FormatCount(report.TotalInputs)},
		{"Time open", FormatMinutes(report.TotalMinutesOpen)},
	}
	if report.SkippedFiles > 0 {
		summary = append(summary, []string{"Unreadable files", FormatCount(int64(report.SkippedFiles))})
	}
	if err := writeTable(w, nil, summary, map[int]bool{1: true}); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if err := writeRanking(w, "Top Inputs", report.TopInputs, report.TotalInputs, opts.top()); err != nil {
		return err
	}
	if len(report.Daily) > 1 {
		if err := dailyChart(report.Daily, opts).Render(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderToday prints the live counters of the current day.
func RenderToday(w io.Writer, snap model.Snapshot, opts Options) error {
	if _, err := fmt.Fprintf(w, "Today (%s)\n\n", snap.Day.Format("2006-01-02")); err != nil {
		return err
	}
	rows := [][]string{
		{"Key presses", FormatCount(snap.Counts.KeyTotal())},
		{"Mouse clicks", FormatCount(snap.Counts.MouseTotal())},
		{"Time open", FormatMinutes(snap.TotalMinutesOpen)},
		{"Keys/min", fmt.Sprintf("%.1f", snap.KeysPerMinute)},
		{"Words/min", fmt.Sprintf("%.1f", snap.WordsPerMinute)},
	}
	if snap.Unsaved > 0 {
		rows = append(rows, []string{"Unsaved events", FormatCount(int64(snap.Unsaved))})
	}
	if err := writeTable(w, nil, rows, map[int]bool{1: true}); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	names := opts.Names
	if names == nil {
		names = func(code int) string { return fmt.Sprintf("KEY_%d", code) }
	}
	ranked := wrapped.TopInputs(snap.Counts.KeyPressCounts, snap.Counts.MouseButtonCounts, names, opts.top())
	return writeRanking(w, "Top Inputs", ranked, snap.Counts.Activity(), opts.top())
}

// RenderHistory prints the indexed days of a range.
func RenderHistory(w io.Writer, h History, opts Options) error {
	if len(h.Days) == 0 {
		_, err := fmt.Fprintln(w, "No indexed days found.")
		return err
	}
	var keys, clicks int64
	var minutes float64
	for _, d := range h.Days {
		keys += d.KeyPresses
		clicks += d.MouseClicks
		minutes += d.MinutesOpen
	}
	if _, err := fmt.Fprintf(w, "History %s to %s\n", h.Days[0].Day, h.Days[len(h.Days)-1].Day); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d active days, %s inputs, %s open\n\n",
		ActiveDays(h.Days), FormatCount(keys+clicks), FormatMinutes(minutes)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(h.Days))
	for _, d := range BusiestDays(h.Days, opts.top()) {
		rows = append(rows, []string{
			d.Day,
			FormatCount(d.KeyPresses),
			FormatCount(d.MouseClicks),
			FormatMinutes(d.MinutesOpen),
		})
	}
	if _, err := fmt.Fprintln(w, "Busiest Days"); err != nil {
		return err
	}
	if err := writeTable(w, []string{"Day", "Keys", "Clicks", "Open"}, rows, map[int]bool{1: true, 2: true, 3: true}); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if len(h.Keys) > 0 && opts.Names != nil {
		ranked := wrapped.TopInputs(h.Keys, nil, opts.Names, opts.top())
		if err := writeRanking(w, "Top Keys", ranked, keys, opts.top()); err != nil {
			return err
		}
	}
	if len(h.Days) > 1 {
		return dailyChart(h.Days, opts).Render(w)
	}
	return nil
}

func writeRanking(w io.Writer, title string, ranked []model.RankedInput, total int64, limit int) error {
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		rows = append(rows, []string{
			fmt.Sprintf("%d.", i+1),
			r.Name,
			FormatCount(r.Count),
			fmt.Sprintf("%.1f%%", Share(r.Count, total)),
		})
	}
	if err := writeTable(w, []string{"#", "Input", "Count", "Share"}, rows, map[int]bool{0: true, 2: true, 3: true}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func dailyChart(days []model.DayTotal, opts Options) Chart {
	inputs := make([]float64, len(days))
	minutes := make([]float64, len(days))
	for i, d := range days {
		inputs[i] = float64(d.Inputs())
		minutes[i] = d.MinutesOpen
	}
	return Chart{
		Title: "Inputs per day (7-day average)",
		Series: []Series{
			{Name: "inputs", Values: MovingAverage(inputs, 7)},
			{Name: "minutes open", Values: MovingAverage(minutes, 7)},
		},
		Width: plotWidth(opts.Width),
		Color: opts.Color,
	}
}

func plotWidth(total int) int {
	if total <= 0 {
		return 0
	}
	return PlotWidthFor(total, 8)
}
