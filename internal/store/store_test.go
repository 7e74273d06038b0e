package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestUpsertDayNeverDecreases(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	d := day(2024, 3, 5)
	if err := st.UpsertDay(ctx, model.DayTotal{Date: d, KeyPresses: 10, MouseClicks: 2, MinutesOpen: 5}, map[int]int64{65: 10}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.UpsertDay(ctx, model.DayTotal{Date: d, KeyPresses: 4, MouseClicks: 3, MinutesOpen: 1}, map[int]int64{65: 4}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	days, err := st.ListDays(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	got := days[0]
	if got.Day != "2024-03-05" || got.KeyPresses != 10 || got.MouseClicks != 3 || got.MinutesOpen != 5 {
		t.Fatalf("unexpected day: %+v", got)
	}
	if !got.Date.Equal(d) {
		t.Fatalf("unexpected date %v", got.Date)
	}
	keys, err := st.KeyTotals(ctx, d, d)
	if err != nil {
		t.Fatalf("key totals: %v", err)
	}
	if keys[65] != 10 {
		t.Fatalf("expected 10 presses of 65, got %v", keys)
	}
}

func TestListDaysRange(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for i, d := range []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 2, 1)} {
		if err := st.UpsertDay(ctx, model.DayTotal{Date: d, KeyPresses: int64(i + 1)}, map[int]int64{66: int64(i + 1)}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	days, err := st.ListDays(ctx, day(2024, 1, 2), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(days) != 1 || days[0].Day != "2024-01-02" {
		t.Fatalf("unexpected range result: %+v", days)
	}
	keys, err := st.KeyTotals(ctx, day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("key totals: %v", err)
	}
	if keys[66] != 6 {
		t.Fatalf("expected summed key count 6, got %v", keys)
	}
}

func TestKeyTotalsOpenBounds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.UpsertDay(ctx, model.DayTotal{Date: day(2024, 5, 1), KeyPresses: 4}, map[int]int64{65: 4}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.UpsertDay(ctx, model.DayTotal{Date: day(2024, 6, 1), KeyPresses: 3}, map[int]int64{65: 3}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	keys, err := st.KeyTotals(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("key totals: %v", err)
	}
	if keys[65] != 7 {
		t.Fatalf("expected 7 presses with open bounds, got %v", keys)
	}
	keys, err = st.KeyTotals(ctx, day(2024, 5, 15), time.Time{})
	if err != nil {
		t.Fatalf("key totals from: %v", err)
	}
	if keys[65] != 3 {
		t.Fatalf("expected 3 presses from mid May, got %v", keys)
	}
	keys, err = st.KeyTotals(ctx, time.Time{}, day(2024, 5, 15))
	if err != nil {
		t.Fatalf("key totals to: %v", err)
	}
	if keys[65] != 4 {
		t.Fatalf("expected 4 presses until mid May, got %v", keys)
	}
}
