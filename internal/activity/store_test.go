package activity

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/bongostats/internal/dayfile"
	"github.com/verte-zerg/bongostats/internal/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock(year int, month time.Month, day, hour, minute int) *fakeClock {
	return &fakeClock{t: time.Date(year, month, day, hour, minute, 0, 0, time.Local)}
}

func writeRecord(t *testing.T, base string, day time.Time, year int, keys map[int]int64) {
	t.Helper()
	rec := dayfile.Skeleton(year, day)
	for k, v := range keys {
		rec.Counts.KeyPressCounts[k] = v
	}
	data, err := dayfile.Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := dayfile.WriteFile(dayfile.Locator{BaseDir: base}.PathForDate(day), data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readRecord(t *testing.T, base string, day time.Time) dayfile.Record {
	t.Helper()
	data, err := os.ReadFile(dayfile.Locator{BaseDir: base}.PathForDate(day))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rec, err := dayfile.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec
}

func TestSaveAndReloadScenario(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))
	for i := 0; i < 3; i++ {
		s.RecordKeyPress(65)
	}
	s.RecordMouseClick("LEFT")
	s.RecordMouseClick("left")
	if s.Unsaved() != 5 {
		t.Fatalf("expected 5 unsaved events, got %d", s.Unsaved())
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Unsaved() != 0 {
		t.Fatalf("unsaved counter not reset")
	}

	restarted := Open(dir, WithClock(clock.Now))
	if got := restarted.KeyCount(65); got != 3 {
		t.Fatalf("expected 3 presses of A, got %d", got)
	}
	if got := restarted.MouseButtonCount("LEFT"); got != 2 {
		t.Fatalf("expected 2 left clicks, got %d", got)
	}
	if got := restarted.AllKeyStats()["A"]; got != 3 {
		t.Fatalf("expected A in key stats, got %v", restarted.AllKeyStats())
	}
}

func TestRoundTripKeepsMinutes(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))
	s.RecordKeyPress(66)
	clock.Advance(90 * time.Second)
	if got := s.TotalMinutesOpen(); got != 1.5 {
		t.Fatalf("expected 1.5 pending minutes, got %v", got)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	restarted := Open(dir, WithClock(clock.Now))
	if got := restarted.TotalMinutesOpen(); got != 1.5 {
		t.Fatalf("expected 1.5 minutes after reload, got %v", got)
	}
	if restarted.TotalKeyPresses() != 1 {
		t.Fatalf("expected 1 key press, got %d", restarted.TotalKeyPresses())
	}
}

func TestSaveNeverShrinks(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))
	s.RecordKeyPress(65)
	s.RecordKeyPress(65)
	writeRecord(t, dir, clock.Now(), 2024, map[int]int64{65: 5, 66: 3})

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec := readRecord(t, dir, clock.Now())
	if rec.Counts.KeyPressCounts[65] != 5 || rec.Counts.KeyPressCounts[66] != 3 {
		t.Fatalf("file shrank: %v", rec.Counts.KeyPressCounts)
	}
	if s.KeyCount(66) != 3 {
		t.Fatalf("in-memory counters should adopt the merged record")
	}
}

func TestSaveRefusesEmptyOverwrite(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))
	writeRecord(t, dir, clock.Now(), 2024, map[int]int64{65: 5})
	path := dayfile.Locator{BaseDir: dir}.PathForDate(clock.Now())
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	clock.Advance(time.Minute)
	err = s.Save()
	if !errors.Is(err, ErrEmptyOverwrite) {
		t.Fatalf("expected ErrEmptyOverwrite, got %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("file was modified by an aborted save")
	}
	if got := s.TotalMinutesOpen(); got != 1 {
		t.Fatalf("aborted save must keep the pending interval, got %v", got)
	}
}

func TestLoadYearRollover(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2025, 1, 1, 9, 0)
	writeRecord(t, dir, clock.Now(), 2024, map[int]int64{65: 9})

	s := Open(dir, WithClock(clock.Now))
	if s.TotalKeyPresses() != 0 {
		t.Fatalf("counters should be empty after year rollover")
	}
	rec := readRecord(t, dir, clock.Now())
	if rec.Year != 2025 || len(rec.Counts.KeyPressCounts) != 0 || len(rec.Counts.MouseButtonCounts) != 0 {
		t.Fatalf("expected empty 2025 skeleton, got %+v", rec)
	}
}

func TestMergeLoadIsAdditive(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	writeRecord(t, dir, clock.Now(), 2024, map[int]int64{65: 3})
	s := Open(dir, WithClock(clock.Now))
	if err := s.Load(true); err != nil {
		t.Fatalf("merge load: %v", err)
	}
	if got := s.KeyCount(65); got != 6 {
		t.Fatalf("expected additive merge-load to give 6, got %d", got)
	}
	if err := s.Load(false); err != nil {
		t.Fatalf("plain load: %v", err)
	}
	if got := s.KeyCount(65); got != 3 {
		t.Fatalf("plain load should replace counters, got %d", got)
	}
}

func TestLoadFailureIsNoop(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))
	s.RecordKeyPress(70)
	path := dayfile.Locator{BaseDir: dir}.PathForDate(clock.Now())
	if err := os.WriteFile(path, []byte(`{"year": 2024, "keyPressCounts": {"70": 1`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Load(false); !errors.Is(err, dayfile.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if s.KeyCount(70) != 1 {
		t.Fatalf("failed load changed counters")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Load(false); err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if s.KeyCount(70) != 1 {
		t.Fatalf("missing file reset counters")
	}
}

func TestSaveAfterMidnightFlushesPreviousDay(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 23, 50)
	yesterday := clock.Now()
	s := Open(dir, WithClock(clock.Now))
	s.RecordKeyPress(65)
	clock.Advance(20 * time.Minute)

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	prev := readRecord(t, dir, yesterday)
	if prev.Counts.KeyPressCounts[65] != 1 || prev.Counts.TotalMinutesOpen != 10 {
		t.Fatalf("unexpected previous day record: %+v", prev.Counts)
	}
	today := readRecord(t, dir, clock.Now())
	if len(today.Counts.KeyPressCounts) != 0 || today.Counts.TotalMinutesOpen != 10 {
		t.Fatalf("unexpected new day record: %+v", today.Counts)
	}
	if s.KeyCount(65) != 0 {
		t.Fatalf("counters should restart after midnight")
	}
	if !strings.HasSuffix(s.Today(), "03.06.24.json") {
		t.Fatalf("unexpected today path %s", s.Today())
	}
}

func TestMergeLoadAfterMidnightKeepsDaysApart(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 23, 50)
	yesterday := clock.Now()
	s := Open(dir, WithClock(clock.Now))
	s.RecordKeyPress(65)
	s.RecordKeyPress(65)
	clock.Advance(20 * time.Minute)
	writeRecord(t, dir, clock.Now(), 2024, map[int]int64{66: 4})

	if err := s.Load(true); err != nil {
		t.Fatalf("merge load: %v", err)
	}
	if s.KeyCount(65) != 0 || s.KeyCount(66) != 4 {
		t.Fatalf("yesterday's counts leaked into today: 65=%d 66=%d", s.KeyCount(65), s.KeyCount(66))
	}
	if s.Unsaved() != 0 {
		t.Fatalf("flushed counts still reported unsaved: %d", s.Unsaved())
	}
	prev := readRecord(t, dir, yesterday)
	if prev.Counts.KeyPressCounts[65] != 2 || prev.Counts.TotalMinutesOpen != 10 {
		t.Fatalf("unexpected previous day record: %+v", prev.Counts)
	}

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	today := readRecord(t, dir, clock.Now())
	if today.Counts.KeyPressCounts[65] != 0 || today.Counts.KeyPressCounts[66] != 4 {
		t.Fatalf("unexpected today record: %+v", today.Counts)
	}
}

func TestUnknownMouseLabelIgnored(t *testing.T) {
	s := Open(t.TempDir(), WithClock(newClock(2024, 3, 5, 10, 0).Now))
	if s.RecordMouseClick("X1") {
		t.Fatalf("unknown label accepted")
	}
	if s.Unsaved() != 0 || s.MouseButtonCount("X1") != 0 {
		t.Fatalf("unknown label counted")
	}
}

func TestConcurrentRecordingAndSaving(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(dir, WithClock(clock.Now))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if w%2 == 0 {
					s.RecordKeyPress(65)
				} else {
					s.RecordMouseClick(model.MouseRight)
				}
				if i%100 == 0 {
					_ = s.Save()
				}
			}
		}(w)
	}
	wg.Wait()
	if err := s.Save(); err != nil {
		t.Fatalf("final save: %v", err)
	}

	restarted := Open(dir, WithClock(clock.Now))
	if restarted.KeyCount(65) != 2000 || restarted.MouseButtonCount(model.MouseRight) != 2000 {
		t.Fatalf("lost events: keys=%d clicks=%d", restarted.KeyCount(65), restarted.MouseButtonCount(model.MouseRight))
	}
}

func TestWrappedStats(t *testing.T) {
	dir := t.TempDir()
	clock := newClock(2024, 6, 1, 10, 0)
	writeRecord(t, dir, time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local), 2024, map[int]int64{65: 3})
	writeRecord(t, dir, time.Date(2024, 5, 2, 8, 0, 0, 0, time.Local), 2024, map[int]int64{65: 4, 66: 1})
	s := Open(dir, WithClock(clock.Now), WithAggregateWorkers(1))
	s.RecordKeyPress(67)

	report, err := s.WrappedStats(2024)
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if report.KeyPressCounts[65] != 7 || report.KeyPressCounts[66] != 1 || report.KeyPressCounts[67] != 0 {
		t.Fatalf("unexpected year keys: %v", report.KeyPressCounts)
	}
	js := s.WrappedStatsJSON()
	if !strings.Contains(js, `"totalKeyPresses":8`) || !strings.Contains(js, `"name":"A"`) {
		t.Fatalf("unexpected wrapped json: %s", js)
	}
}

type recordingIndex struct {
	days []model.DayTotal
}

func (r *recordingIndex) UpsertDay(_ context.Context, day model.DayTotal, _ map[int]int64) error {
	r.days = append(r.days, day)
	return nil
}

func TestSaveUpdatesIndex(t *testing.T) {
	idx := &recordingIndex{}
	clock := newClock(2024, 3, 5, 10, 0)
	s := Open(t.TempDir(), WithClock(clock.Now), WithIndex(idx))
	s.RecordKeyPress(65)
	s.RecordMouseClick(model.MouseMiddle)
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(idx.days) != 1 || idx.days[0].Day != "2024-03-05" || idx.days[0].Inputs() != 2 {
		t.Fatalf("unexpected index updates: %+v", idx.days)
	}
}
