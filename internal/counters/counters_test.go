package counters

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
)

func isAlpha(code int) bool { return code >= 65 && code <= 90 }

func TestMergeTakesMaxPerKey(t *testing.T) {
	existing := model.NewCounterSet()
	existing.KeyPressCounts[65] = 10
	existing.KeyPressCounts[66] = 2
	existing.MouseButtonCounts[model.MouseLeft] = 4
	existing.TotalMinutesOpen = 30

	current := model.NewCounterSet()
	current.KeyPressCounts[65] = 3
	current.KeyPressCounts[67] = 5
	current.MouseButtonCounts[model.MouseLeft] = 9
	current.TotalMinutesOpen = 12

	merged := Merge(existing, current)
	if merged.KeyPressCounts[65] != 10 || merged.KeyPressCounts[66] != 2 || merged.KeyPressCounts[67] != 5 {
		t.Fatalf("unexpected keys: %v", merged.KeyPressCounts)
	}
	if merged.MouseButtonCounts[model.MouseLeft] != 9 {
		t.Fatalf("unexpected mouse: %v", merged.MouseButtonCounts)
	}
	if merged.TotalMinutesOpen != 30 {
		t.Fatalf("unexpected minutes: %v", merged.TotalMinutesOpen)
	}
	if _, bad := Regression(existing, merged); bad {
		t.Fatalf("merge result should never regress")
	}
	if existing.KeyPressCounts[67] != 0 {
		t.Fatalf("merge mutated its input")
	}
}

func TestRegressionNamesFirstKey(t *testing.T) {
	existing := model.NewCounterSet()
	existing.KeyPressCounts[70] = 5
	existing.KeyPressCounts[66] = 5
	merged := existing.Clone()
	merged.KeyPressCounts[70] = 1
	merged.KeyPressCounts[66] = 1
	name, bad := Regression(existing, merged)
	if !bad || name != "key 66" {
		t.Fatalf("expected key 66, got %q %v", name, bad)
	}

	merged = existing.Clone()
	merged.TotalMinutesOpen = -1
	if name, bad := Regression(existing, merged); !bad || name != "totalMinutesOpen" {
		t.Fatalf("expected minutes regression, got %q %v", name, bad)
	}
}

func TestAddInto(t *testing.T) {
	var dst model.CounterSet
	src := model.NewCounterSet()
	src.KeyPressCounts[65] = 2
	src.MouseButtonCounts[model.MouseRight] = 1
	src.TotalMinutesOpen = 1.5
	AddInto(&dst, src)
	AddInto(&dst, src)
	if dst.KeyPressCounts[65] != 4 || dst.MouseButtonCounts[model.MouseRight] != 2 || dst.TotalMinutesOpen != 3 {
		t.Fatalf("unexpected sum: %+v", dst)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(WindowCapacity)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < WindowCapacity+5; i++ {
		w.Push(Stamp{At: base.Add(time.Duration(i) * time.Second), Code: i})
	}
	if w.Len() != WindowCapacity {
		t.Fatalf("expected %d stamps, got %d", WindowCapacity, w.Len())
	}
	list := w.List()
	if list[0].Code != 5 || list[len(list)-1].Code != WindowCapacity+4 {
		t.Fatalf("unexpected window bounds: %d..%d", list[0].Code, list[len(list)-1].Code)
	}
	w.Clear()
	if w.Len() != 0 || len(w.List()) != 0 {
		t.Fatalf("clear left stamps behind")
	}
}

func TestRateBoundaries(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	s := NewSession(start)
	if s.KeysPerMinute() != 0 || s.WordsPerMinute(isAlpha) != 0 {
		t.Fatalf("rates must be zero without presses")
	}
	s.RecordKeyPress(65, start)
	s.RecordKeyPress(66, start)
	if s.KeysPerMinute() != 0 {
		t.Fatalf("rates must be zero when first == last")
	}
	s.RecordKeyPress(32, start.Add(30*time.Second))
	if got := s.KeysPerMinute(); math.Abs(got-6) > 1e-9 {
		t.Fatalf("expected 6 kpm, got %v", got)
	}
	if got := s.WordsPerMinute(isAlpha); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("expected 0.8 wpm, got %v", got)
	}
	s.ResetRates()
	if s.KeysPerMinute() != 0 || s.Counts.KeyPressCounts[65] != 1 {
		t.Fatalf("reset rates must keep counters")
	}
}

func TestRecordMouseClick(t *testing.T) {
	s := NewSession(time.Now())
	if !s.RecordMouseClick("left") || !s.RecordMouseClick("LEFT") {
		t.Fatalf("known labels rejected")
	}
	if s.RecordMouseClick("BACK") {
		t.Fatalf("unknown label accepted")
	}
	if s.Counts.MouseButtonCounts[model.MouseLeft] != 2 || len(s.Counts.MouseButtonCounts) != 1 {
		t.Fatalf("unexpected mouse counts: %v", s.Counts.MouseButtonCounts)
	}
}

func TestFoldOpenTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	s := NewSession(start)
	s.Counts.TotalMinutesOpen = 10
	now := start.Add(90 * time.Second)
	if got := s.PendingMinutes(now); got != 1.5 {
		t.Fatalf("expected 1.5 pending, got %v", got)
	}
	s.FoldOpenTime(now)
	if s.Counts.TotalMinutesOpen != 11.5 || !s.AppStart.Equal(now) {
		t.Fatalf("unexpected fold result: %v %v", s.Counts.TotalMinutesOpen, s.AppStart)
	}
	if s.PendingMinutes(now.Add(-time.Minute)) != 0 {
		t.Fatalf("clock going backwards must not add time")
	}
}
