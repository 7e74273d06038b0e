package counters

import (
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
)

// Session is today's mutable state: the counters, the rate window and the
// start of the open interval not yet folded into TotalMinutesOpen.
// It is not safe for concurrent use.
type Session struct {
	Counts   model.CounterSet
	Window   *Window
	First    time.Time
	Last     time.Time
	AppStart time.Time
}

// NewSession returns an empty session whose open interval starts at now.
func NewSession(now time.Time) *Session {
	return &Session{
		Counts:   model.NewCounterSet(),
		Window:   NewWindow(WindowCapacity),
		AppStart: now,
	}
}

// RecordKeyPress counts one press of code at the given time.
func (s *Session) RecordKeyPress(code int, at time.Time) {
	s.Counts.KeyPressCounts[code]++
	s.Window.Push(Stamp{At: at, Code: code})
	if s.First.IsZero() {
		s.First = at
	}
	s.Last = at
}

// RecordMouseClick counts one click. Unknown labels are ignored.
func (s *Session) RecordMouseClick(label string) bool {
	norm, ok := model.NormalizeMouseButton(label)
	if !ok {
		return false
	}
	s.Counts.MouseButtonCounts[norm]++
	return true
}

func (s *Session) elapsedMinutes() float64 {
	if s.Window.Len() == 0 || s.First.IsZero() {
		return 0
	}
	return s.Last.Sub(s.First).Minutes()
}

// KeysPerMinute is the window length over the span from first to last press.
func (s *Session) KeysPerMinute() float64 {
	minutes := s.elapsedMinutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.Window.Len()) / minutes
}

// WordsPerMinute treats five alphabetic presses as one word.
func (s *Session) WordsPerMinute(isAlpha func(code int) bool) float64 {
	minutes := s.elapsedMinutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.Window.Count(isAlpha)) / 5 / minutes
}

// PendingMinutes is the open time accrued since AppStart.
func (s *Session) PendingMinutes(now time.Time) float64 {
	if s.AppStart.IsZero() || now.Before(s.AppStart) {
		return 0
	}
	return now.Sub(s.AppStart).Minutes()
}

// FoldOpenTime adds the pending minutes to the counters and restarts the interval.
func (s *Session) FoldOpenTime(now time.Time) {
	s.Counts.TotalMinutesOpen += s.PendingMinutes(now)
	s.AppStart = now
}

// ResetRates clears the window and the first/last markers.
func (s *Session) ResetRates() {
	s.Window.Clear()
	s.First = time.Time{}
	s.Last = time.Time{}
}

// Reset clears the counters and rate state and restarts the open interval.
func (s *Session) Reset(now time.Time) {
	s.Counts = model.NewCounterSet()
	s.ResetRates()
	s.AppStart = now
}
