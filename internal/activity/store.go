// Package activity persists the day's input counters and answers queries
// about them.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/verte-zerg/bongostats/internal/counters"
	"github.com/verte-zerg/bongostats/internal/dayfile"
	"github.com/verte-zerg/bongostats/internal/keynames"
	"github.com/verte-zerg/bongostats/internal/model"
	"github.com/verte-zerg/bongostats/internal/wrapped"
)

var (
	// ErrEmptyOverwrite is returned when an empty in-memory state would
	// replace a daily file that holds activity.
	ErrEmptyOverwrite = errors.New("refusing to overwrite non-empty daily file with empty counters")
	// ErrRegression is returned when a merged record would lower a stored count.
	ErrRegression = errors.New("merged record is below stored counts")
)

const indexTimeout = 5 * time.Second

// Store owns today's counters. A single mutex serializes every operation.
type Store struct {
	mu      sync.Mutex
	loc     dayfile.Locator
	session *counters.Session
	day     time.Time
	unsaved int

	now     func() time.Time
	logger  *slog.Logger
	index   Index
	names   func(int) string
	workers int
}

// Open creates a store rooted at baseDir and loads today's file if present.
// Folder creation and load failures are logged, never fatal.
func Open(baseDir string, opts ...Option) *Store {
	s := &Store{
		loc:    dayfile.Locator{BaseDir: baseDir},
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		names:  keynames.Name,
	}
	for _, opt := range opts {
		opt(s)
	}
	now := s.now()
	s.session = counters.NewSession(now)
	s.day = startOfDay(now)

	if err := s.loc.EnsureYearFolder(now.Year()); err != nil {
		s.logger.Warn("could not create year folder", "err", err)
	}
	if err := s.Load(false); err != nil {
		s.logger.Warn("could not load today's stats", "err", err)
	}
	return s
}

// BaseDir returns the root directory of the store.
func (s *Store) BaseDir() string {
	return s.loc.BaseDir
}

// Today returns the file path of today's record.
func (s *Store) Today() string {
	return s.loc.PathForDate(s.now())
}

// RecordKeyPress counts one press of the given key code.
func (s *Store) RecordKeyPress(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.RecordKeyPress(code, s.now())
	s.unsaved++
}

// RecordMouseClick counts one click of LEFT, RIGHT or MIDDLE. Other labels
// are ignored and reported false.
func (s *Store) RecordMouseClick(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.RecordMouseClick(label) {
		s.logger.Debug("ignoring unknown mouse button", "label", label)
		return false
	}
	s.unsaved++
	return true
}

// Save merges today's counters into today's file. On the first save after
// midnight the counters are flushed to the previous day's file first and
// then start again from zero.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.day.Equal(startOfDay(now)) {
		if err := s.rolloverLocked(now); err != nil {
			return err
		}
	}
	if err := s.saveDayLocked(now, now, now); err != nil {
		return err
	}
	s.unsaved = 0
	return nil
}

func (s *Store) rolloverLocked(now time.Time) error {
	prev := s.day
	dayEnd := prev.AddDate(0, 0, 1)
	if err := s.saveDayLocked(prev, dayEnd, now); err != nil && !errors.Is(err, ErrEmptyOverwrite) {
		return fmt.Errorf("failed to flush %s: %w", prev.Format("2006-01-02"), err)
	}
	today := startOfDay(now)
	s.session.Counts = model.NewCounterSet()
	s.unsaved = 0
	if s.session.AppStart.Before(today) {
		s.session.AppStart = today
	}
	s.day = today
	s.logger.Info("day rolled over", "from", prev.Format("2006-01-02"), "to", today.Format("2006-01-02"))
	return nil
}

// saveDayLocked writes the counters into the file of day, folding open time up
// to foldAt and stamping the record with stamp.
func (s *Store) saveDayLocked(day, foldAt, stamp time.Time) error {
	path := s.loc.PathForDate(day)
	if err := s.loc.EnsureYearFolder(day.Year()); err != nil {
		s.logger.Warn("could not create year folder", "err", err)
	}

	existing, fileExisted := s.readExisting(path)
	current := s.session.Counts
	if fileExisted && existing.Activity() > 0 && current.Activity() == 0 {
		s.logger.Warn("save skipped", "path", path, "err", ErrEmptyOverwrite)
		return fmt.Errorf("save %s: %w", path, ErrEmptyOverwrite)
	}

	s.session.FoldOpenTime(foldAt)
	merged := counters.Merge(existing, s.session.Counts)
	if fileExisted {
		if what, bad := counters.Regression(existing, merged); bad {
			s.logger.Error("save aborted", "path", path, "entry", what, "err", ErrRegression)
			return fmt.Errorf("save %s (%s): %w", path, what, ErrRegression)
		}
	}

	data, err := dayfile.Encode(dayfile.Record{Year: day.Year(), Date: stamp, Counts: merged})
	if err != nil {
		s.logger.Error("could not encode record", "path", path, "err", err)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := dayfile.WriteFile(path, data); err != nil {
		s.logger.Error("could not write record", "path", path, "err", err)
		return err
	}
	s.session.Counts = merged
	s.logger.Debug("saved stats", "path", path, "keys", merged.KeyTotal(), "clicks", merged.MouseTotal())
	s.indexDay(day, merged)
	return nil
}

func (s *Store) readExisting(path string) (model.CounterSet, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not read existing record", "path", path, "err", err)
		}
		return model.NewCounterSet(), false
	}
	rec, err := dayfile.Decode(data)
	if err != nil {
		s.logger.Warn("existing record is unreadable", "path", path, "err", err)
		return model.NewCounterSet(), false
	}
	return rec.Counts, true
}

func (s *Store) indexDay(day time.Time, counts model.CounterSet) {
	if s.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	total := model.DayTotal{
		Date:        day,
		Day:         day.Format("2006-01-02"),
		KeyPresses:  counts.KeyTotal(),
		MouseClicks: counts.MouseTotal(),
		MinutesOpen: counts.TotalMinutesOpen,
	}
	if err := s.index.UpsertDay(ctx, total, counts.KeyPressCounts); err != nil {
		s.logger.Warn("could not update history index", "day", total.Day, "err", err)
	}
}

// Load reads today's file into memory. A plain load replaces the counters;
// mergeWithCurrent adds the stored counts to them. A missing file leaves the
// state untouched, and a read or parse failure changes nothing. Counters left
// from a previous day are flushed to that day's file first.
func (s *Store) Load(mergeWithCurrent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.day.Equal(startOfDay(now)) {
		if err := s.rolloverLocked(now); err != nil {
			return err
		}
	}
	path := s.loc.PathForDate(now)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		s.logger.Warn("could not read record", "path", path, "err", err)
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if text, ok := dayfile.Field(data, "year"); ok {
		if year, err := strconv.Atoi(text); err == nil && year != now.Year() {
			return s.resetYearLocked(path, year, now)
		}
	}

	rec, err := dayfile.Decode(data)
	if err != nil {
		s.logger.Warn("could not parse record", "path", path, "err", err)
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if mergeWithCurrent {
		counters.AddInto(&s.session.Counts, rec.Counts)
	} else {
		s.session.Counts = rec.Counts
	}
	s.session.AppStart = now
	s.day = startOfDay(now)
	return nil
}

func (s *Store) resetYearLocked(path string, stored int, now time.Time) error {
	s.logger.Info("year rolled over", "stored", stored, "current", now.Year())
	s.session.Reset(now)
	s.day = startOfDay(now)
	s.unsaved = 0
	data, err := dayfile.Encode(dayfile.Skeleton(now.Year(), now))
	if err != nil {
		return fmt.Errorf("failed to encode skeleton: %w", err)
	}
	if err := dayfile.WriteFile(path, data); err != nil {
		s.logger.Error("could not reset record", "path", path, "err", err)
		return err
	}
	return nil
}

// KeyCount returns today's count for a key code.
func (s *Store) KeyCount(code int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Counts.KeyPressCounts[code]
}

// MouseButtonCount returns today's count for a mouse label.
func (s *Store) MouseButtonCount(label string) int64 {
	norm, ok := model.NormalizeMouseButton(label)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Counts.MouseButtonCounts[norm]
}

// AllKeyStats returns today's key counts keyed by display name.
func (s *Store) AllKeyStats() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.session.Counts.KeyPressCounts))
	for code, n := range s.session.Counts.KeyPressCounts {
		out[s.names(code)] += n
	}
	return out
}

// TotalKeyPresses sums today's key counts.
func (s *Store) TotalKeyPresses() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Counts.KeyTotal()
}

// KeysPerMinute estimates the typing rate over the recent window.
func (s *Store) KeysPerMinute() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.KeysPerMinute()
}

// WordsPerMinute counts five letters as one word.
func (s *Store) WordsPerMinute() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.WordsPerMinute(keynames.IsAlpha)
}

// TotalMinutesOpen returns the stored open time plus the pending interval.
func (s *Store) TotalMinutesOpen() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Counts.TotalMinutesOpen + s.session.PendingMinutes(s.now())
}

// SetAppStartTime moves the start of the pending open interval.
func (s *Store) SetAppStartTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.AppStart = t
}

// UpdateTotalMinutes folds the pending open interval into the counters.
func (s *Store) UpdateTotalMinutes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.FoldOpenTime(s.now())
}

// Unsaved returns the number of events recorded since the last save.
func (s *Store) Unsaved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

// Snapshot copies today's state for renderers.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return model.Snapshot{
		Day:              s.day,
		Counts:           s.session.Counts.Clone(),
		KeysPerMinute:    s.session.KeysPerMinute(),
		WordsPerMinute:   s.session.WordsPerMinute(keynames.IsAlpha),
		TotalMinutesOpen: s.session.Counts.TotalMinutesOpen + s.session.PendingMinutes(now),
		Unsaved:          s.unsaved,
	}
}

// WrappedStats sums every daily file of the given year. It does not touch
// the in-memory counters.
func (s *Store) WrappedStats(year int) (model.AggregateReport, error) {
	agg := wrapped.Aggregator{Names: s.names, Logger: s.logger, Workers: s.workers}
	return agg.Year(s.loc.YearFolder(year), year)
}

// WrappedStatsJSON renders the current year's report, or "{}" on failure.
func (s *Store) WrappedStatsJSON() string {
	report, err := s.WrappedStats(s.now().Year())
	if err != nil {
		s.logger.Warn("could not aggregate year", "err", err)
		return "{}"
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("could not encode wrapped stats", "err", err)
		return "{}"
	}
	return string(data)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
