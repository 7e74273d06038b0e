package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
)

// Index receives day totals after every successful save.
type Index interface {
	UpsertDay(ctx context.Context, day model.DayTotal, keys map[int]int64) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for save and load failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIndex mirrors saved day totals into a history index.
func WithIndex(idx Index) Option {
	return func(s *Store) {
		s.index = idx
	}
}

// WithKeyNames sets the key-naming function used by AllKeyStats and reports.
func WithKeyNames(names func(code int) string) Option {
	return func(s *Store) {
		if names != nil {
			s.names = names
		}
	}
}

// WithAggregateWorkers bounds the number of files parsed in parallel by
// WrappedStats.
func WithAggregateWorkers(n int) Option {
	return func(s *Store) {
		s.workers = n
	}
}
