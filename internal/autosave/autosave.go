// Package autosave decides when the activity store is flushed to disk.
package autosave

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when Config leaves a field at zero.
const (
	DefaultEvery    = 100
	DefaultInterval = 60 * time.Second
	DefaultMinGap   = 2 * time.Second
)

// Flusher is the store side of the saver.
type Flusher interface {
	Save() error
}

// Config controls the save triggers.
type Config struct {
	// Every triggers a save after this many recorded events.
	Every int
	// Interval is the periodic save cadence.
	Interval time.Duration
	// MinGap is the minimum spacing of event-triggered saves.
	MinGap time.Duration
	Logger *slog.Logger
}

// Saver flushes on a ticker, after every N events and once more on shutdown.
type Saver struct {
	flusher  Flusher
	every    int64
	interval time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	pending atomic.Int64
	trigger chan struct{}
	saves   atomic.Int64
}

// New creates a saver for f.
func New(f Flusher, cfg Config) *Saver {
	if cfg.Every <= 0 {
		cfg.Every = DefaultEvery
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Saver{
		flusher:  f,
		every:    int64(cfg.Every),
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Notify records one event. It never blocks.
func (s *Saver) Notify() {
	if s.pending.Add(1) < s.every {
		return
	}
	if !s.limiter.Allow() {
		return
	}
	s.pending.Store(0)
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Saves returns how many saves the saver has attempted.
func (s *Saver) Saves() int64 {
	return s.saves.Load()
}

// Run saves on every trigger until ctx is done, then saves one final time
// and returns that save's error.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.flush("shutdown")
		case <-ticker.C:
			_ = s.flush("interval")
		case <-s.trigger:
			_ = s.flush("events")
		}
	}
}

func (s *Saver) flush(reason string) error {
	s.saves.Add(1)
	if err := s.flusher.Save(); err != nil {
		s.logger.Warn("autosave failed", "reason", reason, "err", err)
		return err
	}
	s.logger.Debug("autosaved", "reason", reason)
	return nil
}
