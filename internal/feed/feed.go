// Package feed reads input events from a line-oriented stream.
//
// Each line is one of:
//
//	key <code|name>
//	mouse <LEFT|RIGHT|MIDDLE>
//	save
//
// Blank lines and lines starting with # are ignored.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/verte-zerg/bongostats/internal/keynames"
)

// MaxLineBytes bounds one feed line. Longer lines are skipped.
const MaxLineBytes = 4096

// ErrLineTooLong is logged for a line longer than MaxLineBytes.
var ErrLineTooLong = errors.New("feed line too long")

// Recorder receives the decoded events.
type Recorder interface {
	RecordKeyPress(code int)
	RecordMouseClick(label string) bool
}

// Saver flushes on an explicit save line.
type Saver interface {
	Save() error
}

// Stats counts what a Run consumed.
type Stats struct {
	Keys    int
	Clicks  int
	Saves   int
	Skipped int
}

// Feed wires a stream to a recorder.
type Feed struct {
	Recorder Recorder
	Saver    Saver
	// OnEvent is called after every recorded event.
	OnEvent func()
	Logger  *slog.Logger
}

// Run consumes r until EOF or ctx is done. Malformed and overlong lines are
// logged and skipped.
func (f *Feed) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		text, tooLong, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("failed to read feed: %w", err)
		}
		lineNo++
		if tooLong {
			stats.Skipped++
			logger.Warn("skipping feed line", "line", lineNo, "err", ErrLineTooLong)
			continue
		}
		line := strings.TrimSpace(text)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := f.apply(line, &stats); err != nil {
			stats.Skipped++
			logger.Warn("skipping feed line", "line", lineNo, "err", err)
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineBytes is drained and reported as too long.
func readLine(r *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", tooLong, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (f *Feed) apply(line string, stats *Stats) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "key":
		if len(fields) != 2 {
			return fmt.Errorf("key expects one argument: %q", line)
		}
		code, err := ParseKey(fields[1])
		if err != nil {
			return err
		}
		f.Recorder.RecordKeyPress(code)
		stats.Keys++
	case "mouse":
		if len(fields) != 2 {
			return fmt.Errorf("mouse expects one argument: %q", line)
		}
		if !f.Recorder.RecordMouseClick(fields[1]) {
			return fmt.Errorf("unknown mouse button %q", fields[1])
		}
		stats.Clicks++
	case "save":
		if f.Saver == nil {
			return nil
		}
		stats.Saves++
		if err := f.Saver.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	if f.OnEvent != nil {
		f.OnEvent()
	}
	return nil
}

// ParseKey accepts a numeric key code or a key name such as SPACE or A.
func ParseKey(arg string) (int, error) {
	if code, err := strconv.Atoi(arg); err == nil {
		if code < 0 {
			return 0, fmt.Errorf("negative key code %d", code)
		}
		return code, nil
	}
	if code, ok := keynames.Code(arg); ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown key %q", arg)
}
