// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Mouse button labels recorded by the store.
const (
	MouseLeft   = "LEFT"
	MouseRight  = "RIGHT"
	MouseMiddle = "MIDDLE"
)

// MouseButtons lists the labels in display order.
var MouseButtons = []string{MouseLeft, MouseRight, MouseMiddle}

// NormalizeMouseButton upper-cases a label and reports whether it is known.
func NormalizeMouseButton(label string) (string, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	switch label {
	case MouseLeft, MouseRight, MouseMiddle:
		return label, true
	}
	return "", false
}

// CounterSet holds the persisted tallies for one calendar day.
type CounterSet struct {
	KeyPressCounts    map[int]int64
	MouseButtonCounts map[string]int64
	TotalMinutesOpen  float64
}

// NewCounterSet returns an empty set with allocated maps.
func NewCounterSet() CounterSet {
	return CounterSet{
		KeyPressCounts:    map[int]int64{},
		MouseButtonCounts: map[string]int64{},
	}
}

// Clone returns a deep copy.
func (c CounterSet) Clone() CounterSet {
	out := NewCounterSet()
	for k, v := range c.KeyPressCounts {
		out.KeyPressCounts[k] = v
	}
	for k, v := range c.MouseButtonCounts {
		out.MouseButtonCounts[k] = v
	}
	out.TotalMinutesOpen = c.TotalMinutesOpen
	return out
}

// KeyTotal sums all key press counts.
func (c CounterSet) KeyTotal() int64 {
	var total int64
	for _, v := range c.KeyPressCounts {
		total += v
	}
	return total
}

// MouseTotal sums all mouse click counts.
func (c CounterSet) MouseTotal() int64 {
	var total int64
	for _, v := range c.MouseButtonCounts {
		total += v
	}
	return total
}

// Activity is the sum of every recorded input.
func (c CounterSet) Activity() int64 {
	return c.KeyTotal() + c.MouseTotal()
}

// IsEmpty reports whether the set holds no counts and no open time.
func (c CounterSet) IsEmpty() bool {
	return c.Activity() == 0 && c.TotalMinutesOpen == 0
}

// RankedInput is one entry of a top-inputs list.
type RankedInput struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// DayTotal summarizes one daily file.
type DayTotal struct {
	Date        time.Time `json:"-"`
	Day         string    `json:"date"`
	KeyPresses  int64     `json:"keyPresses"`
	MouseClicks int64     `json:"mouseClicks"`
	MinutesOpen float64   `json:"minutesOpen"`
}

// Inputs returns key presses plus mouse clicks.
func (d DayTotal) Inputs() int64 {
	return d.KeyPresses + d.MouseClicks
}

// AggregateReport is the year-level "wrapped" summary.
type AggregateReport struct {
	Year              int              `json:"year"`
	Days              int              `json:"days"`
	SkippedFiles      int              `json:"skippedFiles"`
	TotalKeyPresses   int64            `json:"totalKeyPresses"`
	TotalMouseClicks  int64            `json:"totalMouseClicks"`
	TotalInputs       int64            `json:"totalInputs"`
	TotalMinutesOpen  float64          `json:"totalMinutesOpen"`
	KeyPressCounts    map[int]int64    `json:"keyPressCounts"`
	MouseButtonCounts map[string]int64 `json:"mouseButtonCounts"`
	TopInputs         []RankedInput    `json:"topInputs"`
	Daily             []DayTotal       `json:"daily"`
}

// Snapshot is a point-in-time copy of today's in-memory state.
type Snapshot struct {
	Day              time.Time
	Counts           CounterSet
	KeysPerMinute    float64
	WordsPerMinute   float64
	TotalMinutesOpen float64
	Unsaved          int
}

// Config holds resolved runtime settings.
type Config struct {
	BaseDir       string
	Top           int
	Workers       int
	Index         bool
	SaveEvery     int
	SaveInterval  time.Duration
	SaveMinGap    time.Duration
	Verbose       bool
	EventsPath    string
	WrappedYear   int
	WrappedFormat string
}
