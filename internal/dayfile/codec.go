// Package dayfile reads and writes the per-day JSON activity records.
package dayfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"
)

// DateLayout is the format of the "date" field.
const DateLayout = "2006-01-02 15:04:05"

// ErrMalformed reports a record that is not a complete JSON object.
var ErrMalformed = errors.New("malformed daily record")

// Record is the decoded content of one daily file.
type Record struct {
	Year   int
	Date   time.Time
	Counts model.CounterSet
}

// Skeleton returns an empty record for the given year.
func Skeleton(year int, now time.Time) Record {
	return Record{Year: year, Date: now, Counts: model.NewCounterSet()}
}

type wireRecord struct {
	Year              int              `json:"year"`
	Date              string           `json:"date"`
	TotalMinutesOpen  minutes          `json:"totalMinutesOpen"`
	MouseButtonCounts map[string]int64 `json:"mouseButtonCounts"`
	KeyPressCounts    map[string]int64 `json:"keyPressCounts"`
}

// minutes always encodes with two decimal places.
type minutes float64

func (m minutes) MarshalJSON() ([]byte, error) {
	v := float64(m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return []byte(strconv.FormatFloat(v, 'f', 2, 64)), nil
}

// Encode renders a record in the fixed daily-file shape.
func Encode(rec Record) ([]byte, error) {
	w := wireRecord{
		Year:              rec.Year,
		Date:              rec.Date.Format(DateLayout),
		TotalMinutesOpen:  minutes(rec.Counts.TotalMinutesOpen),
		MouseButtonCounts: map[string]int64{},
		KeyPressCounts:    map[string]int64{},
	}
	for label, n := range rec.Counts.MouseButtonCounts {
		w.MouseButtonCounts[label] = n
	}
	for code, n := range rec.Counts.KeyPressCounts {
		w.KeyPressCounts[strconv.Itoa(code)] = n
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a daily file. The top-level object must be complete;
// individual entries that are not valid counts are dropped.
func Decode(data []byte) (Record, error) {
	fields, complete := scanTopLevel(data)
	if !complete {
		return Record{}, ErrMalformed
	}
	rec := Record{Counts: model.NewCounterSet()}
	if v, ok := scalar(fields, "year"); ok {
		if y, err := strconv.Atoi(v); err == nil {
			rec.Year = y
		}
	}
	if v, ok := scalar(fields, "date"); ok {
		if t, err := time.ParseInLocation(DateLayout, v, time.Local); err == nil {
			rec.Date = t
		}
	}
	if v, ok := scalar(fields, "totalMinutesOpen"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
			rec.Counts.TotalMinutesOpen = f
		}
	}
	for label, n := range decodeCounts(fields["mouseButtonCounts"]) {
		if label == "" {
			continue
		}
		rec.Counts.MouseButtonCounts[label] = n
	}
	for key, n := range decodeCounts(fields["keyPressCounts"]) {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		rec.Counts.KeyPressCounts[code] = n
	}
	return rec, nil
}

// Field returns the raw text of a top-level scalar field. Strings come back
// unquoted. Objects, arrays, null and missing fields report false.
func Field(data []byte, name string) (string, bool) {
	fields, _ := scanTopLevel(data)
	return scalar(fields, name)
}

// Object returns the raw text of a top-level object field, braces included.
func Object(data []byte, name string) (string, bool) {
	fields, _ := scanTopLevel(data)
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || raw[0] != '{' {
		return "", false
	}
	return string(raw), true
}

// scanTopLevel walks the outer object and keeps the first occurrence of each
// key. Fields read before a syntax error are returned with complete=false.
func scanTopLevel(data []byte) (map[string]json.RawMessage, bool) {
	fields := map[string]json.RawMessage{}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fields, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fields, false
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fields, false
		}
		key, ok := tok.(string)
		if !ok {
			return fields, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fields, false
		}
		if _, seen := fields[key]; !seen {
			fields[key] = raw
		}
	}
	if _, err := dec.Token(); err != nil {
		return fields, false
	}
	return fields, true
}

func scalar(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return "", false
	}
	return text, true
}

func decodeCounts(raw json.RawMessage) map[string]int64 {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make(map[string]int64, len(entries))
	for key, value := range entries {
		if n, ok := parseCount(value); ok {
			out[key] = n
		}
	}
	return out
}

func parseCount(raw json.RawMessage) (int64, bool) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
