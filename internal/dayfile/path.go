package dayfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dataDirName = "DATA"

// Locator maps calendar days to files under a base directory.
type Locator struct {
	BaseDir string
}

// DataDir returns <base>/DATA.
func (l Locator) DataDir() string {
	return filepath.Join(l.BaseDir, dataDirName)
}

// YearFolder returns <base>/DATA/<year>.
func (l Locator) YearFolder(year int) string {
	return filepath.Join(l.DataDir(), fmt.Sprintf("%d", year))
}

// PathForDate returns the daily file for the local calendar day of t.
func (l Locator) PathForDate(t time.Time) string {
	return filepath.Join(l.YearFolder(t.Year()), FileName(t))
}

// FileName renders MM.DD.YY.json.
func FileName(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%02d.json", int(t.Month()), t.Day(), t.Year()%100)
}

// EnsureYearFolder creates DATA and DATA/<year> if missing.
func (l Locator) EnsureYearFolder(year int) error {
	dir := l.YearFolder(year)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// IsDailyFileName reports whether name looks like a record file.
func IsDailyFileName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

// DateFromFileName parses MM.DD.YY.json within the given year. Names that do
// not follow the convention report false.
func DateFromFileName(name string, year int) (time.Time, bool) {
	base := strings.TrimSuffix(strings.ToLower(name), ".json")
	var month, day, yy int
	if _, err := fmt.Sscanf(base, "%02d.%02d.%02d", &month, &day, &yy); err != nil {
		return time.Time{}, false
	}
	if fmt.Sprintf("%02d.%02d.%02d", month, day, yy) != base {
		return time.Time{}, false
	}
	if yy != year%100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}
