// Package keynames maps Windows virtual-key codes to display names.
package keynames

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Virtual-key codes used outside this package.
const (
	Backspace = 8
	Tab       = 9
	Enter     = 13
	Escape    = 27
	Space     = 32
	PageUp    = 33
	PageDown  = 34
	End       = 35
	Home      = 36
	Left      = 37
	Up        = 38
	Right     = 39
	Down      = 40
	Insert    = 45
	Delete    = 46
	Numpad0   = 96
	F1        = 112
)

var named = map[int]string{
	Backspace: "BACKSPACE",
	Tab:       "TAB",
	Enter:     "ENTER",
	16:        "SHIFT",
	17:        "CTRL",
	18:        "ALT",
	20:        "CAPS_LOCK",
	Escape:    "ESC",
	Space:     "SPACE",
	PageUp:    "PAGE_UP",
	PageDown:  "PAGE_DOWN",
	End:       "END",
	Home:      "HOME",
	Left:      "LEFT_ARROW",
	Up:        "UP_ARROW",
	Right:     "RIGHT_ARROW",
	Down:      "DOWN_ARROW",
	Insert:    "INSERT",
	Delete:    "DELETE",
	91:        "LEFT_WIN",
	92:        "RIGHT_WIN",
	144:       "NUM_LOCK",
	145:       "SCROLL_LOCK",
}

// Name returns the display name for a key code.
func Name(code int) string {
	if name, ok := named[code]; ok {
		return name
	}
	switch {
	case IsAlpha(code), code >= '0' && code <= '9':
		return string(rune(code))
	case code >= Numpad0 && code <= Numpad0+9:
		return fmt.Sprintf("NUMPAD%d", code-Numpad0)
	case code >= F1 && code <= F1+11:
		return fmt.Sprintf("F%d", code-F1+1)
	}
	return "KEY_" + strconv.Itoa(code)
}

// IsAlpha reports whether code is one of A-Z.
func IsAlpha(code int) bool {
	return code >= 'A' && code <= 'Z'
}

// Code resolves a display name back to its key code.
func Code(name string) (int, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, false
	}
	if rest, ok := strings.CutPrefix(name, "KEY_"); ok {
		code, err := strconv.Atoi(rest)
		return code, err == nil && code >= 0
	}
	for _, code := range knownCodes() {
		if Name(code) == name {
			return code, true
		}
	}
	return 0, false
}

// FromRune maps a printable character to the key that produces it on a US
// layout. Shifted symbols map to their base key.
func FromRune(r rune) (int, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return int(r - 'a' + 'A'), true
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return int(r), true
	case r == ' ':
		return Space, true
	}
	if code, ok := punctuation[r]; ok {
		return code, true
	}
	return 0, false
}

var punctuation = map[rune]int{
	';': 186, ':': 186,
	'=': 187, '+': 187,
	',': 188, '<': 188,
	'-': 189, '_': 189,
	'.': 190, '>': 190,
	'/': 191, '?': 191,
	'`': 192, '~': 192,
	'[': 219, '{': 219,
	'\\': 220, '|': 220,
	']': 221, '}': 221,
	'\'': 222, '"': 222,
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
}

// Match is one result of Find.
type Match struct {
	Code int
	Name string
}

// Find fuzzy-matches query against every named key, best match first.
func Find(query string) []Match {
	codes := knownCodes()
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = Name(code)
	}
	results := fuzzy.Find(strings.ToUpper(query), names)
	out := make([]Match, 0, len(results))
	for _, r := range results {
		out = append(out, Match{Code: codes[r.Index], Name: r.Str})
	}
	return out
}

func knownCodes() []int {
	codes := make([]int, 0, len(named)+26+10+10+12)
	for code := range named {
		codes = append(codes, code)
	}
	for code := '0'; code <= '9'; code++ {
		codes = append(codes, int(code))
	}
	for code := 'A'; code <= 'Z'; code++ {
		codes = append(codes, int(code))
	}
	for i := 0; i < 10; i++ {
		codes = append(codes, Numpad0+i)
	}
	for i := 0; i < 12; i++ {
		codes = append(codes, F1+i)
	}
	sort.Ints(codes)
	return codes
}
