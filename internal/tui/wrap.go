package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type styledToken struct {
	s     string
	width int
}

// buildTrail styles the recent key names, oldest first. The newest entry is
// highlighted.
func buildTrail(names []string) []styledToken {
	out := make([]styledToken, 0, len(names))
	for i, name := range names {
		style := trailStyle
		if i == len(names)-1 {
			style = latestStyle
		} else if len(name) > 1 {
			style = namedKeyStyle
		}
		out = append(out, styledToken{
			s:     style.Render(name),
			width: runewidth.StringWidth(name),
		})
	}
	return out
}

func renderTokens(tokens []styledToken) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.s)
	}
	return strings.Join(parts, " ")
}

// wrapTokens breaks tokens into lines no wider than width, separating tokens
// with one space. A token wider than width gets a line of its own.
func wrapTokens(tokens []styledToken, width int) []string {
	if width <= 0 {
		return []string{renderTokens(tokens)}
	}
	var lines []string
	line := make([]styledToken, 0, len(tokens))
	lineWidth := 0
	for _, t := range tokens {
		next := lineWidth + t.width
		if len(line) > 0 {
			next++
		}
		if next > width && len(line) > 0 {
			lines = append(lines, renderTokens(line))
			line = line[:0]
			lineWidth = 0
			next = t.width
		}
		line = append(line, t)
		lineWidth = next
	}
	if len(line) > 0 {
		lines = append(lines, renderTokens(line))
	}
	return lines
}

// tailLines keeps the last n lines so the newest keys stay visible.
func tailLines(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
