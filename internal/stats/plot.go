package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series is a named run of values plotted left to right.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	terminalWidthBackup = 80
	colorReset          = "\x1b[0m"
	axisSeparator       = " ┤"
)

var seriesColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m"}

// Chart draws series with braille dots, two columns and four rows of dots per
// cell. Every series is scaled to its own range.
type Chart struct {
	Title  string
	Series []Series
	Width  int
	Height int
	Color  bool
}

// Render writes the chart. Charts without values print nothing.
func (c Chart) Render(w io.Writer) error {
	series := make([]Series, 0, len(c.Series))
	for _, s := range c.Series {
		if len(s.Values) > 0 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return nil
	}
	height := c.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	labels := axisLabels(series[0].Values, height)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, displayWidth(l))
	}
	width := c.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth(), labelWidth)
	}
	width = max(width, minPlotWidth)

	grids := make([][][]uint8, len(series))
	for i, s := range series {
		grids[i] = plotGrid(resampleSeries(s.Values, width), width, height)
	}

	if c.Title != "" {
		if _, err := fmt.Fprintln(w, c.Title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(padCell(labels[y], labelWidth, true))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(grids, x, y)
			ch := rune(0x2800 + int(mask))
			if c.Color && owner >= 0 {
				row.WriteString(seriesColors[owner%len(seriesColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, legend(series, c.Color))
	return err
}

func axisLabels(values []float64, height int) []string {
	labels := make([]string, height)
	lo, hi := valueRange(values)
	labels[0] = humanizeFloat(hi)
	if height > 1 {
		labels[height-1] = humanizeFloat(lo)
	}
	return labels
}

func humanizeFloat(v float64) string {
	return FormatCount(int64(math.Round(v)))
}

func legend(series []Series, color bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		lo, hi := valueRange(s.Values)
		label := fmt.Sprintf("%c %s %s..%s", rune(0x2800+0xFF), s.Name, humanizeFloat(lo), humanizeFloat(hi))
		if color {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "   ")
}

// PlotWidthFor returns the plot columns left after the axis labels.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-labelWidth-displayWidth(axisSeparator), minPlotWidth)
}

// TerminalWidth reports the width of stdout, or a fallback when it is not a
// terminal.
func TerminalWidth() int {
	return terminalWidth()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether w is a terminal that should receive ANSI colors.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func plotGrid(values []float64, width, height int) [][]uint8 {
	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	lo, hi := valueRange(values)
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	dotRows := height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		pos := (v - lo) / (hi - lo)
		py := int(math.Round((1 - pos) * float64(dotRows-1)))
		py = max(0, min(py, dotRows-1))
		px := x * 2
		if prevX < 0 {
			setDot(grid, px, py)
		} else {
			drawLine(prevX, prevY, px, py, func(dx, dy int) { setDot(grid, dx, dy) })
		}
		prevX, prevY = px, py
	}
	return grid
}

func mergeCell(grids [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, grid := range grids {
		cell := grid[y][x]
		if cell == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= cell
	}
	return mask, owner
}

func valueRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// resampleSeries averages buckets when shrinking and interpolates when
// stretching.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// drawLine walks the cells between two dots (Bresenham).
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// brailleBits maps a dot position (column, row) inside a cell to its bit.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(grid [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(grid) || cx >= len(grid[cy]) {
		return
	}
	grid[cy][cx] |= brailleBits[x%2][y%4]
}
