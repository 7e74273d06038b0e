package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestChartRender(t *testing.T) {
	var buf bytes.Buffer
	chart := Chart{
		Title: "Daily inputs",
		Series: []Series{
			{Name: "inputs", Values: []float64{100, 2500, 1200, 0, 4000}},
			{Name: "minutes", Values: []float64{30, 60, 45}},
		},
		Width:  20,
		Height: 4,
	}
	if err := chart.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Daily inputs" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "4,000 ┤") || !strings.HasPrefix(lines[4], "    0 ┤") {
		t.Fatalf("unexpected axis labels:\n%s", buf.String())
	}
	if !strings.Contains(lines[5], "inputs 0..4,000") || !strings.Contains(lines[5], "minutes 30..60") {
		t.Fatalf("unexpected legend %q", lines[5])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("color written without Color")
	}
}

func TestChartEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := (Chart{Series: []Series{{Name: "x"}}}).Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestResampleSeries(t *testing.T) {
	down := resampleSeries([]float64{1, 3, 5, 7}, 2)
	if down[0] != 2 || down[1] != 6 {
		t.Fatalf("unexpected downsample %v", down)
	}
	up := resampleSeries([]float64{0, 10}, 3)
	if up[0] != 0 || up[1] != 5 || up[2] != 10 {
		t.Fatalf("unexpected upsample %v", up)
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80, 5); got != 80-5-2 {
		t.Fatalf("expected %d, got %d", 80-5-2, got)
	}
	if got := PlotWidthFor(0, 5); got != minPlotWidth {
		t.Fatalf("expected min width, got %d", got)
	}
}
