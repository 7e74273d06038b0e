// Package statsui provides the Bubble Tea wrapped-stats interface.
package statsui

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/bongostats/internal/dayfile"
	"github.com/verte-zerg/bongostats/internal/model"
	"github.com/verte-zerg/bongostats/internal/stats"
	"github.com/verte-zerg/bongostats/internal/wrapped"
)

const (
	tabOverview = iota
	tabInputs
	tabDaily
)

const plotHeight = 8

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Loader builds the report for a year.
type Loader func(year int) (model.AggregateReport, error)

// Options configures the viewer.
type Options struct {
	Year  int
	Names func(code int) string
	// YearDir returns the folder to watch for a year. Nil disables watching.
	YearDir func(year int) string
}

// Model implements the Bubble Tea wrapped-stats UI.
type Model struct {
	load    Loader
	names   func(int) string
	yearDir func(int) string
	year    int

	report model.AggregateReport
	errMsg string

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	inputTable table.Model

	watcher *fsnotify.Watcher
	watched string
	reloads int

	width  int
	height int
}

type reloadMsg struct{}

type watchErrMsg struct{ err error }

// NewModel constructs a wrapped-stats UI model.
func NewModel(load Loader, opts Options) *Model {
	m := &Model{
		load:    load,
		names:   opts.Names,
		yearDir: opts.YearDir,
		year:    opts.Year,
		tabs:    []string{"Overview", "Top Inputs", "Daily"},
	}
	if m.names == nil {
		m.names = func(code int) string { return fmt.Sprintf("KEY_%d", code) }
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.inputTable = table.New(table.WithColumns(inputColumns()), table.WithHeight(1))
	m.inputTable.SetStyles(inputTableStyles())
	if m.yearDir != nil {
		if w, err := fsnotify.NewWatcher(); err == nil {
			m.watcher = w
		} else {
			m.errMsg = fmt.Sprintf("file watching disabled: %v", err)
		}
	}
	m.refreshReport()
	return m
}

// Close stops the file watcher.
func (m *Model) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case reloadMsg:
		m.reloads++
		m.refreshReport()
		return m, m.waitForChange()
	case watchErrMsg:
		m.errMsg = fmt.Sprintf("watch: %v", msg.err)
		return m, m.waitForChange()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.year--
			m.refreshReport()
			return m, nil
		case "]":
			m.year++
			m.refreshReport()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "g", "home":
			if m.activeTab == tabInputs {
				m.inputTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabInputs {
				m.inputTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabInputs {
			m.inputTable, cmd = m.inputTable.Update(msg)
			return m, cmd
		}
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	w := m.watcher
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if !dayfile.IsDailyFileName(filepath.Base(ev.Name)) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					return reloadMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{err: err}
			}
		}
	}
}

func (m *Model) watchYear() {
	if m.watcher == nil {
		return
	}
	dir := m.yearDir(m.year)
	if dir == m.watched {
		return
	}
	if m.watched != "" {
		_ = m.watcher.Remove(m.watched)
		m.watched = ""
	}
	// A year without data has no folder yet; nothing to watch.
	if err := m.watcher.Add(dir); err == nil {
		m.watched = dir
	}
}

func (m *Model) refreshReport() {
	m.watchYear()
	report, err := m.load(m.year)
	if err != nil {
		m.errMsg = err.Error()
		m.report = model.AggregateReport{Year: m.year}
	} else {
		m.errMsg = ""
		m.report = report
	}
	m.inputTable.SetRows(inputRows(m.report, m.names))
	m.inputTable.GotoTop()
	m.renderTabContents()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.inputTable.SetWidth(m.width)
	m.inputTable.SetHeight(max(bodyHeight-1, 1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabInputs {
		m.inputTable.Focus()
	} else {
		m.inputTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := fmt.Sprintf("Year: %d  days=%d  skipped=%d", m.year, m.report.Days, m.report.SkippedFiles)
	if m.watched != "" {
		summary += "  (live)"
	}
	return tabs + "\n" + padLines(headerStyle.Render(truncateLine(summary, m.width)), m.width)
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Year: [/]  Reload: r  Scroll: up/down/pgup/pgdn  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return help
}

func (m *Model) renderBody() string {
	if m.activeTab == tabInputs {
		if len(m.inputTable.Rows()) == 0 {
			return "No inputs recorded."
		}
		return tableMutedStyle.Render(m.inputTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabDaily].SetContent(renderDaily(m.report, width))
}

func renderOverview(report model.AggregateReport, width int) string {
	if report.Days == 0 {
		return fmt.Sprintf("No activity recorded in %d.", report.Year)
	}
	cards := []string{
		metricCard("Inputs", stats.FormatCount(report.TotalInputs)),
		metricCard("Key presses", stats.FormatCount(report.TotalKeyPresses)),
		metricCard("Mouse clicks", stats.FormatCount(report.TotalMouseClicks)),
		metricCard("Days", stats.FormatCount(int64(report.Days))),
		metricCard("Time open", stats.FormatMinutes(report.TotalMinutesOpen)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	lines := []string{summary, ""}
	if len(report.Daily) > 1 {
		daily := report.Daily
		if room := width - 8; room > 0 && len(daily) > room {
			daily = daily[len(daily)-room:]
		}
		values := make([]float64, len(daily))
		for i, d := range daily {
			values[i] = float64(d.Inputs())
		}
		lines = append(lines, cardTitleStyle.Render("Trend")+"  "+stats.Sparkline(values), "")
	}
	lines = append(lines, cardTitleStyle.Render("Top Inputs"))
	for i, in := range report.TopInputs {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s  %s", i+1, in.Name, stats.FormatCount(in.Count)))
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func renderDaily(report model.AggregateReport, width int) string {
	if len(report.Daily) == 0 {
		return "No daily files found."
	}
	inputs := make([]float64, len(report.Daily))
	minutes := make([]float64, len(report.Daily))
	for i, d := range report.Daily {
		inputs[i] = float64(d.Inputs())
		minutes[i] = d.MinutesOpen
	}
	var buf bytes.Buffer
	chart := stats.Chart{
		Title: "Inputs per day",
		Series: []stats.Series{
			{Name: "inputs", Values: inputs},
			{Name: "minutes open", Values: minutes},
		},
		Width:  stats.PlotWidthFor(width, 8),
		Height: plotHeight,
		Color:  true,
	}
	if err := chart.Render(&buf); err != nil {
		return fmt.Sprintf("Failed to render chart: %v", err)
	}
	lines := []string{strings.TrimRight(buf.String(), "\n"), ""}
	for _, d := range stats.BusiestDays(report.Daily, 5) {
		lines = append(lines, fmt.Sprintf("%s  %s inputs  %s", d.Day, stats.FormatCount(d.Inputs()), stats.FormatMinutes(d.MinutesOpen)))
	}
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func inputColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 5},
		{Title: "Input", Width: 16},
		{Title: "Count", Width: 12},
		{Title: "Share", Width: 7},
	}
}

func inputRows(report model.AggregateReport, names func(int) string) []table.Row {
	ranked := wrapped.TopInputs(report.KeyPressCounts, report.MouseButtonCounts, names, 0)
	rows := make([]table.Row, 0, len(ranked))
	for i, in := range ranked {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			in.Name,
			stats.FormatCount(in.Count),
			fmt.Sprintf("%.1f%%", stats.Share(in.Count, report.TotalInputs)),
		})
	}
	return rows
}

func inputTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
