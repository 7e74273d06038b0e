// Package tui provides the Bubble Tea capture interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/bongostats/internal/keynames"
	"github.com/verte-zerg/bongostats/internal/model"
	"github.com/verte-zerg/bongostats/internal/stats"
)

const (
	trailCapacity  = 64
	defaultRefresh = time.Second
)

// Recorder is the part of the activity store the capture view drives.
type Recorder interface {
	RecordKeyPress(code int)
	RecordMouseClick(label string) bool
	Snapshot() model.Snapshot
}

// Options configures the capture view.
type Options struct {
	Names func(code int) string
	// Notify is called after every recorded event.
	Notify func()
	// Refresh is the interval between snapshot refreshes.
	Refresh time.Duration
}

// Model implements the Bubble Tea capture UI.
type Model struct {
	rec     Recorder
	names   func(int) string
	notify  func()
	refresh time.Duration

	snap   model.Snapshot
	trail  []string
	events int

	width  int
	height int
}

var (
	trailStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	namedKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	latestStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	statLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	statValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	statBoxStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

var specialKeys = map[tea.KeyType]int{
	tea.KeySpace:     keynames.Space,
	tea.KeyEnter:     keynames.Enter,
	tea.KeyTab:       keynames.Tab,
	tea.KeyBackspace: keynames.Backspace,
	tea.KeyDelete:    keynames.Delete,
	tea.KeyEsc:       keynames.Escape,
	tea.KeyUp:        keynames.Up,
	tea.KeyDown:      keynames.Down,
	tea.KeyLeft:      keynames.Left,
	tea.KeyRight:     keynames.Right,
	tea.KeyHome:      keynames.Home,
	tea.KeyEnd:       keynames.End,
	tea.KeyPgUp:      keynames.PageUp,
	tea.KeyPgDown:    keynames.PageDown,
	tea.KeyInsert:    keynames.Insert,
}

var functionKeys = []tea.KeyType{
	tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4, tea.KeyF5, tea.KeyF6,
	tea.KeyF7, tea.KeyF8, tea.KeyF9, tea.KeyF10, tea.KeyF11, tea.KeyF12,
}

type tickMsg time.Time

// NewModel constructs a capture TUI model.
func NewModel(rec Recorder, opts Options) *Model {
	m := &Model{
		rec:     rec,
		names:   opts.Names,
		notify:  opts.Notify,
		refresh: opts.Refresh,
	}
	if m.names == nil {
		m.names = keynames.Name
	}
	if m.notify == nil {
		m.notify = func() {}
	}
	if m.refresh <= 0 {
		m.refresh = defaultRefresh
	}
	m.snap = rec.Snapshot()
	return m
}

// Events reports how many inputs the view recorded.
func (m *Model) Events() int {
	return m.events
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.snap = m.rec.Snapshot()
		return m, m.tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		for _, code := range keyCodes(msg) {
			m.rec.RecordKeyPress(code)
			m.pushTrail(m.names(code))
		}
		return m, nil
	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		label, ok := mouseLabel(msg.Button)
		if !ok {
			return m, nil
		}
		if m.rec.RecordMouseClick(label) {
			m.pushTrail(label + " CLICK")
		}
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	header := m.renderStats()
	if m.width == 0 || m.height == 0 {
		return header
	}
	contentWidth := max(int(float64(m.width)*0.70), 1)
	trailHeight := max(m.height-lipgloss.Height(header)-4, 1)
	trail := strings.Join(tailLines(wrapTokens(buildTrail(m.trail), contentWidth), trailHeight), "\n")
	content := lipgloss.JoinVertical(lipgloss.Center, header, "", lipgloss.NewStyle().Width(contentWidth).Render(trail))
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) pushTrail(name string) {
	m.events++
	m.notify()
	m.trail = append(m.trail, name)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[len(m.trail)-trailCapacity:]
	}
}

func (m *Model) renderStats() string {
	counts := m.snap.Counts
	boxes := []string{
		statBox("Keys", stats.FormatCount(counts.KeyTotal())),
		statBox("Clicks", stats.FormatCount(counts.MouseTotal())),
		statBox("Open", stats.FormatMinutes(m.snap.TotalMinutesOpen)),
		statBox("Keys/min", fmt.Sprintf("%.1f", m.snap.KeysPerMinute)),
		statBox("Words/min", fmt.Sprintf("%.1f", m.snap.WordsPerMinute)),
	}
	title := titleStyle.Render("bongostats")
	if !m.snap.Day.IsZero() {
		title += footerStyle.Render("  " + m.snap.Day.Format("2006-01-02"))
	}
	return lipgloss.JoinVertical(lipgloss.Center, title, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Session %d inputs", m.events)}
	if m.snap.Unsaved > 0 {
		segments = append(segments, fmt.Sprintf("Unsaved %d", m.snap.Unsaved))
	} else {
		segments = append(segments, "Saved")
	}
	segments = append(segments, "Quit ctrl+c")
	return footerStyle.Render(strings.Join(segments, "  "))
}

func statBox(label, value string) string {
	return statBoxStyle.Render(statLabelStyle.Render(label) + "\n" + statValueStyle.Render(value))
}

// keyCodes maps a terminal key event to virtual key codes. Pastes and keys
// without a code yield nothing.
func keyCodes(msg tea.KeyMsg) []int {
	if msg.Paste {
		return nil
	}
	if msg.Type == tea.KeyRunes {
		codes := make([]int, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if code, ok := keynames.FromRune(r); ok {
				codes = append(codes, code)
			}
		}
		return codes
	}
	if code, ok := specialKeys[msg.Type]; ok {
		return []int{code}
	}
	for i, k := range functionKeys {
		if msg.Type == k {
			return []int{keynames.F1 + i}
		}
	}
	return nil
}

func mouseLabel(b tea.MouseButton) (string, bool) {
	switch b {
	case tea.MouseButtonLeft:
		return model.MouseLeft, true
	case tea.MouseButtonRight:
		return model.MouseRight, true
	case tea.MouseButtonMiddle:
		return model.MouseMiddle, true
	default:
		return "", false
	}
}
