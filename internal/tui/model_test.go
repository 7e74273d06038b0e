package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/bongostats/internal/keynames"
	"github.com/verte-zerg/bongostats/internal/model"
)

type fakeRecorder struct {
	keys   []int
	clicks []string
	snaps  int
}

func (f *fakeRecorder) RecordKeyPress(code int) {
	f.keys = append(f.keys, code)
}

func (f *fakeRecorder) RecordMouseClick(label string) bool {
	if _, ok := model.NormalizeMouseButton(label); !ok {
		return false
	}
	f.clicks = append(f.clicks, label)
	return true
}

func (f *fakeRecorder) Snapshot() model.Snapshot {
	f.snaps++
	counts := model.NewCounterSet()
	for _, k := range f.keys {
		counts.KeyPressCounts[k]++
	}
	return model.Snapshot{Counts: counts, Unsaved: len(f.keys)}
}

func TestKeyEventsAreRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	notified := 0
	m := NewModel(rec, Options{Notify: func() { notified++ }})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("aB")})
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.Update(tea.KeyMsg{Type: tea.KeyF5})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pasted"), Paste: true})

	want := []int{65, 66, keynames.Space, keynames.F1 + 4}
	if len(rec.keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.keys)
	}
	for i := range want {
		if rec.keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, rec.keys)
		}
	}
	if notified != 4 || m.Events() != 4 {
		t.Fatalf("expected 4 notifications, got %d (events %d)", notified, m.Events())
	}
}

func TestCtrlCQuitsWithoutRecording(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(rec, Options{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if len(rec.keys) != 0 {
		t.Fatalf("ctrl+c should not be recorded")
	}
}

func TestMousePressesAreRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(rec, Options{})
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonMiddle})
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if len(rec.clicks) != 2 || rec.clicks[0] != model.MouseLeft || rec.clicks[1] != model.MouseMiddle {
		t.Fatalf("unexpected clicks %v", rec.clicks)
	}
	if len(m.trail) != 2 || m.trail[0] != "LEFT CLICK" {
		t.Fatalf("unexpected trail %v", m.trail)
	}
}

func TestTrailIsCapped(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(rec, Options{})
	for i := 0; i < trailCapacity+10; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	}
	if len(m.trail) != trailCapacity {
		t.Fatalf("expected %d trail entries, got %d", trailCapacity, len(m.trail))
	}
}

func TestTickRefreshesSnapshot(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(rec, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatalf("expected next tick to be scheduled")
	}
	if rec.snaps != 2 || m.snap.Counts.KeyTotal() != 1 {
		t.Fatalf("snapshot not refreshed: snaps=%d keys=%d", rec.snaps, m.snap.Counts.KeyTotal())
	}
}

func TestViewShowsCountersAndFooter(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewModel(rec, Options{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m.Update(tickMsg{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	view := m.View()
	for _, want := range []string{"Keys", "Words/min", "Session 1 inputs", "Unsaved 1", "Quit ctrl+c"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}
