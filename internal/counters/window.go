package counters

import "time"

// WindowCapacity is the number of key-press stamps kept for rate estimates.
const WindowCapacity = 1000

// Stamp is one key press in the rate window.
type Stamp struct {
	At   time.Time
	Code int
}

// Window is a fixed-capacity FIFO of stamps. When full, the oldest stamp is
// evicted to make room.
type Window struct {
	items []Stamp
	head  int // index of the oldest stamp
	count int
}

// NewWindow creates a window holding at most capacity stamps.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{items: make([]Stamp, capacity)}
}

// Push appends a stamp, evicting the oldest when full.
func (w *Window) Push(s Stamp) {
	size := len(w.items)
	if w.count == size {
		w.items[w.head] = s
		w.head = (w.head + 1) % size
		return
	}
	w.items[(w.head+w.count)%size] = s
	w.count++
}

// Len returns the number of stamps held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.items) }

// Count returns how many stamps satisfy match.
func (w *Window) Count(match func(code int) bool) int {
	n := 0
	for i := 0; i < w.count; i++ {
		if match(w.items[(w.head+i)%len(w.items)].Code) {
			n++
		}
	}
	return n
}

// List returns the stamps oldest first.
func (w *Window) List() []Stamp {
	out := make([]Stamp, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.items[(w.head+i)%len(w.items)]
	}
	return out
}

// Clear drops every stamp.
func (w *Window) Clear() {
	w.head = 0
	w.count = 0
}
