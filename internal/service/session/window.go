package session

import "github.com/sandevgo/letterdesk/internal/core"

const DefaultWindowPairs = 10

// Window is a fixed-capacity FIFO of conversation turns. It holds up to
// 2*pairs turns so that `pairs` user/assistant exchanges fit.
// Window is not safe for concurrent use; Session guards it.
type Window struct {
	turns    []core.Turn
	capacity int
}

func NewWindow(pairs int) *Window {
	if pairs <= 0 {
		pairs = DefaultWindowPairs
	}
	capacity := 2 * pairs
	return &Window{
		turns:    make([]core.Turn, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a turn, dropping the oldest one when full. It reports whether
// a turn was dropped.
func (w *Window) Append(turn core.Turn) bool {
	if len(w.turns) < w.capacity {
		w.turns = append(w.turns, turn)
		return false
	}

	copy(w.turns, w.turns[1:])
	w.turns[len(w.turns)-1] = turn
	return true
}

// Turns returns a copy, oldest first.
func (w *Window) Turns() []core.Turn {
	out := make([]core.Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (w *Window) Len() int {
	return len(w.turns)
}

func (w *Window) Cap() int {
	return w.capacity
}
