package plan

import "github.com/slideforge/slideforge/schema"

// MaxHistory bounds the undo stack; the oldest snapshot is evicted when a
// push would exceed it.
const MaxHistory = 20

// History is a bounded linear undo/redo stack of full plan snapshots.
// Push truncates any redoable future past the cursor, so the stack always
// describes a single timeline.
//
// All snapshots are deep copies: callers may freely mutate the plans they
// get back.
type History struct {
	snapshots []*schema.PresentationPlan
	cursor    int // index of the current snapshot; -1 when empty
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{cursor: -1}
}

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Cursor returns the current snapshot index (-1 when empty).
func (h *History) Cursor() int { return h.cursor }

// Push records a snapshot of p, discarding any entries past the cursor and
// evicting the oldest entry when the bound is exceeded.
func (h *History) Push(p *schema.PresentationPlan) {
	if p == nil {
		return
	}
	h.snapshots = append(h.snapshots[:h.cursor+1], p.Clone())
	if len(h.snapshots) > MaxHistory {
		h.snapshots = h.snapshots[1:]
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor back one snapshot and returns a copy of it.
// At the oldest snapshot it is a no-op and returns nil.
func (h *History) Undo() *schema.PresentationPlan {
	if h.cursor <= 0 {
		return nil
	}
	h.cursor--
	return h.snapshots[h.cursor].Clone()
}

// Redo moves the cursor forward one snapshot and returns a copy of it.
// At the newest snapshot it is a no-op and returns nil.
func (h *History) Redo() *schema.PresentationPlan {
	if h.cursor < 0 || h.cursor >= len(h.snapshots)-1 {
		return nil
	}
	h.cursor++
	return h.snapshots[h.cursor].Clone()
}

// CanUndo reports whether Undo would change state.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would change state.
func (h *History) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.snapshots)-1 }
