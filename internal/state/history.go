package state

// History is the local undo/redo view over one participant's own strokes in
// a Log. It never touches strokes drawn by other participants.
type History struct {
	undo []string // ids of local strokes, oldest first
	redo []Stroke // undone strokes, most recent last
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Record notes a freshly drawn local stroke. Any redo branch is dropped.
func (h *History) Record(id string) {
	h.undo = append(h.undo, id)
	h.redo = nil
}

// Undo removes the most recent local stroke still present in l and keeps it
// for Redo. Ids whose strokes have already left the log (a remote clear) are
// discarded on the way.
func (h *History) Undo(l *Log) (Stroke, bool) {
	for len(h.undo) > 0 {
		id := h.undo[len(h.undo)-1]
		h.undo = h.undo[:len(h.undo)-1]
		if s, ok := l.Remove(id); ok {
			h.redo = append(h.redo, s)
			return s, true
		}
	}
	return Stroke{}, false
}

// Redo re-appends the most recently undone stroke. It gets a new sequence
// number: it is ordered as if drawn now.
func (h *History) Redo(l *Log) (Stroke, bool) {
	if len(h.redo) == 0 {
		return Stroke{}, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	s.Sequence = 0
	stored, err := l.Append(s)
	if err != nil {
		return Stroke{}, false
	}
	h.undo = append(h.undo, stored.ID)
	return stored, true
}

// CanUndo reports whether there is at least one undo candidate.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Reset drops both stacks.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}
