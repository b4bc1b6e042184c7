package state

import (
	"log"
	"sync"
)

// Log is the ordered, append-only record of strokes on one board. It is the
// only source of truth for rendering. Sequences are strictly increasing for
// the lifetime of a Log, including across Clear.
type Log struct {
	clock   Clock
	strokes []Stroke
	seen    map[string]struct{} // every id ever appended, survives Remove and Clear
	mu      sync.RWMutex
}

// NewLog creates an empty operation log.
func NewLog() *Log {
	return &Log{
		strokes: make([]Stroke, 0),
		seen:    make(map[string]struct{}),
	}
}

// Append stores s with the next sequence number and returns the stored copy.
// A stroke that was removed earlier (undo) may be appended again under the
// same id; it is ordered by its new sequence.
func (l *Log) Append(s Stroke) (Stroke, error) {
	if err := s.Validate(); err != nil {
		return Stroke{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(s), nil
}

// AppendIfNew appends s unless a stroke with the same id was ever applied to
// this log. It reports whether the stroke was appended.
func (l *Log) AppendIfNew(s Stroke) (Stroke, bool, error) {
	if err := s.Validate(); err != nil {
		return Stroke{}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[s.ID]; ok {
		log.Printf("[OPLOG] Stroke %s already applied, ignoring", s.ID)
		return Stroke{}, false, nil
	}
	return l.appendLocked(s), true, nil
}

func (l *Log) appendLocked(s Stroke) Stroke {
	s = s.clone()
	s.Sequence = l.clock.Tick()
	l.strokes = append(l.strokes, s)
	l.seen[s.ID] = struct{}{}
	return s.clone()
}

// Seen reports whether a stroke with this id was ever applied.
func (l *Log) Seen(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[id]
	return ok
}

// Contains reports whether a stroke with this id is currently in the log.
func (l *Log) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexLocked(id) >= 0
}

// Remove deletes the stroke with the given id and returns it.
func (l *Log) Remove(id string) (Stroke, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return Stroke{}, false
	}
	s := l.strokes[i]
	l.strokes = append(l.strokes[:i], l.strokes[i+1:]...)
	return s, true
}

// RemoveOrigin deletes every stroke drawn by origin and returns how many
// were removed. The origin "all" removes everything.
func (l *Log) RemoveOrigin(origin string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if origin == OriginAll {
		n := len(l.strokes)
		l.strokes = make([]Stroke, 0)
		return n
	}
	kept := make([]Stroke, 0, len(l.strokes))
	for _, s := range l.strokes {
		if s.Origin != origin {
			kept = append(kept, s)
		}
	}
	n := len(l.strokes) - len(kept)
	l.strokes = kept
	return n
}

// OriginAll addresses every participant in a clear.
const OriginAll = "all"

// Clear empties the log. The sequence counter and the set of applied ids are
// kept.
func (l *Log) Clear() {
	l.RemoveOrigin(OriginAll)
}

// Strokes returns a copy of the log in sequence order.
func (l *Log) Strokes() []Stroke {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Stroke, 0, len(l.strokes))
	for _, s := range l.strokes {
		out = append(out, s.clone())
	}
	return out
}

// Len returns the number of strokes currently in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.strokes)
}

// LastSequence returns the highest sequence ever assigned by this log.
func (l *Log) LastSequence() uint64 {
	return l.clock.Current()
}

func (l *Log) indexLocked(id string) int {
	for i := len(l.strokes) - 1; i >= 0; i-- {
		if l.strokes[i].ID == id {
			return i
		}
	}
	return -1
}
