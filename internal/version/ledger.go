// Package version records immutable snapshots of completed artifacts
// and exposes linear undo/redo over the same snapshots.
package version

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable recorded snapshot of an artifact's content.
type Entry struct {
	ID         string    `json:"id"`
	ArtifactID string    `json:"artifact_id"`
	Content    string    `json:"content"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"created_at"`
}

// State is one undo-stack frame.
type State struct {
	ArtifactID string
	Content    string
	Label      string
}

// DefaultMaxEntries bounds the cumulative entry list.
const DefaultMaxEntries = 100

// Ledger keeps the cumulative per-artifact entry list (bounded to the
// most recent max) and a separate linear undo/redo stack seeded by
// every record. Append order follows artifact completion order, not
// submission order.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	max     int

	stack  []State
	cursor int // index of the current state; -1 when empty
}

func NewLedger(max int) *Ledger {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Ledger{max: max, cursor: -1}
}

// Record appends an entry unless the artifact's last recorded entry
// has identical content; this short-circuits no-op refinements. Every
// call, deduplicated or not, still represents the artifact's current
// state, but only genuinely new content seeds the undo stack.
// The recorded entry and whether it was appended are returned.
func (l *Ledger) Record(artifactID, content, label string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastFor(artifactID); ok && last.Content == content {
		return last, false
	}

	entry := Entry{
		ID:         uuid.NewString(),
		ArtifactID: artifactID,
		Content:    content,
		Label:      label,
		CreatedAt:  time.Now().UTC(),
	}
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.max:]...)
	}
	l.push(State{ArtifactID: artifactID, Content: content, Label: label})
	return entry, true
}

// PushRestored seeds the undo stack with a restore without appending
// a version entry: restoring is itself an undoable action, but the
// restored content already exists in the cumulative list.
func (l *Ledger) PushRestored(artifactID, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push(State{ArtifactID: artifactID, Content: content, Label: "restored"})
}

// push discards the redo branch and appends: standard linear-history
// semantics, no branching timeline.
func (l *Ledger) push(st State) {
	l.stack = append(l.stack[:l.cursor+1], st)
	l.cursor = len(l.stack) - 1
}

// Undo steps back one state. Returns false at the beginning of
// history.
func (l *Ledger) Undo() (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor <= 0 {
		return State{}, false
	}
	l.cursor--
	return l.stack[l.cursor], true
}

// Redo re-applies an undone state. Returns false when nothing was
// undone or a later push discarded the redo branch.
func (l *Ledger) Redo() (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 || l.cursor >= len(l.stack)-1 {
		return State{}, false
	}
	l.cursor++
	return l.stack[l.cursor], true
}

// Entry returns one entry by id.
func (l *Ledger) Entry(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns the recorded entries for one artifact, oldest first.
func (l *Ledger) Entries(artifactID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.ArtifactID == artifactID {
			out = append(out, e)
		}
	}
	return out
}

// All returns every recorded entry in append order.
func (l *Ledger) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Seed loads persisted entries without touching the undo stack.
func (l *Ledger) Seed(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry(nil), entries...)
	if len(l.entries) > l.max {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.max:]...)
	}
}

func (l *Ledger) lastFor(artifactID string) (Entry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ArtifactID == artifactID {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}
