// Package ledger records the last mutation applied to each conversation this session.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/types"
)

// State is the post-mutation state of an item as seen by the UI.
type State int

const (
	Normal State = iota
	Archived
	Deleted
)

func (s State) String() string {
	switch s {
	case Archived:
		return "archived"
	case Deleted:
		return "deleted"
	default:
		return "normal"
	}
}

// Record is the last action applied to an item.
type Record struct {
	ItemID string       `json:"item_id"`
	Action types.Action `json:"action"`
	At     time.Time    `json:"at"`
}

// Ledger is an in-memory map of item id to Record.
// It stores what it is told; callers enforce the transition rules.
type Ledger struct {
	mu               sync.RWMutex
	records          map[string]Record
	refreshSuggested bool
	now              func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Record stores action for id, replacing any previous record.
// Only archive and delete are recorded.
func (l *Ledger) Record(id string, action types.Action) error {
	if action != types.ActionArchive && action != types.ActionDelete {
		return fmt.Errorf("record %s for %s: %w", action, id, types.ErrUnrecordable)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[id] = Record{ItemID: id, Action: action, At: l.now()}
	l.refreshSuggested = true
	return nil
}

// Clear removes the record for id. Used by undo.
func (l *Ledger) Clear(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[id]; ok {
		delete(l.records, id)
		l.refreshSuggested = true
	}
}

// Get returns the record for id.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.records[id]
	return r, ok
}

// State returns the post-mutation state for id.
func (l *Ledger) State(id string) State {
	r, ok := l.Get(id)
	if !ok {
		return Normal
	}
	switch r.Action {
	case types.ActionArchive:
		return Archived
	case types.ActionDelete:
		return Deleted
	}
	return Normal
}

// Offered returns the actions a user may apply to id in its current state.
// Unarchive is offered as undo for archived items; deleted items accept nothing.
func (l *Ledger) Offered(id string) []types.Action {
	switch l.State(id) {
	case Archived:
		return []types.Action{types.ActionUnarchive}
	case Deleted:
		return nil
	default:
		return []types.Action{types.ActionArchive, types.ActionDelete}
	}
}

// Allows reports whether action is offered for id.
func (l *Ledger) Allows(id string, action types.Action) bool {
	for _, a := range l.Offered(id) {
		if a == action {
			return true
		}
	}
	return false
}

// Len returns the number of recorded items.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Snapshot returns a copy of all records.
func (l *Ledger) Snapshot() map[string]Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Record, len(l.records))
	for k, v := range l.records {
		out[k] = v
	}
	return out
}

// RefreshSuggested reports whether the ledger changed since the last acknowledgement.
func (l *Ledger) RefreshSuggested() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.refreshSuggested
}

// AcknowledgeRefresh lowers the refresh-suggested flag.
func (l *Ledger) AcknowledgeRefresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshSuggested = false
}
