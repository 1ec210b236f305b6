// Package selection tracks which conversations the user has marked for bulk actions.
//
// A Model holds one global scope for flat chats and one scope per project.
// Scopes are plain id sets: filtering never prunes them, so hidden members stay
// selected and are only acted upon when visible (global) or loaded (project).
package selection

import (
	"sort"
	"sync"

	"github.com/entrhq/chatsweep/pkg/types"
)

// TriState is the derived state of a "select all" control.
type TriState int

const (
	None TriState = iota
	Partial
	All
)

func (t TriState) String() string {
	switch t {
	case Partial:
		return "partial"
	case All:
		return "all"
	default:
		return "none"
	}
}

// Set is a concurrency-safe set of item ids.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Add adds id to the set.
func (s *Set) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Remove removes id from the set.
func (s *Set) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Toggle flips membership of id and returns the new membership.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is selected.
func (s *Set) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids, visible or not.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear empties the set.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// AddAll adds every candidate id.
func (s *Set) AddAll(candidates []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range candidates {
		s.ids[id] = struct{}{}
	}
}

// RemoveAll removes every candidate id.
func (s *Set) RemoveAll(candidates []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range candidates {
		delete(s.ids, id)
	}
}

// ToggleAll clears the set when every candidate is already a member,
// otherwise adds all candidates. It returns the resulting state over candidates.
func (s *Set) ToggleAll(candidates []string) TriState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(candidates) > 0 && s.countLocked(candidates) == len(candidates) {
		s.ids = make(map[string]struct{})
		return None
	}
	for _, id := range candidates {
		s.ids[id] = struct{}{}
	}
	if len(candidates) == 0 {
		return None
	}
	return All
}

// State derives the tri-state display over candidates.
func (s *Set) State(candidates []string) TriState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.countLocked(candidates)
	switch {
	case n == 0:
		return None
	case n == len(candidates):
		return All
	default:
		return Partial
	}
}

// Count returns how many candidates are members.
func (s *Set) Count(candidates []string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(candidates)
}

func (s *Set) countLocked(candidates []string) int {
	n := 0
	for _, id := range candidates {
		if _, ok := s.ids[id]; ok {
			n++
		}
	}
	return n
}

// Pick returns the items of an ordered list that are selected, preserving order.
func (s *Set) Pick(items []types.Item) []types.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Item, 0, len(s.ids))
	for _, it := range items {
		if _, ok := s.ids[it.ID]; ok {
			out = append(out, it)
		}
	}
	return out
}

// IDsOf returns the ids of items in order.
func IDsOf(items []types.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Model holds the global scope and the per-project scopes.
type Model struct {
	mu     sync.Mutex
	global *Set
	groups map[string]*Set
}

// NewModel creates an empty selection model.
func NewModel() *Model {
	return &Model{
		global: NewSet(),
		groups: make(map[string]*Set),
	}
}

// Global returns the flat chat scope.
func (m *Model) Global() *Set {
	return m.global
}

// Group returns the scope for groupID, creating it on first use.
func (m *Model) Group(groupID string) *Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.groups[groupID]
	if !ok {
		s = NewSet()
		m.groups[groupID] = s
	}
	return s
}

// Total returns the number of selected ids across all scopes.
func (m *Model) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.global.Len()
	for _, s := range m.groups {
		n += s.Len()
	}
	return n
}
