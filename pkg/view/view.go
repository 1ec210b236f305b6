// Package view derives what the panel shows from the enumerated working set:
// filtering, ordering, project visibility and the summary counts.
package view

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/entrhq/chatsweep/pkg/types"
)

// SortMode orders rows.
type SortMode string

const (
	SortNatural SortMode = "natural"
	SortAlpha   SortMode = "alpha"
)

// SortDir is the ordering direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortMode accepts natural or alpha.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNatural:
		return SortNatural, nil
	case SortAlpha:
		return SortAlpha, nil
	}
	return SortNatural, fmt.Errorf("unknown sort mode %q", s)
}

// ParseSortDir accepts asc or desc.
func ParseSortDir(s string) (SortDir, error) {
	switch SortDir(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return Asc, fmt.Errorf("unknown sort direction %q", s)
}

// SortItems returns a sorted copy of items.
func SortItems(items []types.Item, mode SortMode, dir SortDir) []types.Item {
	out := append([]types.Item(nil), items...)
	if mode == SortAlpha {
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	}
	if dir == Desc {
		reverse(out)
	}
	return out
}

// SortGroups returns a sorted copy of groups.
func SortGroups(groups []types.Group, mode SortMode, dir SortDir) []types.Group {
	out := append([]types.Group(nil), groups...)
	if mode == SortAlpha {
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	}
	if dir == Desc {
		reverse(out)
	}
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// FilterItems keeps items whose title passes f, preserving order.
func FilterItems(items []types.Item, f Filter) []types.Item {
	out := make([]types.Item, 0, len(items))
	for _, it := range items {
		if f.Match(it.Title) {
			out = append(out, it)
		}
	}
	return out
}

// VisibleGroups keeps expanded groups and groups whose title passes f.
func VisibleGroups(groups []types.Group, f Filter, expanded func(groupID string) bool) []types.Group {
	out := make([]types.Group, 0, len(groups))
	for _, g := range groups {
		if (expanded != nil && expanded(g.GroupID)) || f.Match(g.Title) {
			out = append(out, g)
		}
	}
	return out
}

// Meta is the summary line shown above the tree.
type Meta struct {
	LoadedChats    int
	LoadedGroups   int
	FilteredChats  int
	FilteredGroups int
	Selected       int
}

func (m Meta) String() string {
	return fmt.Sprintf("Loaded: %d (Chats %d, Projects %d) • Filtered: %d • Selected: %d",
		m.LoadedChats+m.LoadedGroups, m.LoadedChats, m.LoadedGroups,
		m.FilteredChats+m.FilteredGroups, m.Selected)
}

// State is the user's current view settings.
type State struct {
	mu       sync.RWMutex
	filter   Filter
	mode     SortMode
	dir      SortDir
	expanded map[string]bool
}

// NewState creates a view state with natural ascending order and no filter.
func NewState() *State {
	return &State{mode: SortNatural, dir: Asc, expanded: make(map[string]bool)}
}

// SetFilter replaces the filter text.
func (s *State) SetFilter(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = NewFilter(text)
}

// Filter returns the current filter.
func (s *State) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetSort sets the mode and direction.
func (s *State) SetSort(mode SortMode, dir SortDir) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode, s.dir = mode, dir
}

// Sort returns the mode and direction.
func (s *State) Sort() (SortMode, SortDir) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, s.dir
}

// ToggleMode switches between natural and alpha.
func (s *State) ToggleMode() SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == SortAlpha {
		s.mode = SortNatural
	} else {
		s.mode = SortAlpha
	}
	return s.mode
}

// ToggleDir flips the direction.
func (s *State) ToggleDir() SortDir {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == Desc {
		s.dir = Asc
	} else {
		s.dir = Desc
	}
	return s.dir
}

// SetExpanded marks a project as expanded or collapsed.
func (s *State) SetExpanded(groupID string, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expanded {
		s.expanded[groupID] = true
	} else {
		delete(s.expanded, groupID)
	}
}

// Expanded reports whether a project is expanded.
func (s *State) Expanded(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[groupID]
}

// Chats returns the visible flat chats in display order.
func (s *State) Chats(all []types.Item) []types.Item {
	f := s.Filter()
	mode, dir := s.Sort()
	return SortItems(FilterItems(all, f), mode, dir)
}

// Groups returns the visible projects in display order.
func (s *State) Groups(all []types.Group) []types.Group {
	f := s.Filter()
	mode, dir := s.Sort()
	return SortGroups(VisibleGroups(all, f, s.Expanded), mode, dir)
}

// GroupItems returns the visible conversations of an expanded project.
func (s *State) GroupItems(all []types.Item) []types.Item {
	return s.Chats(all)
}

// Meta computes the summary counts.
func (s *State) Meta(chats []types.Item, groups []types.Group, selected int) Meta {
	f := s.Filter()
	return Meta{
		LoadedChats:    len(chats),
		LoadedGroups:   len(groups),
		FilteredChats:  len(FilterItems(chats, f)),
		FilteredGroups: len(VisibleGroups(groups, f, s.Expanded)),
		Selected:       selected,
	}
}
