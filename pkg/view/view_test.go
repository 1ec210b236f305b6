package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/types"
)

func sample() []types.Item {
	return []types.Item{
		{ID: "1", Title: "Trip planning", Order: 0},
		{ID: "2", Title: "budget review", Order: 1},
		{ID: "3", Title: "Apple pie recipe", Order: 2},
		{ID: "4", Title: "Trip photos", Order: 3},
	}
}

func ids(items []types.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilterSubstring(t *testing.T) {
	f := NewFilter("  TRIP ")
	assert.Equal(t, "trip", f.Text())
	assert.True(t, f.Match("Trip planning"))
	assert.True(t, f.Match("my trip"))
	assert.False(t, f.Match("budget"))

	assert.True(t, NewFilter("").Match("anything"))
	assert.True(t, NewFilter("").Empty())
}

func TestFilterGlob(t *testing.T) {
	f := NewFilter("trip*")
	assert.True(t, f.Match("Trip photos"))
	assert.False(t, f.Match("My trip"))

	f = NewFilter("*pie*")
	assert.True(t, f.Match("Apple pie recipe"))

	// Unbalanced bracket is not a valid glob; falls back to substring.
	f = NewFilter("[draft")
	assert.True(t, f.Match("[Draft] notes"))
}

func TestSortItems(t *testing.T) {
	items := sample()

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(SortItems(items, SortNatural, Asc)))
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(SortItems(items, SortNatural, Desc)))
	assert.Equal(t, []string{"3", "2", "1", "4"}, ids(SortItems(items, SortAlpha, Asc)))
	assert.Equal(t, []string{"4", "1", "2", "3"}, ids(SortItems(items, SortAlpha, Desc)))

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(items), "input is not modified")
}

func TestVisibleGroupsExpandedStayVisible(t *testing.T) {
	groups := []types.Group{
		{GroupID: "g1", Title: "Recipes", Order: 0},
		{GroupID: "g2", Title: "Work", Order: 1},
		{GroupID: "g3", Title: "Trips", Order: 2},
	}

	s := NewState()
	s.SetFilter("trip")
	assert.Equal(t, []types.Group{groups[2]}, s.Groups(groups))

	s.SetExpanded("g2", true)
	got := s.Groups(groups)
	require.Len(t, got, 2)
	assert.Equal(t, "g2", got[0].GroupID)
	assert.Equal(t, "g3", got[1].GroupID)

	s.SetExpanded("g2", false)
	assert.False(t, s.Expanded("g2"))
	assert.Len(t, s.Groups(groups), 1)
}

func TestStateChatsAndToggles(t *testing.T) {
	s := NewState()
	s.SetFilter("trip")
	assert.Equal(t, []string{"1", "4"}, ids(s.Chats(sample())))

	assert.Equal(t, SortAlpha, s.ToggleMode())
	assert.Equal(t, Desc, s.ToggleDir())
	assert.Equal(t, []string{"4", "1"}, ids(s.Chats(sample())))

	assert.Equal(t, SortNatural, s.ToggleMode())
	assert.Equal(t, Asc, s.ToggleDir())
}

func TestMeta(t *testing.T) {
	s := NewState()
	s.SetFilter("trip")
	groups := []types.Group{{GroupID: "g1", Title: "Trips"}, {GroupID: "g2", Title: "Work"}}

	m := s.Meta(sample(), groups, 3)
	assert.Equal(t, Meta{LoadedChats: 4, LoadedGroups: 2, FilteredChats: 2, FilteredGroups: 1, Selected: 3}, m)
	assert.Equal(t, "Loaded: 6 (Chats 4, Projects 2) • Filtered: 3 • Selected: 3", m.String())
}

func TestParseSort(t *testing.T) {
	m, err := ParseSortMode("ALPHA")
	require.NoError(t, err)
	assert.Equal(t, SortAlpha, m)
	_, err = ParseSortMode("random")
	assert.Error(t, err)

	d, err := ParseSortDir("desc")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	_, err = ParseSortDir("up")
	assert.Error(t, err)
}

func TestTitleMatcher(t *testing.T) {
	m, err := NewTitleMatcher([]string{"trip*", "*recipe*"}, []string{"*photos*"})
	require.NoError(t, err)

	assert.True(t, m.Match("Trip planning"))
	assert.True(t, m.Match("Apple pie RECIPE"))
	assert.False(t, m.Match("Trip photos"))
	assert.False(t, m.Match("budget review"))

	all, err := NewTitleMatcher(nil, []string{"keep*"})
	require.NoError(t, err)
	assert.True(t, all.Match("anything"))
	assert.False(t, all.Match("keep me"))

	_, err = NewTitleMatcher([]string{"[bad"}, nil)
	assert.Error(t, err)
}
