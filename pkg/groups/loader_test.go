package groups

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/types"
)

const gid = "g-p-0123456789abcdef0123456789abcdef"

type fakeFetcher struct {
	pages   map[string]types.GroupPage
	errs    map[string]error
	cursors []string
	hook    func(cursor string)
}

func (f *fakeFetcher) FetchGroupPage(_ context.Context, groupID, cursor string) (types.GroupPage, error) {
	f.cursors = append(f.cursors, cursor)
	if f.hook != nil {
		f.hook(cursor)
	}
	if err := f.errs[cursor]; err != nil {
		return types.GroupPage{}, err
	}
	return f.pages[cursor], nil
}

func threePages() *fakeFetcher {
	ts := time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC)
	return &fakeFetcher{
		pages: map[string]types.GroupPage{
			"0":  {Items: []types.Item{{ID: "p1", Title: "one", UpdatedAt: ts}, {ID: "p2"}}, NextCursor: "c2"},
			"c2": {Items: []types.Item{{ID: "p3", Title: "three"}, {ID: ""}}, NextCursor: "c3"},
			"c3": {Items: []types.Item{{ID: "p4"}}},
		},
		errs: map[string]error{},
	}
}

type recorder struct {
	events []types.Event
}

func (r *recorder) Emit(e types.Event) { r.events = append(r.events, e) }

func (r *recorder) count(t types.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestLoader(f PageFetcher) (*Loader, *runstate.State, *selection.Model, *recorder) {
	state := runstate.New(nil)
	sel := selection.NewModel()
	rec := &recorder{}
	l := NewLoader(f, state, sel, WithEmitter(rec), WithLocation(time.UTC), WithBaseURL("https://chatgpt.com/"))
	return l, state, sel, rec
}

func TestLoadAllPages(t *testing.T) {
	f := threePages()
	l, state, sel, rec := newTestLoader(f)
	sel.Group(gid).Add("stale")

	res, err := l.Load(context.Background(), gid)
	require.NoError(t, err)

	assert.Equal(t, Result{GroupID: gid, Items: 4, Pages: 3}, res)
	assert.Equal(t, []string{"0", "c2", "c3"}, f.cursors)
	assert.False(t, state.Running())
	assert.Equal(t, 0, sel.Group(gid).Len(), "loading resets the project's selection")

	c, ok := l.Cache(gid)
	require.True(t, ok)
	assert.False(t, c.Loading)
	assert.Empty(t, c.Cursor)
	assert.False(t, c.LoadedAt.IsZero())
	require.Len(t, c.Items, 4)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, selection.IDsOf(c.Items))

	first := c.Items[0]
	assert.Equal(t, "https://chatgpt.com/c/p1", first.URL)
	assert.Equal(t, "2025-03-04 05:06", first.UpdatedLabel)
	assert.Equal(t, gid, first.GroupID)
	assert.Equal(t, 3, c.Items[3].Order)
	assert.Empty(t, c.Items[1].UpdatedLabel)

	assert.Equal(t, 3, rec.count(types.EventTypeGroupProgress))
	assert.Equal(t, 1, rec.count(types.EventTypeGroupLoaded))
}

func TestLoadKeepsPartialResultsOnError(t *testing.T) {
	f := threePages()
	f.errs["c2"] = types.NewRemoteError("list group", 502, "bad gateway")
	l, state, _, _ := newTestLoader(f)

	res, err := l.Load(context.Background(), gid)
	require.Error(t, err)
	assert.True(t, types.IsRemoteRejected(err))
	assert.Equal(t, 2, res.Items)

	c, _ := l.Cache(gid)
	assert.False(t, c.Loading)
	assert.False(t, c.LoadedAt.IsZero())
	assert.Equal(t, "c2", c.Cursor)
	assert.Len(t, c.Items, 2)
	assert.Error(t, c.Err)
	assert.False(t, state.Running())
}

func TestLoadStopsBetweenPages(t *testing.T) {
	f := threePages()
	l, state, _, _ := newTestLoader(f)
	f.hook = func(cursor string) {
		if cursor == "0" {
			state.Stop()
		}
	}

	res, err := l.Load(context.Background(), gid)
	require.NoError(t, err, "stopping early is not an error")
	assert.True(t, res.Stopped)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{"0"}, f.cursors)

	c, _ := l.Cache(gid)
	assert.True(t, c.Stopped)
	assert.Equal(t, "c2", c.Cursor)
	assert.Len(t, c.Items, 2)
}

func TestLoadRefusesReentry(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	f := threePages()
	f.hook = func(cursor string) {
		if cursor == "0" {
			close(entered)
			<-unblock
		}
	}
	l, _, _, _ := newTestLoader(f)

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), gid)
		done <- err
	}()

	<-entered
	assert.True(t, l.Loading(gid))
	_, err := l.Load(context.Background(), gid)
	assert.ErrorIs(t, err, types.ErrAlreadyLoading)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, l.Loading(gid))
}

func TestLoadRefusesWhileBusy(t *testing.T) {
	l, state, _, _ := newTestLoader(threePages())
	_, release, err := state.Acquire(context.Background(), "bulk")
	require.NoError(t, err)
	defer release()

	_, err = l.Load(context.Background(), gid)
	assert.ErrorIs(t, err, types.ErrBusy)
	_, ok := l.Cache(gid)
	assert.False(t, ok)
}

func TestLoadRepeatedCursorEndsListing(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]types.GroupPage{"0": {Items: []types.Item{{ID: "a"}}, NextCursor: "0"}},
	}
	l, _, _, _ := newTestLoader(f)

	res, err := l.Load(context.Background(), gid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
}

func TestFindAndGroupIDs(t *testing.T) {
	l, _, _, _ := newTestLoader(threePages())
	_, err := l.Load(context.Background(), gid)
	require.NoError(t, err)

	it, ok := l.Find("p3")
	require.True(t, ok)
	assert.Equal(t, "three", it.Title)

	_, ok = l.Find("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{gid}, l.GroupIDs())
}

func TestLoadEmptyGroupID(t *testing.T) {
	l, _, _, _ := newTestLoader(threePages())
	_, err := l.Load(context.Background(), "")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrBusy))
}
