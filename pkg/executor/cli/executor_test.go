package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/types"
)

const gid = "g-p-0123456789abcdef0123456789abcdef"

type stubEnum struct{}

func (stubEnum) EnumerateFlatItems(context.Context) ([]types.Item, error) {
	return []types.Item{
		{ID: "c1", Title: "Trip planning", Order: 0},
		{ID: "c2", Title: "Budget review", Order: 1},
		{ID: "c3", Title: "Trip photos", Order: 2},
	}, nil
}

func (stubEnum) EnumerateGroups(context.Context) ([]types.Group, error) {
	return []types.Group{{GroupID: gid, RawID: gid + "-recipes", Title: "Recipes"}}, nil
}

func (stubEnum) AdvanceView(context.Context) error                   { return nil }
func (stubEnum) CurrentEnumerableCount(context.Context) (int, error) { return 3, nil }
func (stubEnum) Reload(context.Context) error                        { return nil }

type stubRemote struct {
	mu    sync.Mutex
	calls []string
}

func (r *stubRemote) Mutate(_ context.Context, id string, a types.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, a.String()+":"+id)
	return nil
}

func (r *stubRemote) FetchGroupPage(context.Context, string, string) (types.GroupPage, error) {
	return types.GroupPage{Items: []types.Item{{ID: "p1", Title: "Soup"}, {ID: "p2", Title: "Bread"}}}, nil
}

func (r *stubRemote) HasCredential(context.Context) bool { return true }

func (r *stubRemote) callList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func setup(t *testing.T, input string) (*Executor, *stubRemote, *bytes.Buffer) {
	t.Helper()
	remote := &stubRemote{}
	ctrl := orchestrator.New(stubEnum{}, remote,
		orchestrator.WithWait(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, ctrl.Refresh(context.Background()))

	var out bytes.Buffer
	e := NewExecutor(ctrl, WithWriter(&out), WithReader(strings.NewReader(input)), WithShowLogs(false))
	return e, remote, &out
}

func exec(t *testing.T, e *Executor, line string) {
	t.Helper()
	quit, err := e.Execute(context.Background(), line)
	require.NoError(t, err, line)
	assert.False(t, quit)
}

func TestSelectByNumberAndID(t *testing.T) {
	e, _, out := setup(t, "")

	exec(t, e, "select 1 c3")
	sel := e.ctrl.Selection().Global()
	assert.True(t, sel.Has("c1"))
	assert.True(t, sel.Has("c3"))
	assert.Contains(t, out.String(), "Selected: 2")

	exec(t, e, "deselect c1")
	assert.False(t, sel.Has("c1"))

	_, err := e.Execute(context.Background(), "select 9")
	assert.ErrorContains(t, err, "out of range")
}

func TestFilterAndList(t *testing.T) {
	e, _, out := setup(t, "")

	exec(t, e, "filter trip")
	out.Reset()
	exec(t, e, "list")
	assert.Contains(t, out.String(), "My Chats (2)")
	assert.NotContains(t, out.String(), "Budget review")

	exec(t, e, "filter")
	assert.True(t, e.ctrl.View().Filter().Empty())
}

func TestSort(t *testing.T) {
	e, _, _ := setup(t, "")

	exec(t, e, "sort alpha desc")
	chats := e.ctrl.VisibleChats()
	require.Len(t, chats, 3)
	assert.Equal(t, "c1", chats[0].ID)

	_, err := e.Execute(context.Background(), "sort sideways")
	assert.Error(t, err)
}

func TestBulkArchiveRunsInBackground(t *testing.T) {
	e, remote, _ := setup(t, "")

	exec(t, e, "select 1 2")
	exec(t, e, "run archive")
	e.Wait()

	assert.ElementsMatch(t, []string{"archive:c1", "archive:c2"}, remote.callList())
	assert.Equal(t, ledger.Archived, e.ctrl.Ledger().State("c1"))
}

func TestBulkDeleteConfirmation(t *testing.T) {
	e, remote, out := setup(t, "n\ny\n")

	exec(t, e, "select c2")
	exec(t, e, "run delete")
	e.Wait()
	assert.Empty(t, remote.callList())
	assert.Contains(t, out.String(), "Cancelled.")

	exec(t, e, "run delete")
	e.Wait()
	assert.Equal(t, []string{"delete:c2"}, remote.callList())
}

func TestRunRejectsNonBulkAction(t *testing.T) {
	e, _, _ := setup(t, "")
	_, err := e.Execute(context.Background(), "run unarchive")
	assert.ErrorContains(t, err, "cannot be run in bulk")
}

func TestSingleAndUndo(t *testing.T) {
	e, remote, _ := setup(t, "")

	exec(t, e, "archive 2")
	exec(t, e, "undo c2")
	assert.Equal(t, []string{"archive:c2", "unarchive:c2"}, remote.callList())
	assert.Equal(t, ledger.Normal, e.ctrl.Ledger().State("c2"))
}

func TestProjectFlow(t *testing.T) {
	e, remote, out := setup(t, "")

	_, err := e.Execute(context.Background(), "open 1")
	assert.ErrorContains(t, err, "not loaded")

	exec(t, e, "load "+gid+"-recipes")
	e.Wait()
	cache, ok := e.ctrl.GroupCache(gid)
	require.True(t, ok)
	assert.Len(t, cache.Items, 2)

	out.Reset()
	exec(t, e, "open 1")
	assert.Contains(t, out.String(), "Recipes: 2 chats (visible 2) (selected 0)")

	exec(t, e, "pselect 1 2")
	assert.Equal(t, 1, e.ctrl.Selection().Group(gid).Len())
	exec(t, e, "pselect 1")
	assert.Equal(t, 2, e.ctrl.Selection().Group(gid).Len())

	exec(t, e, "run archive 1")
	e.Wait()
	assert.ElementsMatch(t, []string{"archive:p1", "archive:p2"}, remote.callList())
}

func TestDelay(t *testing.T) {
	e, _, out := setup(t, "")
	exec(t, e, "delay 100")
	assert.Equal(t, 250*time.Millisecond, e.ctrl.Delay())
	assert.Contains(t, out.String(), "Delay: 250ms")

	_, err := e.Execute(context.Background(), "delay soon")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	e, _, _ := setup(t, "")
	_, err := e.Execute(context.Background(), "frobnicate")
	assert.ErrorContains(t, err, "unknown command")

	quit, err := e.Execute(context.Background(), "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestRunScript(t *testing.T) {
	e, remote, out := setup(t, "select 1\nrun archive\nstatus\n")
	e.showLogs = true

	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []string{"archive:c1"}, remote.callList())
	assert.Contains(t, out.String(), "Type 'help' for commands")
	assert.Contains(t, out.String(), "archive done: ok=1 failed=0 processed=1/1")
}

func TestToggleAll(t *testing.T) {
	e, _, out := setup(t, "")

	exec(t, e, "filter trip")
	exec(t, e, "toggle-all")
	sel := e.ctrl.Selection().Global()
	assert.Equal(t, 2, sel.Len())
	assert.False(t, sel.Has("c2"))
	assert.Contains(t, out.String(), "Visible chats: all")

	exec(t, e, "toggle-all")
	assert.Zero(t, sel.Len())
}
