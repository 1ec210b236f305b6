package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/types"
)

type call struct {
	id     string
	action types.Action
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
	hook  func(ctx context.Context, id string)
}

func (f *fakeExecutor) Mutate(ctx context.Context, id string, action types.Action) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{id, action})
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(ctx, id)
	}
	return f.fail[id]
}

func (f *fakeExecutor) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.id
	}
	return out
}

type fakeReloader struct {
	count int
	err   error
}

func (f *fakeReloader) Reload(context.Context) error {
	f.count++
	return f.err
}

type harness struct {
	exec     *fakeExecutor
	ledger   *ledger.Ledger
	state    *runstate.State
	reloader *fakeReloader
	waits    []time.Duration
	events   []types.Event
	runner   *Runner
}

func newHarness() *harness {
	h := &harness{
		exec:     &fakeExecutor{fail: map[string]error{}},
		ledger:   ledger.New(),
		state:    runstate.New(nil),
		reloader: &fakeReloader{},
	}
	h.runner = New(h.exec, h.ledger, h.state,
		WithReloader(h.reloader),
		WithEmitter(types.EmitterFunc(func(e types.Event) { h.events = append(h.events, e) })),
		WithWait(func(_ context.Context, d time.Duration) error {
			h.waits = append(h.waits, d)
			return nil
		}),
	)
	return h
}

func items(ids ...string) []types.Item {
	out := make([]types.Item, len(ids))
	for i, id := range ids {
		out[i] = types.Item{ID: id, Title: "chat " + id, Order: i}
	}
	return out
}

func TestRunBulkExampleWithFailure(t *testing.T) {
	h := newHarness()
	h.exec.fail["c2"] = types.NewRemoteError("archive", 500, "boom")

	summary, err := h.runner.RunBulk(context.Background(), BulkRequest{
		Items:  items("c1", "c2", "c3"),
		Action: types.ActionArchive,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Stopped)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "c2", summary.Failures[0].ItemID)
	assert.Contains(t, summary.Failures[0].Error, "HTTP 500")

	assert.Equal(t, ledger.Archived, h.ledger.State("c1"))
	assert.Equal(t, ledger.Normal, h.ledger.State("c2"))
	assert.Equal(t, ledger.Archived, h.ledger.State("c3"))

	assert.Equal(t, []string{"c1", "c2", "c3"}, h.exec.ids())
	assert.Len(t, h.waits, 3, "delay follows every remote call, failed or not")
	assert.Equal(t, 1, h.reloader.count)
	assert.False(t, h.state.Running())
}

func TestRunBulkStopAfterSecondItem(t *testing.T) {
	h := newHarness()
	var ctxErrDuringCall error
	h.exec.hook = func(ctx context.Context, id string) {
		if id == "c2" {
			h.state.Stop()
			ctxErrDuringCall = ctx.Err()
		}
	}

	summary, err := h.runner.RunBulk(context.Background(), BulkRequest{
		Items:  items("c1", "c2", "c3", "c4", "c5"),
		Action: types.ActionDelete,
	})
	require.NoError(t, err)

	assert.NoError(t, ctxErrDuringCall, "in-flight call context is not cancelled by stop")
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.Stopped)
	assert.Equal(t, []string{"c1", "c2"}, h.exec.ids())
	assert.Equal(t, ledger.Deleted, h.ledger.State("c2"))
	assert.Equal(t, ledger.Normal, h.ledger.State("c3"))
	assert.Equal(t, 1, h.reloader.count, "reload happens after a stopped run too")
}

func TestRunBulkCountsInvariant(t *testing.T) {
	tests := []struct {
		name   string
		fail   []string
		stopAt string
	}{
		{"all ok", nil, ""},
		{"all fail", []string{"a", "b", "c", "d"}, ""},
		{"mixed", []string{"b", "d"}, ""},
		{"stop early", []string{"a"}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			for _, id := range tt.fail {
				h.exec.fail[id] = errors.New("nope")
			}
			if tt.stopAt != "" {
				h.exec.hook = func(_ context.Context, id string) {
					if id == tt.stopAt {
						h.state.Stop()
					}
				}
			}
			in := items("a", "b", "c", "d")
			s, err := h.runner.RunBulk(context.Background(), BulkRequest{Items: in, Action: types.ActionArchive})
			require.NoError(t, err)

			assert.Equal(t, s.Processed, s.OK+s.Failed)
			assert.LessOrEqual(t, s.Processed, len(in))
			if !s.Stopped {
				assert.Equal(t, len(in), s.Processed)
			}
		})
	}
}

func TestRunBulkRefusesWhileRunning(t *testing.T) {
	h := newHarness()
	_, release, err := h.state.Acquire(context.Background(), "other")
	require.NoError(t, err)
	defer release()

	_, err = h.runner.RunBulk(context.Background(), BulkRequest{Items: items("a"), Action: types.ActionArchive})
	assert.ErrorIs(t, err, types.ErrBusy)
	assert.Empty(t, h.exec.ids())
}

func TestRunBulkSkipsDeletedItems(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Record("b", types.ActionDelete))

	s, err := h.runner.RunBulk(context.Background(), BulkRequest{Items: items("a", "b", "c"), Action: types.ActionArchive})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Processed)
	assert.Equal(t, 2, s.OK)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []string{"a", "c"}, h.exec.ids())
	assert.Len(t, h.waits, 2)
	assert.Equal(t, ledger.Deleted, h.ledger.State("b"))
}

func TestRunBulkRejectsInverseActions(t *testing.T) {
	h := newHarness()
	_, err := h.runner.RunBulk(context.Background(), BulkRequest{Items: items("a"), Action: types.ActionUndelete})
	assert.ErrorIs(t, err, types.ErrNotOffered)
	assert.False(t, h.state.Running())
}

func TestRunBulkEmpty(t *testing.T) {
	h := newHarness()
	s, err := h.runner.RunBulk(context.Background(), BulkRequest{Action: types.ActionArchive})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Processed)
	assert.Equal(t, 0, h.reloader.count)
}

func TestRunBulkCancelledContext(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := h.runner.RunBulk(ctx, BulkRequest{Items: items("a", "b"), Action: types.ActionArchive})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Processed)
	assert.True(t, s.Stopped)
	assert.Equal(t, 0, h.reloader.count, "nothing processed, nothing to reload")
}

func TestRunBulkParentCancelledMidItem(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ctxErrDuringCall error
	h.exec.hook = func(callCtx context.Context, id string) {
		if id == "c2" {
			cancel()
			ctxErrDuringCall = callCtx.Err()
		}
	}

	s, err := h.runner.RunBulk(ctx, BulkRequest{Items: items("c1", "c2", "c3"), Action: types.ActionArchive})
	require.NoError(t, err)

	assert.NoError(t, ctxErrDuringCall, "a started call outlives its parent context")
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 2, s.OK)
	assert.Equal(t, 0, s.Failed)
	assert.Empty(t, s.Failures)
	assert.True(t, s.Stopped)
	assert.Equal(t, ledger.Archived, h.ledger.State("c2"))
	assert.Equal(t, []string{"c1", "c2"}, h.exec.ids())
}

func TestSingleChecksStateUnderLock(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Record("a", types.ActionArchive))

	_, release, err := h.state.Acquire(context.Background(), "bulk archive")
	require.NoError(t, err)

	// Another holder may still change the ledger, so nothing is decided before the lock.
	assert.ErrorIs(t, h.runner.Undo(context.Background(), "a"), types.ErrBusy)
	assert.ErrorIs(t, h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionDelete}), types.ErrBusy)
	h.ledger.Clear("a")
	release()

	assert.ErrorIs(t, h.runner.Undo(context.Background(), "a"), types.ErrNotUndoable)
	require.NoError(t, h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionDelete}))
	assert.Equal(t, ledger.Deleted, h.ledger.State("a"))
	assert.Equal(t, []string{"a"}, h.exec.ids())
}

func TestSingleCallOutlivesCancelledParent(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ctxErrDuringCall error
	h.exec.hook = func(callCtx context.Context, _ string) {
		cancel()
		ctxErrDuringCall = callCtx.Err()
	}

	require.NoError(t, h.runner.RunSingle(ctx, SingleRequest{ItemID: "a", Action: types.ActionArchive}))
	assert.NoError(t, ctxErrDuringCall)
	assert.Equal(t, ledger.Archived, h.ledger.State("a"))
}

func TestRunBulkDelayFloor(t *testing.T) {
	h := newHarness()
	_, err := h.runner.RunBulk(context.Background(), BulkRequest{
		Items:  items("a"),
		Action: types.ActionArchive,
		Delay:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{MinDelay}, h.waits)
}

func TestRunBulkReloadFailureIsLogged(t *testing.T) {
	h := newHarness()
	h.reloader.err = errors.New("tab gone")

	_, err := h.runner.RunBulk(context.Background(), BulkRequest{Items: items("a"), Action: types.ActionArchive})
	require.NoError(t, err)

	var found bool
	for _, e := range h.events {
		if e.Type == types.EventTypeLog && e.Level == types.LogWarn {
			found = true
			assert.Contains(t, e.Message, "tab gone")
		}
	}
	assert.True(t, found)
}

func TestRunBulkEvents(t *testing.T) {
	h := newHarness()
	_, err := h.runner.RunBulk(context.Background(), BulkRequest{Items: items("a", "b"), Action: types.ActionArchive})
	require.NoError(t, err)

	var start, progress, end int
	for _, e := range h.events {
		switch e.Type {
		case types.EventTypeRunStart:
			start++
			assert.Equal(t, 2, e.Total)
		case types.EventTypeRunProgress:
			progress++
		case types.EventTypeRunEnd:
			end++
			require.NotNil(t, e.Summary)
			assert.Equal(t, 2, e.Summary.OK)
		}
	}
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, progress)
	assert.Equal(t, 1, end)
}

func TestRunSingle(t *testing.T) {
	t.Run("records and reloads", func(t *testing.T) {
		h := newHarness()
		err := h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionArchive, Reload: true})
		require.NoError(t, err)
		assert.Equal(t, ledger.Archived, h.ledger.State("a"))
		assert.Equal(t, 1, h.reloader.count)
		assert.Equal(t, []time.Duration{DefaultDelay}, h.waits)
		assert.False(t, h.state.Running())
	})

	t.Run("no reload for project rows", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionDelete}))
		assert.Equal(t, 0, h.reloader.count)
	})

	t.Run("deleted is terminal", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.ledger.Record("a", types.ActionDelete))
		err := h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionArchive})
		assert.ErrorIs(t, err, types.ErrTerminal)
		assert.Empty(t, h.exec.ids())
	})

	t.Run("archived offers only undo", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.ledger.Record("a", types.ActionArchive))
		err := h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionDelete})
		assert.ErrorIs(t, err, types.ErrNotOffered)
	})

	t.Run("remote failure leaves ledger untouched", func(t *testing.T) {
		h := newHarness()
		h.exec.fail["a"] = types.NewRemoteError("archive", 401, "unauthorized")
		err := h.runner.RunSingle(context.Background(), SingleRequest{ItemID: "a", Action: types.ActionArchive, Reload: true})
		require.Error(t, err)
		assert.True(t, types.IsRemoteRejected(err))
		assert.Equal(t, ledger.Normal, h.ledger.State("a"))
		assert.Equal(t, 0, h.reloader.count)
		assert.False(t, h.state.Running())
	})
}

func TestUndo(t *testing.T) {
	t.Run("archive is reversed", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.ledger.Record("a", types.ActionArchive))

		require.NoError(t, h.runner.Undo(context.Background(), "a"))
		assert.Equal(t, []call{{"a", types.ActionUnarchive}}, h.exec.calls)
		assert.Equal(t, ledger.Normal, h.ledger.State("a"))
		assert.Equal(t, []types.Action{types.ActionArchive, types.ActionDelete}, h.ledger.Offered("a"))
		assert.Equal(t, 0, h.reloader.count)
	})

	t.Run("delete has no undo", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.ledger.Record("a", types.ActionDelete))

		err := h.runner.Undo(context.Background(), "a")
		assert.ErrorIs(t, err, types.ErrNotUndoable)
		assert.Empty(t, h.exec.calls)
		assert.Equal(t, ledger.Deleted, h.ledger.State("a"))
	})

	t.Run("unmutated has no undo", func(t *testing.T) {
		h := newHarness()
		assert.ErrorIs(t, h.runner.Undo(context.Background(), "a"), types.ErrNotUndoable)
	})

	t.Run("failure keeps the record", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.ledger.Record("a", types.ActionArchive))
		h.exec.fail["a"] = errors.New("offline")

		assert.Error(t, h.runner.Undo(context.Background(), "a"))
		assert.Equal(t, ledger.Archived, h.ledger.State("a"))
	})
}

func TestSetDelay(t *testing.T) {
	h := newHarness()
	assert.Equal(t, DefaultDelay, h.runner.Delay())
	assert.Equal(t, MinDelay, h.runner.SetDelay(time.Millisecond))
	assert.Equal(t, 2*time.Second, h.runner.SetDelay(2*time.Second))
	assert.Equal(t, DefaultDelay, h.runner.SetDelay(0))
}
