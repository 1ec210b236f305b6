// Package runner applies archive and delete actions to conversations one at a time.
//
// A Runner holds the process-wide run lock for the duration of a bulk run, a single
// action or an undo. Runs are strictly sequential with a pause after every remote
// call. Stop is honoured between items; a call already in flight always completes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("runner")
	if err != nil {
		debugLog.Warnf("Failed to initialize runner logger, using stderr fallback: %v", err)
	}
}

// Executor performs a single remote mutation.
type Executor interface {
	Mutate(ctx context.Context, itemID string, action types.Action) error
}

// Reloader refreshes the live view after mutations.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Runner is the bulk, single and undo state machine.
type Runner struct {
	exec     Executor
	ledger   *ledger.Ledger
	state    *runstate.State
	reloader Reloader
	emitter  types.Emitter
	wait     WaitFunc
	newID    func() string

	mu    sync.RWMutex
	delay time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithReloader sets the view reloader used after bulk runs and single actions.
func WithReloader(r Reloader) Option {
	return func(rn *Runner) { rn.reloader = r }
}

// WithEmitter sets the event sink.
func WithEmitter(e types.Emitter) Option {
	return func(rn *Runner) {
		if e != nil {
			rn.emitter = e
		}
	}
}

// WithWait replaces the pause function. Tests use it to avoid real sleeps.
func WithWait(w WaitFunc) Option {
	return func(rn *Runner) {
		if w != nil {
			rn.wait = w
		}
	}
}

// WithDelay sets the initial per-item delay.
func WithDelay(d time.Duration) Option {
	return func(rn *Runner) { rn.delay = ClampDelay(d) }
}

// New creates a Runner.
func New(exec Executor, l *ledger.Ledger, state *runstate.State, opts ...Option) *Runner {
	r := &Runner{
		exec:    exec,
		ledger:  l,
		state:   state,
		emitter: types.Discard,
		wait:    Sleep,
		newID:   func() string { return uuid.New().String() },
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Delay returns the configured per-item delay.
func (r *Runner) Delay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delay
}

// SetDelay sets the per-item delay, clamped to the allowed range, and returns the stored value.
func (r *Runner) SetDelay(d time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = ClampDelay(d)
	return r.delay
}

// BulkRequest describes a bulk run.
type BulkRequest struct {
	// Items are processed in order. Callers pass the already-filtered selection.
	Items []types.Item

	// Action is archive or delete.
	Action types.Action

	// Delay overrides the configured delay when positive.
	Delay time.Duration
}

// RunBulk applies req.Action to every item in order.
//
// Per-item failures are counted and logged, never returned. The returned error is
// non-nil only when the run could not start. When at least one item was processed
// the view is reloaded, even after a stop.
func (r *Runner) RunBulk(ctx context.Context, req BulkRequest) (types.RunSummary, error) {
	if !req.Action.Bulk() {
		return types.RunSummary{}, fmt.Errorf("bulk %s: %w", req.Action, types.ErrNotOffered)
	}
	if len(req.Items) == 0 {
		r.logf(types.LogWarn, "No items selected for bulk.")
		return types.RunSummary{Action: req.Action}, nil
	}

	stop, release, err := r.state.Acquire(ctx, "bulk "+req.Action.String())
	if err != nil {
		return types.RunSummary{}, err
	}
	defer release()

	delay := r.Delay()
	if req.Delay > 0 {
		delay = ClampDelay(req.Delay)
	}

	summary := types.RunSummary{
		RunID:     r.newID(),
		Action:    req.Action,
		Total:     len(req.Items),
		StartedAt: time.Now(),
	}
	debugLog.Infof("run %s: %s %d items, delay=%s", summary.RunID, req.Action, len(req.Items), delay)
	r.emitter.Emit(types.Event{Type: types.EventTypeRunStart, Time: summary.StartedAt, Action: req.Action, Total: summary.Total})
	r.logf(types.LogInfo, "Bulk %s for %d chats (delay=%dms)…", strings.ToUpper(req.Action.String()), len(req.Items), delay.Milliseconds())

	for _, item := range req.Items {
		if runstate.Stopped(stop) {
			break
		}
		summary.Processed++

		if r.ledger.State(item.ID) == ledger.Deleted {
			r.fail(&summary, item, types.ErrTerminal)
			continue
		}

		// Neither stop nor a cancelled ctx aborts a call already started.
		if err := r.exec.Mutate(context.WithoutCancel(ctx), item.ID, req.Action); err != nil {
			r.fail(&summary, item, err)
		} else {
			summary.OK++
			if err := r.ledger.Record(item.ID, req.Action); err != nil {
				debugLog.Errorf("run %s: record %s: %v", summary.RunID, item.ID, err)
			}
			r.emitter.Emit(types.Event{Type: types.EventTypeMutated, Time: time.Now(), ItemID: item.ID, Action: req.Action})
			r.emitter.Emit(types.NewRunProgressEvent(req.Action, item.ID, summary.Processed, summary.Total, nil))
		}

		if err := r.wait(stop, delay); err != nil && !runstate.Stopped(stop) {
			debugLog.Warnf("run %s: wait interrupted: %v", summary.RunID, err)
		}
	}

	summary.Stopped = r.state.StopRequested() || ctx.Err() != nil
	summary.FinishedAt = time.Now()

	debugLog.Infof("run %s done: processed=%d ok=%d failed=%d stopped=%v", summary.RunID, summary.Processed, summary.OK, summary.Failed, summary.Stopped)
	r.logf(types.LogInfo, "Bulk done. processed=%d ok=%d failed=%d stopped=%v", summary.Processed, summary.OK, summary.Failed, summary.Stopped)
	r.emitter.Emit(types.NewRunEndEvent(summary))

	if summary.Processed > 0 {
		r.reload(ctx)
	}
	return summary, nil
}

func (r *Runner) fail(summary *types.RunSummary, item types.Item, err error) {
	summary.Failed++
	summary.Failures = append(summary.Failures, types.Failure{ItemID: item.ID, Title: item.Title, Error: err.Error()})
	debugLog.Warnf("run %s: %s %s failed: %v", summary.RunID, summary.Action, item.ID, err)
	r.logf(types.LogError, "%s FAILED for %s: %v", summary.Action, item.ID, err)
	r.emitter.Emit(types.NewRunProgressEvent(summary.Action, item.ID, summary.Processed, summary.Total, err))
}

// SingleRequest describes a one-item action.
type SingleRequest struct {
	ItemID string
	Action types.Action

	// Reload refreshes the live view after a successful call.
	Reload bool
}

// RunSingle applies one action to one item. Only actions offered for the
// item's current state are accepted.
func (r *Runner) RunSingle(ctx context.Context, req SingleRequest) error {
	stop, release, err := r.state.Acquire(ctx, req.Action.String())
	if err != nil {
		return err
	}
	defer release()

	if r.ledger.State(req.ItemID) == ledger.Deleted {
		return fmt.Errorf("%s %s: %w", req.Action, req.ItemID, types.ErrTerminal)
	}
	if !req.Action.Bulk() || !r.ledger.Allows(req.ItemID, req.Action) {
		return fmt.Errorf("%s %s: %w", req.Action, req.ItemID, types.ErrNotOffered)
	}

	r.logf(types.LogInfo, "%s: %s…", strings.ToUpper(req.Action.String()), req.ItemID)
	if err := r.exec.Mutate(context.WithoutCancel(ctx), req.ItemID, req.Action); err != nil {
		r.logf(types.LogError, "%s FAILED: %v", req.Action, err)
		return fmt.Errorf("%s %s: %w", req.Action, req.ItemID, err)
	}

	if err := r.ledger.Record(req.ItemID, req.Action); err != nil {
		return err
	}
	r.emitter.Emit(types.Event{Type: types.EventTypeMutated, Time: time.Now(), ItemID: req.ItemID, Action: req.Action})
	r.logf(types.LogInfo, "%s OK", req.Action)

	_ = r.wait(stop, r.Delay())

	if req.Reload {
		r.reload(ctx)
	}
	return nil
}

// Undo reverses an archive. Items without an archive record are rejected.
// Undo never reloads the view.
func (r *Runner) Undo(ctx context.Context, itemID string) error {
	stop, release, err := r.state.Acquire(ctx, "undo")
	if err != nil {
		return err
	}
	defer release()

	rec, ok := r.ledger.Get(itemID)
	if !ok || rec.Action != types.ActionArchive {
		return fmt.Errorf("undo %s: %w", itemID, types.ErrNotUndoable)
	}

	inverse := rec.Action.Inverse()
	r.logf(types.LogInfo, "UNDO ARCHIVE: %s (archive -> %s)…", itemID, inverse)
	if err := r.exec.Mutate(context.WithoutCancel(ctx), itemID, inverse); err != nil {
		r.logf(types.LogError, "undo FAILED: %v", err)
		return fmt.Errorf("undo %s: %w", itemID, err)
	}

	r.ledger.Clear(itemID)
	r.emitter.Emit(types.Event{Type: types.EventTypeMutated, Time: time.Now(), ItemID: itemID, Action: inverse})
	r.logf(types.LogInfo, "undo OK")

	_ = r.wait(stop, r.Delay())
	return nil
}

func (r *Runner) reload(ctx context.Context) {
	if r.reloader == nil {
		return
	}
	if err := r.reloader.Reload(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		debugLog.Warnf("reload failed: %v", err)
		r.logf(types.LogWarn, "Tab reload failed: %v", err)
	}
}

func (r *Runner) logf(level types.LogLevel, format string, args ...interface{}) {
	r.emitter.Emit(types.NewLogEvent(level, fmt.Sprintf(format, args...)))
}
