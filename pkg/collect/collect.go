// Package collect drives a lazily-loading view until its item count stops growing.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("collect")
	if err != nil {
		debugLog.Warnf("Failed to initialize collect logger, using stderr fallback: %v", err)
	}
}

const (
	DefaultPause        = 450 * time.Millisecond
	MinPause            = 250 * time.Millisecond
	DefaultMaxRounds    = 120
	DefaultStableRounds = 6

	// NoteMaxRounds is reported when the round budget runs out before the count settles.
	NoteMaxRounds = "reached max rounds"
)

// Viewer is the part of the live view the loop needs.
type Viewer interface {
	AdvanceView(ctx context.Context) error
	CurrentEnumerableCount(ctx context.Context) (int, error)
}

// Options tune the loop. Zero values take the defaults.
type Options struct {
	Pause        time.Duration
	MaxRounds    int
	StableRounds int
}

// WithDefaults fills zero fields and applies the pause floor.
func (o Options) WithDefaults() Options {
	if o.Pause <= 0 {
		o.Pause = DefaultPause
	}
	if o.Pause < MinPause {
		o.Pause = MinPause
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.StableRounds <= 0 {
		o.StableRounds = DefaultStableRounds
	}
	return o
}

// Result describes how the loop ended.
type Result struct {
	Rounds          int
	FinalCount      int
	Stopped         bool
	BudgetExhausted bool
	Note            string
}

// Collector runs the loop under the run lock.
type Collector struct {
	viewer  Viewer
	state   *runstate.State
	emitter types.Emitter
	wait    func(ctx context.Context, d time.Duration) error
}

// Option configures a Collector.
type Option func(*Collector)

// WithWait replaces the pause between rounds.
func WithWait(w func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) {
		if w != nil {
			c.wait = w
		}
	}
}

// New creates a Collector. emitter may be nil.
func New(viewer Viewer, state *runstate.State, emitter types.Emitter, opts ...Option) *Collector {
	if emitter == nil {
		emitter = types.Discard
	}
	c := &Collector{viewer: viewer, state: state, emitter: emitter, wait: sleep}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run advances the view until the count is unchanged for StableRounds
// consecutive samples, MaxRounds is reached, or stop is requested.
func (c *Collector) Run(ctx context.Context, opts Options) (Result, error) {
	opts = opts.WithDefaults()

	stop, release, err := c.state.Acquire(ctx, "load all")
	if err != nil {
		return Result{}, err
	}
	defer release()

	debugLog.Infof("load all: pause=%s maxRounds=%d stableRounds=%d", opts.Pause, opts.MaxRounds, opts.StableRounds)

	var last, stable int
	for round := 0; round < opts.MaxRounds; round++ {
		if runstate.Stopped(stop) {
			debugLog.Infof("load all: stopped after %d rounds", round)
			return Result{Rounds: round, FinalCount: last, Stopped: true}, nil
		}

		count, err := c.viewer.CurrentEnumerableCount(ctx)
		if err != nil {
			return Result{Rounds: round, FinalCount: last}, fmt.Errorf("load all: count: %w", err)
		}

		if count == last {
			stable++
		} else {
			stable = 0
		}
		last = count

		c.emitter.Emit(types.Event{Type: types.EventTypeCollectRound, Time: time.Now(), Done: round + 1, Total: count})

		if stable >= opts.StableRounds {
			debugLog.Infof("load all: settled at %d after %d rounds", count, round+1)
			return Result{Rounds: round + 1, FinalCount: count}, nil
		}

		if err := c.viewer.AdvanceView(ctx); err != nil {
			return Result{Rounds: round, FinalCount: last}, fmt.Errorf("load all: advance: %w", err)
		}
		_ = c.wait(stop, opts.Pause)
	}

	if runstate.Stopped(stop) {
		debugLog.Infof("load all: stopped after %d rounds", opts.MaxRounds)
		return Result{Rounds: opts.MaxRounds, FinalCount: last, Stopped: true}, nil
	}

	final, err := c.viewer.CurrentEnumerableCount(ctx)
	if err != nil {
		final = last
	}
	debugLog.Warnf("load all: %s (%d), count=%d", NoteMaxRounds, opts.MaxRounds, final)
	return Result{
		Rounds:          opts.MaxRounds,
		FinalCount:      final,
		BudgetExhausted: true,
		Note:            NoteMaxRounds,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
