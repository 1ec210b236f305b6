// Package tui is the interactive side panel: a filtered tree of projects and
// chats with selection, single and bulk actions, and a live status log.
//
// The package is split by concern:
//   - executor.go: program lifecycle and event forwarding
//   - model.go: panel state
//   - rows.go: tree flattening
//   - update.go: key and message handling
//   - view.go: rendering
//   - keys.go: key bindings
//   - clipboard.go: URL copy
//   - styles.go: palette
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("tui")
	if err != nil {
		debugLog.Warnf("Failed to initialize tui logger, using stderr fallback: %v", err)
	}
}

// Executor runs the side panel over a Controller.
type Executor struct {
	ctrl       *orchestrator.Controller
	bulkAction types.Action
	program    *tea.Program
}

// NewExecutor creates a TUI executor. bulkAction is the initial bulk mode.
func NewExecutor(ctrl *orchestrator.Controller, bulkAction types.Action) *Executor {
	return &Executor{ctrl: ctrl, bulkAction: bulkAction}
}

// Run blocks until the user quits or ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	debugLog.Infof("TUI executor starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(ctx, e.ctrl, e.bulkAction)
	e.program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	events, unsubscribe := e.ctrl.Subscribe(0)
	defer unsubscribe()
	go func() {
		for ev := range events {
			e.program.Send(runEventMsg{event: ev})
		}
	}()

	_, runErr := e.program.Run()

	// A remote call in flight finishes before ctx is cancelled.
	if e.ctrl.Running() {
		debugLog.Infof("waiting for the running operation to stop")
		e.ctrl.Stop()
	}
	m.ops.wait()

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI program: %w", runErr)
	}
	debugLog.Infof("TUI executor stopped")
	return nil
}
