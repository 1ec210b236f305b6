package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/types"
)

const (
	maxLogLines = 200
	logHeight   = 6
	delayStep   = 250
)

// model is the side panel state.
type model struct {
	ctx  context.Context
	ctrl *orchestrator.Controller

	keys     keyMap
	help     help.Model
	filter   textinput.Model
	spinner  spinner.Model
	logView  viewport.Model
	showHelp bool

	rows   []row
	cursor int
	offset int

	bulkAction types.Action
	busy       bool
	progress   string
	filtering  bool
	confirm    *confirmation
	logs       []string

	width  int
	height int
	ready  bool

	ops *opTracker
}

// opTracker counts background commands so the executor can wait for them.
// Once closed, no new command starts.
type opTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func (t *opTracker) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *opTracker) done() { t.wg.Done() }

// wait refuses new commands and blocks until running ones return.
func (t *opTracker) wait() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

// confirmation is a destructive command waiting for y.
type confirmation struct {
	prompt string
	cmd    tea.Cmd
}

// runEventMsg wraps a session event delivered from the controller.
type runEventMsg struct{ event types.Event }

// opDoneMsg reports the end of a background command.
type opDoneMsg struct {
	op  string
	err error
}

func newModel(ctx context.Context, ctrl *orchestrator.Controller, action types.Action) *model {
	fi := textinput.New()
	fi.Placeholder = "filter titles (substring or glob)"
	fi.Prompt = "/ "
	fi.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(salmonPink)

	if !action.Bulk() {
		action = types.ActionArchive
	}

	m := &model{
		ctx:        ctx,
		ctrl:       ctrl,
		keys:       defaultKeyMap(),
		help:       help.New(),
		filter:     fi,
		spinner:    sp,
		logView:    viewport.New(80, logHeight),
		bulkAction: action,
		width:      80,
		height:     24,
		ops:        &opTracker{},
	}
	m.rebuild()
	return m
}

func (m *model) rebuild() {
	m.rows = buildRows(m.ctrl)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.rows) > 0 && !m.rows[m.cursor].selectable() {
		m.moveCursor(1)
	}
}

// moveCursor steps to the next selectable row in dir, staying put if none.
func (m *model) moveCursor(dir int) {
	for i := m.cursor + dir; i >= 0 && i < len(m.rows); i += dir {
		if m.rows[i].selectable() {
			m.cursor = i
			m.scrollToCursor()
			return
		}
	}
	if dir > 0 && !m.current().selectable() {
		m.moveCursor(-1)
	}
}

func (m *model) current() row {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{kind: rowNote}
	}
	return m.rows[m.cursor]
}

func (m *model) listHeight() int {
	// header, meta, status, log box, help line
	h := m.height - 3 - (logHeight + 1) - 1
	if m.filtering {
		h -= 3
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *model) appendLog(level types.LogLevel, msg string) {
	line := msg
	switch level {
	case types.LogError:
		line = errorStyle.Render(msg)
	case types.LogWarn:
		line = warnStyle.Render(msg)
	}
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.logView.SetContent(strings.Join(m.logs, "\n"))
	m.logView.GotoBottom()
}
