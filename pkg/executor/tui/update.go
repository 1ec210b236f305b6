package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/chatsweep/pkg/types"
)

// Init loads the working set and starts the spinner.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.do("refresh", m.ctrl.Refresh))
}

// Update handles every message for the panel.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.logView.Width = msg.Width
		m.logView.Height = logHeight
		m.filter.Width = msg.Width - 8
		m.ready = true
		m.scrollToCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runEventMsg:
		m.handleEvent(msg.event)
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			debugLog.Warnf("%s: %v", msg.op, msg.err)
			m.appendLog(types.LogError, fmt.Sprintf("%s: %v", msg.op, msg.err))
		}
		m.rebuild()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleEvent(e types.Event) {
	switch e.Type {
	case types.EventTypeLog:
		m.appendLog(e.Level, e.Message)
		return
	case types.EventTypeBusy:
		m.busy = e.Busy
		if !e.Busy {
			m.progress = ""
		}
	case types.EventTypeRunProgress:
		m.progress = fmt.Sprintf("%s %d/%d", e.Action, e.Done, e.Total)
	case types.EventTypeGroupProgress:
		m.progress = fmt.Sprintf("project chats loaded: %d", e.Done)
	case types.EventTypeCollectRound:
		m.progress = fmt.Sprintf("load all: round %d, %d chats", e.Done, e.Total)
	}
	m.rebuild()
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if key.Matches(msg, m.keys.Confirm) {
			return m, c.cmd
		}
		m.appendLog(types.LogInfo, "Cancelled.")
		return m, nil
	}

	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			m.scrollToCursor()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.ctrl.View().SetFilter(m.filter.Value())
		m.rebuild()
		return m, cmd
	}

	cur := m.current()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.ctrl.Running() {
			m.ctrl.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Toggle):
		m.toggle(cur)
	case key.Matches(msg, m.keys.SelectAll):
		n := m.ctrl.SelectAllVisible()
		m.appendLog(types.LogInfo, fmt.Sprintf("Selected %d visible chats.", n))
	case key.Matches(msg, m.keys.SelectNone):
		m.ctrl.SelectNone()

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.SetValue(m.ctrl.View().Filter().Text())
		m.filter.CursorEnd()
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Cancel):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.ctrl.View().SetFilter("")
		}
	case key.Matches(msg, m.keys.SortMode):
		m.ctrl.View().ToggleMode()
	case key.Matches(msg, m.keys.SortDir):
		m.ctrl.View().ToggleDir()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.do("refresh", m.ctrl.Refresh)
	case key.Matches(msg, m.keys.LoadAll):
		return m, m.do("load all", func(ctx context.Context) error {
			_, err := m.ctrl.LoadAll(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Enter):
		return m, m.enter(cur)

	case key.Matches(msg, m.keys.Archive):
		if cur.kind == rowChat || cur.kind == rowGroupItem {
			return m, m.single(cur.item.ID, types.ActionArchive)
		}
	case key.Matches(msg, m.keys.Delete):
		if cur.kind == rowChat || cur.kind == rowGroupItem {
			m.confirm = &confirmation{
				prompt: fmt.Sprintf("Delete %q? This cannot be undone. (y/N)", cur.item.DisplayTitle()),
				cmd:    m.single(cur.item.ID, types.ActionDelete),
			}
		}
	case key.Matches(msg, m.keys.Undo):
		if cur.kind == rowChat || cur.kind == rowGroupItem {
			id := cur.item.ID
			return m, m.do("undo", func(ctx context.Context) error { return m.ctrl.Undo(ctx, id) })
		}

	case key.Matches(msg, m.keys.Bulk):
		return m, m.bulk(cur)
	case key.Matches(msg, m.keys.BulkAction):
		if m.bulkAction == types.ActionArchive {
			m.bulkAction = types.ActionDelete
		} else {
			m.bulkAction = types.ActionArchive
		}
	case key.Matches(msg, m.keys.DelayUp):
		d := m.ctrl.SetDelay(m.ctrl.Delay() + delayStep*time.Millisecond)
		m.appendLog(types.LogInfo, fmt.Sprintf("Delay: %dms", d.Milliseconds()))
	case key.Matches(msg, m.keys.DelayDown):
		d := m.ctrl.SetDelay(m.ctrl.Delay() - delayStep*time.Millisecond)
		m.appendLog(types.LogInfo, fmt.Sprintf("Delay: %dms", d.Milliseconds()))

	case key.Matches(msg, m.keys.Yank):
		if cur.kind == rowChat || cur.kind == rowGroupItem {
			m.yank(cur.item)
		} else if cur.kind == rowGroup {
			m.yank(types.Item{Title: cur.group.Title, URL: cur.group.URL})
		}
	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}

	m.rebuild()
	return m, nil
}

func (m *model) toggle(cur row) {
	switch cur.kind {
	case rowChat:
		m.ctrl.Selection().Global().Toggle(cur.item.ID)
	case rowGroupItem:
		m.ctrl.Selection().Group(cur.group.GroupID).Toggle(cur.item.ID)
	case rowGroup:
		if _, loaded := m.ctrl.GroupCache(cur.group.GroupID); !loaded {
			m.appendLog(types.LogWarn, "Load the project first (enter).")
			return
		}
		m.ctrl.ToggleGroupAll(cur.group.GroupID)
	}
}

func (m *model) enter(cur row) tea.Cmd {
	if cur.kind != rowGroup {
		return nil
	}
	gid := cur.group.GroupID
	if cache, loaded := m.ctrl.GroupCache(gid); loaded && !cache.Loading {
		m.ctrl.ToggleExpanded(gid)
		m.rebuild()
		return nil
	}
	return m.do("load project", func(ctx context.Context) error {
		_, err := m.ctrl.LoadGroup(ctx, gid)
		return err
	})
}

func (m *model) single(id string, action types.Action) tea.Cmd {
	return m.do(action.String(), func(ctx context.Context) error {
		return m.ctrl.RunSingle(ctx, id, action)
	})
}

func (m *model) bulk(cur row) tea.Cmd {
	action := m.bulkAction
	var run func(ctx context.Context) error
	var count int
	if cur.kind == rowGroup || cur.kind == rowGroupItem {
		gid := cur.group.GroupID
		cache, _ := m.ctrl.GroupCache(gid)
		count = len(m.ctrl.Selection().Group(gid).Pick(cache.Items))
		run = func(ctx context.Context) error {
			_, err := m.ctrl.RunBulkGroup(ctx, gid, action)
			return err
		}
	} else {
		count = len(m.ctrl.SelectedVisible())
		run = func(ctx context.Context) error {
			_, err := m.ctrl.RunBulkSelected(ctx, action)
			return err
		}
	}

	cmd := m.do("bulk "+action.String(), run)
	if action == types.ActionDelete && count > 0 {
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete %d conversations? This cannot be undone. (y/N)", count),
			cmd:    cmd,
		}
		return nil
	}
	return cmd
}

func (m *model) yank(it types.Item) {
	if it.URL == "" {
		return
	}
	if err := copyText(it.URL); err != nil {
		m.appendLog(types.LogError, "copy failed: "+err.Error())
		return
	}
	m.appendLog(types.LogInfo, "Copied "+it.URL)
}

// do runs fn off the UI goroutine and reports completion.
func (m *model) do(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx, ops := m.ctx, m.ops
	return func() tea.Msg {
		if !ops.start() {
			return opDoneMsg{op: op, err: context.Canceled}
		}
		defer ops.done()
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}
