package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	SelectNone  key.Binding
	Enter       key.Binding
	Filter      key.Binding
	SortMode    key.Binding
	SortDir     key.Binding
	Refresh     key.Binding
	LoadAll     key.Binding
	Archive     key.Binding
	Delete      key.Binding
	Undo        key.Binding
	Bulk        key.Binding
	BulkAction  key.Binding
	DelayUp     key.Binding
	DelayDown   key.Binding
	Yank        key.Binding
	Stop        key.Binding
	Help        key.Binding
	Quit        key.Binding
	Cancel      key.Binding
	Confirm     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select visible")),
		SelectNone: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "select none")),
		Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load/expand project")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		SortMode:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "natural/alpha")),
		SortDir:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "asc/desc")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		LoadAll:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "load all")),
		Archive:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "archive")),
		Delete:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		Undo:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo archive")),
		Bulk:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "run bulk")),
		BulkAction: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "bulk mode")),
		DelayUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "delay")),
		DelayDown:  key.NewBinding(key.WithKeys("-", "_")),
		Yank:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		Stop:       key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "stop")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Cancel:     key.NewBinding(key.WithKeys("esc")),
		Confirm:    key.NewBinding(key.WithKeys("y", "Y")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Filter, k.Bulk, k.BulkAction, k.Stop, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.SelectAll, k.SelectNone, k.Enter},
		{k.Filter, k.SortMode, k.SortDir, k.Refresh, k.LoadAll},
		{k.Archive, k.Delete, k.Undo, k.Bulk, k.BulkAction, k.DelayUp},
		{k.Yank, k.Stop, k.Help, k.Quit},
	}
}
