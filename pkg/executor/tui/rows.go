package tui

import (
	"fmt"

	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/types"
)

type rowKind int

const (
	rowSection rowKind = iota
	rowNote
	rowGroup
	rowGroupItem
	rowChat
)

// row is one line of the tree.
type row struct {
	kind  rowKind
	text  string
	group types.Group
	item  types.Item
	state selection.TriState
}

func (r row) selectable() bool {
	return r.kind == rowGroup || r.kind == rowGroupItem || r.kind == rowChat
}

// buildRows flattens projects and chats into display order.
func buildRows(ctrl *orchestrator.Controller) []row {
	var rows []row

	grps := ctrl.VisibleGroups()
	rows = append(rows, row{kind: rowSection, text: fmt.Sprintf("Projects (%d)", len(grps))})
	if len(grps) == 0 {
		rows = append(rows, row{kind: rowNote, text: "(no projects matched filter)"})
	}
	for _, g := range grps {
		cache, loaded := ctrl.GroupCache(g.GroupID)
		r := row{kind: rowGroup, group: g, text: g.Title}
		if loaded {
			r.state = ctrl.Selection().Group(g.GroupID).State(selection.IDsOf(cache.Items))
		}
		rows = append(rows, r)

		if !ctrl.View().Expanded(g.GroupID) {
			continue
		}
		switch {
		case !loaded:
			rows = append(rows, row{kind: rowNote, text: "(press enter to load)"})
		case cache.Loading && len(cache.Items) == 0:
			rows = append(rows, row{kind: rowNote, text: "Loading project chats…"})
		default:
			visible := ctrl.VisibleGroupItems(g.GroupID)
			sel := ctrl.Selection().Group(g.GroupID)
			rows = append(rows, row{kind: rowNote, text: fmt.Sprintf("Project chats: %d (visible %d) (selected %d)",
				len(cache.Items), len(visible), sel.Len())})
			if len(visible) == 0 {
				rows = append(rows, row{kind: rowNote, text: "(no conversations matched filter in this project)"})
			}
			for _, it := range visible {
				rows = append(rows, row{kind: rowGroupItem, item: it, group: g, text: it.DisplayTitle()})
			}
		}
	}

	chats := ctrl.VisibleChats()
	rows = append(rows, row{kind: rowSection, text: fmt.Sprintf("My Chats (%d)", len(chats))})
	if len(chats) == 0 {
		rows = append(rows, row{kind: rowNote, text: "(no chats matched filter)"})
	}
	for _, it := range chats {
		rows = append(rows, row{kind: rowChat, item: it, text: it.DisplayTitle()})
	}
	return rows
}
