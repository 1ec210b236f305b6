package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/view"
)

// View renders the panel.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	parts := []string{m.buildHeader(), m.buildMeta()}
	if m.filtering {
		parts = append(parts, inputBoxStyle.Width(m.width-4).Render(m.filter.View()))
	}
	parts = append(parts,
		m.buildList(),
		m.buildStatus(),
		logBoxStyle.Width(m.width).Render(m.logView.View()),
		m.buildFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) buildHeader() string {
	mode, dir := m.ctrl.View().Sort()
	arrow := "▲"
	if dir == view.Desc {
		arrow = "▼"
	}
	title := headerStyle.Render("chatsweep")
	info := metaStyle.Render(fmt.Sprintf("  bulk=%s  delay=%dms  sort=%s %s",
		m.bulkAction, m.ctrl.Delay().Milliseconds(), mode, arrow))
	return title + info
}

func (m *model) buildMeta() string {
	line := m.ctrl.Meta().String()
	if f := m.ctrl.View().Filter(); !f.Empty() && !m.filtering {
		line += "  filter=" + f.Text()
	}
	if m.ctrl.Ledger().RefreshSuggested() {
		line += warnStyle.Render("  • refresh suggested (r)")
	}
	return metaStyle.Render(line)
}

func (m *model) buildList() string {
	h := m.listHeight()
	end := m.offset + h
	if end > len(m.rows) {
		end = len(m.rows)
	}

	lines := make([]string, 0, h)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderRow(r row, focused bool) string {
	switch r.kind {
	case rowSection:
		return sectionStyle.Render(r.text)
	case rowNote:
		return "    " + noteStyle.Render(r.text)
	}

	pointer := "  "
	if focused {
		pointer = cursorStyle.Render("› ")
	}

	indent := ""
	if r.kind == rowGroupItem {
		indent = "    "
	}

	var box string
	switch r.kind {
	case rowGroup:
		box = checkbox(r.state)
		if m.ctrl.View().Expanded(r.group.GroupID) {
			box += " ▾"
		} else {
			box += " ▸"
		}
	case rowGroupItem:
		box = checked(m.ctrl.Selection().Group(r.group.GroupID).Has(r.item.ID))
	case rowChat:
		box = checked(m.ctrl.Selection().Global().Has(r.item.ID))
	}

	label := r.item.UpdatedLabel
	if label == "" {
		label = r.item.Bucket
	}

	var badge string
	style := rowStyle
	if r.kind != rowGroup {
		switch m.ctrl.Ledger().State(r.item.ID) {
		case ledger.Archived:
			badge = badgeStyle.Render(" archived") + noteStyle.Render(" (u undo)")
			style = archivedStyle
		case ledger.Deleted:
			badge = errorStyle.Render(" deleted")
			style = deletedStyle
		}
	}

	prefix := pointer + indent + box + " "
	room := m.width - runewidth.StringWidth(prefix) - runewidth.StringWidth(label) - lipgloss.Width(badge) - 3
	title := truncate(r.text, room)
	if focused {
		style = style.Bold(true)
	}
	out := prefix + style.Render(title)
	if label != "" {
		out += "  " + dateStyle.Render(label)
	}
	return out + badge
}

func (m *model) buildStatus() string {
	if m.confirm != nil {
		return confirmStyle.Render(m.confirm.prompt)
	}
	if m.busy {
		status := "working"
		if m.progress != "" {
			status = m.progress
		}
		return statusBarStyle.Render(m.spinner.View() + " " + status + "  (S to stop)")
	}
	return statusBarStyle.Render("idle")
}

func (m *model) buildFooter() string {
	return m.help.View(m.keys)
}

func checkbox(s selection.TriState) string {
	switch s {
	case selection.All:
		return "[x]"
	case selection.Partial:
		return "[-]"
	}
	return "[ ]"
}

func checked(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// truncate shortens s to at most width terminal cells.
func truncate(s string, width int) string {
	if width <= 1 {
		return "…"
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
