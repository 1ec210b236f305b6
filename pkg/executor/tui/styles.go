package tui

import "github.com/charmbracelet/lipgloss"

// Color palette. Single source of truth for panel colors.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent
	coralPink   = lipgloss.Color("#FFCCCB") // secondary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // success, archived
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	sectionStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	cursorStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	archivedStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Faint(true)

	deletedStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Strikethrough(true).
			Faint(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	warnStyle = lipgloss.NewStyle().
			Foreground(coralPink)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedGray)

	confirmStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)
)
