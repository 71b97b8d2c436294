package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#6C63FF")
	colorMuted   = lipgloss.Color("#666666")
	colorSuccess = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F39C12")
	colorError   = lipgloss.Color("#E74C3C")
	colorFg      = lipgloss.Color("#C0CAF5")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	currentStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Bold(true)

	activeBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1B26")).
			Background(colorSuccess).
			Padding(0, 1)

	pausedBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1B26")).
			Background(colorWarning).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)
)
