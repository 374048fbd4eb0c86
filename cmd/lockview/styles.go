package main

import "github.com/charmbracelet/lipgloss"

// Palette mirrors the dark/light adaptive scheme the rest of the
// ecosystem's terminal tools use, trimmed to what a lock-table dump
// actually needs: a title, a couple of state colors, and a muted tone
// for help text.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#8BE9FD"}
	colorGranted = lipgloss.AdaptiveColor{Light: "#1A7A3C", Dark: "#50FA7B"}
	colorWaiting = lipgloss.AdaptiveColor{Light: "#B35900", Dark: "#FFB86C"}
	colorVictim  = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5555"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(colorPrimary).
				Bold(true)

	grantedStyle = lipgloss.NewStyle().Foreground(colorGranted)
	waitingStyle = lipgloss.NewStyle().Foreground(colorWaiting)
	victimStyle  = lipgloss.NewStyle().Foreground(colorVictim).Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(1, 1, 0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1)
)
