package ui

import (
	"github.com/charmbracelet/lipgloss"

	"safeclaw/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// RenderState colors a session state for terminal output.
func RenderState(s session.State) string {
	if s == session.StateRunning {
		return runningStyle.Render(string(s))
	}
	return stoppedStyle.Render(string(s))
}
