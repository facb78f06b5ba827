package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tfdigest/tfdigest/pkg/models"
)

var (
	styleHeading   = lipgloss.NewStyle().Bold(true)
	styleCreated   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	styleChanged   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	styleReplaced  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD"))
	styleDestroyed = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	styleMoved     = lipgloss.NewStyle().Foreground(lipgloss.Color("#56B6C2"))
	styleDim       = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

func actionStyle(a models.Action) lipgloss.Style {
	switch a {
	case models.ActionCreated:
		return styleCreated
	case models.ActionChanged:
		return styleChanged
	case models.ActionReplaced:
		return styleReplaced
	case models.ActionDestroyed:
		return styleDestroyed
	case models.ActionMoved:
		return styleMoved
	}
	return styleDim
}

// actionMarker returns the diff-style prefix shown before an address.
func actionMarker(a models.Action) string {
	switch a {
	case models.ActionCreated:
		return "+"
	case models.ActionChanged:
		return "~"
	case models.ActionReplaced:
		return "-/+"
	case models.ActionDestroyed:
		return "-"
	case models.ActionMoved:
		return "->"
	}
	return " "
}
