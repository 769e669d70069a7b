package attendance

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jpcc/flock/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	subtleStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	cursorStyle   = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)

	// Status badges
	statusStyles = map[models.AttendanceStatus]lipgloss.Style{
		models.StatusPresent: lipgloss.NewStyle().Foreground(successColor).Bold(true),
		models.StatusAbsent:  lipgloss.NewStyle().Foreground(errorColor),
	}
)

// statusBadge returns a fixed-width badge for a mark
func statusBadge(s models.AttendanceStatus) string {
	switch s {
	case models.StatusPresent:
		return statusStyles[s].Render("[P]")
	case models.StatusAbsent:
		return statusStyles[s].Render("[A]")
	default:
		return subtleStyle.Render("[ ]")
	}
}
