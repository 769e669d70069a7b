package attendance

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jpcc/flock/internal/models"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}
	if m.Err != nil {
		return m.renderError()
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	var s strings.Builder
	s.WriteString(panelTitleStyle.Render("Attendance " + m.Date))
	s.WriteString("\n")
	if m.Searching || m.Search.Value() != "" {
		s.WriteString(m.Search.View())
	} else {
		s.WriteString(subtleStyle.Render("/ to search"))
	}
	s.WriteString("\n")

	rows := m.visible()
	inner := m.Width - 4 // border and padding
	var list []string
	if len(rows) == 0 {
		list = append(list, subtleStyle.Render("No members"))
	}
	end := min(m.Offset+m.listHeight(), len(rows))
	for i := m.Offset; i < end; i++ {
		e := rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = cursorStyle.Render("> ")
		}
		group := subtleStyle.Render(e.AgeGroup)
		nameWidth := inner - 2 - 4 - lipgloss.Width(group) - 1
		line := cursor + statusBadge(m.Marks[e.ID]) + " " + padRight(ansi.Truncate(e.FullName, nameWidth, "…"), nameWidth) + " " + group
		if i == m.Cursor {
			line = selectedStyle.Render(line)
		}
		list = append(list, line)
	}
	s.WriteString(panelStyle.Width(m.Width - 2).Render(strings.Join(list, "\n")))
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m Model) renderCounts() string {
	present, absent, unmarked := m.Counts()
	return fmt.Sprintf("%s  %s  %s",
		statusStyles[models.StatusPresent].Render(fmt.Sprintf("%d present", present)),
		statusStyles[models.StatusAbsent].Render(fmt.Sprintf("%d absent", absent)),
		subtleStyle.Render(fmt.Sprintf("%d unmarked", unmarked)),
	)
}

func (m Model) renderFooter() string {
	line := m.renderCounts()
	if m.Message != "" {
		line += "  " + subtleStyle.Render(m.Message)
	}
	return line + "\n" + helpStyle.Render("p:present a:absent /:search j/k:move r:refresh ?:help q:quit")
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	return fmt.Sprintf("attendance %s (resize for full view)\n\n%s\n\nq:quit", m.Date, m.renderCounts())
}

func (m Model) renderError() string {
	return errorStyle.Render("Error: "+m.Err.Error()) + "\n\n" + helpStyle.Render("r:retry q:quit")
}

func (m Model) renderHelp() string {
	help := `Attendance keys

  p         mark present and move down
  a         mark absent and move down
  /         search by name (enter keeps the filter, esc clears it)
  j / down  next member
  k / up    previous member
  g / G     first / last member
  r         reload roster and marks
  ?         toggle this help
  q         quit`
	return panelStyle.Render(help)
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
