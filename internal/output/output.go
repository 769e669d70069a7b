// Package output provides styled terminal output helpers (messages, member
// and attendance tables, member cards) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/jpcc/flock/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	statusStyles = map[models.AttendanceStatus]lipgloss.Style{
		models.StatusPresent: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatusAbsent:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// maxCell caps free-text columns in tables
const maxCell = 28

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON writes v as indented JSON to w
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// FormatStatus formats an attendance status with color
func FormatStatus(s models.AttendanceStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// Truncate shortens s to width display cells, ANSI-aware.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(subtleStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// MembersTable renders members as a bordered table.
func MembersTable(members []*models.Member) string {
	t := newTable("ID", "Name", "Age Group", "Gender", "Contact", "Attended", "Status")
	for _, m := range members {
		t.Row(
			fmt.Sprint(m.ID),
			Truncate(m.FullName(), maxCell),
			m.AgeGroup,
			m.Gender,
			m.ContactNumber,
			m.DateAttended,
			m.MemberStatus,
		)
	}
	return t.String()
}

// AttendanceTable renders one day's marks.
func AttendanceTable(records []models.AttendanceRecord) string {
	t := newTable("ID", "Name", "Age Group", "Status")
	for _, r := range records {
		t.Row(fmt.Sprint(r.MemberID), Truncate(r.FullName, maxCell), r.AgeGroup, FormatStatus(r.Status))
	}
	return t.String()
}

// UsersTable renders staff accounts.
func UsersTable(users []*models.User) string {
	t := newTable("ID", "Email", "Role", "Created")
	for _, u := range users {
		t.Row(u.ID, u.Email, string(u.Role), FormatTimeAgo(u.CreatedAt))
	}
	return t.String()
}

// FormatSummary renders "12 present, 3 absent of 15".
func FormatSummary(s models.AttendanceSummary) string {
	return fmt.Sprintf("%s  %s  %s",
		statusStyles[models.StatusPresent].Render(humanize.Comma(int64(s.PresentCount))+" present"),
		statusStyles[models.StatusAbsent].Render(humanize.Comma(int64(s.AbsentCount))+" absent"),
		subtleStyle.Render("of "+humanize.Comma(int64(s.TotalCount))),
	)
}

// FormatMemberLong formats a member record as a detail card.
func FormatMemberLong(m *models.Member) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", m.ID, m.FullName())))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Status: %s | Age group: %s\n", m.MemberStatus, valueOr(m.AgeGroup, "-"))

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&sb, "%s %s\n", subtleStyle.Render(label+":"), value)
	}
	field("Born", m.DateOfBirth)
	field("Gender", m.Gender)
	field("Marital status", m.MaritalStatus)
	field("Contact", m.ContactNumber)
	field("Address", m.Address)
	field("First attended", m.DateAttended)
	field("Invited by", m.InvitedBy)
	if m.PrevChurchAttendee {
		field("Previous church", valueOr(m.PrevChurch, "yes"))
	}
	if m.AttendingCellGroup {
		field("Cell leader", valueOr(m.CellLeaderName, "yes"))
	}
	field("Ministries", strings.Join(m.ChurchMinistry, ", "))
	field("Consolidation", m.Consolidation)
	field("Reason", m.Reason)
	field("Water baptized", yesNo(m.WaterBaptized))
	field("Willing to train", yesNo(m.WillingTraining))

	if len(m.Trainings) > 0 {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader("Spiritual trainings"))
		sb.WriteString("\n")
		for _, tr := range m.Trainings {
			line := "  • " + tr.TrainingType
			if tr.Year != nil {
				line += fmt.Sprintf(" (%d)", *tr.Year)
			}
			sb.WriteString(line + "\n")
		}
	}
	if len(m.Households) > 0 {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader("Household"))
		sb.WriteString("\n")
		for _, h := range m.Households {
			line := "  • " + h.Name
			if h.Relationship != "" {
				line += " - " + h.Relationship
			}
			if h.DateOfBirth != "" {
				line += " " + subtleStyle.Render(h.DateOfBirth)
			}
			sb.WriteString(line + "\n")
		}
	}

	if !m.UpdatedAt.IsZero() {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Updated " + FormatTimeAgo(m.UpdatedAt)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTimeAgo formats a time relative to now ("3 days ago").
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// SectionHeader returns a styled section header
func SectionHeader(title string) string {
	return titleStyle.Render(title)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
