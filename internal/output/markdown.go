package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/jpcc/flock/internal/models"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// IsTerminal reports whether stdout is a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the current terminal width or a fallback when unavailable.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultMarkdownWidth
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return fallback
}

// RenderMarkdown renders markdown with Glamour, wrapped to width (the
// terminal width when width <= 0).
func RenderMarkdown(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if width <= 0 {
		width = TerminalWidth(defaultMarkdownWidth)
	}
	width = max(width, minMarkdownWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// SummaryReport is the input to the attendance summary document.
type SummaryReport struct {
	From, To string
	Totals   []models.MemberAttendance
}

// SummaryMarkdown builds the attendance summary as a markdown document:
// overall counts, a per-age-group table, then per-member rates.
func SummaryMarkdown(r SummaryReport) string {
	var sb strings.Builder

	period := "all dates"
	switch {
	case r.From != "" && r.To != "":
		period = r.From + " to " + r.To
	case r.From != "":
		period = "since " + r.From
	case r.To != "":
		period = "until " + r.To
	}
	fmt.Fprintf(&sb, "# Attendance summary\n\n_%s_\n\n", period)

	if len(r.Totals) == 0 {
		sb.WriteString("No attendance recorded.\n")
		return sb.String()
	}

	type group struct{ present, absent, members int }
	groups := map[string]*group{}
	var order []string
	var present, absent int
	for _, t := range r.Totals {
		name := valueOr(t.AgeGroup, "Unassigned")
		g, ok := groups[name]
		if !ok {
			g = &group{}
			groups[name] = g
			order = append(order, name)
		}
		g.present += t.Present
		g.absent += t.Absent
		g.members++
		present += t.Present
		absent += t.Absent
	}

	fmt.Fprintf(&sb, "- **Members:** %s\n", humanize.Comma(int64(len(r.Totals))))
	fmt.Fprintf(&sb, "- **Present marks:** %s\n", humanize.Comma(int64(present)))
	fmt.Fprintf(&sb, "- **Absent marks:** %s\n", humanize.Comma(int64(absent)))
	fmt.Fprintf(&sb, "- **Attendance rate:** %s\n\n", percent(present, absent))

	sb.WriteString("## By age group\n\n| Age group | Members | Present | Absent | Rate |\n|---|---:|---:|---:|---:|\n")
	for _, name := range order {
		g := groups[name]
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %s |\n", name, g.members, g.present, g.absent, percent(g.present, g.absent))
	}

	sb.WriteString("\n## By member\n\n| Name | Age group | Present | Absent | Rate |\n|---|---|---:|---:|---:|\n")
	for _, t := range r.Totals {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s |\n",
			escapeCell(t.FullName), valueOr(t.AgeGroup, "-"), t.Present, t.Absent, percent(t.Present, t.Absent))
	}
	return sb.String()
}

func percent(present, absent int) string {
	total := present + absent
	if total == 0 {
		return "-"
	}
	return humanize.FtoaWithDigits(100*float64(present)/float64(total), 1) + "%"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
