// Package attendance is the terminal attendance screen: a searchable roster
// where each member is marked present or absent for one date.
package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

// Store is the subset of the store the screen reads and writes.
type Store interface {
	ListRoster(ctx context.Context, f store.MemberFilter) ([]models.RosterEntry, error)
	AttendanceByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	SetAttendance(ctx context.Context, memberID int64, date string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
}

// Model is the Bubble Tea model for the attendance screen
type Model struct {
	Store Store
	Date  string

	// Window dimensions
	Width  int
	Height int

	Roster []models.RosterEntry
	Marks  map[int64]models.AttendanceStatus

	// UI state
	Search      textinput.Model
	Searching   bool
	Cursor      int // index into visible()
	Offset      int // first visible row
	ShowHelp    bool
	Message     string
	LastRefresh time.Time
	Err         error
}

// MinWidth is the minimum terminal width for the full view
const MinWidth = 40

// MinHeight is the minimum terminal height for the full view
const MinHeight = 10

// RefreshDataMsg carries a freshly loaded roster and the marks for the date
type RefreshDataMsg struct {
	Roster    []models.RosterEntry
	Marks     map[int64]models.AttendanceStatus
	Err       error
	Timestamp time.Time
}

// MarkedMsg reports the outcome of saving one mark
type MarkedMsg struct {
	MemberID int64
	Name     string
	Status   models.AttendanceStatus
	Err      error
}

// NewModel creates an attendance screen for date (YYYY-MM-DD).
func NewModel(st Store, date string) Model {
	search := textinput.New()
	search.Placeholder = "search name"
	search.Prompt = "/ "
	search.CharLimit = 64

	return Model{
		Store:  st,
		Date:   date,
		Marks:  make(map[int64]models.AttendanceStatus),
		Search: search,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.fetchData()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.clampCursor()
		return m, nil

	case RefreshDataMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Roster = msg.Roster
			m.Marks = msg.Marks
			m.LastRefresh = msg.Timestamp
			m.clampCursor()
		}
		return m, nil

	case MarkedMsg:
		if msg.Err != nil {
			m.Message = "save failed: " + msg.Err.Error()
			return m, m.fetchData()
		}
		m.Message = msg.Name + " marked " + string(msg.Status)
		return m, nil
	}

	return m, nil
}

// handleKey processes key input outside the search box
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.Searching = true
		return m, m.Search.Focus()

	case "esc":
		m.Search.SetValue("")
		m.clampCursor()
		return m, nil

	case "j", "down":
		m.Cursor++
		m.clampCursor()
		return m, nil

	case "k", "up":
		m.Cursor--
		m.clampCursor()
		return m, nil

	case "g", "home":
		m.Cursor = 0
		m.clampCursor()
		return m, nil

	case "G", "end":
		m.Cursor = len(m.visible()) - 1
		m.clampCursor()
		return m, nil

	case "p":
		return m.mark(models.StatusPresent)

	case "a":
		return m.mark(models.StatusAbsent)

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// handleSearchKey feeds keys to the search box until enter or esc
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.Searching = false
		m.Search.Blur()
		return m, nil
	case "esc":
		m.Searching = false
		m.Search.Blur()
		m.Search.SetValue("")
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.Search, cmd = m.Search.Update(msg)
	m.Cursor = 0
	m.clampCursor()
	return m, cmd
}

// mark records status for the member under the cursor. The local mark is
// applied at once; a failed save triggers a reload.
func (m Model) mark(status models.AttendanceStatus) (tea.Model, tea.Cmd) {
	rows := m.visible()
	if len(rows) == 0 {
		return m, nil
	}
	entry := rows[m.Cursor]

	marks := make(map[int64]models.AttendanceStatus, len(m.Marks)+1)
	for k, v := range m.Marks {
		marks[k] = v
	}
	marks[entry.ID] = status
	m.Marks = marks

	if m.Cursor < len(rows)-1 {
		m.Cursor++
		m.clampCursor()
	}
	return m, m.saveMark(entry, status)
}

// visible returns the roster rows matching the search box
func (m Model) visible() []models.RosterEntry {
	q := strings.ToLower(strings.TrimSpace(m.Search.Value()))
	if q == "" {
		return m.Roster
	}
	var out []models.RosterEntry
	for _, e := range m.Roster {
		if strings.Contains(strings.ToLower(e.FullName), q) {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns present, absent and unmarked totals over the whole roster.
func (m Model) Counts() (present, absent, unmarked int) {
	for _, e := range m.Roster {
		switch m.Marks[e.ID] {
		case models.StatusPresent:
			present++
		case models.StatusAbsent:
			absent++
		default:
			unmarked++
		}
	}
	return present, absent, unmarked
}

// listHeight is the number of roster rows that fit on screen
func (m Model) listHeight() int {
	h := m.Height - 7 // header, search, counts, footer
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if h := m.listHeight(); m.Cursor >= m.Offset+h {
		m.Offset = m.Cursor - h + 1
	}
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}
