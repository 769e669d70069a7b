package attendance

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

const queryTimeout = 10 * time.Second

// FetchData loads the active roster and the marks already recorded for date
func FetchData(st Store, date string) RefreshDataMsg {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	msg := RefreshDataMsg{Timestamp: time.Now()}

	roster, err := st.ListRoster(ctx, store.MemberFilter{MemberStatus: models.MemberActive})
	if err != nil {
		msg.Err = err
		return msg
	}
	records, err := st.AttendanceByDate(ctx, date)
	if err != nil {
		msg.Err = err
		return msg
	}

	msg.Roster = roster
	msg.Marks = make(map[int64]models.AttendanceStatus, len(records))
	for _, r := range records {
		msg.Marks[r.MemberID] = r.Status
	}
	return msg
}

// fetchData returns a command that refreshes the screen
func (m Model) fetchData() tea.Cmd {
	st, date := m.Store, m.Date
	return func() tea.Msg {
		return FetchData(st, date)
	}
}

// saveMark returns a command that stores one mark
func (m Model) saveMark(entry models.RosterEntry, status models.AttendanceStatus) tea.Cmd {
	st, date := m.Store, m.Date
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		_, err := st.SetAttendance(ctx, entry.ID, date, status)
		return MarkedMsg{MemberID: entry.ID, Name: entry.FullName, Status: status, Err: err}
	}
}
