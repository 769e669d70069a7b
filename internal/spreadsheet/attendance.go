package spreadsheet

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jpcc/flock/internal/models"
)

var (
	attendanceHeaders = []string{"Name", "Age Group", "Date", "Status"}
	attendanceWidths  = []float64{30, 22, 14, 12}
)

// AttendanceReport is the data behind the attendance workbook.
type AttendanceReport struct {
	Records []models.AttendanceRecord
	Totals  []models.MemberAttendance
}

// statusLabel capitalizes a stored status for display.
func statusLabel(s models.AttendanceStatus) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// AttendanceWorkbook builds the "Attendance" detail sheet and the per-member
// "Summary" sheet with an overall row. The caller closes the file.
func AttendanceWorkbook(r AttendanceReport) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}

	st, err := newStyles(f)
	if err != nil {
		return fail(err)
	}

	detail, err := newSheet(f, st, "Attendance", attendanceHeaders, attendanceWidths)
	if err != nil {
		return fail(err)
	}
	for _, rec := range r.Records {
		if err := detail.append([]any{rec.FullName, rec.AgeGroup, rec.Date, statusLabel(rec.Status)}, st.cell); err != nil {
			return fail(err)
		}
	}

	summary, err := newSheet(f, st, "Summary",
		[]string{"Name", "Age Group", "Present", "Absent", "Rate"},
		[]float64{30, 22, 12, 12, 12})
	if err != nil {
		return fail(err)
	}
	var overall models.MemberAttendance
	for _, t := range r.Totals {
		if err := summary.append([]any{t.FullName, t.AgeGroup, t.Present, t.Absent, t.Rate()}, st.cell); err != nil {
			return fail(err)
		}
		if err := summary.styleCell(5, st.percent); err != nil {
			return fail(err)
		}
		overall.Present += t.Present
		overall.Absent += t.Absent
	}
	if err := summary.append([]any{"Overall", "", overall.Present, overall.Absent, overall.Rate()}, st.header); err != nil {
		return fail(err)
	}

	return f, nil
}

// WriteAttendance streams the attendance report to w.
func WriteAttendance(w io.Writer, r AttendanceReport) error {
	f, err := AttendanceWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, w)
}
