package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
)

const (
	headerFill  = "1E293B" // slate-800
	headerFont  = "FFFFFF"
	borderColor = "000000"
)

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	borders := make([]excelize.Border, len(sides))
	for i, s := range sides {
		borders[i] = excelize.Border{Type: s, Color: borderColor, Style: 1}
	}
	return borders
}

// styles holds the style ids registered on one workbook.
type styles struct {
	header  int
	cell    int
	percent int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: headerFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	s.cell, err = f.NewStyle(&excelize.Style{Border: thinBorders()})
	if err != nil {
		return s, fmt.Errorf("cell style: %w", err)
	}
	s.percent, err = f.NewStyle(&excelize.Style{Border: thinBorders(), NumFmt: 10})
	if err != nil {
		return s, fmt.Errorf("percent style: %w", err)
	}
	return s, nil
}

// sheet is a small cursor over one worksheet.
type sheet struct {
	f      *excelize.File
	name   string
	styles styles
	cols   int
	rows   int
}

// newSheet creates (or renames the default sheet to) name and writes the
// styled header row.
func newSheet(f *excelize.File, st styles, name string, headers []string, widths []float64) (*sheet, error) {
	if len(f.GetSheetList()) == 1 && f.GetSheetName(0) == "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("add sheet %s: %w", name, err)
	}

	s := &sheet{f: f, name: name, styles: st, cols: len(headers)}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(name, col, col, w); err != nil {
			return nil, fmt.Errorf("set width %s: %w", col, err)
		}
	}

	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := s.append(values, st.header); err != nil {
		return nil, err
	}
	if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return s, nil
}

// append writes values as the next row and applies style across the sheet's columns.
func (s *sheet) append(values []any, style int) error {
	s.rows++
	start, err := excelize.CoordinatesToCellName(1, s.rows)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(s.cols, s.rows)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(s.name, start, &values); err != nil {
		return fmt.Errorf("write row %d: %w", s.rows, err)
	}
	if err := s.f.SetCellStyle(s.name, start, end, style); err != nil {
		return fmt.Errorf("style row %d: %w", s.rows, err)
	}
	return nil
}

// styleCell overrides the style of one cell in the last written row.
func (s *sheet) styleCell(col, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, s.rows)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.name, cell, cell, style)
}

func memberHeaders() ([]string, []float64) {
	headers := make([]string, len(MemberColumns))
	widths := make([]float64, len(MemberColumns))
	for i, c := range MemberColumns {
		headers[i] = c.Header
		widths[i] = c.Width
	}
	return headers, widths
}

// memberValues renders m in MemberColumns order.
func memberValues(m *models.Member) []any {
	values := make([]any, len(MemberColumns))
	for i, c := range MemberColumns {
		values[i] = memberField(m, c.Key)
	}
	return values
}

func memberField(m *models.Member, key string) string {
	switch key {
	case KeyLastName:
		return m.LastName
	case KeyFirstName:
		return m.FirstName
	case KeyDateOfBirth:
		return m.DateOfBirth
	case KeyGender:
		return m.Gender
	case KeyMaritalStatus:
		return m.MaritalStatus
	case KeyAgeGroup:
		return m.AgeGroup
	case KeyAddress:
		return m.Address
	case KeyContactNumber:
		return m.ContactNumber
	case KeyPrevChurchAttendee:
		return normalize.FormatBool(m.PrevChurchAttendee)
	case KeyPrevChurch:
		return m.PrevChurch
	case KeyInvitedBy:
		return m.InvitedBy
	case KeyDateAttended:
		return m.DateAttended
	case KeyAttendingCellGroup:
		return normalize.FormatBool(m.AttendingCellGroup)
	case KeyCellLeaderName:
		return m.CellLeaderName
	case KeyChurchMinistry:
		return normalize.JoinMinistries(m.ChurchMinistry)
	case KeyConsolidation:
		return m.Consolidation
	case KeyTrainings:
		return normalize.FormatTrainings(m.Trainings)
	case KeyWillingTraining:
		return normalize.FormatBool(m.WillingTraining)
	case KeyReason:
		return m.Reason
	case KeyWaterBaptized:
		return normalize.FormatBool(m.WaterBaptized)
	case KeyHouseholds:
		return normalize.FormatHouseholds(m.Households)
	case KeyMemberStatus:
		return m.MemberStatus
	case KeyPhotoURL:
		return m.PhotoURL
	}
	return ""
}

// MembersWorkbook builds the members report. The caller closes the file.
func MembersWorkbook(members []*models.Member) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	headers, widths := memberHeaders()
	s, err := newSheet(f, st, "Members", headers, widths)
	if err != nil {
		f.Close()
		return nil, err
	}
	for _, m := range members {
		if err := s.append(memberValues(m), st.cell); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteMembers streams the members report to w.
func WriteMembers(w io.Writer, members []*models.Member) error {
	f, err := MembersWorkbook(members)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, w)
}

func write(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
