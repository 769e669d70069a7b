package spreadsheet

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jpcc/flock/internal/models"
)

// sampleMember fills the example row of the member template.
var sampleMember = &models.Member{
	FirstName:          "Juan",
	LastName:           "Dela Cruz",
	DateOfBirth:        "1990-05-14",
	Gender:             "Male",
	MaritalStatus:      "Married",
	AgeGroup:           models.AgeGroupYoungMarried26,
	Address:            "123 Mabini St.",
	ContactNumber:      "09171234567",
	PrevChurchAttendee: true,
	PrevChurch:         "Grace Fellowship",
	InvitedBy:          "Maria Santos",
	DateAttended:       "2024-01-01",
	AttendingCellGroup: true,
	CellLeaderName:     "Pedro Reyes",
	ChurchMinistry:     []string{"Media", "Ushering"},
	Consolidation:      "Done",
	WillingTraining:    true,
	WaterBaptized:      true,
	MemberStatus:       models.MemberActive,
	Trainings:          []models.SpiritualTraining{{TrainingType: models.TrainingLifeClass, Year: intPtr(2023)}},
	Households:         []models.HouseholdMember{{Name: "Ana Dela Cruz", Relationship: "Daughter", DateOfBirth: "2015-03-02"}},
}

func intPtr(n int) *int { return &n }

// WriteMemberTemplate writes the import template: the members header and one sample row.
func WriteMemberTemplate(w io.Writer) error {
	f, err := MembersWorkbook([]*models.Member{sampleMember})
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, w)
}

// WriteAttendanceTemplate writes a blank "Attendance" sheet with headers only.
func WriteAttendanceTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if _, err := newSheet(f, st, "Attendance", attendanceHeaders, attendanceWidths); err != nil {
		return err
	}
	return write(f, w)
}
