// Package memberform is the interactive registration form used by
// "flock member add --interactive" and "flock member edit".
package memberform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
)

var errFirstNameRequired = errors.New("first name is required")

// Values holds the bound form fields. Dates are free text and are
// normalized by Input.
type Values struct {
	FirstName     string
	LastName      string
	Gender        string
	MaritalStatus string
	DateOfBirth   string
	ContactNumber string
	Address       string

	PrevChurchAttendee bool
	PrevChurch         string
	InvitedBy          string
	DateAttended       string // month, any accepted date form

	AttendingCellGroup bool
	CellLeaderName     string
	Ministries         []string
	Trainings          []string
	WaterBaptized      bool
	WillingTraining    bool
	Consolidation      string
	Reason             string
	MemberStatus       string
}

// FromMember prefills the form from an existing record
func FromMember(m *models.Member) Values {
	v := Values{
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Gender:             m.Gender,
		MaritalStatus:      m.MaritalStatus,
		DateOfBirth:        m.DateOfBirth,
		ContactNumber:      m.ContactNumber,
		Address:            m.Address,
		PrevChurchAttendee: m.PrevChurchAttendee,
		PrevChurch:         m.PrevChurch,
		InvitedBy:          m.InvitedBy,
		DateAttended:       m.DateAttended,
		AttendingCellGroup: m.AttendingCellGroup,
		CellLeaderName:     m.CellLeaderName,
		Ministries:         append([]string(nil), m.ChurchMinistry...),
		WaterBaptized:      m.WaterBaptized,
		WillingTraining:    m.WillingTraining,
		Consolidation:      m.Consolidation,
		Reason:             m.Reason,
		MemberStatus:       m.MemberStatus,
	}
	for _, t := range m.Trainings {
		v.Trainings = append(v.Trainings, t.TrainingType)
	}
	return v
}

// NewForm builds the registration form bound to v
func NewForm(v *Values) *huh.Form {
	if v.MemberStatus == "" {
		v.MemberStatus = models.MemberActive
	}

	identity := huh.NewGroup(
		huh.NewInput().
			Title("First name").
			Value(&v.FirstName).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errFirstNameRequired
				}
				return nil
			}),
		huh.NewInput().
			Title("Last name").
			Value(&v.LastName),
		huh.NewSelect[string]().
			Title("Gender").
			Options(
				huh.NewOption("Not given", ""),
				huh.NewOption("Male", "Male"),
				huh.NewOption("Female", "Female"),
			).
			Value(&v.Gender),
		huh.NewSelect[string]().
			Title("Marital status").
			Options(
				huh.NewOption("Not given", ""),
				huh.NewOption("Single", "Single"),
				huh.NewOption("Married", "Married"),
				huh.NewOption("Widowed", "Widowed"),
				huh.NewOption("Separated", "Separated"),
			).
			Value(&v.MaritalStatus),
		huh.NewInput().
			Title("Date of birth").
			Placeholder("YYYY-MM-DD or MM/DD/YYYY").
			Value(&v.DateOfBirth).
			Validate(validDate),
	).Title("Member")

	contact := huh.NewGroup(
		huh.NewInput().
			Title("Contact number").
			Value(&v.ContactNumber),
		huh.NewText().
			Title("Address").
			Value(&v.Address).
			Lines(2),
		huh.NewConfirm().
			Title("Attended another church before?").
			Value(&v.PrevChurchAttendee),
		huh.NewInput().
			Title("Previous church").
			Value(&v.PrevChurch),
		huh.NewInput().
			Title("Invited by").
			Value(&v.InvitedBy),
		huh.NewInput().
			Title("First attended").
			Description("Month is enough, e.g. 2024-03 or March 2024").
			Value(&v.DateAttended).
			Validate(validMonth),
	).Title("Contact")

	church := huh.NewGroup(
		huh.NewConfirm().
			Title("Attending a cell group?").
			Value(&v.AttendingCellGroup),
		huh.NewInput().
			Title("Cell leader").
			Value(&v.CellLeaderName),
		huh.NewMultiSelect[string]().
			Title("Ministries").
			Options(huh.NewOptions(models.StandardMinistries...)...).
			Value(&v.Ministries),
		huh.NewMultiSelect[string]().
			Title("Completed trainings").
			Options(huh.NewOptions(models.StandardTrainings...)...).
			Value(&v.Trainings),
		huh.NewConfirm().
			Title("Water baptized?").
			Value(&v.WaterBaptized),
		huh.NewConfirm().
			Title("Willing to take training?").
			Value(&v.WillingTraining),
	).Title("Church life")

	notes := huh.NewGroup(
		huh.NewInput().
			Title("Consolidation").
			Value(&v.Consolidation),
		huh.NewText().
			Title("Reason").
			Value(&v.Reason).
			Lines(3),
		huh.NewSelect[string]().
			Title("Status").
			Options(
				huh.NewOption("Active", models.MemberActive),
				huh.NewOption("Inactive", models.MemberInactive),
			).
			Value(&v.MemberStatus),
	).Title("Notes")

	form := huh.NewForm(identity, contact, church, notes)
	form.WithTheme(huh.ThemeDracula())
	return form
}

// Run shows the form and fills v. huh.ErrUserAborted is returned when the
// user cancels.
func Run(v *Values) error {
	return NewForm(v).Run()
}

// Input converts the form values into a store input
func (v Values) Input() (models.MemberInput, error) {
	if strings.TrimSpace(v.FirstName) == "" {
		return models.MemberInput{}, errFirstNameRequired
	}
	dob, err := normalize.OptionalDate(v.DateOfBirth)
	if err != nil {
		return models.MemberInput{}, fmt.Errorf("date of birth: %w", err)
	}
	attended, err := normalize.OptionalMonth(v.DateAttended)
	if err != nil {
		return models.MemberInput{}, fmt.Errorf("first attended: %w", err)
	}

	in := models.MemberInput{
		FirstName:          normalize.CleanText(v.FirstName),
		LastName:           normalize.CleanText(v.LastName),
		MaritalStatus:      v.MaritalStatus,
		DateOfBirth:        dob,
		Gender:             v.Gender,
		ContactNumber:      normalize.CleanText(v.ContactNumber),
		PrevChurchAttendee: v.PrevChurchAttendee,
		Address:            strings.TrimSpace(v.Address),
		PrevChurch:         normalize.CleanText(v.PrevChurch),
		InvitedBy:          normalize.CleanText(v.InvitedBy),
		DateAttended:       attended,
		AttendingCellGroup: v.AttendingCellGroup,
		CellLeaderName:     normalize.CleanText(v.CellLeaderName),
		ChurchMinistry:     append([]string{}, v.Ministries...),
		Consolidation:      normalize.CleanText(v.Consolidation),
		Reason:             strings.TrimSpace(v.Reason),
		WaterBaptized:      v.WaterBaptized,
		WillingTraining:    v.WillingTraining,
		MemberStatus:       v.MemberStatus,
		Trainings:          []models.SpiritualTraining{},
	}
	for _, name := range v.Trainings {
		in.Trainings = append(in.Trainings, models.SpiritualTraining{TrainingType: normalize.CanonicalTraining(name)})
	}
	// an empty, non-nil slice clears trainings on update
	if in.Trainings = normalize.DedupeTrainings(in.Trainings); in.Trainings == nil {
		in.Trainings = []models.SpiritualTraining{}
	}
	return in, nil
}

func validDate(s string) error {
	_, err := normalize.OptionalDate(s)
	return err
}

func validMonth(s string) error {
	_, err := normalize.OptionalMonth(s)
	return err
}
