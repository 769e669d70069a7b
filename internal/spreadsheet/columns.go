// Package spreadsheet reads and writes the xlsx workbooks used for member
// import, reports and blank templates.
package spreadsheet

import (
	"strings"
	"unicode"
)

// ContentType is the MIME type of every workbook this package produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column describes one member report column.
type Column struct {
	Header string
	Key    string
	Width  float64
}

// Field keys shared by the report writer and the import reader.
const (
	KeyLastName           = "last_name"
	KeyFirstName          = "first_name"
	KeyDateOfBirth        = "date_of_birth"
	KeyGender             = "gender"
	KeyMaritalStatus      = "marital_status"
	KeyAgeGroup           = "age_group"
	KeyAddress            = "address"
	KeyContactNumber      = "contact_number"
	KeyPrevChurchAttendee = "prev_church_attendee"
	KeyPrevChurch         = "prev_church"
	KeyInvitedBy          = "invited_by"
	KeyDateAttended       = "date_attended"
	KeyAttendingCellGroup = "attending_cell_group"
	KeyCellLeaderName     = "cell_leader_name"
	KeyChurchMinistry     = "church_ministry"
	KeyConsolidation      = "consolidation"
	KeyTrainings          = "spiritual_trainings"
	KeyWillingTraining    = "willing_training"
	KeyReason             = "reason"
	KeyWaterBaptized      = "water_baptized"
	KeyHouseholds         = "household_members"
	KeyMemberStatus       = "member_status"
	KeyPhotoURL           = "photo_url"
)

// MemberColumns is the members sheet layout. The misspelled "Date Attendded"
// header is kept so exported files re-import into older copies of the sheet.
var MemberColumns = []Column{
	{"Last Name", KeyLastName, 20},
	{"First Name", KeyFirstName, 20},
	{"DOB", KeyDateOfBirth, 15},
	{"Gender", KeyGender, 10},
	{"Marital Status", KeyMaritalStatus, 15},
	{"Age Group", KeyAgeGroup, 15},
	{"Address", KeyAddress, 25},
	{"Contact No.", KeyContactNumber, 20},
	{"Previous Church Attendee?", KeyPrevChurchAttendee, 20},
	{"Previous Church Name", KeyPrevChurch, 20},
	{"Invited By", KeyInvitedBy, 20},
	{"Date Attendded", KeyDateAttended, 20},
	{"Attending Cellgroup?", KeyAttendingCellGroup, 30},
	{"Cellgroup Leader", KeyCellLeaderName, 30},
	{"Ministry", KeyChurchMinistry, 30},
	{"Consolidation", KeyConsolidation, 30},
	{"Trainings", KeyTrainings, 30},
	{"Willing to Train?", KeyWillingTraining, 15},
	{"Reason", KeyReason, 15},
	{"Water Baptized", KeyWaterBaptized, 15},
	{"Households", KeyHouseholds, 30},
	{"Member Status", KeyMemberStatus, 20},
}

// headerAliases maps squashed header spellings to field keys. Every key and
// every report header is registered too, see init.
var headerAliases = map[string]string{
	"dob":                KeyDateOfBirth,
	"birthday":           KeyDateOfBirth,
	"dateofbirth":        KeyDateOfBirth,
	"contactno":          KeyContactNumber,
	"contact":            KeyContactNumber,
	"phone":              KeyContactNumber,
	"prevchurch":         KeyPrevChurch,
	"previouschurch":     KeyPrevChurch,
	"prevchurchname":     KeyPrevChurch,
	"dateattended":       KeyDateAttended,
	"cellgroupleader":    KeyCellLeaderName,
	"cellleader":         KeyCellLeaderName,
	"ministry":           KeyChurchMinistry,
	"ministries":         KeyChurchMinistry,
	"trainings":          KeyTrainings,
	"training":           KeyTrainings,
	"households":         KeyHouseholds,
	"household":          KeyHouseholds,
	"willingtotrain":     KeyWillingTraining,
	"attendingcellgroup": KeyAttendingCellGroup,
	"status":             KeyMemberStatus,
	"photo":              KeyPhotoURL,
}

func init() {
	for _, c := range MemberColumns {
		headerAliases[squash(c.Header)] = c.Key
		headerAliases[squash(c.Key)] = c.Key
	}
	headerAliases[squash(KeyPhotoURL)] = KeyPhotoURL
}

// squash lowercases s and drops everything but letters and digits, so
// "First_Name", "first name" and "FIRST NAME" compare equal.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldKey returns the field key for a header cell, or "" if it is not recognized.
func FieldKey(header string) string {
	return headerAliases[squash(header)]
}
