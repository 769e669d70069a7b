package models

import (
	"strings"
	"time"
)

// AttendanceStatus represents a per-date attendance mark
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// IsValid reports whether s is a known attendance status
func (s AttendanceStatus) IsValid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// NormalizeStatus maps loose input ("Present", " ABSENT ") to a status.
// Returns false if the input is not a recognized status.
func NormalizeStatus(s string) (AttendanceStatus, bool) {
	st := AttendanceStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// MemberStatus values used by the registry
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// Role represents an account's access area
type Role string

const (
	RolePersonal       Role = "personal"       // member registry
	RoleAttendance     Role = "attendance"     // attendance marking
	RoleLogsAndReports Role = "logsandreports" // import, export, reports
	RoleAdmin          Role = "admin"
)

// ValidRoles lists every assignable role
var ValidRoles = []Role{RolePersonal, RoleAttendance, RoleLogsAndReports, RoleAdmin}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Canonical spiritual training names
const (
	TrainingLifeClass = "Life Class"
	TrainingSOL1      = "SOL 1"
	TrainingSOL2      = "SOL 2"
	TrainingSOL3      = "SOL 3"
)

// StandardTrainings lists the trainings offered on the registration form, in display order
var StandardTrainings = []string{TrainingLifeClass, TrainingSOL1, TrainingSOL2, TrainingSOL3}

// StandardMinistries lists the ministries offered on the registration form
var StandardMinistries = []string{"Media", "Praise Team", "Content Writer", "Ushering"}

// SpiritualTraining is a completed training program linked to a member
type SpiritualTraining struct {
	ID           int64  `json:"id,omitempty" db:"id"`
	MemberID     int64  `json:"member_id,omitempty" db:"member_id"`
	TrainingType string `json:"training_type" db:"training_type"`
	Year         *int   `json:"year" db:"year"`
}

// HouseholdMember is a dependent or relation linked to a member
type HouseholdMember struct {
	ID           int64  `json:"id,omitempty" db:"id"`
	MemberID     int64  `json:"member_id,omitempty" db:"member_id"`
	Name         string `json:"name" db:"name"`
	Relationship string `json:"relationship" db:"relationship"`
	DateOfBirth  string `json:"date_of_birth" db:"date_of_birth"`
}

// Member is a person record with demographic and church-participation fields
type Member struct {
	ID                 int64               `json:"member_id" db:"member_id"`
	FirstName          string              `json:"first_name" db:"first_name"`
	LastName           string              `json:"last_name" db:"last_name"`
	MaritalStatus      string              `json:"marital_status" db:"marital_status"`
	DateOfBirth        string              `json:"date_of_birth" db:"date_of_birth"`
	Gender             string              `json:"gender" db:"gender"`
	ContactNumber      string              `json:"contact_number" db:"contact_number"`
	PrevChurchAttendee bool                `json:"prev_church_attendee" db:"prev_church_attendee"`
	Address            string              `json:"address" db:"address"`
	AgeGroup           string              `json:"age_group" db:"age_group"`
	PrevChurch         string              `json:"prev_church" db:"prev_church"`
	InvitedBy          string              `json:"invited_by" db:"invited_by"`
	DateAttended       string              `json:"date_attended" db:"date_attended"`
	AttendingCellGroup bool                `json:"attending_cell_group" db:"attending_cell_group"`
	CellLeaderName     string              `json:"cell_leader_name" db:"cell_leader_name"`
	ChurchMinistry     []string            `json:"church_ministry" db:"-"`
	Consolidation      string              `json:"consolidation" db:"consolidation"`
	Reason             string              `json:"reason" db:"reason"`
	WaterBaptized      bool                `json:"water_baptized" db:"water_baptized"`
	WillingTraining    bool                `json:"willing_training" db:"willing_training"`
	MemberStatus       string              `json:"member_status" db:"member_status"`
	PhotoURL           string              `json:"photo_url" db:"photo_url"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
	Trainings          []SpiritualTraining `json:"spiritual_trainings"`
	Households         []HouseholdMember   `json:"household_members"`
}

// FullName returns "First Last" with empty parts dropped
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// MemberInput carries the writable fields of a member.
// Nil child slices on update mean "leave unchanged".
type MemberInput struct {
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	MaritalStatus      string              `json:"marital_status"`
	DateOfBirth        string              `json:"date_of_birth"`
	Gender             string              `json:"gender"`
	ContactNumber      string              `json:"contact_number"`
	PrevChurchAttendee bool                `json:"prev_church_attendee"`
	Address            string              `json:"address"`
	AgeGroup           string              `json:"age_group"`
	PrevChurch         string              `json:"prev_church"`
	InvitedBy          string              `json:"invited_by"`
	DateAttended       string              `json:"date_attended"`
	AttendingCellGroup bool                `json:"attending_cell_group"`
	CellLeaderName     string              `json:"cell_leader_name"`
	ChurchMinistry     []string            `json:"church_ministry"`
	Consolidation      string              `json:"consolidation"`
	Reason             string              `json:"reason"`
	WaterBaptized      bool                `json:"water_baptized"`
	WillingTraining    bool                `json:"willing_training"`
	MemberStatus       string              `json:"member_status"`
	PhotoURL           string              `json:"photo_url"`
	Trainings          []SpiritualTraining `json:"spiritual_trainings"`
	Households         []HouseholdMember   `json:"household_members"`
}

// RosterEntry is the compact member view used by the attendance screen
type RosterEntry struct {
	ID           int64  `json:"id" db:"member_id"`
	FullName     string `json:"fullName" db:"full_name"`
	AgeGroup     string `json:"ageGroup" db:"age_group"`
	MemberStatus string `json:"member_status" db:"member_status"`
}

// AttendanceRecord is a per-date, per-member present/absent status
type AttendanceRecord struct {
	MemberID  int64            `json:"id" db:"member_id"`
	FullName  string           `json:"fullName" db:"full_name"`
	AgeGroup  string           `json:"ageGroup" db:"age_group"`
	Date      string           `json:"date" db:"date"`
	Status    AttendanceStatus `json:"status" db:"status"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// AttendanceSummary counts the marks recorded for one date
type AttendanceSummary struct {
	Date         string `json:"date" db:"date"`
	PresentCount int    `json:"presentCount" db:"present_count"`
	AbsentCount  int    `json:"absentCount" db:"absent_count"`
	TotalCount   int    `json:"totalCount" db:"total_count"`
}

// MemberAttendance aggregates a member's marks over a reporting range
type MemberAttendance struct {
	MemberID int64  `json:"member_id" db:"member_id"`
	FullName string `json:"fullName" db:"full_name"`
	AgeGroup string `json:"ageGroup" db:"age_group"`
	Present  int    `json:"present" db:"present"`
	Absent   int    `json:"absent" db:"absent"`
}

// Rate returns the fraction of recorded dates marked present (0 when none recorded)
func (a MemberAttendance) Rate() float64 {
	total := a.Present + a.Absent
	if total == 0 {
		return 0
	}
	return float64(a.Present) / float64(total)
}

// User is a staff account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ImportFailure describes one spreadsheet row that could not be imported
type ImportFailure struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportBatch records the outcome of one spreadsheet import
type ImportBatch struct {
	ID        string    `json:"id" db:"id"`
	FileName  string    `json:"file_name" db:"file_name"`
	Imported  int       `json:"imported" db:"imported"`
	Failed    int       `json:"failed" db:"failed"`
	DryRun    bool      `json:"dry_run" db:"dry_run"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
