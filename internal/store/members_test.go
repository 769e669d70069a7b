package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jpcc/flock/internal/models"
)

func intp(n int) *int { return &n }

func TestCreateMember(t *testing.T) {
	db := newTestDB(t)
	m := mustCreateMember(t, db, models.MemberInput{
		FirstName:      "  Ana ",
		LastName:       "Reyes",
		DateOfBirth:    "1990-05-04",
		MaritalStatus:  "Married",
		DateAttended:   "2024-01",
		ChurchMinistry: []string{"Media", "Praise Team", "media"},
		WaterBaptized:  true,
		Trainings: []models.SpiritualTraining{
			{TrainingType: "sol1", Year: intp(2022)},
			{TrainingType: "Life Class", Year: intp(2021)},
		},
		Households: []models.HouseholdMember{
			{Name: "Ben", Relationship: "Son", DateOfBirth: "2015-03-02"},
			{Name: "  "},
		},
	})

	if m.ID == 0 {
		t.Fatal("expected generated id")
	}
	if m.FirstName != "Ana" {
		t.Errorf("first name not trimmed: %q", m.FirstName)
	}
	if m.AgeGroup != models.AgeGroupYoungMarried26 {
		t.Errorf("age group = %q, want %q", m.AgeGroup, models.AgeGroupYoungMarried26)
	}
	if m.DateAttended != "2024-01-01" {
		t.Errorf("date attended = %q", m.DateAttended)
	}
	if m.MemberStatus != models.MemberActive {
		t.Errorf("member status = %q", m.MemberStatus)
	}
	if len(m.ChurchMinistry) != 2 || m.ChurchMinistry[0] != "Media" || m.ChurchMinistry[1] != "Praise Team" {
		t.Errorf("ministries = %v", m.ChurchMinistry)
	}
	if !m.WaterBaptized || m.PrevChurchAttendee {
		t.Errorf("booleans not stored: %+v", m)
	}
	if len(m.Trainings) != 2 || m.Trainings[0].TrainingType != models.TrainingLifeClass || *m.Trainings[1].Year != 2022 {
		t.Errorf("trainings = %+v", m.Trainings)
	}
	if len(m.Households) != 1 || m.Households[0].Name != "Ben" || m.Households[0].MemberID != m.ID {
		t.Errorf("households = %+v", m.Households)
	}
	if !m.CreatedAt.Equal(testNow) {
		t.Errorf("created_at = %v", m.CreatedAt)
	}
}

func TestCreateMember_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateMember(ctx, models.MemberInput{LastName: "Nameless"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "first_name" || ve.Msg != "Name is required" {
		t.Errorf("expected first_name validation error, got %v", err)
	}

	_, err = db.CreateMember(ctx, models.MemberInput{FirstName: "Ana", DateOfBirth: "someday"})
	if !errors.As(err, &ve) || ve.Field != "date_of_birth" {
		t.Errorf("expected date_of_birth validation error, got %v", err)
	}

	_, err = db.CreateMember(ctx, models.MemberInput{
		FirstName: "Ana",
		Trainings: []models.SpiritualTraining{{TrainingType: "SOL 1", Year: intp(1800)}},
	})
	if !errors.As(err, &ve) || ve.Field != "spiritual_trainings" {
		t.Errorf("expected training year validation error, got %v", err)
	}

	if n, _ := db.CountMembers(ctx, MemberFilter{}); n != 0 {
		t.Errorf("rejected members were stored: %d", n)
	}
}

func TestCreateMember_ExplicitAgeGroupKept(t *testing.T) {
	db := newTestDB(t)
	m := mustCreateMember(t, db, models.MemberInput{FirstName: "Lola", DateOfBirth: "1950-01-01", AgeGroup: "Custom"})
	if m.AgeGroup != "Custom" {
		t.Errorf("age group = %q", m.AgeGroup)
	}
}

func TestGetMember_NotFound(t *testing.T) {
	db := newTestDB(t)
	m, err := db.GetMember(context.Background(), 999)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatal("expected nil for missing member")
	}
}

func seedMembers(t *testing.T, db *DB) map[string]*models.Member {
	t.Helper()
	out := make(map[string]*models.Member)
	for _, in := range []models.MemberInput{
		{FirstName: "Ana", LastName: "Reyes", Gender: "Female", MaritalStatus: "Single", DateOfBirth: "2000-01-01", DateAttended: "2024-01-10",
			Trainings: []models.SpiritualTraining{{TrainingType: "SOL 1"}}},
		{FirstName: "Ben", LastName: "Cruz", Gender: "Male", MaritalStatus: "Married", DateOfBirth: "1980-01-01", DateAttended: "2024-03-05"},
		{FirstName: "Carla", LastName: "Cruz", Gender: "Female", MaritalStatus: "Single", DateOfBirth: "2015-01-01", DateAttended: "2023-12-31",
			MemberStatus: "Inactive"},
		{FirstName: "Dan", LastName: "Abad", Gender: "Male"},
	} {
		out[in.FirstName] = mustCreateMember(t, db, in)
	}
	return out
}

func names(members []*models.Member) []string {
	var out []string
	for _, m := range members {
		out = append(out, m.FirstName)
	}
	return out
}

func TestListMembers_Filters(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)

	tests := []struct {
		name   string
		filter MemberFilter
		want   []string
	}{
		{"all ordered by last then first name", MemberFilter{}, []string{"Dan", "Ben", "Carla", "Ana"}},
		{"search first name", MemberFilter{Search: "an"}, []string{"Dan", "Ana"}},
		{"search full name", MemberFilter{Search: "BEN CRUZ"}, []string{"Ben"}},
		{"gender", MemberFilter{Gender: "Female"}, []string{"Carla", "Ana"}},
		{"marital status", MemberFilter{MaritalStatus: "Married"}, []string{"Ben"}},
		{"age group", MemberFilter{AgeGroup: models.AgeGroupChildren}, []string{"Carla"}},
		{"status", MemberFilter{MemberStatus: "inactive"}, []string{"Carla"}},
		{"status all", MemberFilter{MemberStatus: "all"}, []string{"Dan", "Ben", "Carla", "Ana"}},
		{"date range", MemberFilter{DateFrom: "2024-01-01", DateTo: "2024-01-31"}, []string{"Ana"}},
		{"date from only", MemberFilter{DateFrom: "2024-01-01"}, []string{"Ben", "Ana"}},
		{"date to only", MemberFilter{DateTo: "2023-12-31"}, []string{"Carla"}},
		{"training", MemberFilter{Training: "SOL 1"}, []string{"Ana"}},
		{"limit", MemberFilter{Limit: 2}, []string{"Dan", "Ben"}},
		{"offset", MemberFilter{Offset: 3}, []string{"Ana"}},
		{"limit and offset", MemberFilter{Limit: 1, Offset: 1}, []string{"Ben"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListMembers(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListMembers: %v", err)
			}
			if g := names(got); !equalStrings(g, tt.want) {
				t.Errorf("got %v, want %v", g, tt.want)
			}
		})
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListMembers_LoadsChildren(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)

	got, err := db.ListMembers(context.Background(), MemberFilter{Search: "ana"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].Trainings) != 1 || got[0].Households == nil {
		t.Fatalf("children not loaded: %+v", got)
	}
}

func TestCountMembers(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)

	n, err := db.CountMembers(context.Background(), MemberFilter{Gender: "Male", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestUpdateMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := mustCreateMember(t, db, models.MemberInput{
		FirstName:  "Ana",
		Trainings:  []models.SpiritualTraining{{TrainingType: "SOL 1"}},
		Households: []models.HouseholdMember{{Name: "Ben"}},
	})

	// nil child lists leave children untouched
	up, err := db.UpdateMember(ctx, m.ID, models.MemberInput{FirstName: "Anna", LastName: "Reyes"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.FirstName != "Anna" || up.LastName != "Reyes" {
		t.Errorf("scalars not updated: %+v", up)
	}
	if len(up.Trainings) != 1 || len(up.Households) != 1 {
		t.Errorf("children changed: %+v %+v", up.Trainings, up.Households)
	}

	// supplied lists replace, empty lists clear
	up, err = db.UpdateMember(ctx, m.ID, models.MemberInput{
		FirstName:  "Anna",
		Trainings:  []models.SpiritualTraining{{TrainingType: "SOL 2", Year: intp(2024)}, {TrainingType: "SOL 3"}},
		Households: []models.HouseholdMember{},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(up.Trainings) != 2 || up.Trainings[0].TrainingType != models.TrainingSOL2 {
		t.Errorf("trainings not replaced: %+v", up.Trainings)
	}
	if len(up.Households) != 0 {
		t.Errorf("households not cleared: %+v", up.Households)
	}
}

func TestUpdateMember_Errors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.UpdateMember(ctx, 42, models.MemberInput{FirstName: "Ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	m := mustCreateMember(t, db, models.MemberInput{FirstName: "Ana"})
	var ve *ValidationError
	if _, err := db.UpdateMember(ctx, m.ID, models.MemberInput{FirstName: " "}); !errors.As(err, &ve) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteMember_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := mustCreateMember(t, db, models.MemberInput{
		FirstName:  "Ana",
		Trainings:  []models.SpiritualTraining{{TrainingType: "SOL 1"}},
		Households: []models.HouseholdMember{{Name: "Ben"}},
	})
	if _, err := db.SetAttendance(ctx, m.ID, "2026-02-15", models.StatusPresent); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := db.GetMember(ctx, m.ID); got != nil {
		t.Error("member still present")
	}
	recs, err := db.AttendanceByDate(ctx, "2026-02-15")
	if err != nil || len(recs) != 0 {
		t.Errorf("attendance not removed: %v %v", recs, err)
	}
	for _, table := range []string{"spiritual_trainings", "household_members"} {
		var n int
		if err := db.conn.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil || n != 0 {
			t.Errorf("%s rows left: %d %v", table, n, err)
		}
	}

	if err := db.DeleteMember(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListRoster(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)

	roster, err := db.ListRoster(context.Background(), MemberFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 4 {
		t.Fatalf("roster size = %d", len(roster))
	}
	if roster[0].FullName != "Ana Reyes" || roster[0].AgeGroup != models.AgeGroupYoungAdults26 {
		t.Errorf("first entry = %+v", roster[0])
	}
	if roster[2].FullName != "Carla Cruz" || roster[2].MemberStatus != models.MemberInactive {
		t.Errorf("third entry = %+v", roster[2])
	}
	if roster[3].FullName != "Dan Abad" {
		t.Errorf("last entry = %+v", roster[3])
	}

	active, err := db.ListRoster(context.Background(), MemberFilter{MemberStatus: models.MemberActive, Search: "cruz"})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].FullName != "Ben Cruz" {
		t.Errorf("filtered roster = %+v", active)
	}
}

func TestChunkedStatements(t *testing.T) {
	db := newTestDB(t)
	db.maxParams = 8 // 8 ids per IN list, 2 rows per 4-column insert
	ctx := context.Background()

	year := 2021
	for i := range 11 {
		mustCreateMember(t, db, models.MemberInput{
			FirstName: fmt.Sprintf("Member%02d", i),
			Trainings: []models.SpiritualTraining{
				{TrainingType: models.TrainingLifeClass, Year: &year},
				{TrainingType: models.TrainingSOL1},
				{TrainingType: models.TrainingSOL2},
			},
			Households: []models.HouseholdMember{
				{Name: "A", Relationship: "Son"},
				{Name: "B", Relationship: "Daughter"},
				{Name: "C", Relationship: "Wife"},
			},
		})
	}

	members, err := db.ListMembers(ctx, MemberFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 11 {
		t.Fatalf("members = %d, want 11", len(members))
	}
	for _, m := range members {
		if len(m.Trainings) != 3 || len(m.Households) != 3 {
			t.Fatalf("%s children = %d trainings, %d households", m.FirstName, len(m.Trainings), len(m.Households))
		}
	}

	n, err := db.MarkUnrecordedAbsent(ctx, "2026-02-15")
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Errorf("marked %d, want 11", n)
	}
	recs, _ := db.AttendanceByDate(ctx, "2026-02-15")
	if len(recs) != 11 {
		t.Errorf("records = %d, want 11", len(recs))
	}
}
