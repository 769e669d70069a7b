package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jpcc/flock/internal/models"
)

func TestSetAttendance_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := mustCreateMember(t, db, models.MemberInput{FirstName: "Ana", LastName: "Reyes", DateOfBirth: "2015-01-01"})

	rec, err := db.SetAttendance(ctx, m.ID, "2026-02-15", models.StatusPresent)
	if err != nil {
		t.Fatalf("set attendance: %v", err)
	}
	if rec.MemberID != m.ID || rec.FullName != "Ana Reyes" || rec.Date != "2026-02-15" || rec.Status != models.StatusPresent {
		t.Errorf("record = %+v", rec)
	}
	if rec.AgeGroup != models.AgeGroupChildren {
		t.Errorf("age group = %q", rec.AgeGroup)
	}

	// Marking again replaces the status; time part of the date is ignored.
	rec, err = db.SetAttendance(ctx, m.ID, "2026-02-15T09:30:00Z", "Absent")
	if err != nil {
		t.Fatalf("re-mark: %v", err)
	}
	if rec.Status != models.StatusAbsent {
		t.Errorf("status = %q, want absent", rec.Status)
	}

	recs, err := db.AttendanceByDate(ctx, "2026-02-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected a single record per member and date, got %d", len(recs))
	}
}

func TestSetAttendance_Errors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := mustCreateMember(t, db, models.MemberInput{FirstName: "Ana"})

	if _, err := db.SetAttendance(ctx, 999, "2026-02-15", models.StatusPresent); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown member: expected ErrNotFound, got %v", err)
	}

	var ve *ValidationError
	if _, err := db.SetAttendance(ctx, m.ID, "2026-02-15", "late"); !errors.As(err, &ve) || ve.Field != "status" {
		t.Errorf("bad status: expected validation error, got %v", err)
	}
	if _, err := db.SetAttendance(ctx, m.ID, "", models.StatusPresent); !errors.As(err, &ve) || ve.Field != "date" {
		t.Errorf("empty date: expected validation error, got %v", err)
	}
}

func seedAttendance(t *testing.T, db *DB) map[string]*models.Member {
	t.Helper()
	ctx := context.Background()
	ms := map[string]*models.Member{
		"ana":   mustCreateMember(t, db, models.MemberInput{FirstName: "Ana", LastName: "Reyes", DateOfBirth: "2000-06-01"}),
		"ben":   mustCreateMember(t, db, models.MemberInput{FirstName: "Ben", LastName: "Cruz", DateOfBirth: "2016-01-01"}),
		"carla": mustCreateMember(t, db, models.MemberInput{FirstName: "Carla", LastName: "Diaz", MemberStatus: "inactive"}),
	}
	marks := []struct {
		who    string
		date   string
		status models.AttendanceStatus
	}{
		{"ana", "2026-02-01", models.StatusPresent},
		{"ben", "2026-02-01", models.StatusAbsent},
		{"ana", "2026-02-08", models.StatusPresent},
		{"ben", "2026-02-08", models.StatusPresent},
		{"carla", "2026-02-08", models.StatusAbsent},
		{"ana", "2026-02-15", models.StatusAbsent},
	}
	for _, mk := range marks {
		if _, err := db.SetAttendance(ctx, ms[mk.who].ID, mk.date, mk.status); err != nil {
			t.Fatalf("mark %s %s: %v", mk.who, mk.date, err)
		}
	}
	return ms
}

func TestAttendanceByDate_OrderedByName(t *testing.T) {
	db := newTestDB(t)
	seedAttendance(t, db)

	recs, err := db.AttendanceByDate(context.Background(), "2026-02-08")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Ana Reyes", "Ben Cruz", "Carla Diaz"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records", len(recs))
	}
	for i, r := range recs {
		if r.FullName != want[i] {
			t.Errorf("record %d = %q, want %q", i, r.FullName, want[i])
		}
	}

	empty, err := db.AttendanceByDate(context.Background(), "2020-01-01")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty date = %v, %v", empty, err)
	}
}

func TestAttendanceSummary(t *testing.T) {
	db := newTestDB(t)
	seedAttendance(t, db)

	s, err := db.AttendanceSummary(context.Background(), "2026-02-08")
	if err != nil {
		t.Fatal(err)
	}
	if s.Date != "2026-02-08" || s.PresentCount != 2 || s.AbsentCount != 1 || s.TotalCount != 3 {
		t.Errorf("summary = %+v", s)
	}

	s, err = db.AttendanceSummary(context.Background(), "2026-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if s.PresentCount != 0 || s.AbsentCount != 0 || s.TotalCount != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestAttendanceRange(t *testing.T) {
	db := newTestDB(t)
	seedAttendance(t, db)
	ctx := context.Background()

	recs, err := db.AttendanceRange(ctx, AttendanceFilter{DateFrom: "2026-02-02", DateTo: "2026-02-15"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 4 || recs[0].Date != "2026-02-08" || recs[3].Date != "2026-02-15" {
		t.Errorf("range = %+v", recs)
	}

	kids, err := db.AttendanceRange(ctx, AttendanceFilter{AgeGroup: models.AgeGroupChildren})
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 2 {
		t.Errorf("children records = %d, want 2", len(kids))
	}
}

func TestMemberAttendanceTotals(t *testing.T) {
	db := newTestDB(t)
	seedAttendance(t, db)

	totals, err := db.MemberAttendanceTotals(context.Background(), AttendanceFilter{DateFrom: "2026-02-01", DateTo: "2026-02-28"})
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 3 {
		t.Fatalf("got %d members", len(totals))
	}
	ana := totals[0]
	if ana.FullName != "Ana Reyes" || ana.Present != 2 || ana.Absent != 1 {
		t.Errorf("ana = %+v", ana)
	}
	if carla := totals[2]; carla.Present != 0 || carla.Absent != 1 {
		t.Errorf("carla = %+v", carla)
	}
}

func TestDeleteAttendance(t *testing.T) {
	db := newTestDB(t)
	ms := seedAttendance(t, db)
	ctx := context.Background()

	if err := db.DeleteAttendance(ctx, ms["ana"].ID, "2026-02-15"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteAttendance(ctx, ms["ana"].ID, "2026-02-15"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMarkUnrecordedAbsent(t *testing.T) {
	db := newTestDB(t)
	ms := seedAttendance(t, db)
	ctx := context.Background()
	dan := mustCreateMember(t, db, models.MemberInput{FirstName: "Dan"})

	// 2026-02-15: only ana is recorded; ben and dan are active, carla is inactive.
	n, err := db.MarkUnrecordedAbsent(ctx, "2026-02-15")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("marked %d, want 2", n)
	}

	recs, _ := db.AttendanceByDate(ctx, "2026-02-15")
	got := make(map[int64]models.AttendanceStatus)
	for _, r := range recs {
		got[r.MemberID] = r.Status
	}
	if got[ms["ben"].ID] != models.StatusAbsent || got[dan.ID] != models.StatusAbsent {
		t.Errorf("statuses = %v", got)
	}
	if _, ok := got[ms["carla"].ID]; ok {
		t.Error("inactive member was marked")
	}

	// Idempotent once everyone is recorded.
	if n, err := db.MarkUnrecordedAbsent(ctx, "2026-02-15"); err != nil || n != 0 {
		t.Errorf("second run = %d, %v", n, err)
	}
}
