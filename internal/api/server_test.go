package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/spreadsheet"
	"github.com/jpcc/flock/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)

	var body map[string]string
	h.DoJSON("GET", "/healthz", "", nil, &body)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHarness(t)
	h.Do("GET", "/healthz", "", nil).Body.Close()
	h.Do("GET", "/api/members", "", nil).Body.Close()

	var snap MetricsSnapshot
	h.DoJSON("GET", "/metricz", "", nil, &snap)
	if snap.Requests < 2 {
		t.Fatalf("requests = %d, want >= 2", snap.Requests)
	}
	if snap.ClientErrors < 1 {
		t.Fatalf("client errors = %d, want >= 1", snap.ClientErrors)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHarness(t)
	resp := h.Do("GET", "/healthz", "", nil)
	resp.Body.Close()
	if len(resp.Header.Get("X-Request-ID")) != 32 {
		t.Fatalf("X-Request-ID = %q", resp.Header.Get("X-Request-ID"))
	}
}

func TestMemberCRUD(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RolePersonal)

	// Create
	var created models.Member
	resp := h.DoJSON("POST", "/api/members", tok, models.MemberInput{
		FirstName:      "  Ana ",
		LastName:       "Reyes",
		DateOfBirth:    "1990-05-10T00:00:00.000Z",
		ChurchMinistry: []string{"Media"},
		Trainings:      []models.SpiritualTraining{{TrainingType: models.TrainingLifeClass}},
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	if created.ID == 0 || created.FirstName != "Ana" {
		t.Fatalf("unexpected member: %+v", created)
	}
	if created.DateOfBirth != "1990-05-10" {
		t.Fatalf("date_of_birth = %q", created.DateOfBirth)
	}
	if created.AgeGroup == "" {
		t.Fatal("expected derived age group")
	}

	// Get
	var got models.Member
	h.DoJSON("GET", fmt.Sprintf("/api/members/%d", created.ID), tok, nil, &got)
	if len(got.Trainings) != 1 || len(got.ChurchMinistry) != 1 {
		t.Fatalf("children not loaded: %+v", got)
	}

	// Update
	var updated models.Member
	h.DoJSON("PUT", fmt.Sprintf("/api/members/%d", created.ID), tok, models.MemberInput{
		FirstName: "Ana",
		LastName:  "Santos",
	}, &updated)
	if updated.LastName != "Santos" {
		t.Fatalf("last_name = %q", updated.LastName)
	}
	if len(updated.Trainings) != 1 {
		t.Fatalf("omitted trainings should be kept, got %d", len(updated.Trainings))
	}

	// Delete
	resp = h.Do("DELETE", fmt.Sprintf("/api/members/%d", created.ID), tok, nil)
	resp.Body.Close()
	AssertStatus(t, resp, http.StatusNoContent)

	resp = h.Do("GET", fmt.Sprintf("/api/members/%d", created.ID), tok, nil)
	AssertErrorResponse(t, resp, http.StatusNotFound, ErrCodeNotFound)

	resp = h.Do("DELETE", fmt.Sprintf("/api/members/%d", created.ID), tok, nil)
	AssertErrorResponse(t, resp, http.StatusNotFound, ErrCodeNotFound)
}

func TestCreateMemberValidation(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RolePersonal)

	resp := h.Do("POST", "/api/members", tok, models.MemberInput{LastName: "Reyes"})
	apiErr := AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)
	if apiErr.Message != "Name is required" {
		t.Fatalf("message = %q", apiErr.Message)
	}

	resp = h.Do("POST", "/api/members", tok, models.MemberInput{FirstName: "Ana", DateOfBirth: "someday"})
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	req, _ := http.NewRequest("POST", h.BaseURL+"/api/members", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("GET", "/api/members/abc", tok, nil)
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestListMembersFiltersAndTotal(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)
	h.CreateMember(models.MemberInput{FirstName: "Ana", LastName: "Reyes", Gender: "Female"})
	h.CreateMember(models.MemberInput{FirstName: "Ben", LastName: "Cruz", Gender: "Male"})
	h.CreateMember(models.MemberInput{FirstName: "Carla", LastName: "Reyes", Gender: "Female"})

	var all []models.Member
	resp := h.DoJSON("GET", "/api/members", tok, nil, &all)
	if len(all) != 3 || resp.Header.Get("X-Total-Count") != "3" {
		t.Fatalf("got %d members, total %q", len(all), resp.Header.Get("X-Total-Count"))
	}

	var reyes []models.Member
	h.DoJSON("GET", "/api/members?search=reyes&gender=Female", tok, nil, &reyes)
	if len(reyes) != 2 {
		t.Fatalf("search: got %d, want 2", len(reyes))
	}

	var page []models.Member
	resp = h.DoJSON("GET", "/api/members?limit=1&offset=1", tok, nil, &page)
	if len(page) != 1 || resp.Header.Get("X-Total-Count") != "3" {
		t.Fatalf("page: got %d, total %q", len(page), resp.Header.Get("X-Total-Count"))
	}
}

func TestRoster(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleAttendance)
	h.CreateMember(models.MemberInput{FirstName: "Ana", LastName: "Reyes"})

	var roster []models.RosterEntry
	h.DoJSON("GET", "/api/members/attendance", tok, nil, &roster)
	if len(roster) != 1 || roster[0].FullName != "Ana Reyes" {
		t.Fatalf("roster = %+v", roster)
	}
}

func TestAttendanceFlow(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleAttendance)
	ana := h.CreateMember(models.MemberInput{FirstName: "Ana", LastName: "Reyes"})
	ben := h.CreateMember(models.MemberInput{FirstName: "Ben", LastName: "Cruz"})
	h.CreateMember(models.MemberInput{FirstName: "Carla", LastName: "Diaz"})

	var rec models.AttendanceRecord
	h.DoJSON("POST", "/api/attendance/create", tok, setAttendanceRequest{
		MemberID: ana.ID, Date: "2026-02-15T00:00:00.000Z", Status: "Present",
	}, &rec)
	if rec.Status != models.StatusPresent || rec.Date != "2026-02-15" {
		t.Fatalf("record = %+v", rec)
	}

	// Re-marking replaces the earlier status
	h.DoJSON("POST", "/api/attendance/create", tok, setAttendanceRequest{
		MemberID: ana.ID, Date: "2026-02-15", Status: "absent",
	}, &rec)
	h.DoJSON("POST", "/api/attendance/create", tok, setAttendanceRequest{
		MemberID: ben.ID, Date: "2026-02-15", Status: "present",
	}, &rec)

	var day attendanceResponse
	h.DoJSON("GET", "/api/attendance/get?date=2026-02-15", tok, nil, &day)
	if len(day.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(day.Records))
	}
	if day.Summary.PresentCount != 1 || day.Summary.AbsentCount != 1 || day.Summary.TotalCount != 2 {
		t.Fatalf("summary = %+v", day.Summary)
	}

	var marked map[string]any
	h.DoJSON("POST", "/api/attendance/auto-absent", tok, map[string]string{"date": "2026-02-15"}, &marked)
	if marked["marked"] != float64(1) {
		t.Fatalf("marked = %v, want 1", marked["marked"])
	}

	resp := h.Do("DELETE", fmt.Sprintf("/api/attendance/%d/2026-02-15", ben.ID), tok, nil)
	resp.Body.Close()
	AssertStatus(t, resp, http.StatusNoContent)

	h.DoJSON("GET", "/api/attendance/get?date=2026-02-15", tok, nil, &day)
	if day.Summary.TotalCount != 2 {
		t.Fatalf("after delete total = %d, want 2", day.Summary.TotalCount)
	}
}

func TestSetAttendanceErrors(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleAttendance)
	ana := h.CreateMember(models.MemberInput{FirstName: "Ana"})

	resp := h.Do("POST", "/api/attendance/create", tok, setAttendanceRequest{Date: "2026-02-15", Status: "present"})
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("POST", "/api/attendance/create", tok, setAttendanceRequest{MemberID: ana.ID, Date: "2026-02-15", Status: "late"})
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("POST", "/api/attendance/create", tok, setAttendanceRequest{MemberID: 9999, Date: "2026-02-15", Status: "present"})
	AssertErrorResponse(t, resp, http.StatusNotFound, ErrCodeNotFound)
}

func TestRequestDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2026-02-15", "2026-02-15"},
		{"2026-02-15T00:00:00.000Z", "2026-02-15"},
		{" 2026-02-15T16:00:00+08:00 ", "2026-02-15"},
		{"02/15/2026", "02/15/2026"},
	}
	for _, tt := range tests {
		if got := requestDate(tt.in); got != tt.want {
			t.Errorf("requestDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := requestDate(""); len(got) != 10 {
		t.Errorf("requestDate(\"\") = %q, want today", got)
	}
}

func openWorkbook(t *testing.T, resp *http.Response) *excelize.File {
	t.Helper()
	defer resp.Body.Close()
	AssertStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != spreadsheet.ContentType {
		t.Fatalf("content type = %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExportMembers(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)
	h.CreateMember(models.MemberInput{FirstName: "Ana", LastName: "Reyes", Gender: "Female"})
	h.CreateMember(models.MemberInput{FirstName: "Ben", LastName: "Cruz", Gender: "Male"})

	resp := h.Do("POST", "/api/export/members/export", tok, map[string]string{"gender": "Female"})
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=members_report.xlsx" {
		t.Fatalf("content disposition = %q", cd)
	}
	f := openWorkbook(t, resp)
	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}

	// GET with query filters
	f = openWorkbook(t, h.Do("GET", "/api/export/members/export", tok, nil))
	rows, _ = f.GetRows(f.GetSheetList()[0])
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
}

func TestExportAttendance(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)
	ana := h.CreateMember(models.MemberInput{FirstName: "Ana", LastName: "Reyes"})
	for _, d := range []string{"2026-02-01", "2026-02-08"} {
		if _, err := h.Store.SetAttendance(t.Context(), ana.ID, d, models.StatusPresent); err != nil {
			t.Fatalf("set attendance: %v", err)
		}
	}

	f := openWorkbook(t, h.Do("GET", "/api/export/attendance/export?date_from=2026-02-01&date_to=2026-02-28", tok, nil))
	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("attendance rows = %d, want header + 2", len(rows))
	}
	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if len(summary) < 2 || summary[1][0] != "Ana Reyes" {
		t.Fatalf("summary = %v", summary)
	}
}

func TestTemplates(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)

	f := openWorkbook(t, h.Do("GET", "/api/export/members/template", tok, nil))
	rows, _ := f.GetRows(f.GetSheetList()[0])
	if len(rows) != 2 {
		t.Fatalf("member template rows = %d, want header + sample", len(rows))
	}

	f = openWorkbook(t, h.Do("GET", "/api/export/attendance/template", tok, nil))
	rows, _ = f.GetRows(f.GetSheetList()[0])
	if len(rows) != 1 {
		t.Fatalf("attendance template rows = %d, want header only", len(rows))
	}
}

func importWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestImport(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)
	data := importWorkbook(t,
		[]any{"First Name", "Last Name", "Date of Birth"},
		[]any{"Ana", "Reyes", "1990-01-01"},
		[]any{"", "Nameless", ""},
		[]any{"Ben", "Cruz", "not a date"},
	)

	// Dry run writes nothing
	var dry importResponse
	resp := h.Upload("/api/import", tok, "file", "members.xlsx", data, map[string]string{"dry_run": "true"})
	AssertStatus(t, resp, http.StatusOK)
	ReadJSON(t, resp, &dry)
	if !dry.DryRun || dry.Imported != 1 || dry.Failed != 2 {
		t.Fatalf("dry run = %+v", dry)
	}
	if n, _ := h.Store.CountMembers(t.Context(), store.MemberFilter{}); n != 0 {
		t.Fatalf("dry run created %d members", n)
	}

	var res importResponse
	resp = h.Upload("/api/import", tok, "file", "members.xlsx", data, nil)
	AssertStatus(t, resp, http.StatusOK)
	ReadJSON(t, resp, &res)
	if res.Imported != 1 || res.Failed != 2 || res.BatchID == "" {
		t.Fatalf("import = %+v", res)
	}
	if res.Failures[0].Row != 3 || res.Failures[1].Row != 4 {
		t.Fatalf("failure rows = %+v", res.Failures)
	}
	if res.Message != "Import completed: 1 imported, 2 failed" {
		t.Fatalf("message = %q", res.Message)
	}

	var batches []models.ImportBatch
	h.DoJSON("GET", "/api/import/batches", tok, nil, &batches)
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
}

func TestImportErrors(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleLogsAndReports)

	resp := h.Upload("/api/import", tok, "", "", nil, map[string]string{"dry_run": "true"})
	apiErr := AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)
	if apiErr.Message != "No file uploaded" {
		t.Fatalf("message = %q", apiErr.Message)
	}

	resp = h.Upload("/api/import", tok, "file", "notes.xlsx", []byte("plain text"), nil)
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	empty := importWorkbook(t, []any{"First Name", "Last Name"})
	resp = h.Upload("/api/import", tok, "file", "empty.xlsx", empty, nil)
	apiErr = AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)
	if apiErr.Message != "Excel file is empty" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

// minimal 1x1 PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestUploadAndServePhoto(t *testing.T) {
	dir := t.TempDir()
	h := newTestHarness(t, func(cfg *Config) { cfg.UploadDir = dir })
	tok := h.Token(models.RolePersonal)

	resp := h.Upload("/api/upload", tok, "photo", "me.png", pngPixel, nil)
	AssertStatus(t, resp, http.StatusCreated)
	var out map[string]string
	ReadJSON(t, resp, &out)
	url := out["fileUrl"]
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("fileUrl = %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/"))); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	resp = h.Do("GET", url, "", nil)
	defer resp.Body.Close()
	AssertStatus(t, resp, http.StatusOK)
	served, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(served, pngPixel) {
		t.Fatalf("served %d bytes, want %d", len(served), len(pngPixel))
	}
}

func TestUploadRejects(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) { cfg.UploadMaxBytes = 64 })
	tok := h.Token(models.RolePersonal)

	resp := h.Upload("/api/upload", tok, "photo", "notes.txt", []byte("hello, not an image"), nil)
	AssertErrorResponse(t, resp, http.StatusUnsupportedMediaType, ErrCodeUnsupported)

	big := append(append([]byte{}, pngPixel...), make([]byte, 256)...)
	resp = h.Upload("/api/upload", tok, "photo", "big.png", big, nil)
	AssertErrorResponse(t, resp, http.StatusRequestEntityTooLarge, ErrCodeTooLarge)

	resp = h.Do("GET", "/uploads/..%2Fsecret", "", nil)
	AssertErrorResponse(t, resp, http.StatusNotFound, ErrCodeNotFound)
}

func TestAdminUsers(t *testing.T) {
	h := newTestHarness(t)
	admin, tok := h.CreateUser("admin@example.org", models.RoleAdmin)

	var created userResponse
	resp := h.DoJSON("POST", "/api/admin/users", tok, createUserRequest{
		Email: "Clerk@Example.org", Password: "long enough pw", Role: models.RoleAttendance,
	}, &created)
	if resp.StatusCode != http.StatusCreated || created.Email != "clerk@example.org" {
		t.Fatalf("create: %d %+v", resp.StatusCode, created)
	}

	resp = h.Do("POST", "/api/admin/users", tok, createUserRequest{
		Email: "clerk@example.org", Password: "long enough pw", Role: models.RoleAttendance,
	})
	AssertErrorResponse(t, resp, http.StatusConflict, ErrCodeConflict)

	resp = h.Do("POST", "/api/admin/users", tok, createUserRequest{
		Email: "x@example.org", Password: "long enough pw", Role: "pastor",
	})
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	var list []userResponse
	h.DoJSON("GET", "/api/admin/users", tok, nil, &list)
	if len(list) != 2 {
		t.Fatalf("users = %d, want 2", len(list))
	}

	role := models.RoleLogsAndReports
	var updated userResponse
	h.DoJSON("PATCH", "/api/admin/users/"+created.ID, tok, updateUserRequest{Role: &role}, &updated)
	if updated.Role != models.RoleLogsAndReports {
		t.Fatalf("role = %q", updated.Role)
	}

	demote := models.RolePersonal
	resp = h.Do("PATCH", "/api/admin/users/"+admin.ID, tok, updateUserRequest{Role: &demote})
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("DELETE", "/api/admin/users/"+admin.ID, tok, nil)
	AssertErrorResponse(t, resp, http.StatusBadRequest, ErrCodeBadRequest)

	resp = h.Do("DELETE", "/api/admin/users/"+created.ID, tok, nil)
	resp.Body.Close()
	AssertStatus(t, resp, http.StatusNoContent)

	resp = h.Do("GET", "/api/admin/users/"+created.ID, tok, nil)
	AssertErrorResponse(t, resp, http.StatusNotFound, ErrCodeNotFound)
}

func TestAdminOverview(t *testing.T) {
	h := newTestHarness(t)
	tok := h.Token(models.RoleAdmin)
	h.CreateMember(models.MemberInput{FirstName: "Ana"})
	h.CreateMember(models.MemberInput{FirstName: "Ben", MemberStatus: models.MemberInactive})

	var ov serverOverviewResponse
	h.DoJSON("GET", "/api/admin/overview", tok, nil, &ov)
	if ov.Health != "ok" || ov.TotalUsers != 1 || ov.TotalMembers != 2 || ov.ActiveMembers != 1 {
		t.Fatalf("overview = %+v", ov)
	}
	if ov.LastImport != nil {
		t.Fatalf("unexpected last import: %+v", ov.LastImport)
	}

	var cfg serverConfigResponse
	h.DoJSON("GET", "/api/admin/config", tok, nil, &cfg)
	if cfg.UploadMax != "5.0 MiB" {
		t.Fatalf("upload_max = %q", cfg.UploadMax)
	}
}
