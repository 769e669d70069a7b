package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/spreadsheet"
	"github.com/jpcc/flock/internal/store"
)

// sendWorkbook buffers the workbook so a failed render still yields a JSON error.
func (s *Server) sendWorkbook(w http.ResponseWriter, r *http.Request, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		logFor(r.Context()).Error("render workbook", "file", filename, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to export data")
		return
	}
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logFor(r.Context()).Warn("send workbook", "file", filename, "err", err)
	}
}

// handleExportMembers handles GET|POST /api/export/members/export. Filters
// come from the query string or, for POST, a JSON body.
func (s *Server) handleExportMembers(w http.ResponseWriter, r *http.Request) {
	f, err := memberFilterFromQuery(r.URL.Query())
	if err != nil {
		writeStoreError(w, r, err, "export members")
		return
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if !decodeJSON(w, r, &f) {
			return
		}
		if f.DateFrom, f.DateTo, err = dateRange(f.DateFrom, f.DateTo); err != nil {
			writeStoreError(w, r, err, "export members")
			return
		}
	}
	// an export is the whole matching set
	f.Limit, f.Offset = 0, 0

	members, err := s.store.ListMembers(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err, "export members")
		return
	}
	s.sendWorkbook(w, r, "members_report.xlsx", func(out io.Writer) error {
		return spreadsheet.WriteMembers(out, members)
	})
	s.metrics.RecordExport()
	logFor(r.Context()).Info("members exported", "count", len(members))
}

// handleExportAttendance handles GET|POST /api/export/attendance/export.
func (s *Server) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AttendanceFilter{
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		AgeGroup: q.Get("age_group"),
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if !decodeJSON(w, r, &f) {
			return
		}
	}
	var err error
	if f.DateFrom, f.DateTo, err = dateRange(f.DateFrom, f.DateTo); err != nil {
		writeStoreError(w, r, err, "export attendance")
		return
	}

	var (
		records []models.AttendanceRecord
		totals  []models.MemberAttendance
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		records, err = s.store.AttendanceRange(ctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.store.MemberAttendanceTotals(ctx, f)
		return err
	})
	if err = g.Wait(); err != nil {
		writeStoreError(w, r, err, "export attendance")
		return
	}

	s.sendWorkbook(w, r, "attendance_report.xlsx", func(out io.Writer) error {
		return spreadsheet.WriteAttendance(out, spreadsheet.AttendanceReport{Records: records, Totals: totals})
	})
	s.metrics.RecordExport()
	logFor(r.Context()).Info("attendance exported", "records", len(records), "members", len(totals))
}

// handleMemberTemplate handles GET /api/export/members/template.
func (s *Server) handleMemberTemplate(w http.ResponseWriter, r *http.Request) {
	s.sendWorkbook(w, r, "members_template.xlsx", spreadsheet.WriteMemberTemplate)
}

// handleAttendanceTemplate handles GET /api/export/attendance/template.
func (s *Server) handleAttendanceTemplate(w http.ResponseWriter, r *http.Request) {
	s.sendWorkbook(w, r, "attendance_template.xlsx", spreadsheet.WriteAttendanceTemplate)
}
