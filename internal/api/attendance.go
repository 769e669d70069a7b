package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
)

type setAttendanceRequest struct {
	MemberID int64                   `json:"member_id"`
	Date     string                  `json:"date"`
	Status   models.AttendanceStatus `json:"status"`
}

type attendanceResponse struct {
	Records []models.AttendanceRecord `json:"records"`
	Summary models.AttendanceSummary  `json:"summary"`
}

// requestDate reads a date that may carry a time part ("2026-02-15T00:00:00.000Z");
// empty means today.
func requestDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Format(normalize.ISODate)
	}
	if i := strings.IndexByte(raw, 'T'); i == len(normalize.ISODate) {
		return raw[:i]
	}
	return raw
}

// handleSetAttendance handles POST /api/attendance/create.
func (s *Server) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	var req setAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MemberID <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "member_id is required")
		return
	}
	rec, err := s.store.SetAttendance(r.Context(), req.MemberID, requestDate(req.Date), req.Status)
	if err != nil {
		writeStoreError(w, r, err, "save attendance")
		return
	}
	s.metrics.RecordAttendance(1)
	writeJSON(w, http.StatusOK, rec)
}

// handleGetAttendance handles GET /api/attendance/get?date=.
func (s *Server) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	date := requestDate(r.URL.Query().Get("date"))
	records, err := s.store.AttendanceByDate(r.Context(), date)
	if err != nil {
		writeStoreError(w, r, err, "load attendance")
		return
	}
	summary, err := s.store.AttendanceSummary(r.Context(), date)
	if err != nil {
		writeStoreError(w, r, err, "load attendance summary")
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Records: records, Summary: summary})
}

// handleAutoAbsent handles POST /api/attendance/auto-absent with body {"date": ...}.
func (s *Server) handleAutoAbsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	date := requestDate(req.Date)
	n, err := s.store.MarkUnrecordedAbsent(r.Context(), date)
	if err != nil {
		writeStoreError(w, r, err, "mark absent")
		return
	}
	s.metrics.RecordAttendance(int64(n))
	logFor(r.Context()).Info("auto absent", "date", date, "marked", n)
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "marked": n})
}

// handleDeleteAttendance handles DELETE /api/attendance/{memberID}/{date}.
func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, "memberID")
	if !ok {
		return
	}
	if err := s.store.DeleteAttendance(r.Context(), id, requestDate(chi.URLParam(r, "date"))); err != nil {
		writeStoreError(w, r, err, "delete attendance")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
