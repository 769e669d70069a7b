package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/store"
)

// memberFilterFromQuery reads list filters from query parameters. Range
// bounds are normalized to ISO dates; an unreadable bound is a
// *store.ValidationError.
func memberFilterFromQuery(q url.Values) (store.MemberFilter, error) {
	f := store.MemberFilter{
		Search:        q.Get("search"),
		Gender:        q.Get("gender"),
		MaritalStatus: q.Get("marital_status"),
		AgeGroup:      q.Get("age_group"),
		MemberStatus:  q.Get("member_status"),
		Training:      q.Get("training"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		f.Offset = n
	}
	var err error
	if f.DateFrom, f.DateTo, err = dateRange(q.Get("date_from"), q.Get("date_to")); err != nil {
		return f, err
	}
	return f, nil
}

// dateRange normalizes optional from/to bounds.
func dateRange(from, to string) (string, string, error) {
	var err error
	if from, err = normalize.OptionalDate(from); err != nil {
		return "", "", &store.ValidationError{Field: "date_from", Msg: err.Error()}
	}
	if to, err = normalize.OptionalDate(to); err != nil {
		return "", "", &store.ValidationError{Field: "date_to", Msg: err.Error()}
	}
	if from != "" && to != "" && from > to {
		return "", "", &store.ValidationError{Field: "date_from", Msg: "date_from is after date_to"}
	}
	return from, to, nil
}

// memberID parses the {id} path value; it answers 400 itself on failure.
func memberID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid member id")
		return 0, false
	}
	return id, true
}

// handleCreateMember handles POST /api/members.
func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeStoreError(w, r, err, "create member")
		return
	}
	m, err := s.store.CreateMember(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, err, "create member")
		return
	}
	logFor(r.Context()).Info("member created", "member_id", m.ID)
	writeJSON(w, http.StatusCreated, newMemberResponse(m))
}

// handleListMembers handles GET /api/members. X-Total-Count carries the
// unpaginated match count.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	f, err := memberFilterFromQuery(r.URL.Query())
	if err != nil {
		writeStoreError(w, r, err, "list members")
		return
	}
	members, err := s.store.ListMembers(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err, "list members")
		return
	}
	total, err := s.store.CountMembers(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err, "count members")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, newMemberResponses(members))
}

// handleRoster handles GET /api/members/attendance.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	f, err := memberFilterFromQuery(r.URL.Query())
	if err != nil {
		writeStoreError(w, r, err, "list roster")
		return
	}
	roster, err := s.store.ListRoster(r.Context(), f)
	if err != nil {
		writeStoreError(w, r, err, "list roster")
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleGetMember handles GET /api/members/{id}.
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, "id")
	if !ok {
		return
	}
	m, err := s.store.GetMember(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "get member")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(m))
}

// handleUpdateMember handles PUT /api/members/{id}. Omitted child lists are left unchanged.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, "id")
	if !ok {
		return
	}
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeStoreError(w, r, err, "update member")
		return
	}
	m, err := s.store.UpdateMember(r.Context(), id, in)
	if err != nil {
		writeStoreError(w, r, err, "update member")
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(m))
}

// handleDeleteMember handles DELETE /api/members/{id}.
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteMember(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "delete member")
		return
	}
	logFor(r.Context()).Info("member deleted", "member_id", id)
	w.WriteHeader(http.StatusNoContent)
}
