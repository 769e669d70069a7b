package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

type createUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type updateUserRequest struct {
	Role     *models.Role `json:"role"`
	Password *string      `json:"password"`
}

// handleAdminListUsers handles GET /api/admin/users.
func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "list users")
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminCreateUser handles POST /api/admin/users.
func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.store.CreateUser(r.Context(), req.Email, req.Password, req.Role)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "email already registered")
		return
	}
	if err != nil {
		writeStoreError(w, r, err, "create user")
		return
	}
	logFor(r.Context()).Info("user created", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// handleAdminGetUser handles GET /api/admin/users/{id}.
func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "get user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleAdminUpdateUser handles PATCH /api/admin/users/{id}. Admins cannot
// demote themselves.
func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == nil && req.Password == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
		return
	}
	if req.Role != nil && *req.Role != models.RoleAdmin && id == getUserFromContext(r.Context()).UserID {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "cannot remove your own admin role")
		return
	}

	if req.Role != nil {
		if err := s.store.SetRole(r.Context(), id, *req.Role); err != nil {
			writeStoreError(w, r, err, "update role")
			return
		}
	}
	if req.Password != nil {
		if err := s.store.SetPassword(r.Context(), id, *req.Password); err != nil {
			writeStoreError(w, r, err, "update password")
			return
		}
	}

	u, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "get user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	logFor(r.Context()).Info("user updated", "user_id", id)
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// handleAdminDeleteUser handles DELETE /api/admin/users/{id}.
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == getUserFromContext(r.Context()).UserID {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "cannot delete your own account")
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "delete user")
		return
	}
	logFor(r.Context()).Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
