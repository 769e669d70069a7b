package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/jpcc/flock/internal/models"
)

const refreshCookie = "refreshToken"

// loginRequest is the JSON body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the JSON response for POST /api/auth/login.
type loginResponse struct {
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
}

// userResponse is the JSON shape for an account (no password hash).
type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt string      `json:"created_at,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	resp := userResponse{ID: u.ID, Email: u.Email, Role: u.Role}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// setRefreshCookie stores the refresh token in an HttpOnly cookie readable
// by cross-site fetches from the front end. An empty token clears it.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.Production,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	if token == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Email and password required")
		return
	}

	user, err := s.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeStoreError(w, r, err, "authenticate")
		return
	}
	s.metrics.RecordLogin(user != nil)
	if user == nil {
		logFor(r.Context()).Info("login failed", "ip", clientIP(r, s.config.TrustProxy))
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials")
		return
	}

	access, exp, err := s.issuer.IssueAccess(user)
	if err != nil {
		logFor(r.Context()).Error("issue access token", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to issue token")
		return
	}
	refresh, _, err := s.issuer.IssueRefresh(user)
	if err != nil {
		logFor(r.Context()).Error("issue refresh token", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to issue token")
		return
	}

	s.setRefreshCookie(w, refresh, s.issuer.RefreshTTL())
	logFor(r.Context()).Info("login", "uid", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Email:     user.Email,
		Role:      user.Role,
		Token:     access,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

// handleRefresh handles POST /api/auth/refresh. The user is looked up again
// so role changes and deletions take effect at the next refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "No refresh token")
		return
	}

	claims, err := s.issuer.ParseRefresh(c.Value)
	if err != nil {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "Invalid refresh token")
		return
	}
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, r, err, "load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "Invalid refresh token")
		return
	}

	access, exp, err := s.issuer.IssueAccess(user)
	if err != nil {
		logFor(r.Context()).Error("issue access token", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":      access,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

// handleLogout handles POST /api/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setRefreshCookie(w, "", 0)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// handleMe handles GET /api/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	au := getUserFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), au.UserID)
	if err != nil {
		writeStoreError(w, r, err, "load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
