// Package api serves the flock HTTP API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jpcc/flock/internal/auth"
	"github.com/jpcc/flock/internal/importer"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

// Server is the flock HTTP API server.
type Server struct {
	config      Config
	http        *http.Server
	store       *store.DB
	issuer      *auth.Issuer
	importer    *importer.Importer
	metrics     *Metrics
	rateLimiter *RateLimiter
	startTime   time.Time
}

// NewServer creates a new Server with the given config, store and token issuer.
func NewServer(cfg Config, st *store.DB, issuer *auth.Issuer) (*Server, error) {
	if st == nil || issuer == nil {
		return nil, fmt.Errorf("store and token issuer are required")
	}
	cfg.setDefaults()

	s := &Server{
		config:      cfg,
		store:       st,
		issuer:      issuer,
		importer:    importer.New(st),
		metrics:     NewMetrics(),
		rateLimiter: NewRateLimiter(),
		startTime:   time.Now(),
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		recoveryMiddleware,
		requestIDMiddleware,
		loggerMiddleware,
		metricsMiddleware(s.metrics),
		loggingMiddleware,
		maxBytesMiddleware(s.config.MaxBodyBytes),
		s.CORSMiddleware,
	)

	// Health & metrics
	r.Get("/healthz", s.handleHealth)
	r.Get("/metricz", s.handleMetrics)

	// Member photos
	r.Get("/uploads/{name}", s.handleServeUpload)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginRateLimit(s.rateLimiter, s.config.RateLimitLogin, s.config.TrustProxy)).Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			personal := requireRole(models.RolePersonal)
			attendance := requireRole(models.RoleAttendance)
			reports := requireRole(models.RoleLogsAndReports)

			// Members
			r.With(personal).Post("/members", s.handleCreateMember)
			r.With(requireRole(models.RolePersonal, models.RoleLogsAndReports)).Get("/members", s.handleListMembers)
			r.With(attendance).Get("/members/attendance", s.handleRoster)
			r.With(personal).Get("/members/{id}", s.handleGetMember)
			r.With(personal).Put("/members/{id}", s.handleUpdateMember)
			r.With(personal).Delete("/members/{id}", s.handleDeleteMember)

			// Attendance
			r.With(attendance).Post("/attendance/create", s.handleSetAttendance)
			r.With(requireRole(models.RoleAttendance, models.RoleLogsAndReports)).Get("/attendance/get", s.handleGetAttendance)
			r.With(attendance).Post("/attendance/auto-absent", s.handleAutoAbsent)
			r.With(attendance).Delete("/attendance/{memberID}/{date}", s.handleDeleteAttendance)

			// Spreadsheets
			r.Route("/export", func(r chi.Router) {
				r.Use(reports)
				r.Get("/members/export", s.handleExportMembers)
				r.Post("/members/export", s.handleExportMembers)
				r.Get("/attendance/export", s.handleExportAttendance)
				r.Post("/attendance/export", s.handleExportAttendance)
				r.Get("/members/template", s.handleMemberTemplate)
				r.Get("/attendance/template", s.handleAttendanceTemplate)
			})
			r.With(reports).Post("/import", s.handleImport)
			r.With(reports).Get("/import/batches", s.handleImportBatches)

			r.With(personal).Post("/upload", s.handleUpload)

			// Administration
			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(models.RoleAdmin))
				r.Get("/overview", s.handleAdminServerOverview)
				r.Get("/config", s.handleAdminServerConfig)
				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users", s.handleAdminCreateUser)
				r.Get("/users/{id}", s.handleAdminGetUser)
				r.Patch("/users/{id}", s.handleAdminUpdateUser)
				r.Delete("/users/{id}", s.handleAdminDeleteUser)
			})
		})
	})

	return r
}

// handleHealth returns a health check response, pinging the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
