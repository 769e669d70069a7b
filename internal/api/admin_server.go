package api

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

// serverOverviewResponse is the JSON response for GET /api/admin/overview.
type serverOverviewResponse struct {
	Uptime        string              `json:"uptime"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Health        string              `json:"health"`
	Driver        string              `json:"driver"`
	SchemaVersion int                 `json:"schema_version"`
	Metrics       MetricsSnapshot     `json:"metrics"`
	TotalUsers    int                 `json:"total_users"`
	TotalMembers  int                 `json:"total_members"`
	ActiveMembers int                 `json:"active_members"`
	LastImport    *models.ImportBatch `json:"last_import"`
}

// handleAdminServerOverview returns uptime, health, metrics and record counts.
func (s *Server) handleAdminServerOverview(w http.ResponseWriter, r *http.Request) {
	resp := serverOverviewResponse{
		Uptime:        humanize.RelTime(s.startTime, time.Now(), "", ""),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Health:        "ok",
		Driver:        s.store.Driver(),
		Metrics:       s.metrics.Snapshot(),
	}
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Health = "error"
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		users, err := s.store.ListUsers(ctx)
		resp.TotalUsers = len(users)
		return err
	})
	g.Go(func() error {
		var err error
		resp.TotalMembers, err = s.store.CountMembers(ctx, store.MemberFilter{MemberStatus: "all"})
		return err
	})
	g.Go(func() error {
		var err error
		resp.ActiveMembers, err = s.store.CountMembers(ctx, store.MemberFilter{MemberStatus: models.MemberActive})
		return err
	})
	g.Go(func() error {
		batches, err := s.store.ListImportBatches(ctx, 1)
		if len(batches) > 0 {
			resp.LastImport = &batches[0]
		}
		return err
	})
	if err := g.Wait(); err != nil {
		writeStoreError(w, r, err, "load overview")
		return
	}
	resp.SchemaVersion = s.store.SchemaVersion(r.Context())

	writeJSON(w, http.StatusOK, resp)
}

// serverConfigResponse is the JSON response for GET /api/admin/config.
type serverConfigResponse struct {
	ListenAddr     string   `json:"listen_addr"`
	BaseURL        string   `json:"base_url"`
	Production     bool     `json:"production"`
	RateLimitLogin int      `json:"rate_limit_login"`
	MaxBody        string   `json:"max_body"`
	UploadMax      string   `json:"upload_max"`
	CORSOrigins    []string `json:"cors_origins"`
}

// handleAdminServerConfig returns non-secret config values.
func (s *Server) handleAdminServerConfig(w http.ResponseWriter, r *http.Request) {
	origins := s.config.CORSAllowedOrigins
	if origins == nil {
		origins = []string{}
	}

	writeJSON(w, http.StatusOK, serverConfigResponse{
		ListenAddr:     s.config.ListenAddr,
		BaseURL:        s.config.BaseURL,
		Production:     s.config.Production,
		RateLimitLogin: s.config.RateLimitLogin,
		MaxBody:        humanize.IBytes(uint64(s.config.MaxBodyBytes)),
		UploadMax:      humanize.IBytes(uint64(s.config.UploadMaxBytes)),
		CORSOrigins:    origins,
	})
}
