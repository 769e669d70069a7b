package api

import (
	"time"

	"github.com/jpcc/flock/internal/config"
)

// Config holds the HTTP server settings.
type Config struct {
	ListenAddr      string
	BaseURL         string
	ShutdownTimeout time.Duration
	Production      bool // Secure refresh cookies
	TrustProxy      bool // behind a reverse proxy that appends X-Forwarded-For

	RateLimitLogin int   // login attempts per IP per minute (default: 10)
	MaxBodyBytes   int64 // request body cap (default: 10 MiB)

	CORSAllowedOrigins []string // empty = CORS headers disabled

	UploadDir      string
	UploadMaxBytes int64 // photo size cap (default: 5 MiB)
}

// ConfigFrom maps the application config onto server settings, filling defaults.
func ConfigFrom(c *config.Config) Config {
	cfg := Config{
		ListenAddr:         c.Server.ListenAddr,
		BaseURL:            c.Server.BaseURL,
		ShutdownTimeout:    c.Server.ShutdownTimeout.Std(),
		Production:         c.Server.Production,
		TrustProxy:         c.Server.TrustProxy,
		RateLimitLogin:     c.Server.RateLimitLogin,
		MaxBodyBytes:       c.Server.MaxBodyBytes,
		CORSAllowedOrigins: c.Server.CORSAllowedOrigins,
		UploadDir:          c.Uploads.Dir,
		UploadMaxBytes:     c.Uploads.MaxBytes,
	}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.RateLimitLogin <= 0 {
		c.RateLimitLogin = rateLimitLogin
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.UploadDir == "" {
		c.UploadDir = "./data/uploads"
	}
	if c.UploadMaxBytes <= 0 {
		c.UploadMaxBytes = 5 << 20
	}
}
