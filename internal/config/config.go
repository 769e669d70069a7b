// Package config loads flock settings from an optional YAML file and FLOCK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "flock.yaml"

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

// minSecretLen matches the HS256 key size requirement
const minSecretLen = 32

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Uploads  UploadsConfig  `yaml:"uploads"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr         string   `yaml:"listen_addr"`
	BaseURL            string   `yaml:"base_url"`
	ShutdownTimeout    Duration `yaml:"shutdown_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins,omitempty"`
	RateLimitLogin     int      `yaml:"rate_limit_login"` // login attempts per IP per minute
	MaxBodyBytes       int64    `yaml:"max_body_bytes"`
	Production         bool     `yaml:"production"` // Secure cookies
	TrustProxy         bool     `yaml:"trust_proxy"` // take the client IP from X-Forwarded-For
}

// DatabaseConfig selects the store driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite (default), sqlite3, postgres
	DSN    string `yaml:"dsn"`
}

// AuthConfig holds token secrets and lifetimes.
type AuthConfig struct {
	AccessSecret  string   `yaml:"access_secret"`
	RefreshSecret string   `yaml:"refresh_secret"`
	AccessTTL     Duration `yaml:"access_ttl"`
	RefreshTTL    Duration `yaml:"refresh_ttl"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info (default), warn, error
	Format string `yaml:"format"` // json (default) or text
}

// UploadsConfig controls member photo uploads.
type UploadsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			BaseURL:         "http://localhost:8080",
			ShutdownTimeout: Duration(30 * time.Second),
			RateLimitLogin:  10,
			MaxBodyBytes:    10 << 20,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "./data/flock.db",
		},
		Auth: AuthConfig{
			AccessTTL:  Duration(3 * time.Hour),
			RefreshTTL: Duration(7 * 24 * time.Hour),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Uploads: UploadsConfig{
			Dir:      "./data/uploads",
			MaxBytes: 5 << 20,
		},
	}
}

// Load reads the YAML file at path (a missing file is not an error) and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg as YAML using an atomic write (temp file + rename).
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "flock-*.yaml.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Validate checks settings the server cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverSQLite3, DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if len(c.Auth.AccessSecret) < minSecretLen {
		return fmt.Errorf("auth.access_secret must be at least %d bytes", minSecretLen)
	}
	if len(c.Auth.RefreshSecret) < minSecretLen {
		return fmt.Errorf("auth.refresh_secret must be at least %d bytes", minSecretLen)
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth.access_secret and auth.refresh_secret must differ")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FLOCK_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.Server.ListenAddr = ":" + v
	}
	if v := os.Getenv("FLOCK_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("FLOCK_SHUTDOWN_TIMEOUT"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			c.Server.ShutdownTimeout = Duration(d)
		}
	}
	if v := os.Getenv("FLOCK_CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSAllowedOrigins = append(c.Server.CORSAllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("FLOCK_RATE_LIMIT_LOGIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.RateLimitLogin = n
		}
	}
	if v := os.Getenv("FLOCK_PRODUCTION"); v != "" {
		c.Server.Production = v == "true" || v == "1"
	}
	if v := os.Getenv("FLOCK_TRUST_PROXY"); v != "" {
		c.Server.TrustProxy = v == "true" || v == "1"
	}

	// DATABASE_URL is what hosted Postgres providers (Supabase) hand out.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.Driver = DriverPostgres
		c.Database.DSN = v
	}
	if v := os.Getenv("FLOCK_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("FLOCK_DB_DSN"); v != "" {
		c.Database.DSN = v
	}

	if v := firstEnv("FLOCK_ACCESS_TOKEN_SECRET", "ACCESS_TOKEN_SECRET"); v != "" {
		c.Auth.AccessSecret = v
	}
	if v := firstEnv("FLOCK_REFRESH_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"); v != "" {
		c.Auth.RefreshSecret = v
	}
	if v := os.Getenv("FLOCK_ACCESS_TOKEN_TTL"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			c.Auth.AccessTTL = Duration(d)
		}
	}
	if v := os.Getenv("FLOCK_REFRESH_TOKEN_TTL"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			c.Auth.RefreshTTL = Duration(d)
		}
	}

	if v := os.Getenv("FLOCK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FLOCK_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("FLOCK_UPLOAD_DIR"); v != "" {
		c.Uploads.Dir = v
	}
	if v := os.Getenv("FLOCK_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Uploads.MaxBytes = n
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Duration is a time.Duration that reads "90s", "3h" or "7d" from YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v := parseDaysDuration(s)
	if v <= 0 {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	v := time.Duration(d)
	if v > 0 && v%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", v/(24*time.Hour)), nil
	}
	return v.String(), nil
}

// parseDaysDuration parses a string like "90d", "30d" into a time.Duration.
// Falls back to time.ParseDuration for standard Go durations.
func parseDaysDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 0
}
