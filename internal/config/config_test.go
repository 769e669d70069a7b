package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"FLOCK_LISTEN_ADDR", "PORT", "FLOCK_BASE_URL", "FLOCK_SHUTDOWN_TIMEOUT",
	"FLOCK_CORS_ALLOWED_ORIGINS", "FLOCK_RATE_LIMIT_LOGIN", "FLOCK_PRODUCTION", "FLOCK_TRUST_PROXY",
	"DATABASE_URL", "FLOCK_DB_DRIVER", "FLOCK_DB_DSN",
	"FLOCK_ACCESS_TOKEN_SECRET", "ACCESS_TOKEN_SECRET",
	"FLOCK_REFRESH_TOKEN_SECRET", "REFRESH_TOKEN_SECRET",
	"FLOCK_ACCESS_TOKEN_TTL", "FLOCK_REFRESH_TOKEN_TTL",
	"FLOCK_LOG_LEVEL", "FLOCK_LOG_FORMAT", "FLOCK_UPLOAD_DIR", "FLOCK_UPLOAD_MAX_BYTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3*time.Hour, cfg.Auth.AccessTTL.Std())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL.Std())
	assert.Equal(t, int64(5<<20), cfg.Uploads.MaxBytes)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flock.yaml")
	yml := `
server:
  listen_addr: ":9000"
  shutdown_timeout: 10s
  cors_allowed_origins: ["https://app.example.org"]
database:
  driver: postgres
  dsn: postgres://u:p@localhost/flock
auth:
  access_ttl: 1h
  refresh_ttl: 14d
logging:
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Std())
	assert.Equal(t, []string{"https://app.example.org"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL.Std())
	assert.Equal(t, 14*24*time.Hour, cfg.Auth.RefreshTTL.Std())
	assert.Equal(t, "text", cfg.Logging.Format)
	// untouched keys keep defaults
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  access_ttl: soon\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3001")
	t.Setenv("DATABASE_URL", "postgres://supabase/db")
	t.Setenv("ACCESS_TOKEN_SECRET", "legacy-access")
	t.Setenv("FLOCK_ACCESS_TOKEN_SECRET", "preferred-access")
	t.Setenv("FLOCK_REFRESH_TOKEN_TTL", "30d")
	t.Setenv("FLOCK_CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("FLOCK_PRODUCTION", "true")
	t.Setenv("FLOCK_TRUST_PROXY", "1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.ListenAddr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://supabase/db", cfg.Database.DSN)
	assert.Equal(t, "preferred-access", cfg.Auth.AccessSecret)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL.Std())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.True(t, cfg.Server.Production)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoad_ListenAddrBeatsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3001")
	t.Setenv("FLOCK_LISTEN_ADDR", "127.0.0.1:7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.ListenAddr)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "flock.yaml")
	cfg := Default()
	cfg.Database.DSN = "/srv/flock.db"
	cfg.Auth.RefreshTTL = Duration(10 * 24 * time.Hour)

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	secret := func(c byte) string {
		b := make([]byte, minSecretLen)
		for i := range b {
			b[i] = c
		}
		return string(b)
	}

	cfg := Default()
	cfg.Auth.AccessSecret = secret('a')
	cfg.Auth.RefreshSecret = secret('r')
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Database.Driver = "mysql"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Auth.AccessSecret = "short"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Auth.RefreshSecret = bad.Auth.AccessSecret
	assert.Error(t, bad.Validate())
}

func TestParseDaysDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"90d", 90 * 24 * time.Hour},
		{"3h", 3 * time.Hour},
		{" 1m30s ", 90 * time.Second},
		{"0d", 0},
		{"junk", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDaysDuration(tt.input), tt.input)
	}
}
