package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpcc/flock/internal/models"
)

// Fixed reference time: Wednesday, 2026-02-18 12:00:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.now = func() time.Time { return testNow }
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateMember(t *testing.T, db *DB, in models.MemberInput) *models.Member {
	t.Helper()
	m, err := db.CreateMember(context.Background(), in)
	if err != nil {
		t.Fatalf("create member %s: %v", in.FirstName, err)
	}
	return m
}

func TestOpen_FreshSchema(t *testing.T) {
	db := newTestDB(t)
	if v := db.SchemaVersion(context.Background()); v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpen_FileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "flock.db")

	db, err := Open(ctx, Config{DSN: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if db.Driver() != DriverSQLite {
		t.Errorf("default driver = %q", db.Driver())
	}
	if _, err := db.CreateMember(ctx, models.MemberInput{FirstName: "Ana"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	db.Close()

	db, err = Open(ctx, Config{DSN: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	n, err := db.RunMigrations(ctx)
	if err != nil || n != 0 {
		t.Errorf("second migration run = %d, %v; want 0, nil", n, err)
	}
	count, err := db.CountMembers(ctx, MemberFilter{})
	if err != nil || count != 1 {
		t.Errorf("count after reopen = %d, %v", count, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSqlitePath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{":memory:", ""},
		{"file::memory:?cache=shared", ""},
		{"file:test.db?mode=memory", ""},
		{"./data/flock.db", "./data/flock.db"},
		{"file:/srv/flock.db?_pragma=busy_timeout(5000)", "/srv/flock.db"},
	}
	for _, tt := range tests {
		if got := sqlitePath(tt.dsn); got != tt.want {
			t.Errorf("sqlitePath(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestDialect(t *testing.T) {
	sqlite := dialect(DriverSQLite, schema)
	pg := dialect(DriverPostgres, schema)

	if !strings.Contains(sqlite, "INTEGER PRIMARY KEY AUTOINCREMENT") || strings.Contains(sqlite, "BIGSERIAL") {
		t.Error("sqlite dialect not applied")
	}
	if !strings.Contains(pg, "BIGSERIAL PRIMARY KEY") || !strings.Contains(pg, "TIMESTAMPTZ") || strings.Contains(pg, "{{") {
		t.Error("postgres dialect not applied")
	}
}
