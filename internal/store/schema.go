package store

import "strings"

// SchemaVersion is the current database schema version
const SchemaVersion = 2

// Dialect placeholders substituted per driver before executing schema SQL.
const (
	phAutoID    = "{{AUTO_ID}}"
	phTimestamp = "{{TIMESTAMP}}"
)

const schema = `
CREATE TABLE IF NOT EXISTS members (
    member_id {{AUTO_ID}},
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL DEFAULT '',
    marital_status TEXT NOT NULL DEFAULT '',
    date_of_birth TEXT NOT NULL DEFAULT '',
    gender TEXT NOT NULL DEFAULT '',
    contact_number TEXT NOT NULL DEFAULT '',
    prev_church_attendee BOOLEAN NOT NULL DEFAULT FALSE,
    address TEXT NOT NULL DEFAULT '',
    age_group TEXT NOT NULL DEFAULT '',
    prev_church TEXT NOT NULL DEFAULT '',
    invited_by TEXT NOT NULL DEFAULT '',
    date_attended TEXT NOT NULL DEFAULT '',
    attending_cell_group BOOLEAN NOT NULL DEFAULT FALSE,
    cell_leader_name TEXT NOT NULL DEFAULT '',
    church_ministry TEXT NOT NULL DEFAULT '',
    consolidation TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    water_baptized BOOLEAN NOT NULL DEFAULT FALSE,
    willing_training BOOLEAN NOT NULL DEFAULT FALSE,
    member_status TEXT NOT NULL DEFAULT 'active',
    photo_url TEXT NOT NULL DEFAULT '',
    created_at {{TIMESTAMP}} NOT NULL,
    updated_at {{TIMESTAMP}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_members_name ON members(last_name, first_name);
CREATE INDEX IF NOT EXISTS idx_members_date_attended ON members(date_attended);

CREATE TABLE IF NOT EXISTS spiritual_trainings (
    id {{AUTO_ID}},
    member_id BIGINT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    training_type TEXT NOT NULL,
    year INTEGER,
    UNIQUE (member_id, training_type)
);

CREATE TABLE IF NOT EXISTS household_members (
    id {{AUTO_ID}},
    member_id BIGINT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    relationship TEXT NOT NULL DEFAULT '',
    date_of_birth TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_household_member ON household_members(member_id);

CREATE TABLE IF NOT EXISTS attendance (
    member_id BIGINT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    date TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('present', 'absent')),
    updated_at {{TIMESTAMP}} NOT NULL,
    PRIMARY KEY (member_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    created_at {{TIMESTAMP}} NOT NULL,
    updated_at {{TIMESTAMP}} NOT NULL
);
`

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add import_batches audit table",
		SQL: `CREATE TABLE IF NOT EXISTS import_batches (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL DEFAULT '',
			imported INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			user_id TEXT NOT NULL DEFAULT '',
			created_at {{TIMESTAMP}} NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_import_batches_created ON import_batches(created_at)`,
	},
}

// dialect rewrites portable schema SQL for the given driver.
func dialect(driver, sql string) string {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	if driver == DriverPostgres {
		autoID = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}
	return strings.NewReplacer(phAutoID, autoID, phTimestamp, ts).Replace(sql)
}
