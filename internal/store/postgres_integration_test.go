//go:build integration

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jpcc/flock/internal/models"
)

// startPostgres runs a throwaway Postgres container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "flock",
				"POSTGRES_PASSWORD": "flock",
				"POSTGRES_DB":       "flock",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://flock:flock@%s:%s/flock?sslmode=disable", host, port.Port())
}

func TestPostgres_EndToEnd(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.now = func() time.Time { return testNow }

	if v := db.SchemaVersion(ctx); v != SchemaVersion {
		t.Errorf("schema version = %d", v)
	}

	year := 2024
	m, err := db.CreateMember(ctx, models.MemberInput{
		FirstName:      "Ana",
		LastName:       "Reyes",
		DateOfBirth:    "2000-01-01",
		ChurchMinistry: []string{"Media"},
		Trainings:      []models.SpiritualTraining{{TrainingType: "sol1", Year: &year}},
		Households:     []models.HouseholdMember{{Name: "Ben", Relationship: "Son"}},
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	got, err := db.GetMember(ctx, m.ID)
	if err != nil || got == nil {
		t.Fatalf("get member: %v", err)
	}
	if len(got.Trainings) != 1 || got.Trainings[0].TrainingType != models.TrainingSOL1 || len(got.Households) != 1 {
		t.Errorf("children = %+v / %+v", got.Trainings, got.Households)
	}

	list, err := db.ListMembers(ctx, MemberFilter{Search: "rey", Training: models.TrainingSOL1})
	if err != nil || len(list) != 1 {
		t.Errorf("filtered list = %d, %v", len(list), err)
	}

	if _, err := db.SetAttendance(ctx, m.ID, "2026-02-15", models.StatusPresent); err != nil {
		t.Fatalf("set attendance: %v", err)
	}
	if _, err := db.SetAttendance(ctx, m.ID, "2026-02-15", models.StatusAbsent); err != nil {
		t.Fatalf("re-mark attendance: %v", err)
	}
	s, err := db.AttendanceSummary(ctx, "2026-02-15")
	if err != nil || s.AbsentCount != 1 || s.TotalCount != 1 {
		t.Errorf("summary = %+v, %v", s, err)
	}

	if _, err := db.CreateUser(ctx, "admin@test.com", "password1", models.RoleAdmin); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := db.CreateUser(ctx, "ADMIN@test.com", "password1", models.RoleAdmin); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate user: %v", err)
	}

	if err := db.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}
}
