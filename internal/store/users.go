package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jpcc/flock/internal/auth"
	"github.com/jpcc/flock/internal/models"
)

const userColumns = `id, email, password_hash, role, created_at, updated_at`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new account with a bcrypt-hashed password.
func (db *DB) CreateUser(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "a valid email is required")
	}
	if !role.IsValid() {
		return nil, invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, invalid("password", err.Error())
	}

	id, err := generateID("u_")
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	now := db.now()
	_, err = db.exec(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, hash, string(role), now, now)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &models.User{ID: id, Email: email, PasswordHash: hash, Role: role, CreatedAt: now, UpdatedAt: now}, nil
}

// GetUserByID returns the user with the given ID, or nil if not found.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail returns the user with the given email (case-insensitive), or nil if not found.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = ?`, normalizeEmail(email))
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	u := &models.User{}
	err := sqlx.GetContext(ctx, db.conn, u, db.conn.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by email.
func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	if err := sqlx.SelectContext(ctx, db.conn, &users, `SELECT `+userColumns+` FROM users ORDER BY email`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetPassword replaces a user's password.
func (db *DB) SetPassword(ctx context.Context, id, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return invalid("password", err.Error())
	}
	n, err := db.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, db.now(), id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRole changes a user's role.
func (db *DB) SetRole(ctx context.Context, id string, role models.Role) error {
	if !role.IsValid() {
		return invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	n, err := db.exec(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), db.now(), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	n, err := db.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Authenticate returns the user when email and password match, or nil otherwise.
func (db *DB) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		auth.CheckPassword("", password)
		return nil, nil
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}
