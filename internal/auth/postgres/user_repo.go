// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package postgres stores tutordesk users in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/tutordesk/tutordesk/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by the repository, so
// pgxmock can stand in for it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, password_hash, role, created_at, updated_at`

// UserRepository implements auth.UserLookup and auth.PasswordUpdater.
type UserRepository struct {
	pool poolIface
}

var (
	_ auth.UserLookup      = (*UserRepository)(nil)
	_ auth.PasswordUpdater = (*UserRepository)(nil)
)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "find user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// FindByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "find user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// Create inserts user and fills in its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, user.Username, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return oops.Code("USER_EXISTS").
			With("username", user.Username).
			Wrapf(auth.ErrUserExists, "username %q is already taken", user.Username)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash of user id.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	return checkUpdate(tag, err, "update password", id)
}

// UpdateRole sets the role of user id. role must already be normalized.
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`,
		id, role)
	return checkUpdate(tag, err, "update role", id)
}

// Delete removes user id and its login history.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return checkUpdate(tag, err, "delete user", id)
}

// List returns all users ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY LOWER(username)`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, oops.Code("USER_COUNT_FAILED").Wrap(err)
	}
	return n, nil
}

// LoginEvent is one recorded login attempt.
type LoginEvent struct {
	Username   string
	Succeeded  bool
	OccurredAt time.Time
}

// RecordLogin stores a login attempt. userID is zero when the username did
// not resolve to a user.
func (r *UserRepository) RecordLogin(ctx context.Context, userID int64, username string, succeeded bool) error {
	var uid *int64
	if userID > 0 {
		uid = &userID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_events (user_id, username, succeeded) VALUES ($1, $2, $3)`,
		uid, username, succeeded)
	if err != nil {
		return oops.Code("LOGIN_RECORD_FAILED").With("username", username).Wrap(err)
	}
	return nil
}

// RecentLogins returns up to limit login attempts for username, newest first.
func (r *UserRepository) RecentLogins(ctx context.Context, username string, limit int) ([]LoginEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT username, succeeded, occurred_at
		FROM login_events
		WHERE LOWER(username) = LOWER($1)
		ORDER BY occurred_at DESC
		LIMIT $2
	`, username, limit)
	if err != nil {
		return nil, oops.Code("LOGIN_HISTORY_FAILED").With("username", username).Wrap(err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowToStructByPos[LoginEvent])
	if err != nil {
		return nil, oops.Code("LOGIN_HISTORY_FAILED").With("username", username).Wrap(err)
	}
	return events, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	return &u, nil
}

func checkUpdate(tag pgconn.CommandTag, err error, operation string, id int64) error {
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
