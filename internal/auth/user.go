// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Known roles. Role comparison is case-insensitive; these are the canonical
// spellings written to storage.
const (
	RoleAdmin   = "ADMIN"
	RoleTutor   = "TUTOR"
	RoleStudent = "STUDENT"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a user account. A *User obtained from a UserLookup is the live
// principal; its Role governs authorization.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserLookup resolves users. Implementations return an error wrapping
// ErrNotFound when no user matches.
type UserLookup interface {
	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByUsername retrieves a user by username (case-insensitive).
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// PasswordUpdater is implemented by user stores that can replace a stored
// password hash.
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// NormalizeRole returns the canonical spelling of a known role.
func NormalizeRole(role string) (string, error) {
	switch upper := strings.ToUpper(strings.TrimSpace(role)); upper {
	case RoleAdmin, RoleTutor, RoleStudent:
		return upper, nil
	default:
		return "", oops.Code("AUTH_INVALID_ROLE").
			With("role", role).
			Errorf("unknown role %q (want one of %s, %s, %s)", role, RoleAdmin, RoleTutor, RoleStudent)
	}
}

// NewUser creates a validated User with a normalized role. The password
// hash must already be encoded by a PasswordHasher.
func NewUser(username, passwordHash, role string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         normalized,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
