// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service verifies credentials. It does not touch the session; callers pass
// the returned user to Context.Login.
type Service struct {
	users  UserLookup
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAuthService creates a new Service.
func NewAuthService(users UserLookup, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service that logs through logger.
func NewAuthServiceWithLogger(users UserLookup, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user lookup is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// dummyPasswordHash is verified when the username does not exist, so a
// missing user costs the same argon2id work as a wrong password. It uses the
// default parameters and matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticate checks username and password and returns the matching user.
// Unknown usernames and wrong passwords produce the same
// AUTH_INVALID_CREDENTIALS error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, lookupErr := s.users.FindByUsername(ctx, username)

	var targetHash string
	switch {
	case lookupErr == nil && user != nil:
		targetHash = user.PasswordHash
	case lookupErr == nil, errors.Is(lookupErr, ErrNotFound):
		user = nil
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by username").
			Wrap(lookupErr)
	}

	// Always verify, even for unknown users.
	valid := s.hasher.Verify(password, targetHash)
	if user == nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return user, nil
}

// upgradeHash re-hashes password with current parameters when the user
// store supports it. Failures are logged and otherwise ignored.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	updater, ok := s.users.(PasswordUpdater)
	if !ok {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := updater.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.Warn("storing rehashed password failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.Info("upgraded password hash parameters", "user_id", user.ID)
}

// ChangePassword verifies current for user and stores a hash of next.
func (s *Service) ChangePassword(ctx context.Context, user *User, current, next string) error {
	if user == nil {
		return oops.Code("AUTH_NOT_LOGGED_IN").Errorf("you must be logged in")
	}
	updater, ok := s.users.(PasswordUpdater)
	if !ok {
		return oops.Code("AUTH_UNSUPPORTED").Errorf("user store cannot update passwords")
	}

	stored, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").
			With("operation", "find user by id").
			With("user_id", user.ID).
			Wrap(err)
	}
	if !s.hasher.Verify(current, stored.PasswordHash) {
		return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("current password is incorrect")
	}

	newHash, err := s.hasher.Hash(next)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := updater.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return oops.Code("AUTH_PASSWORD_CHANGE_FAILED").
			With("operation", "update password").
			With("user_id", user.ID).
			Wrap(err)
	}
	user.PasswordHash = newHash
	return nil
}
