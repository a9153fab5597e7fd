// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/auth/postgres"
	"github.com/tutordesk/tutordesk/internal/seed"
	"github.com/tutordesk/tutordesk/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenUsers connects to the user database. The returned func releases it.
	// Default: store.Open + postgres.NewUserRepository
	OpenUsers func(ctx context.Context, databaseURL string, logger *slog.Logger) (UserStore, func(), error)

	// NewMigrator creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	NewMigrator func(databaseURL string) (Migrator, error)

	// Hasher hashes and verifies passwords.
	// Default: auth.NewArgon2idHasher
	Hasher auth.PasswordHasher

	// Prompter reads usernames and passwords.
	// Default: a terminal prompter on stdin
	Prompter Prompter

	// Clock returns the current time.
	// Default: time.Now
	Clock func() time.Time
}

// UserStore wraps the methods used from postgres.UserRepository.
type UserStore interface {
	auth.UserLookup
	auth.PasswordUpdater
	seed.Creator
	UpdateRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*auth.User, error)
	Count(ctx context.Context) (int, error)
	RecordLogin(ctx context.Context, userID int64, username string, succeeded bool) error
	RecentLogins(ctx context.Context, username string, limit int) ([]postgres.LoginEvent, error)
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Pending() ([]uint, error)
	Close() error
}

var (
	_ UserStore = (*postgres.UserRepository)(nil)
	_ Migrator  = (*store.Migrator)(nil)
)

func (d Deps) withDefaults() Deps {
	if d.OpenUsers == nil {
		d.OpenUsers = openPostgresUsers
	}
	if d.NewMigrator == nil {
		d.NewMigrator = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.Hasher == nil {
		d.Hasher = auth.NewArgon2idHasher()
	}
	if d.Prompter == nil {
		d.Prompter = newTerminalPrompter()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

func openPostgresUsers(ctx context.Context, databaseURL string, logger *slog.Logger) (UserStore, func(), error) {
	pool, err := store.Open(ctx, databaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepository(pool), pool.Close, nil
}
