// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/tutordesk/tutordesk/internal/auth"
)

// Creator persists new users.
type Creator interface {
	Create(ctx context.Context, user *auth.User) error
}

// Report lists what an import did, by username.
type Report struct {
	Created []string
	Skipped []string
}

// Importer creates the users of a seed file.
type Importer struct {
	users  Creator
	hasher auth.PasswordHasher
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(users Creator, hasher auth.PasswordHasher, logger *slog.Logger) *Importer {
	return &Importer{users: users, hasher: hasher, logger: logger}
}

// Import creates every user in f. Users whose name is already taken are
// skipped; any other failure stops the import and returns what was done so far.
func (i *Importer) Import(ctx context.Context, f *File) (Report, error) {
	var report Report
	for _, entry := range f.Users {
		user, err := i.build(entry)
		if err != nil {
			return report, err
		}

		err = i.users.Create(ctx, user)
		switch {
		case errors.Is(err, auth.ErrUserExists):
			i.logger.Info("seed user already exists", "username", entry.Username)
			report.Skipped = append(report.Skipped, entry.Username)
		case err != nil:
			return report, oops.Code("SEED_IMPORT_FAILED").With("username", entry.Username).Wrap(err)
		default:
			i.logger.Info("seed user created", "username", user.Username, "role", user.Role, "user_id", user.ID)
			report.Created = append(report.Created, entry.Username)
		}
	}
	return report, nil
}

func (i *Importer) build(entry User) (*auth.User, error) {
	hash := entry.PasswordHash
	if hash != "" {
		if _, err := auth.DecodeHash(hash); err != nil {
			return nil, oops.Code("SEED_INVALID").With("username", entry.Username).Wrap(err)
		}
	} else {
		var err error
		hash, err = i.hasher.Hash(entry.Password)
		if err != nil {
			return nil, oops.Code("SEED_IMPORT_FAILED").With("username", entry.Username).Wrap(err)
		}
	}

	user, err := auth.NewUser(entry.Username, hash, entry.Role)
	if err != nil {
		return nil, oops.Code("SEED_INVALID").With("username", entry.Username).Wrap(err)
	}
	return user, nil
}
