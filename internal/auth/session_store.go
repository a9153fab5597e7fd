// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/tutordesk/tutordesk/internal/xdg"
)

// SessionStore persists the single session record of this host.
type SessionStore interface {
	// Save overwrites the stored record.
	Save(record *SessionRecord) error

	// Load returns the stored record. Errors wrap ErrNoSession,
	// ErrSessionUnreadable, or ErrSessionCorrupt.
	Load() (*SessionRecord, error)

	// Clear removes the stored record. Clearing an absent record succeeds.
	Clear() error
}

// FileSessionStore keeps the session record as a JSON document on disk.
// It does no locking; one CLI invocation at a time is assumed.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore creates a store backed by the file at path.
func NewFileSessionStore(path string) (*FileSessionStore, error) {
	if path == "" {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("session file path is required")
	}
	return &FileSessionStore{path: path}, nil
}

// Path returns the session file location.
func (s *FileSessionStore) Path() string {
	return s.path
}

// Save writes record to a temporary file next to the target and renames it
// into place, so readers see either the old or the new document.
func (s *FileSessionStore) Save(record *SessionRecord) error {
	if record == nil {
		return oops.Code("SESSION_SAVE_FAILED").Errorf("session record cannot be nil")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "marshal session").
			Wrap(err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "create session directory").
			Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "create temp file").
			With("dir", dir).
			Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "write session").
			With("path", s.path).
			Wrap(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close() //nolint:errcheck // chmod error takes precedence
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "chmod session").
			With("path", s.path).
			Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "close session").
			With("path", s.path).
			Wrap(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "replace session").
			With("path", s.path).
			Wrap(err)
	}
	return nil
}

// Load reads and validates the stored record. Unknown fields are ignored.
func (s *FileSessionStore) Load() (*SessionRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("SESSION_ABSENT").With("path", s.path).Wrap(ErrNoSession)
	}
	if err != nil {
		return nil, oops.Code("SESSION_UNREADABLE").
			With("path", s.path).
			Wrapf(errors.Join(ErrSessionUnreadable, err), "read session")
	}

	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, oops.Code("SESSION_CORRUPT").
			With("path", s.path).
			Wrapf(errors.Join(ErrSessionCorrupt, err), "parse session")
	}
	if err := record.Validate(); err != nil {
		return nil, oops.Code("SESSION_CORRUPT").
			With("path", s.path).
			Wrapf(errors.Join(ErrSessionCorrupt, err), "validate session")
	}
	return &record, nil
}

// Clear deletes the session file if present.
func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SESSION_CLEAR_FAILED").
			With("path", s.path).
			Wrap(err)
	}
	return nil
}
