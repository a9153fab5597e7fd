// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when a username is already taken.
var ErrUserExists = errors.New("username already taken")

// Session load failures. Callers treat all three as "not logged in".
var (
	ErrNoSession         = errors.New("no session")
	ErrSessionUnreadable = errors.New("session file unreadable")
	ErrSessionCorrupt    = errors.New("session file corrupt")
)
