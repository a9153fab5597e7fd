// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// State is the authentication state of a Context.
type State int

// Context states.
const (
	StateUnauthenticated State = iota
	StateRestoring
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status classifies the outcome of a Context operation.
type Status int

// Operation outcomes.
const (
	StatusAuthenticated Status = iota
	StatusNotRemembered
	StatusLoggedOut
	StatusNoSession
	StatusExpired
	StatusUserNotFound
	StatusCorrupt
	StatusUnreadable
	StatusLookupFailed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusNotRemembered:
		return "not_remembered"
	case StatusLoggedOut:
		return "logged_out"
	case StatusNoSession:
		return "no_session"
	case StatusExpired:
		return "expired"
	case StatusUserNotFound:
		return "user_not_found"
	case StatusCorrupt:
		return "corrupt"
	case StatusUnreadable:
		return "unreadable"
	case StatusLookupFailed:
		return "lookup_failed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the user-facing outcome of a Context operation.
type Result struct {
	Success bool
	Status  Status
	Message string
	// Err is the underlying failure, if any. It is for logging; Message is
	// what users see.
	Err error
}

// Context holds the authenticated principal of one process. It is owned by
// the command layer and handed to every command that needs it; it is not
// safe for concurrent use.
type Context struct {
	store   SessionStore
	users   UserLookup
	now     func() time.Time
	logger  *slog.Logger
	state   State
	current *User
	record  *SessionRecord
}

// Option configures a Context.
type Option func(*Context)

// WithClock sets the time source used for login timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext creates an unauthenticated Context.
func NewContext(store SessionStore, users UserLookup, opts ...Option) (*Context, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONTEXT").Errorf("session store is required")
	}
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONTEXT").Errorf("user lookup is required")
	}
	c := &Context{
		store:  store,
		users:  users,
		now:    time.Now,
		logger: slog.Default(),
		state:  StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Initialize restores the persisted session, if any. Expired, corrupt, and
// orphaned sessions are removed from the store. It must run once before any
// role check; later calls while authenticated return immediately.
func (c *Context) Initialize(ctx context.Context) Result {
	if c.state == StateAuthenticated && c.current != nil {
		return Result{
			Success: true,
			Status:  StatusAuthenticated,
			Message: fmt.Sprintf("Logged in as %s.", c.current.Username),
		}
	}

	c.state = StateRestoring
	result := c.restore(ctx)
	if result.Status != StatusAuthenticated {
		c.current = nil
		c.record = nil
		c.state = StateUnauthenticated
	}
	return result
}

func (c *Context) restore(ctx context.Context) Result {
	record, err := c.store.Load()
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSession):
		return Result{Status: StatusNoSession, Message: "Not logged in. Please log in."}
	case errors.Is(err, ErrSessionCorrupt):
		c.logger.Warn("discarding corrupt session", "error", err)
		c.clearStored("corrupt")
		return Result{Status: StatusCorrupt, Message: "Not logged in. Please log in.", Err: err}
	default:
		// Unreadable: keep the file, it may become readable again.
		c.logger.Warn("session file unreadable", "error", err)
		return Result{Status: StatusUnreadable, Message: "Not logged in. Please log in.", Err: err}
	}

	now := c.now()
	if record.IsExpiredAt(now) {
		c.logger.Info("session expired",
			"session_id", record.SessionID.String(),
			"user_id", record.UserID,
			"age", record.Age(now).String())
		c.clearStored("expired")
		return Result{Status: StatusExpired, Message: "Session expired. Please log in again."}
	}
	if record.IsFromFutureAt(now) {
		c.logger.Warn("discarding session with future login time",
			"session_id", record.SessionID.String(),
			"login_at", record.LoginAt.Time)
		c.clearStored("future timestamp")
		return Result{Status: StatusCorrupt, Message: "Not logged in. Please log in."}
	}

	user, err := c.users.FindByID(ctx, record.UserID)
	if errors.Is(err, ErrNotFound) {
		c.logger.Info("session user no longer exists", "user_id", record.UserID)
		c.clearStored("user not found")
		return Result{Status: StatusUserNotFound, Message: "Session user no longer exists. Please log in."}
	}
	if err != nil {
		return Result{
			Status:  StatusLookupFailed,
			Message: "Could not restore session: user lookup failed.",
			Err: oops.Code("AUTH_RESTORE_FAILED").
				With("operation", "find user by id").
				With("user_id", record.UserID).
				Wrap(err),
		}
	}
	if user == nil {
		c.clearStored("user not found")
		return Result{Status: StatusUserNotFound, Message: "Session user no longer exists. Please log in."}
	}

	c.current = user
	c.record = record
	c.state = StateAuthenticated

	// The stored role is a login-time snapshot; only mention it when it moved.
	msg := fmt.Sprintf("Welcome back, %s!", user.Username)
	if record.Role != "" && !roleEqual(record.Role, user.Role) {
		msg = fmt.Sprintf("Welcome back, %s! Your role changed from %s to %s.", user.Username, record.Role, user.Role)
	}
	return Result{Success: true, Status: StatusAuthenticated, Message: msg}
}

func (c *Context) clearStored(reason string) {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("failed to clear session", "reason", reason, "error", err)
	}
}

// Login adopts an already verified user as the current principal and
// persists a new session record. A failed save leaves the process
// authenticated but the login is not remembered.
func (c *Context) Login(user *User) Result {
	if user == nil {
		return Result{
			Status:  StatusFailed,
			Message: "Login failed.",
			Err:     oops.Code("AUTH_LOGIN_FAILED").Errorf("user cannot be nil"),
		}
	}

	record, err := NewSessionRecord(user, c.now())
	if err != nil {
		return Result{
			Status:  StatusFailed,
			Message: "Login failed.",
			Err:     oops.Code("AUTH_LOGIN_FAILED").With("operation", "create session record").Wrap(err),
		}
	}

	c.current = user
	c.record = record
	c.state = StateAuthenticated

	if err := c.store.Save(record); err != nil {
		return Result{
			Success: true,
			Status:  StatusNotRemembered,
			Message: fmt.Sprintf("Logged in as %s, but the session could not be saved; you will need to log in again next time.", user.Username),
			Err:     err,
		}
	}

	c.logger.Debug("session saved",
		"session_id", record.SessionID.String(),
		"user_id", user.ID)
	return Result{
		Success: true,
		Status:  StatusAuthenticated,
		Message: fmt.Sprintf("Logged in as %s (%s).", user.Username, user.Role),
	}
}

// Logout forgets the current principal and removes the stored session.
// Logging out twice is not an error.
func (c *Context) Logout() Result {
	c.current = nil
	c.record = nil
	c.state = StateUnauthenticated

	if err := c.store.Clear(); err != nil {
		return Result{
			Status:  StatusFailed,
			Message: "Logged out, but the saved session could not be removed.",
			Err:     err,
		}
	}
	return Result{Success: true, Status: StatusLoggedOut, Message: "Logged out."}
}

// IsLoggedIn reports whether a principal is set.
func (c *Context) IsLoggedIn() bool {
	return c.current != nil
}

// HasRole reports whether the current principal's live role matches role,
// ignoring case. It is false when no one is logged in.
func (c *Context) HasRole(role string) bool {
	return UserHasRole(c.current, role)
}

// Current returns the current principal, or nil.
func (c *Context) Current() *User {
	return c.current
}

// Record returns the session record backing the current principal, or nil.
func (c *Context) Record() *SessionRecord {
	return c.record
}

// State returns the current state.
func (c *Context) State() State {
	return c.state
}
