// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is how long a persisted session stays valid after login.
const SessionTTL = 24 * time.Hour

// maxClockSkew bounds how far in the future a login timestamp may be before
// the record is considered corrupt. Without it a hand-edited timestamp would
// never expire.
const maxClockSkew = 5 * time.Minute

// LocalTimeLayout is the timezone-naive layout of persisted timestamps.
const LocalTimeLayout = "2006-01-02T15:04:05.999999999"

// LocalTime is a wall-clock timestamp in the local time zone, serialized
// without an offset.
type LocalTime struct {
	time.Time
}

// MarshalJSON encodes t as a naive local timestamp string.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.In(time.Local).Format(LocalTimeLayout))
}

// UnmarshalJSON accepts the naive layout, and RFC 3339 for records written
// by other tools.
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return oops.Code("SESSION_INVALID_TIMESTAMP").Errorf("timestamp cannot be null")
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return oops.Code("SESSION_INVALID_TIMESTAMP").Wrap(err)
	}
	parsed, err := time.ParseInLocation(LocalTimeLayout, s, time.Local)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return oops.Code("SESSION_INVALID_TIMESTAMP").With("value", s).Wrap(err)
		}
		parsed = parsed.In(time.Local)
	}
	t.Time = parsed
	return nil
}

// SessionRecord is the persisted snapshot of one login. Role and Username
// are informational copies taken at login time; authorization always uses
// the user resolved from UserID.
type SessionRecord struct {
	SessionID ulid.ULID `json:"sessionId,omitzero"`
	UserID    int64     `json:"userId" jsonschema:"required,minimum=1"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	LoginAt   LocalTime `json:"loginAt" jsonschema:"required"`
}

// NewSessionRecord creates a record for user logged in at loginAt.
func NewSessionRecord(user *User, loginAt time.Time) (*SessionRecord, error) {
	if user == nil {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user cannot be nil")
	}
	if user.ID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").
			With("user_id", user.ID).
			Errorf("user ID must be positive")
	}
	if loginAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_TIMESTAMP").Errorf("login time cannot be zero")
	}
	return &SessionRecord{
		SessionID: ulid.Make(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		LoginAt:   LocalTime{Time: loginAt},
	}, nil
}

// Validate checks the fields a restored record must carry.
func (r *SessionRecord) Validate() error {
	if r.UserID <= 0 {
		return oops.Code("SESSION_INVALID_USER").
			With("user_id", r.UserID).
			Errorf("user ID must be positive")
	}
	if r.LoginAt.IsZero() {
		return oops.Code("SESSION_INVALID_TIMESTAMP").Errorf("login time missing")
	}
	return nil
}

// Age returns the wall-clock time elapsed between login and now.
func (r *SessionRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LoginAt.Time)
}

// IsExpiredAt reports whether the session has reached SessionTTL at now.
func (r *SessionRecord) IsExpiredAt(now time.Time) bool {
	return r.Age(now) >= SessionTTL
}

// IsFromFutureAt reports whether the login timestamp lies further ahead of
// now than clock skew explains.
func (r *SessionRecord) IsFromFutureAt(now time.Time) bool {
	return r.Age(now) < -maxClockSkew
}
