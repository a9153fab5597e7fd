// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"time"
)

// Lockout configuration.
const (
	// LockoutDuration is how long an account stays locked after the last
	// failed attempt of a run that reached LockoutThreshold.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that locks
	// an account.
	LockoutThreshold = 7
)

// Attempt is one recorded login attempt.
type Attempt struct {
	Succeeded bool
	At        time.Time
}

// LockoutResult contains the result of a lockout check.
type LockoutResult struct {
	// Failures is the number of consecutive failures since the last success.
	Failures int

	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckLockout evaluates recent attempts, newest first. Failures count back
// to the most recent success; once LockoutThreshold is reached the account
// stays locked until LockoutDuration after the newest failure.
func CheckLockout(attempts []Attempt, now time.Time) LockoutResult {
	result := LockoutResult{}

	var newestFailure time.Time
	for _, a := range attempts {
		if a.Succeeded {
			break
		}
		if result.Failures == 0 {
			newestFailure = a.At
		}
		result.Failures++
	}

	if result.Failures < LockoutThreshold {
		return result
	}

	if until := newestFailure.Add(LockoutDuration); until.After(now) {
		result.IsLockedOut = true
		result.LockoutRemaining = until.Sub(now)
	}
	return result
}
