// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// UserHasRole reports whether u's role equals role, ignoring case.
// A nil user has no roles.
func UserHasRole(u *User, role string) bool {
	if u == nil {
		return false
	}
	return roleEqual(u.Role, role)
}

func roleEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// RequireRole returns nil if the current principal holds any of roles.
// It fails with AUTH_NOT_LOGGED_IN when no one is logged in and with
// AUTH_FORBIDDEN otherwise.
func RequireRole(ac *Context, roles ...string) error {
	if ac == nil || !ac.IsLoggedIn() {
		return oops.Code("AUTH_NOT_LOGGED_IN").Errorf("you must be logged in")
	}
	for _, role := range roles {
		if ac.HasRole(role) {
			return nil
		}
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("role", ac.Current().Role).
		With("required", roles).
		Errorf("permission denied: requires role %s", strings.Join(roles, " or "))
}

// RequireLogin returns AUTH_NOT_LOGGED_IN unless a principal is set.
func RequireLogin(ac *Context) error {
	if ac == nil || !ac.IsLoggedIn() {
		return oops.Code("AUTH_NOT_LOGGED_IN").Errorf("you must be logged in")
	}
	return nil
}
