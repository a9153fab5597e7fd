// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/pkg/errutil"
)

// NewLoginCmd creates the login subcommand.
func NewLoginCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in and remember the session for 24 hours",
		Args:        cobra.NoArgs,
		Annotations: authRequired,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLogin(cmd.Context(), username)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when omitted)")

	return cmd
}

func (a *app) runLogin(ctx context.Context, username string) error {
	if username == "" {
		line, err := a.deps.Prompter.ReadLine("Username: ")
		if err != nil {
			return err
		}
		username = line
	}
	password, err := a.deps.Prompter.ReadPassword("Password: ")
	if err != nil {
		return err
	}

	if err := a.checkLockout(ctx, username); err != nil {
		return err
	}

	svc, err := a.authService()
	if err != nil {
		return err
	}
	user, err := svc.Authenticate(ctx, username, password)
	a.recordLogin(ctx, user, username, err == nil)
	if err != nil {
		if errutil.HasCode(err, "AUTH_INVALID_CREDENTIALS") {
			a.logger.Info("login rejected", "username", username)
		}
		return err
	}

	res := a.ac.Login(user)
	if res.Err != nil {
		errutil.LogWarn(a.logger, "login not persisted", res.Err)
	}
	fmt.Fprintln(a.stdout, res.Message)
	if !res.Success {
		return oops.Code("AUTH_LOGIN_FAILED").Errorf("%s", res.Message)
	}
	return nil
}

// checkLockout refuses logins for accounts with too many recent failures.
// Locked attempts are not recorded, so the lockout cannot be extended by
// hammering it. An unavailable history does not block the login.
func (a *app) checkLockout(ctx context.Context, username string) error {
	users, err := a.userStore(ctx)
	if err != nil {
		return nil //nolint:nilerr // Authenticate reports the store failure
	}
	events, err := users.RecentLogins(ctx, username, auth.LockoutThreshold)
	if err != nil {
		errutil.LogWarn(a.logger, "reading login history failed", err)
		return nil
	}

	attempts := make([]auth.Attempt, 0, len(events))
	for _, e := range events {
		attempts = append(attempts, auth.Attempt{Succeeded: e.Succeeded, At: e.OccurredAt})
	}
	result := auth.CheckLockout(attempts, a.deps.Clock())
	if !result.IsLockedOut {
		return nil
	}
	wait := (result.LockoutRemaining + time.Minute - 1).Truncate(time.Minute)
	a.logger.Warn("login refused, account locked", "username", username, "failures", result.Failures)
	return oops.Code("AUTH_LOCKED_OUT").
		With("username", username).
		With("remaining", result.LockoutRemaining.String()).
		Errorf("too many failed login attempts; try again in %s", wait)
}

// recordLogin appends to the login history. Failures only get logged.
func (a *app) recordLogin(ctx context.Context, user *auth.User, username string, succeeded bool) {
	users, err := a.userStore(ctx)
	if err != nil {
		return
	}
	var id int64
	if user != nil {
		id = user.ID
	}
	if err := users.RecordLogin(ctx, id, username, succeeded); err != nil {
		errutil.LogWarn(a.logger, "recording login failed", err)
	}
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the saved session",
		Args:        cobra.NoArgs,
		Annotations: authRequired,
		RunE: func(_ *cobra.Command, _ []string) error {
			res := a.ac.Logout()
			if res.Err != nil {
				errutil.LogError(a.logger, "logout failed", res.Err)
			}
			fmt.Fprintln(a.stdout, res.Message)
			if !res.Success {
				return oops.Code("AUTH_LOGOUT_FAILED").Errorf("%s", res.Message)
			}
			return nil
		},
	}
}

// whoami is the machine-readable form of the whoami output.
type whoami struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	LoginAt   time.Time `json:"loginAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "whoami",
		Short:       "Show the logged-in user",
		Args:        cobra.NoArgs,
		Annotations: authRequired,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := auth.RequireLogin(a.ac); err != nil {
				return err
			}
			user := a.ac.Current()
			loginAt := a.ac.Record().LoginAt.Time
			info := whoami{
				UserID:    user.ID,
				Username:  user.Username,
				Role:      user.Role,
				LoginAt:   loginAt,
				ExpiresAt: loginAt.Add(auth.SessionTTL),
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(a.stdout, "%s (%s)\n", info.Username, info.Role)
			fmt.Fprintf(a.stdout, "Logged in: %s\n", info.LoginAt.Format(time.DateTime))
			fmt.Fprintf(a.stdout, "Expires:   %s\n", info.ExpiresAt.Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
