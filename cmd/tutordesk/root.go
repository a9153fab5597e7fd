// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/config"
	"github.com/tutordesk/tutordesk/internal/logging"
	"github.com/tutordesk/tutordesk/pkg/errutil"
)

// annotationAuth marks commands that act on behalf of the logged-in user.
// The session is restored before such a command runs.
const annotationAuth = "tutordesk/auth"

var authRequired = map[string]string{annotationAuth: "true"}

// app is the state of one CLI invocation.
type app struct {
	deps   Deps
	stdout io.Writer
	stderr io.Writer

	configFile string
	cfg        *config.Config
	logger     *slog.Logger

	ac      *auth.Context
	users   UserStore
	closers []func()
}

func newApp(deps *Deps, stdout, stderr io.Writer) *app {
	var d Deps
	if deps != nil {
		d = *deps
	}
	return &app{
		deps:   d.withDefaults(),
		stdout: stdout,
		stderr: stderr,
		logger: logging.Discard(),
	}
}

// NewRootCmd creates the root command for the tutordesk CLI.
func NewRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tutordesk",
		Short: "tutordesk - accounts and sessions for the tutoring desk",
		Long: `tutordesk manages user accounts and the login session of the
tutoring desk. A login is remembered in ~/.tutordesk/session.json for 24 hours
and is shared by every tutordesk command run by the same OS user.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewLoginCmd(a))
	cmd.AddCommand(NewLogoutCmd(a))
	cmd.AddCommand(NewWhoamiCmd(a))
	cmd.AddCommand(NewUserCmd(a))
	cmd.AddCommand(NewHashCmd(a))
	cmd.AddCommand(NewMigrateCmd(a))

	return cmd
}

// setup loads configuration, configures logging and, for commands that act
// as a user, restores the persisted session.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup("tutordesk", version, cfg.LogFormat, cfg.Level(), a.stderr)

	if !needsAuth(cmd) {
		return nil
	}
	return a.restoreSession(cmd.Context())
}

func needsAuth(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationAuth] == "true" {
			return true
		}
	}
	return false
}

func (a *app) restoreSession(ctx context.Context) error {
	sessions, err := auth.NewFileSessionStore(a.cfg.SessionFile)
	if err != nil {
		return err
	}
	ac, err := auth.NewContext(sessions, lazyUsers{a},
		auth.WithLogger(a.logger),
		auth.WithClock(a.deps.Clock))
	if err != nil {
		return err
	}
	a.ac = ac

	res := ac.Initialize(ctx)
	if res.Err != nil {
		errutil.LogWarn(a.logger, "session not restored", res.Err)
	}
	switch res.Status {
	case auth.StatusExpired, auth.StatusUserNotFound, auth.StatusCorrupt,
		auth.StatusUnreadable, auth.StatusLookupFailed:
		fmt.Fprintln(a.stderr, res.Message)
	case auth.StatusAuthenticated:
		if rec := ac.Record(); rec != nil && rec.Role != "" && !strings.EqualFold(rec.Role, ac.Current().Role) {
			fmt.Fprintln(a.stderr, res.Message)
		}
	}
	return nil
}

// userStore opens the user database on first use.
func (a *app) userStore(ctx context.Context) (UserStore, error) {
	if a.users != nil {
		return a.users, nil
	}
	if a.cfg == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("configuration not loaded")
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	users, closeFn, err := a.deps.OpenUsers(ctx, a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return nil, err
	}
	a.users = users
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}
	return users, nil
}

func (a *app) authService() (*auth.Service, error) {
	return auth.NewAuthServiceWithLogger(lazyUsers{a}, a.deps.Hasher, a.logger)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// lazyUsers defers opening the database until a user is actually looked
// up, so commands without a saved session never connect.
type lazyUsers struct {
	a *app
}

var (
	_ auth.UserLookup      = lazyUsers{}
	_ auth.PasswordUpdater = lazyUsers{}
)

func (l lazyUsers) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	users, err := l.a.userStore(ctx)
	if err != nil {
		return nil, err
	}
	return users.FindByID(ctx, id)
}

func (l lazyUsers) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	users, err := l.a.userStore(ctx)
	if err != nil {
		return nil, err
	}
	return users.FindByUsername(ctx, username)
}

func (l lazyUsers) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	users, err := l.a.userStore(ctx)
	if err != nil {
		return err
	}
	return users.UpdatePassword(ctx, id, passwordHash)
}
