// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tutordesk/tutordesk/internal/store"
	"github.com/tutordesk/tutordesk/pkg/errutil"
)

// NewMigrateCmd creates the migrate subcommand. Without a subcommand it
// applies all pending migrations.
func NewMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the PostgreSQL schema migrations.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runMigrateUp()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runMigrateUp()
		},
	})
	cmd.AddCommand(newMigrateDownCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, formatVersion(v, dirty))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.withMigrator(a.printMigrateStatus)
		},
	})

	return cmd
}

func newMigrateDownCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destroys all users)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").
					Errorf("migrate down drops every table; pass --yes to confirm")
			}
			return a.withMigrator(func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "All migrations rolled back.")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm rolling back every migration")

	return cmd
}

func (a *app) runMigrateUp() error {
	return a.withMigrator(func(m Migrator) error {
		pending, err := m.Pending()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(a.stdout, "Schema is up to date.")
			return nil
		}
		if err := m.Up(); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Applied %d migration(s).\n", len(pending))
		return nil
	})
}

func (a *app) printMigrateStatus(m Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Current: %s\n", formatVersion(v, dirty))
	if len(pending) == 0 {
		fmt.Fprintln(a.stdout, "Pending: none")
		return nil
	}
	names := make([]string, 0, len(pending))
	for _, p := range pending {
		name, err := store.MigrationName(p)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", p)
		}
		names = append(names, name)
	}
	fmt.Fprintf(a.stdout, "Pending: %s\n", strings.Join(names, ", "))
	return nil
}

func formatVersion(v uint, dirty bool) string {
	if v == 0 {
		return "none"
	}
	s := fmt.Sprintf("%d", v)
	if name, err := store.MigrationName(v); err == nil && name != "" {
		s = name
	}
	if dirty {
		s += " (dirty)"
	}
	return s
}

func (a *app) withMigrator(fn func(Migrator) error) error {
	if err := a.cfg.RequireDatabase(); err != nil {
		return err
	}
	m, err := a.deps.NewMigrator(a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			errutil.LogWarn(a.logger, "closing migrator failed", err)
		}
	}()
	return fn(m)
}
