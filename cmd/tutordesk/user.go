// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/seed"
)

// Output formats for listing commands.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

const defaultLoginsLimit = 10

// NewUserCmd creates the user subcommand group.
func NewUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "user",
		Short:       "Manage user accounts",
		Annotations: authRequired,
	}

	cmd.AddCommand(newUserAddCmd(a))
	cmd.AddCommand(newUserListCmd(a))
	cmd.AddCommand(newUserSetRoleCmd(a))
	cmd.AddCommand(newUserRemoveCmd(a))
	cmd.AddCommand(newUserPasswdCmd(a))
	cmd.AddCommand(newUserImportCmd(a))
	cmd.AddCommand(newUserLoginsCmd(a))

	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user (ADMIN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
				return err
			}
			username := args[0]
			if err := auth.ValidateUsername(username); err != nil {
				return err
			}
			normalized, err := auth.NormalizeRole(role)
			if err != nil {
				return err
			}

			password, err := readNewPassword(a.deps.Prompter, "Password for "+username+": ")
			if err != nil {
				return err
			}
			hash, err := a.deps.Hasher.Hash(password)
			if err != nil {
				return err
			}
			user, err := auth.NewUser(username, hash, normalized)
			if err != nil {
				return err
			}

			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := users.Create(cmd.Context(), user); err != nil {
				return err
			}
			a.logger.Info("user created", "username", user.Username, "role", user.Role, "by", a.ac.Current().Username)
			fmt.Fprintf(a.stdout, "Created user %s (%s).\n", user.Username, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleStudent, "role: ADMIN, TUTOR or STUDENT")

	return cmd
}

// userView is the listed form of a user; the password hash is never shown.
type userView struct {
	ID        int64     `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

func newUserListCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users (ADMIN)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
				return err
			}
			if err := validOutput(output); err != nil {
				return err
			}
			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			list, err := users.List(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]userView, 0, len(list))
			for _, u := range list {
				views = append(views, userView{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt})
			}
			return writeUsers(a.stdout, output, views)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return cmd
}

func validOutput(output string) error {
	switch output {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return oops.Code("INVALID_OUTPUT").With("output", output).
			Errorf("unknown output format %q (want table, json or yaml)", output)
	}
}

func writeUsers(w io.Writer, output string, views []userView) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return oops.Code("OUTPUT_FAILED").Wrap(err)
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tCREATED")
		for _, v := range views {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Username, v.Role, v.CreatedAt.Local().Format(time.DateOnly))
		}
		return tw.Flush()
	}
}

func newUserSetRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role USERNAME ROLE",
		Short: "Change a user's role (ADMIN)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
				return err
			}
			role, err := auth.NormalizeRole(args[1])
			if err != nil {
				return err
			}
			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			target, err := findUser(cmd, users, args[0])
			if err != nil {
				return err
			}
			if target.Role == role {
				fmt.Fprintf(a.stdout, "%s already has role %s.\n", target.Username, role)
				return nil
			}
			if err := users.UpdateRole(cmd.Context(), target.ID, role); err != nil {
				return err
			}
			a.logger.Info("role changed", "username", target.Username, "from", target.Role, "to", role)
			fmt.Fprintf(a.stdout, "Role of %s changed from %s to %s.\n", target.Username, target.Role, role)
			return nil
		},
	}
}

func newUserRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove USERNAME",
		Short: "Delete a user (ADMIN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
				return err
			}
			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			target, err := findUser(cmd, users, args[0])
			if err != nil {
				return err
			}
			if target.ID == a.ac.Current().ID {
				return oops.Code("USER_REMOVE_SELF").Errorf("you cannot remove your own account")
			}
			if err := users.Delete(cmd.Context(), target.ID); err != nil {
				return err
			}
			a.logger.Info("user removed", "username", target.Username)
			fmt.Fprintf(a.stdout, "Removed user %s.\n", target.Username)
			return nil
		},
	}
}

func findUser(cmd *cobra.Command, users UserStore, username string) (*auth.User, error) {
	user, err := users.FindByUsername(cmd.Context(), username)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Errorf("no user named %q", username)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func newUserPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.RequireLogin(a.ac); err != nil {
				return err
			}
			current, err := a.deps.Prompter.ReadPassword("Current password: ")
			if err != nil {
				return err
			}
			next, err := readNewPassword(a.deps.Prompter, "New password: ")
			if err != nil {
				return err
			}
			svc, err := a.authService()
			if err != nil {
				return err
			}
			if err := svc.ChangePassword(cmd.Context(), a.ac.Current(), current, next); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Password changed.")
			return nil
		},
	}
}

func newUserImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create users from a YAML seed file (ADMIN, or anyone while no users exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			n, err := users.Count(cmd.Context())
			if err != nil {
				return err
			}
			if n > 0 {
				if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
					return err
				}
			}

			report, err := seed.NewImporter(users, a.deps.Hasher, a.logger).Import(cmd.Context(), file)
			printReport(a.stdout, report)
			return err
		},
	}
}

func printReport(w io.Writer, report seed.Report) {
	for _, name := range report.Created {
		fmt.Fprintf(w, "created  %s\n", name)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(w, "skipped  %s (already exists)\n", name)
	}
	fmt.Fprintf(w, "%d created, %d skipped.\n", len(report.Created), len(report.Skipped))
}

func newUserLoginsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logins [USERNAME]",
		Short: "Show recent login attempts (your own, or anyone's as ADMIN)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RequireLogin(a.ac); err != nil {
				return err
			}
			username := a.ac.Current().Username
			if len(args) == 1 && !strings.EqualFold(args[0], username) {
				if err := auth.RequireRole(a.ac, auth.RoleAdmin); err != nil {
					return err
				}
				username = args[0]
			}
			if limit < 1 {
				return oops.Code("INVALID_LIMIT").With("limit", limit).Errorf("limit must be positive")
			}

			users, err := a.userStore(cmd.Context())
			if err != nil {
				return err
			}
			events, err := users.RecentLogins(cmd.Context(), username, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintf(a.stdout, "No login attempts recorded for %s.\n", username)
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRESULT")
			for _, e := range events {
				result := "failed"
				if e.Succeeded {
					result = "ok"
				}
				fmt.Fprintf(tw, "%s\t%s\n", e.OccurredAt.Local().Format(time.DateTime), result)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLoginsLimit, "number of attempts to show")

	return cmd
}
