// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the argon2id hash of a password",
		Long: `Reads a password and prints its encoded argon2id hash, suitable
for the password_hash field of a user seed file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			password, err := readNewPassword(a.deps.Prompter, "Password: ")
			if err != nil {
				return err
			}
			hash, err := a.deps.Hasher.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, hash)
			return nil
		},
	}
}
