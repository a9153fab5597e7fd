// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package main is the entry point for the tutordesk CLI.
package main

import (
	"fmt"
	"io"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run executes one CLI invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, deps *Deps) int {
	a := newApp(deps, stdout, stderr)
	defer a.close()

	cmd := NewRootCmd(a)
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
