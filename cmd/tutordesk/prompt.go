// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// Prompter asks the user for input.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

// terminalPrompter reads from stdin and writes prompts to stderr so that
// command output on stdout stays clean.
type terminalPrompter struct {
	in     *bufio.Reader
	fd     int
	prompt io.Writer
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{
		in:     bufio.NewReader(os.Stdin),
		fd:     int(os.Stdin.Fd()), //nolint:gosec // G115: file descriptors fit in int
		prompt: os.Stderr,
	}
}

// ReadLine prints prompt and reads one line. A final line without a newline
// is accepted.
func (p *terminalPrompter) ReadLine(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.prompt, prompt); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", oops.Code("PROMPT_FAILED").With("prompt", prompt).Wrap(err)
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword prints prompt and reads a password without echo. When stdin
// is not a terminal the password is read as a plain line, which lets scripts
// pipe it in.
func (p *terminalPrompter) ReadPassword(prompt string) (string, error) {
	if !isTerminal(p.fd) {
		line, err := p.ReadLine(prompt)
		if err != nil {
			return "", err
		}
		return line, nil
	}

	if _, err := fmt.Fprint(p.prompt, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.prompt)
	if err != nil {
		return "", oops.Code("PROMPT_FAILED").With("prompt", prompt).Wrap(err)
	}
	return string(pw), nil
}

// readNewPassword asks for a password twice and requires both to match.
func readNewPassword(p Prompter, prompt string) (string, error) {
	pw, err := p.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")
	}
	confirm, err := p.ReadPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", oops.Code("PROMPT_MISMATCH").Errorf("passwords do not match")
	}
	return pw, nil
}
