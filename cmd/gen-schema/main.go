// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Command gen-schema generates the JSON Schema files for the session file
// and the user seed file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/seed"
)

var schemas = []struct {
	file     string
	generate func() ([]byte, error)
}{
	{file: "session.schema.json", generate: auth.SessionSchema},
	{file: "users.schema.json", generate: seed.Schema},
}

func main() {
	if err := generate("schemas"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generate(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("dir", dir).Wrap(err)
	}
	for _, s := range schemas {
		data, err := s.generate()
		if err != nil {
			return oops.With("file", s.file).Wrap(err)
		}
		outPath := filepath.Join(dir, s.file)
		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			return oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
	return nil
}
