// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth_test

import (
	"encoding/base64"
	"testing"

	"golang.org/x/crypto/argon2"
)

// hashWith returns the "<salt>$<digest>" tail of an argon2id hash computed
// with explicit parameters and a fixed salt.
func hashWith(t *testing.T, password string, memory, time uint32, threads uint8) string {
	t.Helper()
	salt := []byte("0123456789abcdef")
	digest := argon2.IDKey([]byte(password), salt, time, memory, threads, 32)
	return base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(digest)
}
