// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func adminHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	h.users.add("admin", "ADMIN", "root-pw")
	h.login("admin", "root-pw")
	return h
}

func TestUserCommands_RequireAdmin(t *testing.T) {
	h := newHarness(t)
	h.users.add("alice", "TUTOR", "pw")
	h.users.add("bob", "STUDENT", "pw")

	// Not logged in.
	res := h.run(nil, "user", "list")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "you must be logged in")

	h.login("alice", "pw")
	for _, args := range [][]string{
		{"user", "list"},
		{"user", "add", "carol", "--role", "STUDENT"},
		{"user", "set-role", "bob", "TUTOR"},
		{"user", "remove", "bob"},
		{"user", "logins", "bob"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			res := h.run(nil, args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, "permission denied: requires role ADMIN")
		})
	}

	assert.Equal(t, "STUDENT", h.users.byName("bob").Role, "nothing changed")
	assert.Nil(t, h.users.byName("carol"))
}

func TestUserAdd(t *testing.T) {
	h := adminHarness(t)

	res := h.run([]string{"s3cret", "s3cret"}, "user", "add", "carol", "--role", "tutor")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Created user carol (TUTOR).\n", res.stdout)

	carol := h.users.byName("carol")
	require.NotNil(t, carol)
	assert.Equal(t, "TUTOR", carol.Role)
	assert.Equal(t, "plain$s3cret", carol.PasswordHash)

	// The new user can log in from another invocation.
	h.login("carol", "s3cret")
}

func TestUserAdd_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		answers []string
		wantErr string
	}{
		{
			name:    "duplicate ignoring case",
			args:    []string{"user", "add", "ADMIN"},
			answers: []string{"pw", "pw"},
			wantErr: "username already taken",
		},
		{
			name:    "invalid username",
			args:    []string{"user", "add", "9lives"},
			wantErr: "username must start with a letter",
		},
		{
			name:    "unknown role",
			args:    []string{"user", "add", "carol", "--role", "owner"},
			wantErr: `unknown role "owner"`,
		},
		{
			name:    "password mismatch",
			args:    []string{"user", "add", "carol"},
			answers: []string{"one", "two"},
			wantErr: "passwords do not match",
		},
		{
			name:    "empty password",
			args:    []string{"user", "add", "carol"},
			answers: []string{""},
			wantErr: "password cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := adminHarness(t)
			res := h.run(tt.answers, tt.args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.wantErr)
			assert.Nil(t, h.users.byName("carol"))
		})
	}
}

func TestUserAdd_DefaultsToStudent(t *testing.T) {
	h := adminHarness(t)

	res := h.run([]string{"pw", "pw"}, "user", "add", "dave")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "STUDENT", h.users.byName("dave").Role)
}

func TestUserList(t *testing.T) {
	h := adminHarness(t)
	h.users.add("alice", "TUTOR", "pw")

	t.Run("table", func(t *testing.T) {
		res := h.run(nil, "user", "list")
		require.Equal(t, 0, res.code, res.stderr)
		lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
		require.Len(t, lines, 3)
		assert.Regexp(t, `^ID\s+USERNAME\s+ROLE\s+CREATED$`, lines[0])
		assert.Regexp(t, `^1\s+admin\s+ADMIN\s+2026-03-14$`, lines[1])
		assert.Regexp(t, `^2\s+alice\s+TUTOR\s+2026-03-14$`, lines[2])
		assert.NotContains(t, res.stdout, "plain$")
	})

	t.Run("json", func(t *testing.T) {
		res := h.run(nil, "user", "list", "-o", "json")
		require.Equal(t, 0, res.code, res.stderr)
		var views []userView
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "alice", views[1].Username)
		assert.NotContains(t, res.stdout, "plain$")
	})

	t.Run("yaml", func(t *testing.T) {
		res := h.run(nil, "user", "list", "--output", "yaml")
		require.Equal(t, 0, res.code, res.stderr)
		var views []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &views))
		require.Len(t, views, 2)
		assert.Equal(t, "admin", views[0]["username"])
		assert.Equal(t, "TUTOR", views[1]["role"])
	})

	t.Run("unknown format", func(t *testing.T) {
		res := h.run(nil, "user", "list", "-o", "xml")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, `unknown output format "xml"`)
	})
}

func TestUserSetRole(t *testing.T) {
	h := adminHarness(t)
	h.users.add("alice", "STUDENT", "pw")
	h.login("alice", "pw")
	h.login("admin", "root-pw")

	res := h.run(nil, "user", "set-role", "Alice", "tutor")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Role of alice changed from STUDENT to TUTOR.\n", res.stdout)
	assert.Equal(t, "TUTOR", h.users.byName("alice").Role)

	res = h.run(nil, "user", "set-role", "alice", "TUTOR")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "alice already has role TUTOR.\n", res.stdout)

	res = h.run(nil, "user", "set-role", "nobody", "TUTOR")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `no user named "nobody"`)

	res = h.run(nil, "user", "set-role", "alice", "janitor")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown role "janitor"`)
}

func TestUserSetRole_DemotingYourselfTakesEffectNextCommand(t *testing.T) {
	h := adminHarness(t)

	res := h.run(nil, "user", "set-role", "admin", "TUTOR")
	require.Equal(t, 0, res.code, res.stderr)

	res = h.run(nil, "user", "list")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Your role changed from ADMIN to TUTOR.")
	assert.Contains(t, res.stderr, "permission denied")
}

func TestUserRemove(t *testing.T) {
	h := adminHarness(t)
	h.users.add("alice", "TUTOR", "pw")

	res := h.run(nil, "user", "remove", "admin")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "you cannot remove your own account")

	res = h.run(nil, "user", "remove", "alice")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Removed user alice.\n", res.stdout)
	assert.Nil(t, h.users.byName("alice"))

	res = h.run(nil, "user", "remove", "alice")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `no user named "alice"`)
}

func TestUserPasswd(t *testing.T) {
	h := newHarness(t)
	h.users.add("alice", "STUDENT", "old-pw")
	h.login("alice", "old-pw")

	res := h.run([]string{"wrong", "new-pw", "new-pw"}, "user", "passwd")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "current password is incorrect")
	assert.Equal(t, "plain$old-pw", h.users.byName("alice").PasswordHash)

	res = h.run([]string{"old-pw", "new-pw", "new-pw"}, "user", "passwd")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Password changed.\n", res.stdout)
	assert.Equal(t, "plain$new-pw", h.users.byName("alice").PasswordHash)

	res = h.run(nil, "logout")
	require.Equal(t, 0, res.code)
	h.login("alice", "new-pw")
}

func TestUserPasswd_NotLoggedIn(t *testing.T) {
	h := newHarness(t)
	res := h.run(nil, "user", "passwd")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "you must be logged in")
	assert.Empty(t, h.prompter.prompts)
}

const seedYAML = `users:
  - username: admin
    role: ADMIN
    password: root-pw
  - username: tutor1
    role: TUTOR
    password: tutor-pw
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUserImport_BootstrapsEmptyDatabase(t *testing.T) {
	h := newHarness(t)
	path := writeSeed(t, seedYAML)

	res := h.run(nil, "user", "import", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "created  admin")
	assert.Contains(t, res.stdout, "2 created, 0 skipped.")

	h.login("admin", "root-pw")
	h.login("tutor1", "tutor-pw")
}

func TestUserImport_RequiresAdminOnceUsersExist(t *testing.T) {
	h := newHarness(t)
	h.users.add("alice", "TUTOR", "pw")
	path := writeSeed(t, seedYAML)

	res := h.run(nil, "user", "import", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "you must be logged in")

	h.login("alice", "pw")
	res = h.run(nil, "user", "import", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "permission denied")
	assert.Nil(t, h.users.byName("tutor1"))
}

func TestUserImport_SkipsExisting(t *testing.T) {
	h := adminHarness(t)
	path := writeSeed(t, seedYAML)

	res := h.run(nil, "user", "import", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "skipped  admin (already exists)")
	assert.Contains(t, res.stdout, "1 created, 1 skipped.")
	assert.Equal(t, "plain$root-pw", h.users.byName("admin").PasswordHash, "existing password untouched")
}

func TestUserImport_InvalidFile(t *testing.T) {
	h := newHarness(t)
	path := writeSeed(t, "users:\n  - username: x\n    role: OWNER\n")

	res := h.run(nil, "user", "import", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error:")
	assert.Equal(t, 0, h.opens, "file is validated before connecting")
}

func TestUserLogins(t *testing.T) {
	h := newHarness(t)
	h.users.add("admin", "ADMIN", "root-pw")
	h.users.add("alice", "TUTOR", "pw")

	_ = h.run([]string{"bad"}, "login", "-u", "alice")
	h.now = h.now.Add(time.Minute)
	h.login("alice", "pw")

	t.Run("own history", func(t *testing.T) {
		res := h.run(nil, "user", "logins")
		require.Equal(t, 0, res.code, res.stderr)
		lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
		require.Len(t, lines, 3)
		assert.Regexp(t, `^TIME\s+RESULT$`, lines[0])
		assert.Regexp(t, `^2026-03-14 09:31:00\s+ok$`, lines[1])
		assert.Regexp(t, `^2026-03-14 09:30:00\s+failed$`, lines[2])
	})

	t.Run("limit", func(t *testing.T) {
		res := h.run(nil, "user", "logins", "alice", "-n", "1")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Len(t, strings.Split(strings.TrimSpace(res.stdout), "\n"), 2)

		res = h.run(nil, "user", "logins", "--limit", "0")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "limit must be positive")
	})

	t.Run("admin sees anyone", func(t *testing.T) {
		h.login("admin", "root-pw")
		res := h.run(nil, "user", "logins", "alice")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "failed")

		res = h.run(nil, "user", "logins", "ghost")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Equal(t, "No login attempts recorded for ghost.\n", res.stdout)
	})
}
