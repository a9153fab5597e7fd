// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samber/oops"

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/auth/postgres"
)

// memUsers is an in-memory UserStore shared by every run of one test, the
// way a database is shared by separate processes.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User
	logins []postgres.LoginEvent
	now    func() time.Time
}

func newMemUsers(now func() time.Time) *memUsers {
	return &memUsers{users: map[int64]*auth.User{}, now: now}
}

// add stores a user whose password hashes with plainHasher.
func (m *memUsers) add(username, role, password string) *auth.User {
	u := &auth.User{Username: username, Role: role, PasswordHash: plainHasher{}.hash(password)}
	if err := m.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (m *memUsers) byName(username string) *auth.User {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byName(username)
	if u == nil {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byName(user.Username) != nil {
		return oops.Code("USER_EXISTS").With("username", user.Username).Wrap(auth.ErrUserExists)
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = m.now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, id int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u.Role = role
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) List(_ context.Context) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*auth.User, 0, len(m.users))
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUsers) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUsers) RecordLogin(_ context.Context, _ int64, username string, succeeded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, postgres.LoginEvent{Username: username, Succeeded: succeeded, OccurredAt: m.now()})
	return nil
}

func (m *memUsers) RecentLogins(_ context.Context, username string, limit int) ([]postgres.LoginEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.LoginEvent
	for i := len(m.logins) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.EqualFold(m.logins[i].Username, username) {
			out = append(out, m.logins[i])
		}
	}
	return out, nil
}

// plainHasher avoids argon2id cost in command tests.
type plainHasher struct{}

func (plainHasher) hash(password string) string { return "plain$" + password }

func (h plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")
	}
	return h.hash(password), nil
}

func (h plainHasher) Verify(password, encoded string) bool { return encoded == h.hash(password) }

func (plainHasher) NeedsRehash(string) bool { return false }

// scriptedPrompter answers prompts in order.
type scriptedPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptedPrompter) next(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return "", errors.New("unexpected prompt: " + prompt)
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) ReadLine(prompt string) (string, error)     { return p.next(prompt) }
func (p *scriptedPrompter) ReadPassword(prompt string) (string, error) { return p.next(prompt) }

type fakeMigrator struct {
	version uint
	dirty   bool
	pending []uint
	ups     int
	downs   int
	closed  bool
	err     error
}

func (m *fakeMigrator) Up() error {
	if m.err != nil {
		return m.err
	}
	m.ups++
	if len(m.pending) > 0 {
		m.version = m.pending[len(m.pending)-1]
		m.pending = nil
	}
	return nil
}

func (m *fakeMigrator) Down() error {
	m.downs++
	return m.err
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, m.err }

func (m *fakeMigrator) Pending() ([]uint, error) { return m.pending, m.err }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

// harness runs the CLI as a series of separate invocations sharing one
// home directory, one user database and one clock.
type harness struct {
	t        *testing.T
	home     string
	users    *memUsers
	migrator *fakeMigrator
	now      time.Time
	opens    int
	openErr  error
	hasher   auth.PasswordHasher
	prompter *scriptedPrompter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("DATABASE_URL", "postgres://tutordesk@localhost/tutordesk")

	h := &harness{
		t:        t,
		home:     home,
		migrator: &fakeMigrator{},
		now:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local),
		hasher:   plainHasher{},
	}
	h.users = newMemUsers(func() time.Time { return h.now })
	return h
}

func (h *harness) sessionFile() string {
	return filepath.Join(h.home, ".tutordesk", "session.json")
}

func (h *harness) deps(answers []string) *Deps {
	h.prompter = &scriptedPrompter{answers: answers}
	return &Deps{
		OpenUsers: func(_ context.Context, _ string, _ *slog.Logger) (UserStore, func(), error) {
			h.opens++
			if h.openErr != nil {
				return nil, nil, h.openErr
			}
			return h.users, func() {}, nil
		},
		NewMigrator: func(string) (Migrator, error) {
			return h.migrator, nil
		},
		Hasher:   h.hasher,
		Prompter: h.prompter,
		Clock:    func() time.Time { return h.now },
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

// run executes one invocation. answers feed the prompter in order.
func (h *harness) run(answers []string, args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr, h.deps(answers))
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func (h *harness) login(username, password string) {
	h.t.Helper()
	res := h.run([]string{password}, "login", "-u", username)
	if res.code != 0 {
		h.t.Fatalf("login %s failed: %s", username, res.stderr)
	}
}
