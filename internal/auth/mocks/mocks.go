// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tutordesk/tutordesk/internal/auth"
)

// testingT is the subset of testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserLookup is a mock auth.UserLookup that also implements
// auth.PasswordUpdater.
type MockUserLookup struct {
	mock.Mock
}

// NewMockUserLookup creates a MockUserLookup whose expectations are asserted
// when the test ends.
func NewMockUserLookup(t testingT) *MockUserLookup {
	m := &MockUserLookup{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByID implements auth.UserLookup.
func (m *MockUserLookup) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// FindByUsername implements auth.UserLookup.
func (m *MockUserLookup) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// UpdatePassword implements auth.PasswordUpdater.
func (m *MockUserLookup) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockSessionStore is a mock auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test ends.
func NewMockSessionStore(t testingT) *MockSessionStore {
	m := &MockSessionStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Save implements auth.SessionStore.
func (m *MockSessionStore) Save(record *auth.SessionRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

// Load implements auth.SessionStore.
func (m *MockSessionStore) Load() (*auth.SessionRecord, error) {
	args := m.Called()
	record, _ := args.Get(0).(*auth.SessionRecord)
	return record, args.Error(1)
}

// Clear implements auth.SessionStore.
func (m *MockSessionStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash implements auth.PasswordHasher.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify implements auth.PasswordHasher.
func (m *MockPasswordHasher) Verify(password, encoded string) bool {
	args := m.Called(password, encoded)
	return args.Bool(0)
}

// NeedsRehash implements auth.PasswordHasher.
func (m *MockPasswordHasher) NeedsRehash(encoded string) bool {
	args := m.Called(encoded)
	return args.Bool(0)
}
