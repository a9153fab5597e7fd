// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

//go:build integration

package postgres_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tutordesk/tutordesk/internal/auth"
	"github.com/tutordesk/tutordesk/internal/auth/postgres"
	"github.com/tutordesk/tutordesk/pkg/errutil"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testPool)
		_, err := testPool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`)
		Expect(err).NotTo(HaveOccurred())
	})

	create := func(username, role string) *auth.User {
		user, err := auth.NewUser(username, "$argon2id$placeholder", role)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, user)).To(Succeed())
		return user
	}

	It("creates and finds users", func() {
		alice := create("Alice", auth.RoleTutor)
		Expect(alice.ID).To(BeNumerically(">", 0))

		byID, err := repo.FindByID(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Username).To(Equal("Alice"))
		Expect(byID.Role).To(Equal(auth.RoleTutor))

		byName, err := repo.FindByUsername(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName.ID).To(Equal(alice.ID))
	})

	It("rejects usernames that differ only in case", func() {
		create("alice", auth.RoleStudent)

		dup, err := auth.NewUser("ALICE", "$argon2id$placeholder", auth.RoleStudent)
		Expect(err).NotTo(HaveOccurred())
		err = repo.Create(ctx, dup)
		Expect(err).To(MatchError(auth.ErrUserExists))
		errutil.AssertErrorCode(GinkgoT(), err, "USER_EXISTS")
	})

	It("reports missing users as ErrNotFound", func() {
		_, err := repo.FindByID(ctx, 424242)
		Expect(err).To(MatchError(auth.ErrNotFound))

		_, err = repo.FindByUsername(ctx, "nobody")
		Expect(err).To(MatchError(auth.ErrNotFound))

		Expect(repo.UpdateRole(ctx, 424242, auth.RoleAdmin)).To(MatchError(auth.ErrNotFound))
	})

	It("updates role and password", func() {
		bob := create("bob", auth.RoleStudent)

		Expect(repo.UpdateRole(ctx, bob.ID, auth.RoleTutor)).To(Succeed())
		Expect(repo.UpdatePassword(ctx, bob.ID, "$argon2id$rotated")).To(Succeed())

		got, err := repo.FindByID(ctx, bob.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Role).To(Equal(auth.RoleTutor))
		Expect(got.PasswordHash).To(Equal("$argon2id$rotated"))
		Expect(got.UpdatedAt).To(BeTemporally(">=", bob.UpdatedAt))
	})

	It("lists, counts and deletes", func() {
		Expect(repo.Count(ctx)).To(BeZero())
		create("zed", auth.RoleStudent)
		carol := create("Carol", auth.RoleAdmin)

		users, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(2))
		Expect(users[0].Username).To(Equal("Carol"))
		Expect(repo.Count(ctx)).To(Equal(2))

		Expect(repo.Delete(ctx, carol.ID)).To(Succeed())
		Expect(repo.Count(ctx)).To(Equal(1))
	})

	It("records login history newest first", func() {
		dave := create("dave", auth.RoleStudent)

		Expect(repo.RecordLogin(ctx, 0, "dave", false)).To(Succeed())
		Expect(repo.RecordLogin(ctx, dave.ID, "dave", true)).To(Succeed())

		events, err := repo.RecentLogins(ctx, "DAVE", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].OccurredAt).To(BeTemporally(">=", events[1].OccurredAt))
	})

	It("backs a full login across two processes", func() {
		erin := create("erin", auth.RoleTutor)
		path := filepath.Join(GinkgoT().TempDir(), ".tutordesk", "session.json")

		first, err := auth.NewFileSessionStore(path)
		Expect(err).NotTo(HaveOccurred())
		ac1, err := auth.NewContext(first, repo)
		Expect(err).NotTo(HaveOccurred())
		Expect(ac1.Login(erin).Status).To(Equal(auth.StatusAuthenticated))

		Expect(repo.UpdateRole(ctx, erin.ID, auth.RoleAdmin)).To(Succeed())

		second, err := auth.NewFileSessionStore(path)
		Expect(err).NotTo(HaveOccurred())
		ac2, err := auth.NewContext(second, repo)
		Expect(err).NotTo(HaveOccurred())
		result := ac2.Initialize(ctx)
		Expect(result.Status).To(Equal(auth.StatusAuthenticated))
		Expect(ac2.HasRole("admin")).To(BeTrue())
		Expect(result.Message).To(ContainSubstring("role changed"))
	})
})
