// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package auth authenticates users and carries their session across CLI
// invocations.
//
// # Building blocks
//
//   - Argon2idHasher - hashes passwords into self-describing PHC strings and
//     verifies them. Verification fails closed.
//   - SessionRecord and FileSessionStore - the single persisted login of this
//     host. Loading fails open to "logged out".
//   - Context - the principal of the current process. Initialize restores and
//     validates the stored session once at startup; Login and Logout commit
//     and tear down sessions.
//   - RequireRole - the authorization gate used by commands.
//   - Service - credential checks in front of Context.Login.
//   - CheckLockout - refuses logins after repeated failures, computed from
//     the recorded login history.
//
// Roles are always read from the live User returned by a UserLookup. The role
// copied into a SessionRecord is never used for authorization.
package auth
