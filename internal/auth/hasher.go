// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Default argon2id parameters. Stored hashes carry their own parameters,
// so changing these only affects newly produced hashes.
const (
	argon2Algorithm = "argon2id"
	argon2Time      = 3         // iterations
	argon2Memory    = 64 * 1024 // 64 MiB, in KiB
	argon2Threads   = 4         // parallelism
	argon2SaltLen   = 16        // salt length in bytes
	argon2KeyLen    = 32        // digest length in bytes
)

// Upper bounds accepted when decoding a stored hash. A hash string is input,
// and verifying it must not allocate or spin without limit.
const (
	maxDecodeMemory = 4 * 1024 * 1024 // 4 GiB, in KiB
	maxDecodeTime   = 64
	maxDecodeKeyLen = 1024
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing argon2id hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash.
	// Malformed or unsupported hashes never verify.
	Verify(password, encoded string) bool

	// NeedsRehash reports whether encoded was produced with parameters
	// other than the current defaults.
	NeedsRehash(encoded string) bool
}

// HashParams are the argon2id cost parameters embedded in an encoded hash.
type HashParams struct {
	Version uint32
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
}

// DefaultHashParams returns the parameters used by Hash.
func DefaultHashParams() HashParams {
	return HashParams{
		Version: argon2.Version,
		Memory:  argon2Memory,
		Time:    argon2Time,
		Threads: argon2Threads,
	}
}

// DecodedHash is the parsed form of an encoded hash string.
type DecodedHash struct {
	Params HashParams
	Salt   []byte
	Digest []byte
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<digest>
//
// Salt and digest are unpadded standard base64.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", argon2SaltLen).
			Wrap(err)
	}

	params := DefaultHashParams()
	digest := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, argon2KeyLen)

	return encodeHash(params, salt, digest), nil
}

// Verify checks if the password matches the encoded hash. Every parse or
// parameter failure yields false.
func (h *Argon2idHasher) Verify(password, encoded string) bool {
	decoded, err := DecodeHash(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password),
		decoded.Salt,
		decoded.Params.Time,
		decoded.Params.Memory,
		decoded.Params.Threads,
		uint32(len(decoded.Digest)), //nolint:gosec // bounded by maxDecodeKeyLen in DecodeHash
	)

	return subtle.ConstantTimeCompare(computed, decoded.Digest) == 1
}

// NeedsRehash returns true if encoded is unparseable or its parameters or
// digest length differ from the defaults.
func (h *Argon2idHasher) NeedsRehash(encoded string) bool {
	decoded, err := DecodeHash(encoded)
	if err != nil {
		return true
	}
	return decoded.Params != DefaultHashParams() || len(decoded.Digest) != argon2KeyLen
}

func encodeHash(params HashParams, salt, digest []byte) string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Algorithm,
		params.Version,
		params.Memory,
		params.Time,
		params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
}

// DecodeHash parses an encoded argon2id hash. Errors carry the
// AUTH_INVALID_HASH code.
func DecodeHash(encoded string) (*DecodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, invalidHash("invalid hash format")
	}

	if parts[1] != argon2Algorithm {
		return nil, invalidHash("unsupported hash algorithm: %s", parts[1])
	}

	versionStr, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, invalidHash("missing version segment")
	}
	version, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil {
		return nil, invalidHash("invalid version: %s", versionStr)
	}
	if version != argon2.Version {
		return nil, invalidHash("unsupported argon2 version: %d", version)
	}

	params, err := parseCostParams(parts[3])
	if err != nil {
		return nil, err
	}
	params.Version = uint32(version)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").With("segment", "salt").Wrap(err)
	}
	if len(salt) == 0 {
		return nil, invalidHash("salt cannot be empty")
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").With("segment", "digest").Wrap(err)
	}
	if len(digest) == 0 || len(digest) > maxDecodeKeyLen {
		return nil, invalidHash("invalid digest length: %d", len(digest))
	}

	return &DecodedHash{Params: params, Salt: salt, Digest: digest}, nil
}

// parseCostParams parses "m=<memory>,t=<time>,p=<threads>" in that order.
func parseCostParams(segment string) (HashParams, error) {
	fields := strings.Split(segment, ",")
	if len(fields) != 3 {
		return HashParams{}, invalidHash("invalid parameters format")
	}

	var values [3]uint64
	for i, key := range []string{"m", "t", "p"} {
		raw, ok := strings.CutPrefix(fields[i], key+"=")
		if !ok {
			return HashParams{}, invalidHash("expected parameter %q", key)
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return HashParams{}, invalidHash("invalid value for parameter %q", key)
		}
		values[i] = v
	}

	memory, time, threads := values[0], values[1], values[2]
	if threads < 1 || threads > 255 {
		return HashParams{}, invalidHash("threads value %d out of range", threads)
	}
	if time < 1 || time > maxDecodeTime {
		return HashParams{}, invalidHash("iterations value %d out of range", time)
	}
	if memory < 8*threads || memory > maxDecodeMemory {
		return HashParams{}, invalidHash("memory value %d out of range", memory)
	}

	return HashParams{
		Memory:  uint32(memory),
		Time:    uint32(time),
		Threads: uint8(threads),
	}, nil
}

func invalidHash(format string, args ...any) error {
	return oops.Code("AUTH_INVALID_HASH").Errorf(format, args...)
}
