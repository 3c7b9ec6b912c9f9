// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds. The default matches the deliberately slow work factor
// the rest of the system is tuned for.
const (
	DefaultBcryptCost = 12
	MinBcryptCost     = bcrypt.MinCost
	MaxBcryptCost     = bcrypt.MaxCost
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// digestPrefixes are the self-describing prefixes of a bcrypt digest.
// Go's bcrypt emits $2a$; $2b$ and $2y$ cover digests imported from other
// implementations.
var digestPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted digest of the password. Hashing a value that is
	// already a digest returns it unchanged, so re-saving a record with an
	// unchanged password never double-hashes.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the digest. It compares in
	// constant time and returns false, never an error, on a malformed digest.
	Verify(password, digest string) bool
}

// IsDigest reports whether s carries a bcrypt digest prefix.
func IsDigest(s string) bool {
	for _, p := range digestPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost factor.
// Costs outside the valid bcrypt range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a bcrypt digest with a fresh random salt. Two calls with the
// same plaintext yield different digests.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if IsDigest(password) {
		// Already hashed; returning it unchanged prevents double-hashing
		// when a record is re-saved with an unchanged password.
		return password, nil
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(digest), nil
}

// Verify recomputes the hash using the salt and cost embedded in the digest
// and compares in constant time. Malformed digests report false.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
