// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32               // 32 bytes = 64 hex chars
	DefaultIdleTimeout = 30 * time.Minute // 1800 seconds
)

// Session associates an opaque client token with a user reference and an
// idle timeout. The session holds identity only, not ownership of the user
// record. The plaintext token is sent to the client; only its SHA-256 hash
// is kept at rest.
type Session struct {
	ID          ulid.ULID // audit/log identity, never exposed to the client
	TokenHash   string
	UserID      int64
	Role        Role // cached at creation; roles are immutable, gate checks read this
	CreatedAt   time.Time
	LastSeenAt  time.Time
	IdleTimeout time.Duration
}

// NewSession creates a validated Session for a stored user.
// A non-positive idleTimeout falls back to DefaultIdleTimeout.
func NewSession(user *User, tokenHash string, idleTimeout time.Duration) (*Session, error) {
	if user == nil || user.ID == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("session requires a stored user")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	now := time.Now()
	return &Session{
		ID:          ulid.Make(),
		TokenHash:   tokenHash,
		UserID:      user.ID,
		Role:        user.Role,
		CreatedAt:   now,
		LastSeenAt:  now,
		IdleTimeout: idleTimeout,
	}, nil
}

// ExpiredAt reports whether the session would be expired at the given time.
// A session is valid iff now minus LastSeenAt is under the idle timeout.
func (s *Session) ExpiredAt(t time.Time) bool {
	return t.Sub(s.LastSeenAt) >= s.IdleTimeout
}

// Expired reports whether the session is expired now.
func (s *Session) Expired() bool {
	return s.ExpiredAt(time.Now())
}

// GenerateSessionToken creates a secure random token and its hash.
// The plaintext token round-trips through the client; the hash is what the
// session store is keyed by.
func GenerateSessionToken() (token, hash string, err error) {
	raw := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(raw)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionState is the outcome of resolving a session token.
type SessionState int

// Session resolution states. Expired and Unauthenticated gate identically;
// the split exists so callers never re-derive "expired" from absence checks.
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateExpired
)

// Resolution is the tri-state result of a single session-resolution call.
// User and Session are set only when State is StateAuthenticated.
type Resolution struct {
	State   SessionState
	User    *User
	Session *Session
}

// Authenticated reports whether the resolution carries a live session.
func (r Resolution) Authenticated() bool {
	return r.State == StateAuthenticated
}

// SessionStore associates token hashes with sessions. Implementations must
// be safe under concurrent requests for the same token; reads and touches on
// a given token are linearizable.
type SessionStore interface {
	// Create stores a new session keyed by its token hash.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a live session. An unknown token reports ErrNotFound; a
	// session past its idle timeout reports ErrSessionExpired and must never
	// be returned (expiry is absorbing, lazy eviction is fine).
	Get(ctx context.Context, tokenHash string) (*Session, error)

	// Touch refreshes LastSeenAt for a live session. Unknown or expired
	// tokens report ErrNotFound / ErrSessionExpired.
	Touch(ctx context.Context, tokenHash string, at time.Time) error

	// Destroy invalidates a session. Destroying an unknown or already
	// destroyed session is a no-op, not an error.
	Destroy(ctx context.Context, tokenHash string) error

	// DeleteExpired evicts all expired sessions and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
