// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
//
// Expiry is evaluated in SQL against the stored idle timeout so that every
// node of a multi-process deployment agrees on which sessions are live.
// Expired rows are deleted on read (lazy eviction) and by DeleteExpired.
type SessionStore struct {
	pool poolIface
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool poolIface) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create stores a new session keyed by its token hash.
func (r *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, token_hash, user_id, role, created_at, last_seen_at, idle_timeout_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		session.ID.String(),
		session.TokenHash,
		session.UserID,
		string(session.Role),
		session.CreatedAt,
		session.LastSeenAt,
		int64(session.IdleTimeout/time.Second),
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// Get retrieves a live session by token hash. An expired row is deleted and
// reported as auth.ErrSessionExpired; once evicted the token reads as absent.
func (r *SessionStore) Get(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, token_hash, user_id, role, created_at, last_seen_at, idle_timeout_seconds
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.Expired() {
		if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
			return nil, oops.Code("SESSION_EVICT_FAILED").
				With("operation", "evict expired session").
				Wrap(err)
		}
		return nil, oops.Code("SESSION_EXPIRED").Wrap(auth.ErrSessionExpired)
	}
	return session, nil
}

// Touch refreshes last_seen_at for a live session. The liveness predicate
// runs in SQL so a concurrent eviction cannot resurrect an expired row.
func (r *SessionStore) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET last_seen_at = $2
		WHERE token_hash = $1
		  AND last_seen_at + make_interval(secs => idle_timeout_seconds) > $2
	`, tokenHash, at)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").
			With("operation", "touch session").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Destroy removes a session. Unknown tokens are a no-op.
func (r *SessionStore) Destroy(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE last_seen_at + make_interval(secs => idle_timeout_seconds) <= now()
	`)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// scanSession scans a session row.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var s auth.Session
	var idStr, role string
	var timeoutSeconds int64
	if err := row.Scan(&idStr, &s.TokenHash, &s.UserID, &role, &s.CreatedAt, &s.LastSeenAt, &timeoutSeconds); err != nil {
		return nil, err
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	s.ID = id
	s.Role = auth.Role(role)
	s.IdleTimeout = time.Duration(timeoutSeconds) * time.Second
	return &s, nil
}
