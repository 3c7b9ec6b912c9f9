// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package memory provides an in-memory auth.SessionStore.
//
// Suitable for single-process deployments; sessions are lost on restart.
// The store is safe under concurrent requests for the same token: reads and
// touches on a given token hash are linearizable behind one mutex. Expired
// sessions are evicted lazily on read and may also be reaped by a sweep.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// SessionStore holds sessions in a map keyed by token hash.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*auth.Session)}
}

// copySession returns a defensive copy so callers cannot mutate stored state.
func copySession(s *auth.Session) *auth.Session {
	c := *s
	return &c
}

// Create stores a new session.
func (m *SessionStore) Create(_ context.Context, session *auth.Session) error {
	if session == nil || session.TokenHash == "" {
		return oops.Code("SESSION_INVALID").Errorf("session requires a token hash")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.TokenHash]; exists {
		return oops.Code("SESSION_TOKEN_COLLISION").Errorf("token hash already present")
	}
	m.sessions[session.TokenHash] = copySession(session)
	return nil
}

// Get returns a live session. Expired sessions are evicted and read as
// absent forever after; a destroyed or expired token can never be revived.
func (m *SessionStore) Get(_ context.Context, tokenHash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if session.Expired() {
		delete(m.sessions, tokenHash)
		return nil, auth.ErrSessionExpired
	}
	return copySession(session), nil
}

// Touch refreshes LastSeenAt for a live session.
func (m *SessionStore) Touch(_ context.Context, tokenHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[tokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	if session.Expired() {
		delete(m.sessions, tokenHash)
		return auth.ErrSessionExpired
	}
	if at.After(session.LastSeenAt) {
		session.LastSeenAt = at
	}
	return nil
}

// Destroy removes a session. Unknown tokens are a no-op.
func (m *SessionStore) Destroy(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, tokenHash)
	return nil
}

// DeleteExpired evicts every expired session and returns the count.
func (m *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for hash, session := range m.sessions {
		if session.Expired() {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included until
// they are evicted.
func (m *SessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
