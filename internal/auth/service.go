// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/credgate/credgate/pkg/errutil"
)

// dummyDigest is verified against when a login email is unknown, so lookup
// misses cost the same as password mismatches and the caller cannot infer
// whether the email exists from response time.
//
//nolint:gosec // G101: intentionally fake digest for timing equalization, not a credential.
const dummyDigest = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Service provides registration, login, session lifecycle and the session
// predicates consumed by the request gate.
type Service struct {
	users    UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(users UserRepository, sessions SessionStore, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, sessions SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}
	return &Service{users: users, sessions: sessions, hasher: hasher, logger: logger}, nil
}

// RegisterParams carries the plain data of a registration request.
type RegisterParams struct {
	Name         string
	Email        string
	Password     string
	Role         string
	ProfileImage []byte
}

// Register hashes the password and stores the new user, returning it with
// the store-assigned id so the caller can open a session right away. Field
// problems surface as *ValidationError, an unknown role as ErrInvalidRole
// and an email conflict as ErrEmailTaken.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	if params.Password == "" {
		return nil, validationErrorf("password", "password is required")
	}
	if len(params.Password) < MinPasswordLength {
		return nil, validationErrorf("password", "password must be at least %d characters", MinPasswordLength)
	}
	role, err := ParseRole(params.Role)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(params.Name, params.Email, digest, role, params.ProfileImage)
	if err != nil {
		return nil, err
	}

	id, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	user.ID = id

	s.logger.Info("user registered", "user_id", id, "role", string(role))
	return user, nil
}

// Login looks the user up by email and verifies the password. Unknown email
// and wrong password both return the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, validationErrorf("email", "email is required")
	}
	if password == "" {
		return nil, validationErrorf("password", "password is required")
	}

	user, lookupErr := s.users.GetByEmail(ctx, email)

	// Always verify against some digest so a lookup miss takes as long as a
	// password mismatch.
	target := dummyDigest
	exists := false
	if lookupErr == nil {
		target = user.PasswordHash
		exists = true
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid := s.hasher.Verify(password, target)
	if !exists || !valid {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// CreateSession allocates a session for a stored user and returns the opaque
// token the client must round-trip. A non-positive timeout falls back to
// DefaultIdleTimeout.
func (s *Service) CreateSession(ctx context.Context, user *User, timeout time.Duration) (string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	session, err := NewSession(user, tokenHash, timeout)
	if err != nil {
		return "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("session created",
		"session_id", session.ID.String(),
		"user_id", user.ID,
	)
	return token, nil
}

// Resolve is the single session-resolution call. It maps a token to one of
// three states, touches LastSeenAt on success and loads the current user.
// Only store failures return an error; absent or expired sessions do not.
func (s *Service) Resolve(ctx context.Context, token string) (Resolution, error) {
	if token == "" {
		return Resolution{State: StateUnauthenticated}, nil
	}

	tokenHash := HashSessionToken(token)
	session, err := s.sessions.Get(ctx, tokenHash)
	switch {
	case errors.Is(err, ErrNotFound):
		return Resolution{State: StateUnauthenticated}, nil
	case errors.Is(err, ErrSessionExpired):
		return Resolution{State: StateExpired}, nil
	case err != nil:
		return Resolution{}, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The account is gone; the session must not outlive it.
			_ = s.sessions.Destroy(ctx, tokenHash) //nolint:errcheck // best effort
			return Resolution{State: StateUnauthenticated}, nil
		}
		return Resolution{}, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	// Refresh the idle timeout. Resolution succeeds even if the touch fails.
	if err := s.sessions.Touch(ctx, tokenHash, time.Now()); err != nil {
		errutil.LogError(s.logger, "session touch failed", err)
	}

	return Resolution{State: StateAuthenticated, User: user, Session: session}, nil
}

// IsAuthenticated reports whether the token carries a live session.
// Tolerant of absent and expired sessions; store failures report false.
func (s *Service) IsAuthenticated(ctx context.Context, token string) bool {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		errutil.LogError(s.logger, "session resolution failed", err)
		return false
	}
	return res.Authenticated()
}

// HasRole reports whether the token carries a live session with the role.
func (s *Service) HasRole(ctx context.Context, token string, role Role) bool {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		errutil.LogError(s.logger, "session resolution failed", err)
		return false
	}
	return res.Authenticated() && res.User.Role == role
}

// IsAdmin reports whether the token carries a live admin session.
func (s *Service) IsAdmin(ctx context.Context, token string) bool {
	return s.HasRole(ctx, token, RoleAdmin)
}

// CurrentUser returns the user behind a live session, or false when the
// session is absent or expired.
func (s *Service) CurrentUser(ctx context.Context, token string) (*User, bool) {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		errutil.LogError(s.logger, "session resolution failed", err)
		return nil, false
	}
	if !res.Authenticated() {
		return nil, false
	}
	return res.User, true
}

// Logout invalidates the session. Logging out an unknown or already expired
// token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, HashSessionToken(token)); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy session").
			Wrap(err)
	}
	return nil
}
