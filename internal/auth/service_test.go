// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/mocks"
)

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		sessions    auth.SessionStore
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil user repository",
			users:       nil,
			sessions:    mocks.NewMockSessionStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "user repository is required",
		},
		{
			name:        "nil session store",
			users:       mocks.NewMockUserRepository(t),
			sessions:    nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "session store is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			sessions:    mocks.NewMockSessionStore(t),
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.sessions, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	params := auth.RegisterParams{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "pw1234",
		Role:     "user",
	}

	t.Run("hashes password and returns the stored user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		hasher.On("Hash", "pw1234").Return("$2a$12$fakedigestfakedigestfakedig", nil)
		users.On("Insert", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) {
				u := args.Get(1).(*auth.User)
				assert.Equal(t, "alice@x.com", u.Email)
				assert.Equal(t, auth.RoleUser, u.Role)
				assert.True(t, auth.IsDigest(u.PasswordHash), "plaintext must never reach the store")
			}).
			Return(int64(42), nil)

		user, err := svc.Register(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, auth.RoleUser, user.Role)
	})

	t.Run("duplicate email surfaces ErrEmailTaken", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		hasher.On("Hash", "pw1234").Return("$2a$12$fakedigestfakedigestfakedig", nil)
		users.On("Insert", ctx, mock.AnythingOfType("*auth.User")).
			Return(int64(0), auth.ErrEmailTaken)

		_, err = svc.Register(ctx, params)
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("unknown role fails before hashing", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		bad := params
		bad.Role = "superuser"
		_, err = svc.Register(ctx, bad)
		assert.ErrorIs(t, err, auth.ErrInvalidRole)
	})

	t.Run("missing fields report field-level validation errors", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		var vErr *auth.ValidationError

		noPassword := params
		noPassword.Password = ""
		_, err = svc.Register(ctx, noPassword)
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "password", vErr.Field)

		hasher.On("Hash", "pw1234").Return("$2a$12$fakedigestfakedigestfakedig", nil)

		noName := params
		noName.Name = ""
		_, err = svc.Register(ctx, noName)
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "name", vErr.Field)

		badEmail := params
		badEmail.Email = "not-an-email"
		_, err = svc.Register(ctx, badEmail)
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "email", vErr.Field)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	user := &auth.User{
		ID:           42,
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$12$storeddigeststoreddigestdig",
		Role:         auth.RoleUser,
	}

	t.Run("valid credentials return the user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)
		hasher.On("Verify", "pw123", user.PasswordHash).Return(true)

		got, err := svc.Login(ctx, "alice@x.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.ID)
		assert.Equal(t, auth.RoleUser, got.Role)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "ghost@x.com").Return(nil, auth.ErrNotFound)
		// Verification still runs against a dummy digest for flat timing.
		hasher.On("Verify", "pw123", mock.AnythingOfType("string")).Return(false)
		_, unknownErr := svc.Login(ctx, "ghost@x.com", "pw123")

		users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)
		_, wrongErr := svc.Login(ctx, "alice@x.com", "pw123")

		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})

	t.Run("store failure propagates", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "alice@x.com").
			Return(nil, errors.New("connection refused"))

		_, err = svc.Login(ctx, "alice@x.com", "pw123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_CreateSession(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: 42, Email: "alice@x.com", Role: auth.RoleAdmin}

	users := mocks.NewMockUserRepository(t)
	sessions := mocks.NewMockSessionStore(t)
	hasher := mocks.NewMockPasswordHasher(t)
	svc, err := auth.NewService(users, sessions, hasher)
	require.NoError(t, err)

	var stored *auth.Session
	sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.Session) }).
		Return(nil)

	token, err := svc.CreateSession(ctx, user, 45*time.Minute)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	require.NotNil(t, stored)
	assert.Equal(t, auth.HashSessionToken(token), stored.TokenHash)
	assert.Equal(t, int64(42), stored.UserID)
	assert.Equal(t, auth.RoleAdmin, stored.Role)
	assert.Equal(t, 45*time.Minute, stored.IdleTimeout)
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()

	user := &auth.User{ID: 42, Email: "alice@x.com", Role: auth.RoleUser}
	session := &auth.Session{
		TokenHash:   auth.HashSessionToken("sometoken"),
		UserID:      42,
		Role:        auth.RoleUser,
		CreatedAt:   time.Now(),
		LastSeenAt:  time.Now(),
		IdleTimeout: auth.DefaultIdleTimeout,
	}

	t.Run("live session resolves authenticated and touches", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Get", ctx, session.TokenHash).Return(session, nil)
		users.On("GetByID", ctx, int64(42)).Return(user, nil)
		sessions.On("Touch", ctx, session.TokenHash, mock.AnythingOfType("time.Time")).Return(nil)

		res, err := svc.Resolve(ctx, "sometoken")
		require.NoError(t, err)
		assert.Equal(t, auth.StateAuthenticated, res.State)
		assert.True(t, res.Authenticated())
		assert.Equal(t, int64(42), res.User.ID)
	})

	t.Run("empty token is unauthenticated without a store read", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		res, err := svc.Resolve(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, auth.StateUnauthenticated, res.State)
	})

	t.Run("unknown token is unauthenticated", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Get", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		res, err := svc.Resolve(ctx, "unknowntoken")
		require.NoError(t, err)
		assert.Equal(t, auth.StateUnauthenticated, res.State)
	})

	t.Run("expired token resolves expired", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Get", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrSessionExpired)

		res, err := svc.Resolve(ctx, "staletoken")
		require.NoError(t, err)
		assert.Equal(t, auth.StateExpired, res.State)
		assert.False(t, res.Authenticated())
	})

	t.Run("session for a deleted user is destroyed", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Get", ctx, session.TokenHash).Return(session, nil)
		users.On("GetByID", ctx, int64(42)).Return(nil, auth.ErrNotFound)
		sessions.On("Destroy", ctx, session.TokenHash).Return(nil)

		res, err := svc.Resolve(ctx, "sometoken")
		require.NoError(t, err)
		assert.Equal(t, auth.StateUnauthenticated, res.State)
	})
}

func TestService_Predicates(t *testing.T) {
	ctx := context.Background()

	admin := &auth.User{ID: 1, Email: "root@x.com", Role: auth.RoleAdmin}
	session := &auth.Session{
		TokenHash:   auth.HashSessionToken("admintoken"),
		UserID:      1,
		Role:        auth.RoleAdmin,
		CreatedAt:   time.Now(),
		LastSeenAt:  time.Now(),
		IdleTimeout: auth.DefaultIdleTimeout,
	}

	newSvc := func(t *testing.T) (*auth.Service, *mocks.MockUserRepository, *mocks.MockSessionStore) {
		t.Helper()
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)
		return svc, users, sessions
	}

	t.Run("predicates on a live admin session", func(t *testing.T) {
		svc, users, sessions := newSvc(t)
		sessions.On("Get", ctx, session.TokenHash).Return(session, nil)
		users.On("GetByID", ctx, int64(1)).Return(admin, nil)
		sessions.On("Touch", ctx, session.TokenHash, mock.AnythingOfType("time.Time")).Return(nil)

		assert.True(t, svc.IsAuthenticated(ctx, "admintoken"))
	})

	t.Run("HasRole distinguishes roles", func(t *testing.T) {
		svc, users, sessions := newSvc(t)
		sessions.On("Get", ctx, session.TokenHash).Return(session, nil)
		users.On("GetByID", ctx, int64(1)).Return(admin, nil)
		sessions.On("Touch", ctx, session.TokenHash, mock.AnythingOfType("time.Time")).Return(nil)

		assert.True(t, svc.HasRole(ctx, "admintoken", auth.RoleAdmin))
		assert.False(t, svc.HasRole(ctx, "admintoken", auth.RoleUser))
	})

	t.Run("predicates tolerate absent sessions", func(t *testing.T) {
		svc, _, sessions := newSvc(t)
		sessions.On("Get", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		assert.False(t, svc.IsAuthenticated(ctx, "gone"))
		assert.False(t, svc.IsAdmin(ctx, "gone"))
		_, ok := svc.CurrentUser(ctx, "gone")
		assert.False(t, ok)
	})

	t.Run("predicates report false on store failure", func(t *testing.T) {
		svc, _, sessions := newSvc(t)
		sessions.On("Get", ctx, mock.AnythingOfType("string")).
			Return(nil, errors.New("store unavailable"))

		assert.False(t, svc.IsAuthenticated(ctx, "whatever"))
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("destroys the session behind the token", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Destroy", ctx, auth.HashSessionToken("livetoken")).Return(nil)
		assert.NoError(t, svc.Logout(ctx, "livetoken"))
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, sessions, hasher)
		require.NoError(t, err)

		sessions.On("Destroy", ctx, mock.AnythingOfType("string")).Return(nil)
		assert.NoError(t, svc.Logout(ctx, "nosuchtoken"))
		assert.NoError(t, svc.Logout(ctx, ""))
	})
}
