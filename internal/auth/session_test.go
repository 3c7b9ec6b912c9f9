// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, token, hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, hash1, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		token2, hash2, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash matches HashSessionToken", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})
}

func TestNewSession(t *testing.T) {
	user := &auth.User{ID: 7, Email: "alice@x.com", Role: auth.RoleUser}

	t.Run("creates session with defaults", func(t *testing.T) {
		s, err := auth.NewSession(user, "tokenhash", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(7), s.UserID)
		assert.Equal(t, auth.RoleUser, s.Role)
		assert.Equal(t, auth.DefaultIdleTimeout, s.IdleTimeout)
		assert.False(t, s.CreatedAt.IsZero())
		assert.Equal(t, s.CreatedAt, s.LastSeenAt)
	})

	t.Run("rejects unstored user", func(t *testing.T) {
		_, err := auth.NewSession(&auth.User{}, "tokenhash", 0)
		assert.Error(t, err)
	})

	t.Run("rejects empty token hash", func(t *testing.T) {
		_, err := auth.NewSession(user, "", 0)
		assert.Error(t, err)
	})
}

func TestSessionExpiry(t *testing.T) {
	user := &auth.User{ID: 7, Role: auth.RoleUser}

	t.Run("valid just inside the idle timeout", func(t *testing.T) {
		s, err := auth.NewSession(user, "tokenhash", auth.DefaultIdleTimeout)
		require.NoError(t, err)

		touched := s.LastSeenAt
		assert.False(t, s.ExpiredAt(touched.Add(auth.DefaultIdleTimeout-time.Second)))
		assert.True(t, s.ExpiredAt(touched.Add(auth.DefaultIdleTimeout+time.Second)))
	})

	t.Run("touch extends validity", func(t *testing.T) {
		s, err := auth.NewSession(user, "tokenhash", time.Minute)
		require.NoError(t, err)

		later := s.LastSeenAt.Add(50 * time.Second)
		s.LastSeenAt = later
		assert.False(t, s.ExpiredAt(later.Add(59*time.Second)))
		assert.True(t, s.ExpiredAt(later.Add(61*time.Second)))
	})
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    auth.Role
		wantErr bool
	}{
		{"admin", auth.RoleAdmin, false},
		{"user", auth.RoleUser, false},
		{"", "", true},
		{"root", "", true},
		{"Admin", "", true},
	}

	for _, tt := range tests {
		t.Run("role "+tt.in, func(t *testing.T) {
			got, err := auth.ParseRole(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
