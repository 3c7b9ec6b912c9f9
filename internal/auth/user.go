// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"regexp"
)

// Role is the coarse authorization tier carried by a user.
type Role string

// The two known roles. Role comparison happens behind the Service predicates
// (HasRole, IsAdmin); call sites never compare the enum directly.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Field constraints for registration.
const (
	MaxNameLength        = 100
	MinPasswordLength    = 6
	MaxProfileImageBytes = 5 << 20 // matches the upload limit at the boundary
)

// emailRegex accepts a local part, an @, and a dotted domain. Uniqueness and
// exact-match case sensitivity are enforced by the user store.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents an account. PasswordHash only ever holds a hasher digest,
// never the plaintext.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ProfileImage []byte // optional
}

// NewUser builds a validated User with the password already hashed.
// The ID is zero until the store assigns one.
func NewUser(name, email, passwordHash string, role Role, profileImage []byte) (*User, error) {
	if name == "" {
		return nil, validationErrorf("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, validationErrorf("name", "name must be at most %d characters", MaxNameLength)
	}
	if email == "" {
		return nil, validationErrorf("email", "email is required")
	}
	if !emailRegex.MatchString(email) {
		return nil, validationErrorf("email", "email is malformed")
	}
	if !IsDigest(passwordHash) {
		return nil, validationErrorf("password", "password hash is not a digest")
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(profileImage) > MaxProfileImageBytes {
		return nil, validationErrorf("image", "profile image exceeds %d bytes", MaxProfileImageBytes)
	}

	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		ProfileImage: profileImage,
	}, nil
}

// UserRepository is the user store contract consumed by the Service.
// The core treats it as atomic, durable storage.
type UserRepository interface {
	// Insert stores a new user and returns the store-assigned id.
	// A uniqueness conflict on email reports ErrEmailTaken.
	Insert(ctx context.Context, user *User) (int64, error)

	// GetByEmail retrieves a user by exact email match.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id int64) (*User, error)
}
