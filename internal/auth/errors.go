// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is the single failure returned for both an unknown
// email and a wrong password. Callers must not be able to tell the two apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registration conflicts with an existing email.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidRole is returned when a role is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// ErrSessionExpired is returned by session stores when a session exists but
// its idle timeout has elapsed. Expired and absent sessions are equivalent
// for authorization purposes; the distinction only feeds the tri-state
// resolution result.
var ErrSessionExpired = errors.New("session expired")

// ValidationError reports a missing or malformed registration/login field.
// It is recovered locally and surfaced to the caller as a field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
