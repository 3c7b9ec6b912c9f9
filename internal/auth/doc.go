// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package auth provides the credential and session core for credgate.
//
// # Domain Types
//
// Domain types are created through their constructors:
//   - NewUser - creates a User with validated fields and a hashed password
//   - NewSession - creates a Session bound to a user and an idle timeout
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service coordinates registration, login, session lifecycle and the role
// predicates used by the request gate. It is created with NewService, which
// validates its dependencies.
package auth
