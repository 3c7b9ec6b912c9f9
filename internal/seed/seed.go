// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package seed loads initial user accounts from a versioned YAML file,
// validates them against a generated JSON Schema and applies them through
// the auth service. Seeding is idempotent: accounts that already exist are
// skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/credgate/credgate/internal/auth"
)

// versionConstraint is the range of seed file versions this build accepts.
const versionConstraint = "^1.0.0"

// File represents a seed YAML file.
type File struct {
	Version string     `yaml:"version" json:"version"`
	Users   []UserSpec `yaml:"users" json:"users"`
}

// UserSpec is one account to create. Passwords are plaintext in the file
// and hashed on apply; seed files are bootstrap material, not secrets
// storage.
type UserSpec struct {
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email" jsonschema:"format=email"`
	Password string `yaml:"password" json:"password"`
	Role     string `yaml:"role" json:"role" jsonschema:"enum=admin,enum=user"`
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := checkVersion(f.Version); err != nil {
		return nil, err
	}
	return &f, nil
}

// checkVersion rejects seed files written for an incompatible schema.
func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid seed file version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(versionConstraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", versionConstraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("seed file version %s is outside supported range %s", version, versionConstraint)
	}
	return nil
}

// Result reports what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Apply registers every user in the file. Accounts whose email is already
// registered are skipped, so re-running a seed is safe. The first hard
// failure aborts the run.
func Apply(ctx context.Context, svc *auth.Service, f *File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for _, u := range f.Users {
		created, err := svc.Register(ctx, auth.RegisterParams{
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Role:     u.Role,
		})
		if errors.Is(err, auth.ErrEmailTaken) {
			logger.Info("seed user already exists, skipping", "email", u.Email)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seeding user %q: %w", u.Email, err)
		}
		logger.Info("seed user created", "email", u.Email, "user_id", created.ID)
		res.Created++
	}
	return res, nil
}
