// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package config loads service configuration from defaults, an optional
// YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/gate"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Gate     GateConfig     `koanf:"gate"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr          string `koanf:"addr"`
	MetricsAddr   string `koanf:"metrics_addr"`
	SecureCookies bool   `koanf:"secure_cookies"`
}

// DatabaseConfig configures PostgreSQL connectivity.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures hashing and the session lifecycle.
// Intervals are in seconds to keep the YAML shape trivial.
type AuthConfig struct {
	BcryptCost            int    `koanf:"bcrypt_cost"`
	SessionTimeoutSeconds int    `koanf:"session_timeout_seconds"`
	SweepIntervalSeconds  int    `koanf:"sweep_interval_seconds"`
	SessionStore          string `koanf:"session_store"`
}

// SessionTimeout returns the idle timeout as a duration.
func (c AuthConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// SweepInterval returns the sweep cadence as a duration.
func (c AuthConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// GateConfig configures the request gate's path classification.
type GateConfig struct {
	PublicPatterns []string `koanf:"public_patterns"`
	AdminPatterns  []string `koanf:"admin_patterns"`
	UserPatterns   []string `koanf:"user_patterns"`
	LoginPath      string   `koanf:"login_path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: "127.0.0.1:9100",
		},
		Auth: AuthConfig{
			BcryptCost:            auth.DefaultBcryptCost,
			SessionTimeoutSeconds: int(auth.DefaultIdleTimeout / time.Second),
			SweepIntervalSeconds:  60,
			SessionStore:          StorePostgres,
		},
		Gate: GateConfig{
			PublicPatterns: gate.DefaultPublicPatterns,
			AdminPatterns:  []string{gate.DefaultAdminLanding, "/admin/**"},
			UserPatterns:   []string{gate.DefaultUserLanding},
			LoginPath:      gate.DefaultLoginPath,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then the given flag set (if non-nil). The DATABASE_URL
// environment variable fills the database URL when nothing else sets it.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	// Unmarshal over the defaults so absent keys keep their default values.
	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	errb := oops.In("config")

	if c.Server.Addr == "" {
		return errb.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	// Users live in PostgreSQL with either backend; the session_store choice
	// only swaps where sessions are kept.
	if c.Database.URL == "" {
		return errb.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Auth.SessionStore != StoreMemory && c.Auth.SessionStore != StorePostgres {
		return errb.Code("CONFIG_INVALID").
			With("session_store", c.Auth.SessionStore).
			Errorf("auth.session_store must be %q or %q", StoreMemory, StorePostgres)
	}
	if c.Auth.SessionTimeoutSeconds <= 0 {
		return errb.Code("CONFIG_INVALID").Errorf("auth.session_timeout_seconds must be positive")
	}
	if c.Auth.SweepIntervalSeconds <= 0 {
		return errb.Code("CONFIG_INVALID").Errorf("auth.sweep_interval_seconds must be positive")
	}
	return nil
}
