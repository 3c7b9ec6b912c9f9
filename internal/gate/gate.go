// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package gate decides, per inbound request path, whether a session may
// proceed. It classifies paths as public or protected against configured
// glob patterns and applies the role rules of the protected ones. The gate
// is pure decision logic; the HTTP wiring lives in the web package.
package gate

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// Default routing targets.
const (
	DefaultLoginPath    = "/login"
	DefaultAdminLanding = "/dashboard/admin"
	DefaultUserLanding  = "/dashboard/user"
)

// DefaultPublicPatterns cover login, registration and static assets.
var DefaultPublicPatterns = []string{
	"/login",
	"/register",
	"/logout",
	"/assets/**",
	"/healthz",
}

// RoleRule requires a role for every path matching a pattern.
type RoleRule struct {
	Pattern string
	Role    auth.Role
}

// Config configures a Gate. Zero-value fields fall back to the defaults
// above.
type Config struct {
	PublicPatterns []string
	RoleRules      []RoleRule
	LoginPath      string
}

// Decision is the outcome for one request.
type Decision struct {
	Allow      bool
	RedirectTo string // set iff Allow is false
}

// compiledPattern holds a path pattern and its compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

type compiledRule struct {
	compiledPattern
	role auth.Role
}

// Gate evaluates the access decision table for request paths.
type Gate struct {
	public    []compiledPattern
	rules     []compiledRule
	loginPath string
}

// New compiles the configured patterns into a Gate.
// Returns an error if any pattern has invalid glob syntax or a rule names
// an unknown role.
func New(cfg Config) (*Gate, error) {
	if len(cfg.PublicPatterns) == 0 {
		cfg.PublicPatterns = DefaultPublicPatterns
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}

	public := make([]compiledPattern, 0, len(cfg.PublicPatterns))
	for _, p := range cfg.PublicPatterns {
		// '/' as separator: '*' stays within one path segment, '**' crosses.
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.In("gate").
				Code("INVALID_PATH_PATTERN").
				With("pattern", p).
				Wrap(err)
		}
		public = append(public, compiledPattern{pattern: p, glob: g})
	}

	rules := make([]compiledRule, 0, len(cfg.RoleRules))
	for _, r := range cfg.RoleRules {
		if !r.Role.Valid() {
			return nil, oops.In("gate").
				Code("INVALID_ROLE_RULE").
				With("pattern", r.Pattern).
				With("role", string(r.Role)).
				Wrap(auth.ErrInvalidRole)
		}
		g, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, oops.In("gate").
				Code("INVALID_PATH_PATTERN").
				With("pattern", r.Pattern).
				Wrap(err)
		}
		rules = append(rules, compiledRule{
			compiledPattern: compiledPattern{pattern: r.Pattern, glob: g},
			role:            r.Role,
		})
	}

	return &Gate{public: public, rules: rules, loginPath: cfg.LoginPath}, nil
}

// Check applies the decision table to a path and a session resolution.
//
// Unauthenticated (or expired) sessions may only reach public paths;
// everything else redirects to login. Authenticated sessions pass unless a
// role rule matches and mismatches, in which case the user is redirected to
// their own landing page rather than rejected.
func (g *Gate) Check(path string, res auth.Resolution) Decision {
	if !res.Authenticated() {
		if g.isPublic(path) {
			return Decision{Allow: true}
		}
		return Decision{RedirectTo: g.loginPath}
	}

	// Roles never change after registration, so the role cached on the
	// session is authoritative for gating.
	required, ok := g.requiredRole(path)
	if !ok || required == res.Session.Role {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: g.Landing(res.Session.Role)}
}

// Landing returns the post-login destination for a role.
func (g *Gate) Landing(role auth.Role) string {
	if role == auth.RoleAdmin {
		return DefaultAdminLanding
	}
	return DefaultUserLanding
}

// LoginPath returns the redirect target for unauthenticated requests.
func (g *Gate) LoginPath() string {
	return g.loginPath
}

func (g *Gate) isPublic(path string) bool {
	for _, p := range g.public {
		if p.glob.Match(path) {
			return true
		}
	}
	return false
}

// requiredRole returns the role demanded by the first matching rule.
func (g *Gate) requiredRole(path string) (auth.Role, bool) {
	for _, r := range g.rules {
		if r.glob.Match(path) {
			return r.role, true
		}
	}
	return "", false
}
