// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package web is the HTTP boundary: it parses requests, drives the auth
// service, applies the request gate and round-trips the session cookie.
// All authorization decisions live in the gate; handlers only translate
// between HTTP and the auth domain.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/gate"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/pkg/errutil"
)

// maxFormMemory bounds the in-memory portion of a multipart registration
// form; larger bodies spill to disk per net/http semantics.
const maxFormMemory = 20 << 20

// Handler serves the authentication endpoints.
type Handler struct {
	auth           *auth.Service
	gate           *gate.Gate
	logger         *slog.Logger
	metrics        *observability.Metrics
	sessionTimeout time.Duration
	secureCookies  bool
}

// HandlerConfig configures a Handler. Metrics may be nil.
type HandlerConfig struct {
	Auth           *auth.Service
	Gate           *gate.Gate
	Logger         *slog.Logger
	Metrics        *observability.Metrics
	SessionTimeout time.Duration
	SecureCookies  bool
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Auth == nil {
		return nil, oops.In("web").Code("WEB_INVALID_DEPS").Errorf("auth service is required")
	}
	if cfg.Gate == nil {
		return nil, oops.In("web").Code("WEB_INVALID_DEPS").Errorf("gate is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = auth.DefaultIdleTimeout
	}
	return &Handler{
		auth:           cfg.Auth,
		gate:           cfg.Gate,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		sessionTimeout: cfg.SessionTimeout,
		secureCookies:  cfg.SecureCookies,
	}, nil
}

// Routes builds the full request mux with the gate applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.handleAuthPage)
	mux.HandleFunc("GET /register", h.handleAuthPage)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("GET /dashboard/admin", h.handleDashboard)
	mux.HandleFunc("GET /dashboard/user", h.handleDashboard)
	return h.withGate(mux)
}

// handleAuthPage serves the login/register entry points. A client that
// already holds a live session is sent to its dashboard instead.
func (h *Handler) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	res := resolution(r.Context())
	if res.Authenticated() {
		http.Redirect(w, r, h.gate.Landing(res.User.Role), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"page": r.URL.Path})
}

// handleRegister accepts a multipart form with name, email, password, role
// and an optional profile image. A successful registration is also a login:
// it mints a session and lands the new account on its role dashboard.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.recordRegistration("rejected")
		writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	image, err := h.readProfileImage(r)
	if err != nil {
		h.recordRegistration("rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterParams{
		Name:         r.FormValue("name"),
		Email:        r.FormValue("email"),
		Password:     r.FormValue("password"),
		Role:         r.FormValue("role"),
		ProfileImage: image,
	})
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	token, err := h.auth.CreateSession(r.Context(), user, h.sessionTimeout)
	if err != nil {
		h.recordRegistration("error")
		errutil.LogError(h.logger, "session creation failed", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.recordRegistration("success")
	h.logger.Info("registration accepted", "user_id", user.ID)
	setSessionCookie(w, token, h.secureCookies)
	http.Redirect(w, r, h.gate.Landing(user.Role), http.StatusSeeOther)
}

func (h *Handler) readProfileImage(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Errorf("image upload is malformed")
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	if header.Size > auth.MaxProfileImageBytes {
		return nil, oops.Errorf("image exceeds %d bytes", auth.MaxProfileImageBytes)
	}
	// LimitReader guards against a lying Content-Length in the part header.
	image, err := io.ReadAll(io.LimitReader(file, auth.MaxProfileImageBytes+1))
	if err != nil {
		return nil, oops.Errorf("image upload failed")
	}
	if len(image) > auth.MaxProfileImageBytes {
		return nil, oops.Errorf("image exceeds %d bytes", auth.MaxProfileImageBytes)
	}
	return image, nil
}

func (h *Handler) writeRegisterError(w http.ResponseWriter, err error) {
	var vErr *auth.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.recordRegistration("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": vErr.Message,
			"field": vErr.Field,
		})
	case errors.Is(err, auth.ErrInvalidRole):
		h.recordRegistration("rejected")
		writeError(w, http.StatusBadRequest, "invalid role")
	case errors.Is(err, auth.ErrEmailTaken):
		h.recordRegistration("rejected")
		writeError(w, http.StatusConflict, auth.ErrEmailTaken.Error())
	default:
		h.recordRegistration("error")
		errutil.LogError(h.logger, "registration failed", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
	}
}

// handleLogin verifies credentials, mints a session and routes the client
// to the landing page for its role.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form")
		return
	}

	user, err := h.auth.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	token, err := h.auth.CreateSession(r.Context(), user, h.sessionTimeout)
	if err != nil {
		h.recordLogin("error")
		errutil.LogError(h.logger, "session creation failed", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.recordLogin("success")
	setSessionCookie(w, token, h.secureCookies)
	http.Redirect(w, r, h.gate.Landing(user.Role), http.StatusSeeOther)
}

func (h *Handler) writeLoginError(w http.ResponseWriter, err error) {
	var vErr *auth.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.recordLogin("failure")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": vErr.Message,
			"field": vErr.Field,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		// One message for unknown email and wrong password alike.
		h.recordLogin("failure")
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	default:
		h.recordLogin("error")
		errutil.LogError(h.logger, "login failed", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	}
}

// handleLogout invalidates the session and clears the cookie. Logging out
// without a session, or twice, succeeds the same way.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		errutil.LogError(h.logger, "logout failed", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	clearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, h.gate.LoginPath(), http.StatusSeeOther)
}

// handleDashboard renders the profile of the session's user. The gate has
// already routed mismatched roles away, so by the time this runs the path
// matches the caller's role.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	res := resolution(r.Context())
	if !res.Authenticated() {
		// The gate only lets authenticated sessions this far.
		writeError(w, http.StatusInternalServerError, "session missing")
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		User: userView{
			ID:           res.User.ID,
			Name:         res.User.Name,
			Email:        res.User.Email,
			Role:         string(res.User.Role),
			ProfileImage: res.User.ProfileImage,
		},
	})
}

type dashboardResponse struct {
	User userView `json:"user"`
}

// userView is the wire shape of a user. ProfileImage marshals as base64.
type userView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage []byte `json:"profile_image,omitempty"`
}

func (h *Handler) recordLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) recordRegistration(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write failure means the client is gone
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
