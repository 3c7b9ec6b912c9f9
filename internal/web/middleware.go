// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package web

import (
	"context"
	"net/http"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

type contextKey struct{}

var resolutionKey contextKey

// resolution returns the session resolution stored by withGate.
// Requests that bypassed the middleware read as unauthenticated.
func resolution(ctx context.Context) auth.Resolution {
	if res, ok := ctx.Value(resolutionKey).(auth.Resolution); ok {
		return res
	}
	return auth.Resolution{State: auth.StateUnauthenticated}
}

// withGate resolves the session cookie once per request, applies the gate
// decision and stashes the resolution in the request context for handlers.
//
// A session whose resolution fails at the store is treated as unauthenticated
// rather than failing the request: public paths must stay reachable when the
// store is down.
func (h *Handler) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := h.auth.Resolve(r.Context(), sessionToken(r))
		if err != nil {
			errutil.LogError(h.logger, "session resolution failed", err)
			res = auth.Resolution{State: auth.StateUnauthenticated}
		}

		decision := h.gate.Check(r.URL.Path, res)
		if !decision.Allow {
			h.recordGateDecision("redirect")
			if res.State == auth.StateExpired {
				// The cookie references a dead session; stop resending it.
				clearSessionCookie(w, h.secureCookies)
			}
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}

		h.recordGateDecision("allow")
		ctx := context.WithValue(r.Context(), resolutionKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) recordGateDecision(outcome string) {
	if h.metrics != nil {
		h.metrics.GateDecisions.WithLabelValues(outcome).Inc()
	}
}
