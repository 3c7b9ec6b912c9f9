// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package web

import (
	"net/http"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "credgate_session"

// setSessionCookie round-trips the session token to the client. The cookie
// is HttpOnly so scripts cannot read it, and carries no Max-Age or Expires:
// the server owns session lifetime, and a fixed client expiry would discard
// the token while server-side touches are still keeping the session alive.
func setSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the session token from the request cookie, or ""
// when the cookie is absent.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
