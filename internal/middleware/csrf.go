// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"inkwell/internal/render"
)

const (
	csrfTokenLength = 32

	// CSRFCookieName holds the token. It is readable by scripts so the
	// client can echo it back in CSRFHeaderName.
	CSRFCookieName = "inkwell_csrf"

	// CSRFHeaderName carries the token on state-changing requests.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFQueryParam carries the token for clients that cannot set headers.
	CSRFQueryParam = "csrf_token"

	csrfKey contextKey = "csrf_token"
)

// NewCSRF returns double-submit cookie CSRF protection. Unsafe methods
// (POST, PUT, PATCH, DELETE) must echo the cookie value in the
// X-CSRF-Token header or the csrf_token query parameter.
func NewCSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(CSRFCookieName); err == nil {
				token = cookie.Value
			}
			if token == "" {
				var err error
				if token, err = generateCSRFToken(); err != nil {
					render.Status(w, http.StatusInternalServerError, "Could not start a session.")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfKey, token))

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			submitted := r.Header.Get(CSRFHeaderName)
			if submitted == "" {
				submitted = r.URL.Query().Get(CSRFQueryParam)
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				render.Status(w, http.StatusForbidden, "CSRF token mismatch.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFTokenFromCtx returns the token NewCSRF stored for this request.
func CSRFTokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey).(string)
	return token
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
