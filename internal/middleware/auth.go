// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"inkwell/internal/apperr"
	"inkwell/internal/auth"
	"inkwell/internal/render"
	"inkwell/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const clientKey contextKey = "auth_client"

// Cookies writes and clears the session cookie. *session.Store implements it.
type Cookies interface {
	SetCookie(w http.ResponseWriter, data *session.Data)
	ClearCookie(w http.ResponseWriter)
}

// LoadSession resolves the session cookie and puts a per-request
// *auth.Client in the context. Session changes made through the client
// during the request are written back as cookie updates. It never rejects
// a request: an unknown or unreadable session is treated as anonymous.
func LoadSession(svc *auth.Service, cookies Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current *auth.Session
			if token := session.TokenFromRequest(r); token != "" {
				sess, err := svc.Resolve(r.Context(), token)
				switch {
				case err != nil:
					slog.Warn("session lookup failed", "error", err)
				case sess == nil:
					cookies.ClearCookie(w)
				default:
					current = sess
				}
			}

			client := auth.NewClient(svc, current)
			unsubscribe := client.OnSessionChange(func(event auth.Event, sess *auth.Session) {
				if event == auth.EventSignedOut || sess == nil {
					cookies.ClearCookie(w)
					return
				}
				cookies.SetCookie(w, sess)
			})
			defer unsubscribe()

			ctx := context.WithValue(r.Context(), clientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromCtx returns the request's session client, or nil outside
// LoadSession.
func ClientFromCtx(ctx context.Context) *auth.Client {
	client, _ := ctx.Value(clientKey).(*auth.Client)
	return client
}

// SessionFromCtx returns the current session, or nil when anonymous.
func SessionFromCtx(ctx context.Context) *auth.Session {
	if client := ClientFromCtx(ctx); client != nil {
		return client.GetCurrentSession()
	}
	return nil
}

// RequireAuth answers 401 when the request carries no live session.
// Must be applied after LoadSession in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			render.Error(w, r, apperr.New(apperr.KindUnauthenticated, "require auth", "Sign in to continue."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
