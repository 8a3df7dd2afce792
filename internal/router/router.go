// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// Inkwell API. Routes are grouped into public, session, author and admin
// groups; the admin check itself belongs to the moderation controller.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inkwell/internal/auth"
	"inkwell/internal/handlers"
	"inkwell/internal/middleware"
	"inkwell/internal/render"
)

const healthTimeout = 2 * time.Second

// Check is one dependency pinged by /health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Auth          *auth.Service
	Cookies       middleware.Cookies
	AuthLimiter   *middleware.RateLimiter
	SecureCookies bool
	// TrustProxy takes the client address from forwarding headers. Set it
	// only when a reverse proxy in front of the server overwrites them.
	TrustProxy bool
	Checks     []Check

	Feed       *handlers.Feed
	Sessions   *handlers.Auth
	Workspace  *handlers.Workspace
	Moderation *handlers.Moderation
}

// New creates the configured chi router.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	// Health check: no session, no CSRF.
	r.Get("/health", healthHandler(d.Checks))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))
		r.Use(middleware.LoadSession(d.Auth, d.Cookies))

		// Public feed.
		r.Get("/posts", d.Feed.Latest)
		r.Get("/posts/trending", d.Feed.Trending)
		r.Get("/posts/{id}", d.Feed.Read)

		// Sessions. Credential endpoints are rate limited per client.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", d.Sessions.Session)
			r.Post("/signout", d.Sessions.SignOut)
			r.Post("/refresh", d.Sessions.Refresh)
			r.Get("/oauth/{provider}", d.Sessions.OAuthStart)
			r.Get("/oauth/{provider}/callback", d.Sessions.OAuthCallback)

			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/signup", d.Sessions.SignUp)
				r.Post("/signin", d.Sessions.SignIn)
			})
		})

		// Author workspace.
		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/dashboard", d.Workspace.Dashboard)
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", d.Workspace.List)
				r.Post("/", d.Workspace.Create)
				r.Put("/{id}", d.Workspace.Update)
				r.Delete("/{id}", d.Workspace.Delete)
				r.Get("/{id}/form", d.Workspace.Form)
			})
		})

		// Moderation. Non-admins are turned away by the controller gate.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", d.Moderation.Overview)
			r.Post("/posts/{id}/approve", d.Moderation.Approve)
			r.Post("/posts/{id}/reject", d.Moderation.Reject)
			r.Post("/posts/{id}/hide", d.Moderation.Hide)
			r.Post("/users/{id}/restriction", d.Moderation.Restriction)
		})
	})

	return r
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler pings every dependency. Any failure answers 503.
func healthHandler(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		body := healthBody{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			body.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				body.Checks[c.Name] = "unavailable"
				body.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[c.Name] = "ok"
		}
		render.JSON(w, status, body)
	}
}
