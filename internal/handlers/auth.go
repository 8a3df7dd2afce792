// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/render"
)

// Auth groups the session endpoints. Cookie changes are written by the
// LoadSession middleware when the client reports them.
type Auth struct {
	afterSignIn string
}

// NewAuth creates the auth handler group. afterSignIn is where the browser
// lands after an OAuth round trip.
func NewAuth(afterSignIn string) *Auth {
	if afterSignIn == "" {
		afterSignIn = "/"
	}
	return &Auth{afterSignIn: afterSignIn}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionView describes the caller's session. The CSRF token is echoed so
// API clients need not read the cookie.
type sessionView struct {
	Authenticated bool          `json:"authenticated"`
	Session       *auth.Session `json:"session,omitempty"`
	CSRFToken     string        `json:"csrf_token,omitempty"`
}

func (a *Auth) view(r *http.Request, sess *auth.Session) sessionView {
	return sessionView{
		Authenticated: sess != nil,
		Session:       sess,
		CSRFToken:     middleware.CSRFTokenFromCtx(r.Context()),
	}
}

// Session reports the current session.
func (a *Auth) Session(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, a.view(r, middleware.SessionFromCtx(r.Context())))
}

// SignUp registers a password identity and signs it in.
func (a *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	a.withPassword(w, r, http.StatusCreated, (*auth.Client).SignUpWithPassword)
}

// SignIn checks a password and signs in.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	a.withPassword(w, r, http.StatusOK, (*auth.Client).SignInWithPassword)
}

func (a *Auth) withPassword(w http.ResponseWriter, r *http.Request, status int,
	action func(*auth.Client, context.Context, string, string) (*auth.Session, error)) {
	client, ok := sessionClient(w, r)
	if !ok {
		return
	}
	var in credentials
	if err := render.Decode(r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if msg := validateCredentials(in.Email, in.Password); msg != "" {
		render.Status(w, http.StatusUnprocessableEntity, msg)
		return
	}
	sess, err := action(client, r.Context(), in.Email, in.Password)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, status, a.view(r, sess))
}

// SignOut ends the session. It succeeds without a session too.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	client, ok := sessionClient(w, r)
	if !ok {
		return
	}
	if err := client.SignOut(r.Context()); err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, a.view(r, nil))
}

// Refresh rotates the session token.
func (a *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	client, ok := sessionClient(w, r)
	if !ok {
		return
	}
	sess, err := client.Refresh(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, a.view(r, sess))
}

// OAuthStart redirects the browser to the provider's consent page.
func (a *Auth) OAuthStart(w http.ResponseWriter, r *http.Request) {
	client, ok := sessionClient(w, r)
	if !ok {
		return
	}
	url, err := client.SignInWithOAuth(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback completes the provider round trip and sends the browser
// back to the application.
func (a *Auth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	client, ok := sessionClient(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if _, err := client.CompleteOAuth(r.Context(), chi.URLParam(r, "provider"), q.Get("state"), q.Get("code")); err != nil {
		render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, a.afterSignIn, http.StatusSeeOther)
}
