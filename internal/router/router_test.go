// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/auth"
	"inkwell/internal/authz"
	"inkwell/internal/feed"
	"inkwell/internal/handlers"
	"inkwell/internal/lifecycle"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/session"
	"inkwell/internal/session/sessiontest"
	"inkwell/internal/store/storetest"
)

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(nil)(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content-type: got %q, want application/json", ct)
	}

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status field: got %q, want %q", body.Status, "ok")
	}
}

func TestHealthHandlerChecks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	w := httptest.NewRecorder()
	healthHandler([]Check{{"postgres", ok}, {"valkey", down}})(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
	var body healthBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "degraded" || body.Checks["postgres"] != "ok" || body.Checks["valkey"] != "unavailable" {
		t.Errorf("body: got %+v", body)
	}
	if strings.Contains(w.Body.String(), "refused") {
		t.Error("health output must not include error details")
	}
}

// stack is a full router over in-memory stores.
type stack struct {
	mem      *storetest.Memory
	sessions *sessiontest.Memory
	handler  http.Handler
}

func newStack(t *testing.T, authLimit int) *stack {
	t.Helper()
	return newStackWithProxy(t, authLimit, false)
}

func newStackWithProxy(t *testing.T, authLimit int, trustProxy bool) *stack {
	t.Helper()
	mem := storetest.New()
	sessions := sessiontest.New()
	svc := auth.NewService(mem, sessions)
	engine := lifecycle.New(authz.MustNew(), lifecycle.EditKeepStatus)

	limiter := middleware.NewRateLimiter(authLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	h := New(Deps{
		Auth:        svc,
		Cookies:     session.NewStore(nil, time.Hour, false),
		AuthLimiter: limiter,
		TrustProxy:  trustProxy,
		Feed:        handlers.NewFeed(feed.New(mem, mem)),
		Sessions:    handlers.NewAuth("/"),
		Workspace:   handlers.NewWorkspace(mem, mem, engine),
		Moderation:  handlers.NewModeration(mem, mem, engine),
	})
	return &stack{mem: mem, sessions: sessions, handler: h}
}

// browser keeps cookies between requests and echoes the CSRF token.
type browser struct {
	t       *testing.T
	s       *stack
	cookies map[string]*http.Cookie
	headers map[string]string
}

func (s *stack) browser(t *testing.T) *browser {
	return &browser{t: t, s: s, cookies: make(map[string]*http.Cookie), headers: make(map[string]string)}
}

func (b *browser) do(method, target, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "203.0.113.7:5555"
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	if c, ok := b.cookies[middleware.CSRFCookieName]; ok {
		req.Header.Set(middleware.CSRFHeaderName, c.Value)
	}

	rr := httptest.NewRecorder()
	b.s.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	s := newStack(t, 10)
	rr := s.browser(t).do(http.MethodGet, "/nope", "")
	wantStatus(t, rr, http.StatusNotFound)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type: got %q", ct)
	}
}

func TestSecureHeadersApplied(t *testing.T) {
	s := newStack(t, 10)
	rr := s.browser(t).do(http.MethodGet, "/api/posts", "")
	wantStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on API responses")
	}
}

func TestCSRFRequiredOnMutations(t *testing.T) {
	s := newStack(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	wantStatus(t, rr, http.StatusForbidden)
}

func TestAuthorRoutesRequireSession(t *testing.T) {
	s := newStack(t, 10)
	b := s.browser(t)

	for _, target := range []string{"/api/me/posts", "/api/me/dashboard", "/api/admin"} {
		wantStatus(t, b.do(http.MethodGet, target, ""), http.StatusUnauthorized)
	}
}

func TestSignInRateLimited(t *testing.T) {
	s := newStack(t, 2)
	b := s.browser(t)
	b.do(http.MethodGet, "/api/auth/session", "")

	creds := `{"email":"nobody@example.com","password":"wrong12"}`
	wantStatus(t, b.do(http.MethodPost, "/api/auth/signin", creds), http.StatusUnauthorized)
	wantStatus(t, b.do(http.MethodPost, "/api/auth/signin", creds), http.StatusUnauthorized)
	wantStatus(t, b.do(http.MethodPost, "/api/auth/signin", creds), http.StatusTooManyRequests)

	// Other auth endpoints are not limited.
	wantStatus(t, b.do(http.MethodGet, "/api/auth/session", ""), http.StatusOK)
}

func TestSignInLimitKeysOnConnection(t *testing.T) {
	creds := `{"email":"nobody@example.com","password":"wrong12"}`
	tests := []struct {
		name       string
		trustProxy bool
		second     int
	}{
		{"forwarded header ignored", false, http.StatusTooManyRequests},
		{"forwarded header trusted", true, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStackWithProxy(t, 1, tt.trustProxy)

			first := s.browser(t)
			first.headers["X-Forwarded-For"] = "198.51.100.1"
			first.do(http.MethodGet, "/api/auth/session", "")
			wantStatus(t, first.do(http.MethodPost, "/api/auth/signin", creds), http.StatusUnauthorized)

			// Same connection address, different claimed client.
			second := s.browser(t)
			second.headers["X-Forwarded-For"] = "198.51.100.2"
			second.do(http.MethodGet, "/api/auth/session", "")
			wantStatus(t, second.do(http.MethodPost, "/api/auth/signin", creds), tt.second)
		})
	}
}

// TestPostLifecycle walks a post from submission to the public feed and
// back out again.
func TestPostLifecycle(t *testing.T) {
	s := newStack(t, 10)

	author := s.browser(t)
	author.do(http.MethodGet, "/api/auth/session", "")
	wantStatus(t, author.do(http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"secret1"}`), http.StatusCreated)

	rr := author.do(http.MethodPost, "/api/me/posts", `{"title":"Notes","content":"On the analytical engine","tags":"history"}`)
	wantStatus(t, rr, http.StatusCreated)
	var created struct {
		Result models.Post `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Result.ID

	feedCount := func() int {
		var body struct {
			Posts []feed.Entry `json:"posts"`
		}
		rr := s.browser(t).do(http.MethodGet, "/api/posts", "")
		wantStatus(t, rr, http.StatusOK)
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode feed: %v", err)
		}
		return len(body.Posts)
	}
	if n := feedCount(); n != 0 {
		t.Fatalf("pending post must not be public, feed has %d", n)
	}

	// The author cannot approve their own post.
	wantStatus(t, author.do(http.MethodPost, "/api/admin/posts/"+id.String()+"/approve", ""), http.StatusForbidden)

	adminProfile := s.mem.AddProfile(models.Profile{Username: "admin", IsAdmin: true})
	adminSess, _ := s.sessions.Create(context.Background(), adminProfile.UserID, "admin@example.com")
	admin := s.browser(t)
	admin.cookies[session.CookieName] = &http.Cookie{Name: session.CookieName, Value: adminSess.Token}
	admin.do(http.MethodGet, "/api/auth/session", "")

	wantStatus(t, admin.do(http.MethodPost, "/api/admin/posts/"+id.String()+"/approve", ""), http.StatusOK)
	if n := feedCount(); n != 1 {
		t.Fatalf("approved post should be public, feed has %d", n)
	}

	wantStatus(t, admin.do(http.MethodPost, "/api/admin/posts/"+id.String()+"/hide", ""), http.StatusOK)
	if n := feedCount(); n != 0 {
		t.Fatalf("hidden post must leave the feed, feed has %d", n)
	}

	wantStatus(t, author.do(http.MethodPost, "/api/auth/signout", ""), http.StatusOK)
	wantStatus(t, author.do(http.MethodGet, "/api/me/posts", ""), http.StatusUnauthorized)
	wantStatus(t, admin.do(http.MethodPost, "/api/admin/posts/"+uuid.NewString()+"/approve", ""), http.StatusNotFound)
}
