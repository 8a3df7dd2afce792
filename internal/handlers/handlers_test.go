// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handlers_test.go provides the shared in-memory test server. Handlers run
// behind the real session middleware with storetest and sessiontest fakes
// in place of PostgreSQL and Valkey.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkwell/internal/auth"
	"inkwell/internal/authz"
	"inkwell/internal/feed"
	"inkwell/internal/lifecycle"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notify"
	"inkwell/internal/render"
	"inkwell/internal/session"
	"inkwell/internal/session/sessiontest"
	"inkwell/internal/store/storetest"
)

// stubProvider answers every exchange with a fixed identity.
type stubProvider struct {
	id auth.Identity
}

func (p *stubProvider) Name() string { return "google" }
func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}
func (p *stubProvider) Exchange(ctx context.Context, code string) (*auth.Identity, error) {
	id := p.id
	return &id, nil
}

// testEnv holds the fakes behind a test server.
type testEnv struct {
	Mem      *storetest.Memory
	Sessions *sessiontest.Memory
	Handler  http.Handler
}

// newTestEnv mounts every handler group on a chi router the way the
// production router does, minus CSRF and rate limiting.
func newTestEnv(t *testing.T, policy lifecycle.EditPolicy) *testEnv {
	t.Helper()

	mem := storetest.New()
	sessions := sessiontest.New()
	svc := auth.NewService(mem, sessions, &stubProvider{id: auth.Identity{
		Subject: "g-1", Email: "grace@example.com", Name: "Grace Hopper",
	}})
	engine := lifecycle.New(authz.MustNew(), policy)

	feedH := NewFeed(feed.New(mem, mem))
	authH := NewAuth("/welcome")
	ws := NewWorkspace(mem, mem, engine)
	mod := NewModeration(mem, mem, engine)

	r := chi.NewRouter()
	r.Use(middleware.LoadSession(svc, session.NewStore(nil, time.Hour, false)))
	r.Get("/api/posts", feedH.Latest)
	r.Get("/api/posts/trending", feedH.Trending)
	r.Get("/api/posts/{id}", feedH.Read)
	r.Get("/api/auth/session", authH.Session)
	r.Post("/api/auth/signup", authH.SignUp)
	r.Post("/api/auth/signin", authH.SignIn)
	r.Post("/api/auth/signout", authH.SignOut)
	r.Post("/api/auth/refresh", authH.Refresh)
	r.Get("/api/auth/oauth/{provider}", authH.OAuthStart)
	r.Get("/api/auth/oauth/{provider}/callback", authH.OAuthCallback)
	r.Get("/api/me/posts", ws.List)
	r.Post("/api/me/posts", ws.Create)
	r.Put("/api/me/posts/{id}", ws.Update)
	r.Delete("/api/me/posts/{id}", ws.Delete)
	r.Get("/api/me/posts/{id}/form", ws.Form)
	r.Get("/api/me/dashboard", ws.Dashboard)
	r.Get("/api/admin", mod.Overview)
	r.Post("/api/admin/posts/{id}/approve", mod.Approve)
	r.Post("/api/admin/posts/{id}/reject", mod.Reject)
	r.Post("/api/admin/posts/{id}/hide", mod.Hide)
	r.Post("/api/admin/users/{id}/restriction", mod.Restriction)

	return &testEnv{Mem: mem, Sessions: sessions, Handler: r}
}

// signIn creates a profile and a live session for it, returning the
// profile and its session token.
func (e *testEnv) signIn(t *testing.T, p models.Profile) (models.Profile, string) {
	t.Helper()
	p = e.Mem.AddProfile(p)
	sess, err := e.Sessions.Create(context.Background(), p.UserID, p.Username+"@example.com")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return p, sess.Token
}

// do sends a request with an optional JSON body and session token.
func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	e.Handler.ServeHTTP(rr, req)
	return rr
}

// testEnvelope mirrors envelope with the payloads left raw.
type testEnvelope struct {
	View    json.RawMessage   `json:"view"`
	Result  json.RawMessage   `json:"result"`
	Notices []notify.Notice   `json:"notices"`
	Error   *render.ErrorBody `json:"error"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func decodeRaw[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

func lastNotice(t *testing.T, env testEnvelope) notify.Notice {
	t.Helper()
	if len(env.Notices) == 0 {
		t.Fatal("expected at least one notice")
	}
	return env.Notices[len(env.Notices)-1]
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func cookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func postPath(id uuid.UUID, suffix string) string {
	return "/api/me/posts/" + id.String() + suffix
}
