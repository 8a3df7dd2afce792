// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// csrfServe runs req through NewCSRF and reports whether the inner handler
// ran, along with the token it saw in the context.
func csrfServe(t *testing.T, secure bool, req *http.Request) (*httptest.ResponseRecorder, bool, string) {
	t.Helper()
	var (
		reached bool
		seen    string
	)
	handler := NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen = CSRFTokenFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, reached, seen
}

func csrfCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFIssuesCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		rr, reached, seen := csrfServe(t, secure, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
		if !reached {
			t.Fatal("GET should reach the handler")
		}

		c := csrfCookie(rr)
		if c == nil {
			t.Fatal("expected a CSRF cookie on first visit")
		}
		if len(c.Value) != csrfTokenLength*2 {
			t.Errorf("token length: got %d, want %d hex chars", len(c.Value), csrfTokenLength*2)
		}
		if c.Secure != secure {
			t.Errorf("Secure: got %v, want %v", c.Secure, secure)
		}
		if c.HttpOnly {
			t.Error("cookie must be readable by scripts to be echoed back")
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("SameSite: got %v, want Strict", c.SameSite)
		}
		if seen != c.Value {
			t.Errorf("context token %q does not match cookie %q", seen, c.Value)
		}
	}
}

func TestCSRFReusesExistingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing-token"})

	rr, _, seen := csrfServe(t, false, req)

	if csrfCookie(rr) != nil {
		t.Error("an existing cookie should not be reissued")
	}
	if seen != "existing-token" {
		t.Errorf("context token: got %q, want existing-token", seen)
	}
}

func TestCSRFUnsafeMethods(t *testing.T) {
	const token = "known-token"

	tests := []struct {
		name    string
		method  string
		target  string
		header  string
		allowed bool
	}{
		{"post without token", http.MethodPost, "/api/me/posts", "", false},
		{"put without token", http.MethodPut, "/api/me/posts/1", "", false},
		{"delete without token", http.MethodDelete, "/api/me/posts/1", "", false},
		{"patch without token", http.MethodPatch, "/api/me/posts/1", "", false},
		{"wrong header", http.MethodPost, "/api/auth/signout", "other-token", false},
		{"matching header", http.MethodPost, "/api/auth/signout", token, true},
		{"matching query parameter", http.MethodPost, "/api/me/posts?" + CSRFQueryParam + "=" + token, "", true},
		{"wrong query parameter", http.MethodDelete, "/api/me/posts/1?" + CSRFQueryParam + "=nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}

			rr, reached, _ := csrfServe(t, false, req)

			if reached != tt.allowed {
				t.Fatalf("handler reached: got %v, want %v", reached, tt.allowed)
			}
			if !tt.allowed {
				if rr.Code != http.StatusForbidden {
					t.Errorf("status: got %d, want 403", rr.Code)
				}
				if !strings.Contains(rr.Body.String(), "CSRF token mismatch.") {
					t.Errorf("body: got %q", rr.Body.String())
				}
			}
		})
	}
}

func TestCSRFFreshCookieCannotAuthorizeSameRequest(t *testing.T) {
	// Without a cookie the server mints a token the client has not seen yet.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
	req.Header.Set(CSRFHeaderName, "guess")

	rr, reached, _ := csrfServe(t, false, req)

	if reached {
		t.Fatal("POST without a cookie must be rejected")
	}
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rr.Code)
	}
}

func TestCSRFSafeMethodsPassThrough(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		if _, reached, _ := csrfServe(t, false, httptest.NewRequest(method, "/api/posts", nil)); !reached {
			t.Errorf("%s should pass without a token", method)
		}
	}
}

func TestCSRFTokenFromCtxEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := CSRFTokenFromCtx(req.Context()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
