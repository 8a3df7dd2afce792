// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

func newProviderServer(t *testing.T, info map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *OAuthProvider {
	return NewOAuthProvider("google", &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, srv.URL+"/userinfo")
}

func TestOAuthProviderExchange(t *testing.T) {
	srv := newProviderServer(t, map[string]any{
		"id": "42", "email": "grace@example.com", "verified_email": true, "name": "Grace",
	})
	p := testProvider(srv)

	id, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if id.Subject != "42" || id.Email != "grace@example.com" || id.Name != "Grace" {
		t.Errorf("identity: %+v", id)
	}

	if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestOAuthProviderRejectsUnverifiedEmail(t *testing.T) {
	srv := newProviderServer(t, map[string]any{"id": "42", "email": "x@example.com", "verified_email": false})
	if _, err := testProvider(srv).Exchange(context.Background(), "good-code"); err == nil {
		t.Error("expected error for unverified email")
	}
}

func TestOAuthProviderAuthCodeURL(t *testing.T) {
	srv := newProviderServer(t, nil)
	raw := testProvider(srv).AuthCodeURL("xyz")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "xyz" || q.Get("client_id") != "client" || q.Get("redirect_uri") != "http://localhost/callback" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestGoogleProviderName(t *testing.T) {
	if NewGoogleProvider("id", "secret", "http://localhost/cb").Name() != "google" {
		t.Error("expected google")
	}
}
