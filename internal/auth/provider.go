// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the endpoint queried after a Google code exchange.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Identity is what an OAuth provider tells us about the signed-in user.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Provider is an OAuth 2.0 identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// OAuthProvider implements Provider with the authorization code flow and a
// JSON userinfo endpoint.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider builds a provider from an oauth2 config.
func NewOAuthProvider(name string, config *oauth2.Config, userInfoURL string) *OAuthProvider {
	return &OAuthProvider{name: name, config: config, userInfoURL: userInfoURL}
}

// NewGoogleProvider returns the Google provider. redirectURL must match the
// callback registered in the Google console.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return NewOAuthProvider("google", &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}, GoogleUserInfoURL)
}

// Name returns the provider key used in routes and stored identities.
func (p *OAuthProvider) Name() string {
	return p.name
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// userInfo is the subset of the Google userinfo response we read. Other
// providers serving the same shape work unchanged.
type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// Exchange trades an authorization code for the user's identity.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s userinfo request: %w", p.name, err)
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s userinfo: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s userinfo: status %d: %s", p.name, resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%s userinfo decode: %w", p.name, err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("%s userinfo: missing id or email", p.name)
	}
	if !info.VerifiedEmail {
		return nil, fmt.Errorf("%s userinfo: email %s is not verified", p.name, info.Email)
	}
	return &Identity{Subject: info.ID, Email: info.Email, Name: info.Name}, nil
}
