// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth is the session provider. Service owns credentials and
// session tokens; Client is the per-browser view of one session that
// controllers read and subscribe to.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"inkwell/internal/apperr"
	"inkwell/internal/models"
	"inkwell/internal/session"
	"inkwell/internal/store"
)

// Password bounds enforced by SignUp. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// usernameAttempts bounds the retries when a derived username is taken.
const usernameAttempts = 5

// Session is an issued session token with its identity.
type Session = session.Data

// Users is the credential store.
type Users interface {
	Register(ctx context.Context, r store.Registration) (*models.User, *models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	LinkOAuth(ctx context.Context, userID uuid.UUID, provider, subject string) error
	CheckPassword(user *models.User, password string) bool
}

// Sessions stores session tokens and OAuth state.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID, email string) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Refresh(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
	SaveState(ctx context.Context, state, provider string) error
	ConsumeState(ctx context.Context, state, provider string) (bool, error)
}

// Service signs identities in and out.
type Service struct {
	users     Users
	sessions  Sessions
	providers map[string]Provider
}

// NewService creates a Service. Providers are keyed by Name.
func NewService(users Users, sessions Sessions, providers ...Provider) *Service {
	s := &Service{users: users, sessions: sessions, providers: make(map[string]Provider)}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// SignUp registers a password identity with its profile and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	const op = "sign up"

	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.New(apperr.KindValidation, op, "Enter a valid email address.")
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, apperr.Newf(apperr.KindValidation, op, "Password must be at least %d characters.", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return nil, apperr.Newf(apperr.KindValidation, op, "Password must be at most %d bytes.", MaxPasswordBytes)
	}

	user, err := s.register(ctx, store.Registration{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	slog.Info("user signed up", "user_id", user.ID)
	return s.issue(ctx, op, user)
}

// SignIn checks a password and issues a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "sign in"

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if user == nil || !s.users.CheckPassword(user, password) {
		return nil, apperr.New(apperr.KindUnauthenticated, op, "Invalid email or password.")
	}
	return s.issue(ctx, op, user)
}

// SignOut ends the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return apperr.Store("sign out", err)
	}
	return nil
}

// Resolve returns the live session for token, or nil.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, apperr.Store("resolve session", err)
	}
	return sess, nil
}

// Refresh rotates token.
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	sess, err := s.sessions.Refresh(ctx, token)
	if err != nil {
		return nil, apperr.Store("refresh session", err)
	}
	if sess == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "refresh session", "Your session has expired. Sign in again.")
	}
	return sess, nil
}

// OAuthURL starts an OAuth sign-in and returns the consent page URL.
func (s *Service) OAuthURL(ctx context.Context, provider string) (string, error) {
	const op = "oauth"

	p, ok := s.providers[provider]
	if !ok {
		return "", apperr.Newf(apperr.KindNotFound, op, "Sign-in with %s is not available.", provider)
	}
	state, err := session.NewState()
	if err != nil {
		return "", apperr.Store(op, err)
	}
	if err := s.sessions.SaveState(ctx, state, provider); err != nil {
		return "", apperr.Store(op, err)
	}
	return p.AuthCodeURL(state), nil
}

// CompleteOAuth finishes the provider round trip. Known identities sign in,
// a verified email matching a password account links to it, anything else
// registers a new identity.
func (s *Service) CompleteOAuth(ctx context.Context, provider, state, code string) (*Session, error) {
	const op = "oauth callback"

	p, ok := s.providers[provider]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, op, "Sign-in with %s is not available.", provider)
	}
	valid, err := s.sessions.ConsumeState(ctx, state, provider)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if !valid {
		return nil, apperr.New(apperr.KindUnauthenticated, op, "This sign-in link has expired. Try again.")
	}
	if code == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, op, "Sign-in was cancelled.")
	}

	id, err := p.Exchange(ctx, code)
	if err != nil {
		slog.Warn("oauth exchange failed", "provider", provider, "error", err)
		return nil, apperr.Wrap(apperr.KindUnauthenticated, op, err)
	}

	user, err := s.users.FindByOAuth(ctx, provider, id.Subject)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if user == nil {
		user, err = s.users.FindByEmail(ctx, normalizeEmail(id.Email))
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		if user != nil {
			if err := s.users.LinkOAuth(ctx, user.ID, provider, id.Subject); err != nil {
				return nil, apperr.Store(op, err)
			}
			slog.Info("oauth identity linked", "provider", provider, "user_id", user.ID)
		}
	}
	if user == nil {
		user, err = s.register(ctx, store.Registration{
			Email:         normalizeEmail(id.Email),
			OAuthProvider: provider,
			OAuthSubject:  id.Subject,
			DisplayName:   id.Name,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("user signed up", "user_id", user.ID, "provider", provider)
	}
	return s.issue(ctx, op, user)
}

// register derives a username from the email and retries with a random
// suffix while it collides.
func (s *Service) register(ctx context.Context, r store.Registration) (*models.User, error) {
	base := UsernameFromEmail(r.Email)
	r.Username = base
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		if attempt > 0 {
			r.Username = base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
		}
		user, _, err := s.users.Register(ctx, r)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, store.ErrUsernameTaken):
			continue
		case errors.Is(err, store.ErrEmailTaken):
			return nil, apperr.New(apperr.KindValidation, "sign up", "An account with this email already exists.")
		default:
			return nil, apperr.Store("sign up", err)
		}
	}
	return nil, apperr.New(apperr.KindStore, "sign up", "Could not pick a free username. Try again.")
}

func (s *Service) issue(ctx context.Context, op string, user *models.User) (*Session, error) {
	sess, err := s.sessions.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return sess, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail returns the email local part reduced to lowercase
// letters, digits, '_' and '-'.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
