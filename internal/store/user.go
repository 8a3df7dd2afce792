// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all Inkwell
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"inkwell/internal/models"
)

// Unique constraint violations surfaced by Register.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

const userColumns = `id, email, password_hash, oauth_provider, oauth_subject, created_at, updated_at`

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Registration describes a new identity. Either Password or the OAuth
// pair must be set.
type Registration struct {
	Email         string
	Password      string
	OAuthProvider string
	OAuthSubject  string
	Username      string
	DisplayName   string
}

func scanUser(s rowScanner, u *models.User) error {
	return s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Register creates the user and its profile in one transaction, so a
// profile always exists before the identity can author anything.
func (s *UserStore) Register(ctx context.Context, r Registration) (*models.User, *models.Profile, error) {
	var hash *string
	if r.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
		hs := string(h)
		hash = &hs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("register begin: %w", err)
	}
	defer tx.Rollback()

	u := &models.User{}
	err = scanUser(tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, oauth_provider, oauth_subject)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		r.Email, hash, nullString(r.OAuthProvider), nullString(r.OAuthSubject)), u)
	if err != nil {
		return nil, nil, fmt.Errorf("register user: %w", classifyUnique(err))
	}

	p := &models.Profile{}
	err = scanProfile(tx.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, username, display_name)
		VALUES ($1, $2, $3)
		RETURNING `+profileColumns,
		u.ID, r.Username, r.DisplayName), p)
	if err != nil {
		return nil, nil, fmt.Errorf("register profile: %w", classifyUnique(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("register commit: %w", err)
	}
	return u, p, nil
}

// classifyUnique maps unique violations on users/profiles to sentinels.
func classifyUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailTaken
	case "profiles_username_key":
		return ErrUsernameTaken
	}
	return err
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email), u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByOAuth retrieves a user by provider identity. Returns nil if not found.
func (s *UserStore) FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	u := &models.User{}
	err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE oauth_provider = $1 AND oauth_subject = $2
	`, provider, subject), u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by oauth: %w", err)
	}
	return u, nil
}

// LinkOAuth attaches a provider identity to an existing password user.
func (s *UserStore) LinkOAuth(ctx context.Context, userID uuid.UUID, provider, subject string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET oauth_provider = $1, oauth_subject = $2, updated_at = NOW() WHERE id = $3
	`, provider, subject, userID)
	if err != nil {
		return fmt.Errorf("link oauth: %w", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) == nil
}
