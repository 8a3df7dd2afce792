// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"inkwell/internal/models"
)

const profileColumns = `user_id, username, display_name, is_admin, is_restricted, created_at`

// ProfileStore handles profile reads and the restriction flag.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(s rowScanner, p *models.Profile) error {
	return s.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.IsAdmin, &p.IsRestricted, &p.CreatedAt)
}

// FindByUserID retrieves the profile of a user. Returns nil if not found.
func (s *ProfileStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by user id: %w", err)
	}
	return p, nil
}

// List returns every profile, newest first.
func (s *ProfileStore) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, user_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SetRestricted sets is_restricted to value only while it still equals
// expected. Zero rows affected means the profile is gone or the flag was
// changed by someone else.
func (s *ProfileStore) SetRestricted(ctx context.Context, userID uuid.UUID, expected, value bool) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET is_restricted = $1 WHERE user_id = $2 AND is_restricted = $3
	`, value, userID, expected)
	if err != nil {
		return 0, fmt.Errorf("set profile restriction: %w", err)
	}
	return result.RowsAffected()
}
