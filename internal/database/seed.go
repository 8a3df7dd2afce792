// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Default development administrator created by Seed.
const (
	SeedAdminEmail    = "admin@inkwell.local"
	SeedAdminPassword = "changeme"
	SeedAdminUsername = "admin"
)

// Seed populates the database with initial development data: one
// administrator with its profile. It does nothing if that account exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = $1", SeedAdminEmail).Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id
	`, SeedAdminEmail, string(hash)).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, username, display_name, is_admin)
		VALUES ($1, $2, $3, TRUE)
	`, userID, SeedAdminUsername, "Admin")
	if err != nil {
		return fmt.Errorf("seed insert admin profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", SeedAdminEmail,
		"password", SeedAdminPassword,
	)

	return nil
}
