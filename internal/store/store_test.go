// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inkwell/internal/database"
	"inkwell/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "inkwell")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "inkwell")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Profiles and posts cascade.
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// testAuthor registers a throwaway password user and returns its profile.
func testAuthor(t *testing.T, db *sql.DB, name string) *models.Profile {
	t.Helper()

	email := name + "@store-test.local"
	cleanUsers(t, db, email)
	t.Cleanup(func() { cleanUsers(t, db, email) })

	_, p, err := NewUserStore(db).Register(context.Background(), Registration{
		Email:       email,
		Password:    "testpass123",
		Username:    name + "-" + uuid.NewString()[:8],
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return p
}

// insertPost stores a pending post owned by userID.
func insertPost(t *testing.T, s *PostStore, userID uuid.UUID, title string, tags ...string) *models.Post {
	t.Helper()
	p, err := s.Insert(context.Background(), &models.Post{
		UserID:  userID,
		Title:   title,
		Content: title + " body",
		Excerpt: title + " body",
		Tags:    tags,
		Status:  models.PostStatusPending,
	})
	if err != nil {
		t.Fatalf("insert %q: %v", title, err)
	}
	return p
}
