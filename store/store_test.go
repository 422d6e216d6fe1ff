package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/mbolis/schroedinger/config"
	"github.com/mbolis/schroedinger/database"
)

// Store tests run against a real PostgreSQL instance, pointed at by
// SCHROEDINGER_TEST_DB_URL. Without it they skip.

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("SCHROEDINGER_TEST_DB_URL")
	if url == "" {
		t.Skip("SCHROEDINGER_TEST_DB_URL not set")
	}

	db, err := database.Open(config.Config{DBUrl: url})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`TRUNCATE users CASCADE`)
	if err != nil {
		t.Fatalf("reset test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, s *Store, db *sql.DB, username string) string {
	t.Helper()
	id, err := s.CreateUser(context.Background(), db, username, username+"@example.com", "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func createTestSurvey(t *testing.T, s *Store, db *sql.DB, ownerID, title string, secured bool) string {
	t.Helper()
	id, err := s.CreateSurvey(context.Background(), db, title, "about "+title, time.Now(), nil, secured, ownerID)
	if err != nil {
		t.Fatalf("create survey %s: %v", title, err)
	}
	return id
}
