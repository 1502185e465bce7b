package sqlite

import (
	"context"
	"testing"

	"github.com/truefolio/truefolio/internal/model"
)

// newTestDB opens an in-memory database with the full schema applied.
// Each test gets its own isolated DB; t.Cleanup closes it.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser inserts a user and returns its internal ID. Most tables reference
// users(id) with foreign keys on, so nearly every test needs one.
func seedUser(t *testing.T, db *DB, githubID int64, login string) string {
	t.Helper()

	u := &model.User{GitHubID: githubID, Login: login}
	if _, err := db.Users().Upsert(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", login, err)
	}
	return u.ID
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	// Running migrate again must not error (CREATE TABLE IF NOT EXISTS).
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}
