package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/repository"
)

// UserDB stores user accounts. Reached via DB.Users().
type UserDB struct {
	conn *sql.DB
}

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately instead of at
// the first call site that passes *UserDB around. Standard Go practice for
// any interface implementation.
var _ repository.UserRepository = (*UserDB)(nil)

// Upsert inserts or updates a user based on their GitHub ID.
//
// First login → INSERT (with a freshly generated internal ID).
// Subsequent logins → UPDATE login/email/avatar in case the user changed
// them on GitHub, KEEPING the existing internal ID.
//
// We look the user up by github_id first rather than using INSERT OR
// REPLACE: REPLACE would delete and re-insert the row, which resets
// created_at and — with foreign keys on — would cascade into every table
// referencing users(id).
func (db *UserDB) Upsert(ctx context.Context, user *model.User) (bool, error) {
	var existing model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existing.ID, &existing.CreatedAt)

	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existing.ID != "" {
		// User already exists — refresh the profile fields only.
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return false, nil
	}

	// New user — generate an ID and INSERT.
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GitHubID,
		user.Login,
		user.Email,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}

	return true, nil
}

// Create inserts a password-credential account. The email lookup happens
// first so a taken address surfaces as ErrConflict instead of a raw UNIQUE
// constraint failure; the partial index still backstops races.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, user.Email,
	).Scan(&existingID)
	if err == nil {
		return apperror.Conflict("user", user.Email)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: checking email %s: %w", user.Email, err)
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, password_hash, created_at, updated_at)
		 VALUES (?, 0, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Login,
		user.Email,
		user.AvatarURL,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.getBy(ctx, "id", id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByGitHubID retrieves a user by their GitHub numeric ID.
func (db *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := db.getBy(ctx, "github_id", githubID)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.getBy(ctx, "email", email)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return u, nil
}

// getBy runs the shared single-row lookup. column is always a literal from
// this file, never caller input.
func (db *UserDB) getBy(ctx context.Context, column string, value any) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, password_hash, created_at, updated_at
		 FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
