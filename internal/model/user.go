// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered user account.
//
// Two ways in: GitHub OAuth (GitHubID set, PasswordHash empty) or
// email/password signup (GitHubID zero, PasswordHash set). Either way we
// generate our own internal string ID (xid) for consistency with the other
// entities and to avoid tying our primary keys to a third-party's numbering
// scheme.
//
// WHY GitHubID int64?
// GitHub user IDs are integers (e.g. 1234567). Using int64 avoids overflow
// for large GitHub account numbers. Zero means "not a GitHub account"; the
// partial unique index on github_id ignores zeroes, so password accounts
// don't collide with each other.
//
// WHY Email string (not *string)?
// GitHub OAuth returns the primary public email, which can be empty if the
// user has hidden it. We use an empty string as the zero value rather than a
// nullable pointer — simpler to work with and safe to display.
type User struct {
	ID        string    `json:"id"        db:"id"`
	GitHubID  int64     `json:"githubId"  db:"github_id"` // GitHub's numeric user ID, 0 for password accounts
	Login     string    `json:"login"     db:"login"`     // GitHub username or email local part
	Email     string    `json:"email"     db:"email"`     // Primary email (may be empty for OAuth users)
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// PasswordHash is the bcrypt hash for email/password accounts, empty for
	// OAuth accounts. Never serialized.
	PasswordHash string `json:"-" db:"password_hash"`
}
