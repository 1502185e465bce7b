package model

import (
	"encoding/json"
	"time"
)

// PlatformConnection is the stored link between a user and one external
// platform. It holds whatever the platform connector last fetched.
//
// WHY json.RawMessage FOR Payload?
// Each platform returns a different shape (GitHub repo stats, LeetCode solve
// counts, ...). The store does not interpret the payload — it only moves it
// between the connector that produced it and the prompt builder that embeds
// it. json.RawMessage keeps the bytes as-is without a decode/encode round
// trip, and without forcing a shared schema that doesn't exist.
//
// INVARIANT: at most one connection per (UserID, Platform) — enforced by a
// UNIQUE index in the database, and by Upsert semantics (last write wins).
type PlatformConnection struct {
	ID           string          `json:"id"           db:"id"`
	UserID       string          `json:"userId"       db:"user_id"`
	Platform     string          `json:"platform"     db:"platform"` // "github", "leetcode", "linkedin", "twitter"
	Username     string          `json:"username"     db:"username"`
	ProfileURL   string          `json:"profileUrl"   db:"profile_url"`
	Payload      json.RawMessage `json:"payload"      db:"payload"`
	LastSyncedAt time.Time       `json:"lastSyncedAt" db:"last_synced_at"`
	CreatedAt    time.Time       `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt"    db:"updated_at"`
}
