package model

import (
	"encoding/json"
	"time"
)

// InsightSnapshot is the most recent AI-generated analysis of a user's
// aggregated platform data. Report holds the parsed model output verbatim.
//
// In steady state each user has at most one snapshot: regeneration replaces
// the old snapshot with the new one inside a single transaction (see
// InsightRepository.Replace), so a concurrent reader never observes a user
// with zero snapshots mid-replace.
type InsightSnapshot struct {
	ID        string          `json:"id"        db:"id"`
	UserID    string          `json:"userId"    db:"user_id"`
	Report    json.RawMessage `json:"report"    db:"report"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// AgeDays returns the snapshot's age in whole days at the given instant.
// Floor semantics: a snapshot 23 hours old is 0 days old.
func (s *InsightSnapshot) AgeDays(now time.Time) int {
	return int(now.Sub(s.CreatedAt).Hours() / 24)
}
