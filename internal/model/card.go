package model

import (
	"encoding/json"
	"time"
)

// PortfolioCard is a small shareable summary derived from an InsightSnapshot.
//
// CardData is a projection COPY taken from the snapshot at creation time, not
// a live reference — regenerating insights later does not retroactively
// change cards that were already created.
type PortfolioCard struct {
	ID          string          `json:"id"          db:"id"`
	UserID      string          `json:"userId"      db:"user_id"`
	Title       string          `json:"title"       db:"title"`
	Description string          `json:"description" db:"description"`
	CardData    json.RawMessage `json:"cardData"    db:"card_data"`
	IsPublic    bool            `json:"isPublic"    db:"is_public"`
	ShareCount  int64           `json:"shareCount"  db:"share_count"`
	CreatedAt   time.Time       `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt"   db:"updated_at"`
}

// CardData is the projected shape stored in PortfolioCard.CardData.
// Kept deliberately small — a card is a teaser, the full report stays in the
// snapshot.
type CardData struct {
	Skills        Skills   `json:"skills"`
	Highlights    []string `json:"highlights"`
	OverallScore  float64  `json:"overallScore"`
	ActivityLevel string   `json:"activityLevel"`
	Platforms     []string `json:"platforms"`
}
