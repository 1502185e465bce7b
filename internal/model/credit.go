package model

import "time"

// CreditEntry is one row in a user's credit ledger. The balance is the sum
// of all deltas; keeping the individual entries makes the purchase/spend
// history auditable without a separate events table.
type CreditEntry struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Delta     int64     `json:"delta"     db:"delta"` // positive = grant/purchase, negative = spend
	Reason    string    `json:"reason"    db:"reason"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
