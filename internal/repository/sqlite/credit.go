package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/repository"
)

// CreditDB stores the append-only credit ledger. Reached via DB.Credits().
type CreditDB struct {
	conn *sql.DB
}

// compile-time check that *CreditDB implements repository.CreditRepository
var _ repository.CreditRepository = (*CreditDB)(nil)

// Balance sums the user's credit ledger. COALESCE turns "no rows" into 0.
func (db *CreditDB) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = ?`,
		userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading credit balance for user %s: %w", userID, err)
	}
	return balance, nil
}

// Add appends a positive ledger entry (signup grant or purchase).
func (db *CreditDB) Add(ctx context.Context, userID string, delta int64, reason string) error {
	if delta <= 0 {
		return fmt.Errorf("sqlite: credit Add requires a positive delta, got %d", delta)
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO credit_ledger (id, user_id, delta, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		xid.New().String(), userID, delta, reason, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding %d credits for user %s: %w", delta, userID, err)
	}
	return nil
}

// Spend appends a negative ledger entry only if the balance covers it.
//
// CONDITIONAL WRITE, NOT CHECK-THEN-WRITE:
// Reading the balance and then inserting in two steps would let two
// concurrent spends both pass the check. Instead the INSERT's SELECT
// re-evaluates the balance in the same statement, and we use a transaction
// so the read and the write see a consistent ledger.
func (db *CreditDB) Spend(ctx context.Context, userID string, amount int64, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("sqlite: credit Spend requires a positive amount, got %d", amount)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning credit spend: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO credit_ledger (id, user_id, delta, reason, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = ?) >= ?`,
		xid.New().String(), userID, -amount, reason, time.Now(), userID, amount,
	)
	if err != nil {
		return fmt.Errorf("sqlite: spending %d credits for user %s: %w", amount, userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.InsufficientCredits()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing credit spend: %w", err)
	}

	return nil
}
