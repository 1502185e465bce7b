package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/repository"
)

// InsightDB stores AI report snapshots. Reached via DB.Insights().
type InsightDB struct {
	conn *sql.DB
}

// compile-time check that *InsightDB implements repository.InsightRepository
var _ repository.InsightRepository = (*InsightDB)(nil)

// Latest returns the most recent insight snapshot for the user.
func (db *InsightDB) Latest(ctx context.Context, userID string) (*model.InsightSnapshot, error) {
	var s model.InsightSnapshot
	var report string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, report, created_at
		 FROM insight_snapshots
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&s.ID, &s.UserID, &report, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("insight snapshot", userID)
		}
		return nil, fmt.Errorf("sqlite: getting latest snapshot for user %s: %w", userID, err)
	}

	s.Report = []byte(report)
	return &s, nil
}

// Replace swaps the user's snapshot for a new one holding report.
//
// TRANSACTIONAL DELETE-THEN-INSERT:
// "Replace previous insights with new ones" is a single logical operation.
// Doing the DELETE and the INSERT as two independent statements would open a
// window where a concurrent reader sees a user with NO snapshot at all. A
// transaction closes that window: readers see either the old snapshot or the
// new one.
//
// The deferred Rollback is a no-op after a successful Commit — it only fires
// when we return early on an error, so the half-done delete never lands.
func (db *InsightDB) Replace(ctx context.Context, userID string, report json.RawMessage) (*model.InsightSnapshot, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning snapshot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM insight_snapshots WHERE user_id = ?`, userID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: deleting stale snapshots for user %s: %w", userID, err)
	}

	snapshot := &model.InsightSnapshot{
		ID:        xid.New().String(),
		UserID:    userID,
		Report:    report,
		CreatedAt: time.Now(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO insight_snapshots (id, user_id, report, created_at)
		 VALUES (?, ?, ?, ?)`,
		snapshot.ID, snapshot.UserID, string(snapshot.Report), snapshot.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("sqlite: inserting snapshot for user %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing snapshot replace: %w", err)
	}

	return snapshot, nil
}
