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

// ConnectionDB stores platform connections. Reached via DB.Connections().
type ConnectionDB struct {
	conn *sql.DB
}

// compile-time check that *ConnectionDB implements repository.ConnectionRepository
var _ repository.ConnectionRepository = (*ConnectionDB)(nil)

// Upsert creates or overwrites the connection for (UserID, Platform).
//
// ON CONFLICT ... DO UPDATE:
// Unlike the user upsert (which must preserve the internal ID across a
// separate SELECT), connections can use SQLite's native upsert because the
// UNIQUE(user_id, platform) index gives us a conflict target. The conflict
// branch overwrites username, profile_url, and payload entirely — last
// write wins, no merging of old and new payloads.
func (db *ConnectionDB) Upsert(ctx context.Context, conn *model.PlatformConnection) error {
	now := time.Now()
	conn.LastSyncedAt = now
	conn.UpdatedAt = now
	if conn.ID == "" {
		conn.ID = xid.New().String()
		conn.CreatedAt = now
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO platform_connections
		   (id, user_id, platform, username, profile_url, payload, last_synced_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, platform) DO UPDATE SET
		   username       = excluded.username,
		   profile_url    = excluded.profile_url,
		   payload        = excluded.payload,
		   last_synced_at = excluded.last_synced_at,
		   updated_at     = excluded.updated_at`,
		conn.ID,
		conn.UserID,
		conn.Platform,
		conn.Username,
		conn.ProfileURL,
		string(conn.Payload),
		conn.LastSyncedAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting connection (%s, %s): %w", conn.UserID, conn.Platform, err)
	}

	return nil
}

// ListByUser returns all of a user's platform connections, oldest first.
func (db *ConnectionDB) ListByUser(ctx context.Context, userID string) ([]model.PlatformConnection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, platform, username, profile_url, payload, last_synced_at, created_at, updated_at
		 FROM platform_connections
		 WHERE user_id = ?
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing connections for user %s: %w", userID, err)
	}
	// CRITICAL: always close rows — they hold a pool connection.
	defer rows.Close()

	var conns []model.PlatformConnection
	for rows.Next() {
		var c model.PlatformConnection
		var payload string
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Platform, &c.Username, &c.ProfileURL,
			&payload, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning connection row: %w", err)
		}
		c.Payload = []byte(payload)
		conns = append(conns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating connections: %w", err)
	}

	return conns, nil
}

// GetByUserAndPlatform returns the single connection for (userID, platform).
func (db *ConnectionDB) GetByUserAndPlatform(ctx context.Context, userID, platform string) (*model.PlatformConnection, error) {
	var c model.PlatformConnection
	var payload string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, platform, username, profile_url, payload, last_synced_at, created_at, updated_at
		 FROM platform_connections
		 WHERE user_id = ? AND platform = ?`,
		userID, platform,
	).Scan(
		&c.ID, &c.UserID, &c.Platform, &c.Username, &c.ProfileURL,
		&payload, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("platform connection", platform)
		}
		return nil, fmt.Errorf("sqlite: getting connection (%s, %s): %w", userID, platform, err)
	}

	c.Payload = []byte(payload)
	return &c, nil
}
