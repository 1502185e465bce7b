// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// The sqlite package's init() function registers itself with database/sql
	// as a driver named "sqlite". After this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The entities share one database and one
// migration path; each repository interface is implemented by a small
// per-entity type (UserDB, ConnectionDB, ...) reached through an accessor,
// because Go won't allow two Upsert methods with different signatures on the
// same receiver.
type DB struct {
	conn *sql.DB
}

// Users returns the UserRepository implementation.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Connections returns the ConnectionRepository implementation.
func (db *DB) Connections() *ConnectionDB { return &ConnectionDB{conn: db.conn} }

// Insights returns the InsightRepository implementation.
func (db *DB) Insights() *InsightDB { return &InsightDB{conn: db.conn} }

// Cards returns the CardRepository implementation.
func (db *DB) Cards() *CardDB { return &CardDB{conn: db.conn} }

// Credits returns the CreditRepository implementation.
func (db *DB) Credits() *CreditDB { return &CreditDB{conn: db.conn} }

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/truefolio.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows only one writer at a time, and with ":memory:" every
	// pooled connection would get its own separate database. A single
	// connection sidesteps both problems: writes serialize here instead of
	// failing with SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query — which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode allows concurrent reads WHILE a write is happening —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// Every table except users references users(id), so we want them enforced.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup; for schema changes beyond adding tables you'd reach
// for golang-migrate, but this app hasn't needed it yet.
func (db *DB) migrate() error {
	// github_id is 0 for email/password accounts, so uniqueness only applies
	// to real GitHub IDs (partial index). Same trick for email: OAuth users
	// may have hidden theirs, and '' must not be treated as a duplicate.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			github_id     INTEGER NOT NULL DEFAULT 0,
			login         TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id) WHERE github_id != 0;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email != '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One row per (user, platform). The UNIQUE index is what makes
	// ConnectionDB.Upsert's ON CONFLICT clause work.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS platform_connections (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id),
			platform       TEXT NOT NULL,
			username       TEXT NOT NULL,
			profile_url    TEXT NOT NULL,
			payload        TEXT NOT NULL DEFAULT '{}',
			last_synced_at DATETIME NOT NULL,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, platform)
		);
		CREATE INDEX IF NOT EXISTS idx_connections_user_id ON platform_connections(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating platform_connections table: %w", err)
	}

	// No uniqueness constraint on user_id here: steady-state "one snapshot
	// per user" is maintained by the transactional Replace, and a constraint
	// would turn the brief delete+insert overlap inside the tx into an error.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS insight_snapshots (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			report     TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_user_created ON insight_snapshots(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating insight_snapshots table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS portfolio_cards (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			card_data   TEXT NOT NULL,
			is_public   INTEGER NOT NULL DEFAULT 0,
			share_count INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_cards_user_id ON portfolio_cards(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating portfolio_cards table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS credit_ledger (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			delta      INTEGER NOT NULL,
			reason     TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_credit_ledger_user_id ON credit_ledger(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating credit_ledger table: %w", err)
	}

	return nil
}
