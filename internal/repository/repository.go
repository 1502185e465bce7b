// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation;
// tests provide in-memory mocks. Neither side imports the other.
package repository

import (
	"context"
	"encoding/json"

	"github.com/truefolio/truefolio/internal/model"
)

type UserRepository interface {
	// Upsert inserts or updates by GitHub ID. The created flag is true when
	// this call inserted a brand-new user (first login).
	Upsert(ctx context.Context, user *model.User) (created bool, err error)
	// Create inserts a password-credential account. Returns
	// apperror.ErrConflict if the email is already registered.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ConnectionRepository stores the latest fetched payload per (user, platform).
// There is deliberately no Delete — disconnecting a platform is out of scope,
// and nothing in the insight pipeline removes connections.
type ConnectionRepository interface {
	// Upsert creates the connection if none exists for (UserID, Platform),
	// otherwise overwrites username, profile URL, and payload entirely and
	// refreshes LastSyncedAt. Last write wins — no payload merging.
	Upsert(ctx context.Context, conn *model.PlatformConnection) error
	ListByUser(ctx context.Context, userID string) ([]model.PlatformConnection, error)
	GetByUserAndPlatform(ctx context.Context, userID, platform string) (*model.PlatformConnection, error)
}

type InsightRepository interface {
	// Latest returns the most recent snapshot for the user, or
	// apperror.ErrNotFound if the user has never generated insights.
	Latest(ctx context.Context, userID string) (*model.InsightSnapshot, error)
	// Replace atomically deletes all of the user's snapshots and inserts a
	// new one holding report. A concurrent reader sees either the old
	// snapshot or the new one, never neither.
	Replace(ctx context.Context, userID string, report json.RawMessage) (*model.InsightSnapshot, error)
}

type CardRepository interface {
	Create(ctx context.Context, card *model.PortfolioCard) error
	ListByUser(ctx context.Context, userID string) ([]model.PortfolioCard, error)
	// Delete removes the card only if it belongs to userID. Zero rows
	// affected — whether because the card doesn't exist or because it
	// belongs to someone else — yields the same NotFoundOrUnauthorized error.
	Delete(ctx context.Context, userID, cardID string) error
	SetVisibility(ctx context.Context, userID, cardID string, isPublic bool) error
	// IncrementShare bumps the share counter. No ownership check: share
	// links are followable without authentication.
	IncrementShare(ctx context.Context, cardID string) error
}

type CreditRepository interface {
	Balance(ctx context.Context, userID string) (int64, error)
	// Add appends a ledger entry with a positive delta (grant or purchase).
	Add(ctx context.Context, userID string, delta int64, reason string) error
	// Spend appends a negative entry only if the current balance covers it;
	// returns apperror.ErrInsufficientCredits otherwise. The check and the
	// insert happen in one transaction.
	Spend(ctx context.Context, userID string, amount int64, reason string) error
}
