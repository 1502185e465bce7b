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

// CardDB stores portfolio cards. Reached via DB.Cards().
type CardDB struct {
	conn *sql.DB
}

// compile-time check that *CardDB implements repository.CardRepository
var _ repository.CardRepository = (*CardDB)(nil)

// Create inserts a new portfolio card. ShareCount always starts at zero.
func (db *CardDB) Create(ctx context.Context, card *model.PortfolioCard) error {
	card.ID = xid.New().String()
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now
	card.ShareCount = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO portfolio_cards
		   (id, user_id, title, description, card_data, is_public, share_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		card.ID,
		card.UserID,
		card.Title,
		card.Description,
		string(card.CardData),
		card.IsPublic,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating card: %w", err)
	}

	return nil
}

// ListByUser returns the user's cards, newest first.
func (db *CardDB) ListByUser(ctx context.Context, userID string) ([]model.PortfolioCard, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, description, card_data, is_public, share_count, created_at, updated_at
		 FROM portfolio_cards
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cards for user %s: %w", userID, err)
	}
	defer rows.Close()

	var cards []model.PortfolioCard
	for rows.Next() {
		var c model.PortfolioCard
		var data string
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Title, &c.Description, &data,
			&c.IsPublic, &c.ShareCount, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning card row: %w", err)
		}
		c.CardData = []byte(data)
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cards: %w", err)
	}

	return cards, nil
}

// Delete removes a card, but only if userID owns it.
//
// OWNERSHIP IN THE WHERE CLAUSE:
// `WHERE id = ? AND user_id = ?` makes the ownership check and the delete a
// single atomic statement. RowsAffected() == 0 covers both "no such card"
// and "someone else's card" — and we deliberately return the same error for
// both, so probing IDs doesn't reveal which cards exist.
func (db *CardDB) Delete(ctx context.Context, userID, cardID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM portfolio_cards WHERE id = ? AND user_id = ?`,
		cardID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting card %s: %w", cardID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundOrUnauthorized("card")
	}

	return nil
}

// SetVisibility flips the public flag. Same ownership pattern as Delete.
func (db *CardDB) SetVisibility(ctx context.Context, userID, cardID string, isPublic bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE portfolio_cards
		 SET is_public = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		isPublic, time.Now(), cardID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating card visibility %s: %w", cardID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundOrUnauthorized("card")
	}

	return nil
}

// IncrementShare bumps the share counter by one.
//
// `share_count = share_count + 1` is computed inside the database, so N
// concurrent calls add exactly N — no read-modify-write race in Go code.
// No ownership check: a share link works before the viewer authenticates.
func (db *CardDB) IncrementShare(ctx context.Context, cardID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE portfolio_cards
		 SET share_count = share_count + 1
		 WHERE id = ?`,
		cardID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing share count for card %s: %w", cardID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("card", cardID)
	}

	return nil
}
