package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/repository"
)

// cardHighlightLimit caps how many project highlights a card carries, and
// cardSkillLimit caps the skills across all four categories combined.
// A card is a teaser; the full narrative lives in the report.
const (
	cardHighlightLimit = 3
	cardSkillLimit     = 5
)

// CardService owns the lifecycle of shareable portfolio cards.
type CardService struct {
	cards    repository.CardRepository
	insights repository.InsightRepository
	logger   *slog.Logger
}

func NewCardService(cards repository.CardRepository, insights repository.InsightRepository, logger *slog.Logger) *CardService {
	return &CardService{cards: cards, insights: insights, logger: logger}
}

// Create builds a card from the user's CURRENT insight snapshot.
//
// The projection is copied into the card row at this moment. Later
// regenerations replace the snapshot but leave existing cards untouched —
// a card is a dated artifact, like a screenshot.
func (s *CardService) Create(ctx context.Context, userID, title, description string, isPublic bool) (*model.PortfolioCard, error) {
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	snapshot, err := s.insights.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("", "generate insights before creating a card")
		}
		return nil, err
	}

	var report model.InsightReport
	if err := json.Unmarshal(snapshot.Report, &report); err != nil {
		return nil, fmt.Errorf("decoding stored report: %w", err)
	}

	data, err := json.Marshal(projectCardData(&report))
	if err != nil {
		return nil, fmt.Errorf("encoding card data: %w", err)
	}

	card := &model.PortfolioCard{
		UserID:      userID,
		Title:       title,
		Description: description,
		CardData:    data,
		IsPublic:    isPublic,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("card created",
		slog.String("userID", userID),
		slog.String("cardID", card.ID),
	)
	return card, nil
}

// List returns the user's cards, newest first.
func (s *CardService) List(ctx context.Context, userID string) ([]model.PortfolioCard, error) {
	return s.cards.ListByUser(ctx, userID)
}

// Delete removes a card the user owns.
//
// Ownership is enforced in the repository's WHERE clause, and a miss comes
// back as a generic not-found: a caller probing other users' card IDs learns
// nothing about whether the card exists.
func (s *CardService) Delete(ctx context.Context, userID, cardID string) error {
	return s.cards.Delete(ctx, userID, cardID)
}

// SetVisibility toggles a card's public flag, same ownership rule as Delete.
func (s *CardService) SetVisibility(ctx context.Context, userID, cardID string, isPublic bool) error {
	return s.cards.SetVisibility(ctx, userID, cardID, isPublic)
}

// RecordShare bumps the share counter.
//
// No ownership check and no auth: shares are recorded from public viewers
// following a share link, who are by definition not the owner. The increment
// is a single atomic UPDATE, so concurrent shares never lose counts.
func (s *CardService) RecordShare(ctx context.Context, cardID string) error {
	return s.cards.IncrementShare(ctx, cardID)
}

// projectCardData copies the teaser-sized slice of a report into card form:
// the top skills, the top project highlights, the headline scores, and which
// platforms contributed.
func projectCardData(report *model.InsightReport) model.CardData {
	highlights := report.Insights.Code.ProjectHighlights
	if len(highlights) > cardHighlightLimit {
		highlights = highlights[:cardHighlightLimit]
	}

	return model.CardData{
		Skills:        topSkills(report.Skills),
		Highlights:    highlights,
		OverallScore:  report.Metrics.OverallScore,
		ActivityLevel: report.Metrics.ActivityLevel,
		Platforms:     report.PlatformData.ConnectedPlatforms,
	}
}

// topSkills keeps at most cardSkillLimit skills across all categories,
// filling from languages outward — languages say the most about a developer
// at a glance, specializations the least.
func topSkills(full model.Skills) model.Skills {
	remaining := cardSkillLimit
	take := func(skills []string) []string {
		if len(skills) > remaining {
			skills = skills[:remaining]
		}
		remaining -= len(skills)
		return skills
	}

	return model.Skills{
		Languages:       take(full.Languages),
		Frameworks:      take(full.Frameworks),
		Tools:           take(full.Tools),
		Specializations: take(full.Specializations),
	}
}
