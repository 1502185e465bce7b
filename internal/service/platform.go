// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept primitives and domain types, never *http.Request, and
// return domain errors (apperror), never HTTP status codes. The handler
// layer translates in both directions. Services receive repository
// INTERFACES, not the sqlite concrete type — tests inject in-memory mocks,
// and the storage backend can change without touching this package.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/platform"
	"github.com/truefolio/truefolio/internal/repository"
)

// PlatformService handles connecting external platforms to a user account.
type PlatformService struct {
	connectors  platform.Registry
	connections repository.ConnectionRepository
	logger      *slog.Logger
}

func NewPlatformService(
	connectors platform.Registry,
	connections repository.ConnectionRepository,
	logger *slog.Logger,
) *PlatformService {
	return &PlatformService{
		connectors:  connectors,
		connections: connections,
		logger:      logger,
	}
}

// Connect validates the profile URL, fetches the platform payload, and
// upserts the connection.
//
// ERROR BOUNDARIES:
//   - unsupported platform / URL that doesn't match → ErrValidation
//     (the connector's ("", false) becomes a user-facing validation error here)
//   - upstream fetch failure (network, 404, private profile) → ErrUpstream,
//     propagated untouched so the UI can say "GitHub said no", not "bad URL"
//
// Reconnecting an already-connected platform is not an error: the upsert
// overwrites the old username/URL/payload entirely (last write wins).
func (s *PlatformService) Connect(ctx context.Context, userID, platformName, profileURL string) (*model.PlatformConnection, error) {
	ptype, ok := platform.ParseType(platformName)
	if !ok {
		return nil, apperror.ValidationFailed("platform",
			fmt.Sprintf("unsupported platform %q", platformName))
	}

	connector, ok := s.connectors[ptype]
	if !ok {
		return nil, apperror.ValidationFailed("platform",
			fmt.Sprintf("no connector registered for platform %q", platformName))
	}

	username, ok := connector.ValidateURL(profileURL)
	if !ok {
		return nil, apperror.ValidationFailed("url",
			fmt.Sprintf("that doesn't look like a valid %s profile URL", ptype))
	}

	payload, err := connector.Fetch(ctx, username)
	if err != nil {
		s.logger.Error("platform fetch failed",
			slog.String("platform", string(ptype)),
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetching %s profile: %w", ptype, err)
	}

	conn := &model.PlatformConnection{
		UserID:     userID,
		Platform:   string(ptype),
		Username:   username,
		ProfileURL: profileURL,
		Payload:    payload,
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("saving %s connection: %w", ptype, err)
	}

	s.logger.Info("platform connected",
		slog.String("userID", userID),
		slog.String("platform", string(ptype)),
		slog.String("username", username),
	)

	return conn, nil
}

// List returns the user's platform connections.
func (s *PlatformService) List(ctx context.Context, userID string) ([]model.PlatformConnection, error) {
	conns, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	return conns, nil
}
