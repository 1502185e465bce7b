package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/truefolio/truefolio/internal/ai"
	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/platform"
	"github.com/truefolio/truefolio/internal/repository"
)

// CacheValidityDays is the snapshot age below which Generate serves the
// stored report instead of calling the completion API.
//
// BOUNDARY SEMANTICS:
// Age is whole days elapsed (floored), compared with STRICT less-than.
// A snapshot exactly 10 days old has age 10, 10 < 10 is false → stale.
const CacheValidityDays = 10

// generationCost is how many credits one actual regeneration spends.
// Cache hits are free.
const generationCost = 1

// CompletionClient is the slice of the AI client the generator needs.
// Declared here (at the consumer) so tests can substitute a canned
// implementation without touching the ai package.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// InsightResult is what both entry points return: the report plus cache
// metadata the UI shows ("generated 3 days ago").
type InsightResult struct {
	Report  json.RawMessage `json:"report"`
	Cached  bool            `json:"cached"`
	AgeDays int             `json:"ageDays"`
}

// userLocks is a mutex per user ID.
//
// WHY A PER-USER LOCK?
// Nothing else in this server stops two concurrent Generate calls for the
// same user from both passing the cache check, both paying for a completion
// call, and both replacing the snapshot. The expensive section is keyed by
// user, so a global mutex would serialize unrelated users; a per-user mutex
// serializes exactly the duplicated work and nothing else.
//
// Entries are never removed: one mutex per user who ever generates is a
// trivial amount of memory for this app's scale, and eviction would need
// reference counting to be correct.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// InsightService orchestrates "generate insights for user X": load the
// user's platform payloads, build the prompt, call the completion API,
// parse, and persist the result as the user's current snapshot.
type InsightService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	insights    repository.InsightRepository
	credits     repository.CreditRepository
	connectors  platform.Registry
	completions CompletionClient
	logger      *slog.Logger
	locks       *userLocks

	// now is the clock, injectable so tests can age snapshots without
	// sleeping for ten days.
	now func() time.Time
}

func NewInsightService(
	users repository.UserRepository,
	connections repository.ConnectionRepository,
	insights repository.InsightRepository,
	credits repository.CreditRepository,
	connectors platform.Registry,
	completions CompletionClient,
	logger *slog.Logger,
) *InsightService {
	return &InsightService{
		users:       users,
		connections: connections,
		insights:    insights,
		credits:     credits,
		connectors:  connectors,
		completions: completions,
		logger:      logger,
		locks:       newUserLocks(),
		now:         time.Now,
	}
}

// Latest returns the user's current snapshot without any generation.
func (s *InsightService) Latest(ctx context.Context, userID string) (*model.InsightSnapshot, error) {
	return s.insights.Latest(ctx, userID)
}

// Generate is the standard, cache-aware entry point.
//
// If a snapshot younger than CacheValidityDays exists it is returned
// verbatim, tagged cached with its age — terminal state, no external calls,
// no credit spend. Otherwise the report is regenerated under the per-user
// lock.
func (s *InsightService) Generate(ctx context.Context, userID string) (*InsightResult, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	// Fast path: serve the cache without taking the lock.
	if result, ok, err := s.cached(ctx, userID); err != nil {
		return nil, err
	} else if ok {
		return result, nil
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	// Re-check under the lock: a concurrent Generate may have finished while
	// we waited, and its fresh snapshot is exactly what we should return.
	if result, ok, err := s.cached(ctx, userID); err != nil {
		return nil, err
	} else if ok {
		return result, nil
	}

	return s.regenerate(ctx, userID)
}

// ForceRefresh skips the cache entirely: it re-fetches every connected
// platform's data, then regenerates regardless of snapshot age.
//
// PARTIAL FAILURE POLICY:
// A single platform being down must not block the whole refresh. Individual
// fetch failures are logged and skipped — the connection keeps its
// last-known-good payload, which then feeds the prompt as-is. Only if EVERY
// platform refresh fails does the call abort.
func (s *InsightService) ForceRefresh(ctx context.Context, userID string) (*InsightResult, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	conns, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading connections: %w", err)
	}
	if len(conns) == 0 {
		return nil, apperror.NoPlatformsConnected()
	}

	failures := 0
	for _, conn := range conns {
		if err := s.refreshConnection(ctx, conn); err != nil {
			failures++
			s.logger.Warn("platform refresh failed, keeping last-known payload",
				slog.String("userID", userID),
				slog.String("platform", conn.Platform),
				slog.String("error", err.Error()),
			)
		}
	}
	if failures == len(conns) {
		return nil, apperror.AllPlatformRefreshesFailed()
	}

	return s.regenerate(ctx, userID)
}

// refreshConnection re-fetches one platform and upserts the new payload.
func (s *InsightService) refreshConnection(ctx context.Context, conn model.PlatformConnection) error {
	connector, ok := s.connectors[platform.Type(conn.Platform)]
	if !ok {
		return fmt.Errorf("no connector registered for platform %q", conn.Platform)
	}

	payload, err := connector.Fetch(ctx, conn.Username)
	if err != nil {
		return err
	}

	conn.Payload = payload
	if err := s.connections.Upsert(ctx, &conn); err != nil {
		return fmt.Errorf("saving refreshed %s payload: %w", conn.Platform, err)
	}
	return nil
}

// cached returns (result, true, nil) when a fresh-enough snapshot exists.
func (s *InsightService) cached(ctx context.Context, userID string) (*InsightResult, bool, error) {
	snapshot, err := s.insights.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, false, nil // never generated — not an error
		}
		return nil, false, err
	}

	age := snapshot.AgeDays(s.now())
	if age < CacheValidityDays {
		return &InsightResult{
			Report:  snapshot.Report,
			Cached:  true,
			AgeDays: age,
		}, true, nil
	}

	return nil, false, nil
}

// regenerate runs the expensive path: prompt → completion API → parse →
// transactional snapshot replace → credit spend. Callers hold the per-user
// lock.
func (s *InsightService) regenerate(ctx context.Context, userID string) (*InsightResult, error) {
	conns, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading connections: %w", err)
	}
	if len(conns) == 0 {
		return nil, apperror.NoPlatformsConnected()
	}

	// Check the balance BEFORE the completion call: failing cheap and early
	// beats paying the API for a report we'd refuse to deliver.
	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking credit balance: %w", err)
	}
	if balance < generationCost {
		return nil, apperror.InsufficientCredits()
	}

	prompt := BuildInsightPrompt(conns)

	started := s.now()
	raw, err := s.completions.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("calling completion API: %w", err)
	}

	_, cleaned, err := ai.ParseReport(raw)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.insights.Replace(ctx, userID, cleaned)
	if err != nil {
		return nil, fmt.Errorf("persisting snapshot: %w", err)
	}

	if err := s.credits.Spend(ctx, userID, generationCost, "insight generation"); err != nil {
		// The report is already persisted; the spend failing here means a
		// concurrent writer drained the balance between our check and now.
		// Surface it — the caller still got charged nothing extra next time.
		return nil, fmt.Errorf("spending generation credit: %w", err)
	}

	s.logger.Info("insights generated",
		slog.String("userID", userID),
		slog.Int("platforms", len(conns)),
		slog.Duration("duration", s.now().Sub(started)),
		slog.String("snapshotID", snapshot.ID),
	)

	return &InsightResult{
		Report:  snapshot.Report,
		Cached:  false,
		AgeDays: 0,
	}, nil
}
