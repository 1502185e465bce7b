package service

// =========================================================================
// SHARED FAKES
// =========================================================================
// In-memory implementations of the repository interfaces, shared by every
// service test in this package. Plain fakes rather than a mock framework:
// you can read exactly what each one does. Each fake has optional err
// fields to simulate storage failures.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/truefolio/truefolio/internal/apperror"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	byGHID map[int64]*model.User  // keyed by GitHub ID
	nextID int

	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
		nextID: 1,
	}
}

// addUser seeds a user directly, returning its ID.
func (f *fakeUserRepo) addUser(login string) string {
	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	u := &model.User{ID: id, Login: login, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.users[id] = u
	return id
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		*user = *existing
		return false, nil
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	f.byGHID[user.GitHubID] = &copied
	return true, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, ok := f.byGHID[githubID]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, u := range f.users {
		if u.Email != "" && u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email != "" && u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// --- connections ---

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[string]map[string]*model.PlatformConnection // userID → platform → conn

	upsertErr error
	listErr   error
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]map[string]*model.PlatformConnection)}
}

func (f *fakeConnectionRepo) Upsert(ctx context.Context, conn *model.PlatformConnection) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns[conn.UserID] == nil {
		f.conns[conn.UserID] = make(map[string]*model.PlatformConnection)
	}
	if conn.ID == "" {
		conn.ID = fmt.Sprintf("conn-%s-%s", conn.UserID, conn.Platform)
	}
	conn.LastSyncedAt = time.Now()
	copied := *conn
	f.conns[conn.UserID][conn.Platform] = &copied
	return nil
}

func (f *fakeConnectionRepo) ListByUser(ctx context.Context, userID string) ([]model.PlatformConnection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PlatformConnection
	// Fixed order keeps assertions stable.
	for _, p := range platform.All() {
		if c, ok := f.conns[userID][string(p)]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConnectionRepo) GetByUserAndPlatform(ctx context.Context, userID, plat string) (*model.PlatformConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[userID][plat]
	if !ok {
		return nil, apperror.NotFound("connection", plat)
	}
	return c, nil
}

// seed installs a connection directly, bypassing Upsert's bookkeeping.
func (f *fakeConnectionRepo) seed(userID, plat, username string, payload json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns[userID] == nil {
		f.conns[userID] = make(map[string]*model.PlatformConnection)
	}
	f.conns[userID][plat] = &model.PlatformConnection{
		ID:       fmt.Sprintf("conn-%s-%s", userID, plat),
		UserID:   userID,
		Platform: plat,
		Username: username,
		Payload:  payload,
	}
}

// --- insights ---

type fakeInsightRepo struct {
	mu        sync.Mutex
	snapshots map[string]*model.InsightSnapshot // userID → latest

	latestErr  error
	replaceErr error
	replaces   int // how many times Replace ran
}

func newFakeInsightRepo() *fakeInsightRepo {
	return &fakeInsightRepo{snapshots: make(map[string]*model.InsightSnapshot)}
}

func (f *fakeInsightRepo) Latest(ctx context.Context, userID string) (*model.InsightSnapshot, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[userID]
	if !ok {
		return nil, apperror.NotFound("insight snapshot", userID)
	}
	return s, nil
}

func (f *fakeInsightRepo) Replace(ctx context.Context, userID string, report json.RawMessage) (*model.InsightSnapshot, error) {
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	s := &model.InsightSnapshot{
		ID:        fmt.Sprintf("snap-%d", f.replaces),
		UserID:    userID,
		Report:    report,
		CreatedAt: time.Now(),
	}
	f.snapshots[userID] = s
	return s, nil
}

// seedSnapshot installs a snapshot with a chosen age.
func (f *fakeInsightRepo) seedSnapshot(userID string, report json.RawMessage, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[userID] = &model.InsightSnapshot{
		ID:        "snap-seeded",
		UserID:    userID,
		Report:    report,
		CreatedAt: time.Now().Add(-age),
	}
}

// --- cards ---

type fakeCardRepo struct {
	mu     sync.Mutex
	cards  map[string]*model.PortfolioCard // cardID → card
	nextID int

	createErr error
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[string]*model.PortfolioCard)}
}

func (f *fakeCardRepo) Create(ctx context.Context, card *model.PortfolioCard) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	card.ID = fmt.Sprintf("card-%d", f.nextID)
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	copied := *card
	f.cards[card.ID] = &copied
	return nil
}

func (f *fakeCardRepo) ListByUser(ctx context.Context, userID string) ([]model.PortfolioCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PortfolioCard
	for _, c := range f.cards {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCardRepo) Delete(ctx context.Context, userID, cardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return apperror.NotFoundOrUnauthorized("card")
	}
	delete(f.cards, cardID)
	return nil
}

func (f *fakeCardRepo) SetVisibility(ctx context.Context, userID, cardID string, isPublic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return apperror.NotFoundOrUnauthorized("card")
	}
	c.IsPublic = isPublic
	return nil
}

func (f *fakeCardRepo) IncrementShare(ctx context.Context, cardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardID]
	if !ok {
		return apperror.NotFound("card", cardID)
	}
	c.ShareCount++
	return nil
}

// --- credits ---

type fakeCreditRepo struct {
	mu      sync.Mutex
	entries map[string][]model.CreditEntry // userID → ledger

	addErr error
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{entries: make(map[string][]model.CreditEntry)}
}

func (f *fakeCreditRepo) Balance(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.entries[userID] {
		sum += e.Delta
	}
	return sum, nil
}

func (f *fakeCreditRepo) Add(ctx context.Context, userID string, delta int64, reason string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID] = append(f.entries[userID], model.CreditEntry{
		UserID: userID, Delta: delta, Reason: reason, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeCreditRepo) Spend(ctx context.Context, userID string, amount int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.entries[userID] {
		sum += e.Delta
	}
	if sum < amount {
		return apperror.InsufficientCredits()
	}
	f.entries[userID] = append(f.entries[userID], model.CreditEntry{
		UserID: userID, Delta: -amount, Reason: reason, CreatedAt: time.Now(),
	})
	return nil
}

// --- completion client ---

// fakeCompleter returns a canned response and counts calls, so tests can
// assert whether the cache actually prevented an API call. A nonzero delay
// simulates a slow completion, widening the window concurrency tests need.
type fakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompleter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// --- connectors ---

// fakeConnector is a scriptable platform connector for refresh tests.
type fakeConnector struct {
	ptype    platform.Type
	payload  json.RawMessage
	fetchErr error
	fetches  int
}

func (f *fakeConnector) Type() platform.Type { return f.ptype }

func (f *fakeConnector) ValidateURL(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	return "validated-user", true
}

func (f *fakeConnector) Fetch(ctx context.Context, username string) (json.RawMessage, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.payload, nil
}

// errFetch is a reusable upstream failure for connector fakes.
var errFetch = errors.New("upstream exploded")

// minimalReport is a syntactically valid report the fake completer can
// return; structural validation requires a summary and at least one skill.
const minimalReport = `{
  "summary": {"title": "Backend Developer", "description": "Solid Go work.", "yearOfExperience": "4"},
  "skills": {"languages": ["Go"], "frameworks": [], "tools": [], "specializations": []},
  "insights": {
    "code": {"strengths": ["testing"], "improvements": [], "recommendations": [], "projectHighlights": ["truefolio", "dotfiles", "blog-engine", "extra"]},
    "social": {"strengths": [], "improvements": [], "recommendations": [], "highlights": []}
  },
  "metrics": {"githubActivity": 80, "codingProficiency": 75, "professionalPresence": 40, "socialEngagement": 20, "overallScore": 62, "collaborationScore": 55, "activityLevel": "high"},
  "careerPath": {"currentLevel": "Mid-level", "salaryRange": "$90k-$120k", "nextSteps": [], "roleRecommendations": []},
  "platformData": {"connectedPlatforms": ["GitHub"], "codeScore": 78, "socialScore": 25}
}`
