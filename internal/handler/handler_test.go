package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/handler"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/platform"
	"github.com/truefolio/truefolio/internal/repository/sqlite"
	"github.com/truefolio/truefolio/internal/service"
)

// A structurally complete report, the shape the completion API is prompted
// to return.
const testReport = `{
  "summary": {"title": "Backend Developer", "description": "Builds services.", "yearOfExperience": "3-5"},
  "skills": {"languages": ["Go"], "frameworks": [], "tools": ["Docker"], "specializations": ["backend"]},
  "insights": {
    "code": {"strengths": ["testing"], "improvements": [], "recommendations": [], "projectHighlights": ["truefolio", "dotfiles"]},
    "social": {"strengths": [], "improvements": [], "recommendations": [], "highlights": []}
  },
  "metrics": {"githubActivity": 0, "codingProficiency": 70, "professionalPresence": 55, "socialEngagement": 40, "overallScore": 71, "collaborationScore": 50, "activityLevel": "high"},
  "careerPath": {"currentLevel": "senior backend", "salaryRange": "", "nextSteps": [], "roleRecommendations": ["Backend Engineer"]},
  "platformData": {"connectedPlatforms": ["LinkedIn"], "codeScore": 70, "socialScore": 40}
}`

// stubCompleter stands in for the chat-completion API.
type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

// testApp wires real services over an in-memory database, the way the server
// does, so handler tests exercise the full request path below the router.
// Platform tests stick to linkedin/twitter, whose connectors never touch the
// network.
type testApp struct {
	tokens    *auth.TokenService
	completer *stubCompleter

	authH     *handler.AuthHandler
	platforms *handler.PlatformHandler
	insights  *handler.InsightHandler
	cards     *handler.CardHandler
	credits   *handler.CreditHandler

	db     *sqlite.DB
	userID string
	cookie *http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-32-chars!!!!")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	user := &model.User{GitHubID: 42, Login: "octocat"}
	if _, err := db.Users().Upsert(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	token, err := tokens.Generate(user.ID)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	registry := platform.NewRegistry(platform.RegistryOptions{})
	completer := &stubCompleter{response: testReport}

	creditSvc := service.NewCreditService(db.Credits(), logger)
	authSvc := service.NewAuthService(db.Users(), creditSvc, tokens, auth.NewPasswordServiceForTest(4), logger)
	platformSvc := service.NewPlatformService(registry, db.Connections(), logger)
	insightSvc := service.NewInsightService(db.Users(), db.Connections(), db.Insights(), db.Credits(), registry, completer, logger)
	cardSvc := service.NewCardService(db.Cards(), db.Insights(), logger)

	github := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")

	return &testApp{
		tokens:    tokens,
		completer: completer,
		authH:     handler.NewAuthHandler(github, authSvc, logger),
		platforms: handler.NewPlatformHandler(platformSvc, logger),
		insights:  handler.NewInsightHandler(insightSvc, logger),
		cards:     handler.NewCardHandler(cardSvc, logger),
		credits:   handler.NewCreditHandler(creditSvc, logger),
		db:        db,
		userID:    user.ID,
		cookie:    &http.Cookie{Name: "token", Value: token},
	}
}

// authed runs a handler behind the real auth middleware with the session
// cookie attached, exactly as a logged-in browser request would arrive.
func (app *testApp) authed(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(app.cookie)
	rr := httptest.NewRecorder()
	auth.RequireAuth(app.tokens)(h).ServeHTTP(rr, req)
	return rr
}

// connectLinkedIn gives the test user one connected platform without any
// network traffic.
func (app *testApp) connectLinkedIn(t *testing.T) {
	t.Helper()
	rr := app.authed(app.platforms.HandleConnect, http.MethodPost, "/api/platforms/connect",
		`{"platform": "linkedin", "url": "https://www.linkedin.com/in/octocat"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("connect returned %d: %s", rr.Code, rr.Body.String())
	}
}

func (app *testApp) grantCredits(t *testing.T, n int64) {
	t.Helper()
	if err := app.db.Credits().Add(context.Background(), app.userID, n, "test grant"); err != nil {
		t.Fatalf("granting credits: %v", err)
	}
}

func TestAuthHandler_PasswordFlow(t *testing.T) {
	t.Run("register sets the session cookie and seeds credits", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email": "ada@example.com", "password": "correct-horse"}`))
		rr := httptest.NewRecorder()
		app.authH.HandleRegister(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var sessionCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "token" {
				sessionCookie = c
			}
		}
		if assert.NotNil(t, sessionCookie, "register should set the token cookie") {
			assert.True(t, sessionCookie.HttpOnly)
			assert.NotEmpty(t, sessionCookie.Value)
		}

		// The new session works against a protected route, and the signup
		// grant is on the balance.
		app.cookie = sessionCookie
		balance := app.authed(app.credits.HandleBalance, http.MethodGet, "/api/credits", "")
		assert.Equal(t, http.StatusOK, balance.Code)
		assert.JSONEq(t, `{"balance": 3}`, balance.Body.String())
	})

	t.Run("login with wrong password is a 401", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email": "ada@example.com", "password": "correct-horse"}`))
		app.authH.HandleRegister(httptest.NewRecorder(), req)

		req = httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email": "ada@example.com", "password": "wrong"}`))
		rr := httptest.NewRecorder()
		app.authH.HandleLogin(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("duplicate registration is a 409", func(t *testing.T) {
		app := newTestApp(t)

		body := `{"email": "ada@example.com", "password": "correct-horse"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		app.authH.HandleRegister(httptest.NewRecorder(), req)

		req = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rr := httptest.NewRecorder()
		app.authH.HandleRegister(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestPlatformHandler(t *testing.T) {
	t.Run("connect stores and returns the connection", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.platforms.HandleConnect, http.MethodPost, "/api/platforms/connect",
			`{"platform": "linkedin", "url": "https://www.linkedin.com/in/octocat"}`)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var conn model.PlatformConnection
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&conn))
		assert.Equal(t, "linkedin", conn.Platform)
		assert.Equal(t, "octocat", conn.Username)
		assert.NotEmpty(t, conn.Payload)
	})

	t.Run("unsupported platform is a 400", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.platforms.HandleConnect, http.MethodPost, "/api/platforms/connect",
			`{"platform": "myspace", "url": "https://myspace.com/octocat"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("url that does not match the platform is a 400", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.platforms.HandleConnect, http.MethodPost, "/api/platforms/connect",
			`{"platform": "linkedin", "url": "https://github.com/octocat"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list is an empty array before any connect", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.platforms.HandleList, http.MethodGet, "/api/platforms", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
	})

	t.Run("no cookie means 401", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
		rr := httptest.NewRecorder()
		auth.RequireAuth(app.tokens)(http.HandlerFunc(app.platforms.HandleList)).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestInsightHandler(t *testing.T) {
	t.Run("get before any generation is a 404", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.insights.HandleGet, http.MethodGet, "/api/insights", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("generate without platforms is a 412", func(t *testing.T) {
		app := newTestApp(t)
		app.grantCredits(t, 3)

		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	})

	t.Run("generate without credits is a 402", func(t *testing.T) {
		app := newTestApp(t)
		app.connectLinkedIn(t)

		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
		assert.Equal(t, 0, app.completer.calls)
	})

	t.Run("generate then serve from cache", func(t *testing.T) {
		app := newTestApp(t)
		app.connectLinkedIn(t)
		app.grantCredits(t, 3)

		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var first service.InsightResult
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&first))
		assert.False(t, first.Cached)
		assert.NotEmpty(t, first.Report)

		rr = app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var second service.InsightResult
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&second))
		assert.True(t, second.Cached)
		assert.Equal(t, 1, app.completer.calls)
	})

	t.Run("refresh bypasses the cache", func(t *testing.T) {
		app := newTestApp(t)
		app.connectLinkedIn(t)
		app.grantCredits(t, 3)

		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = app.authed(app.insights.HandleRefresh, http.MethodPost, "/api/insights/refresh", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var res service.InsightResult
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.False(t, res.Cached)
		assert.Equal(t, 2, app.completer.calls)
	})

	t.Run("malformed completion response is a 502", func(t *testing.T) {
		app := newTestApp(t)
		app.connectLinkedIn(t)
		app.grantCredits(t, 3)
		app.completer.response = "I am not JSON, sorry"

		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestCardHandler(t *testing.T) {
	// generate seeds an insight snapshot so card creation has data to project.
	generate := func(t *testing.T, app *testApp) {
		t.Helper()
		app.connectLinkedIn(t)
		app.grantCredits(t, 3)
		rr := app.authed(app.insights.HandleGenerate, http.MethodPost, "/api/insights/generate", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("generate returned %d: %s", rr.Code, rr.Body.String())
		}
	}

	t.Run("create projects the current snapshot", func(t *testing.T) {
		app := newTestApp(t)
		generate(t, app)

		rr := app.authed(app.cards.HandleCreate, http.MethodPost, "/api/cards",
			`{"title": "My year in code", "description": "Highlights"}`)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var card model.PortfolioCard
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&card))
		assert.NotEmpty(t, card.ID)
		assert.False(t, card.IsPublic)
		assert.EqualValues(t, 0, card.ShareCount)
		assert.Contains(t, string(card.CardData), `"overallScore"`)
	})

	t.Run("create can make the card public in one step", func(t *testing.T) {
		app := newTestApp(t)
		generate(t, app)

		rr := app.authed(app.cards.HandleCreate, http.MethodPost, "/api/cards",
			`{"title": "Public from the start", "isPublic": true}`)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var card model.PortfolioCard
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&card))
		assert.True(t, card.IsPublic)
	})

	t.Run("create without a snapshot is a 400", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.cards.HandleCreate, http.MethodPost, "/api/cards",
			`{"title": "My year in code"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("create without a title is a 400", func(t *testing.T) {
		app := newTestApp(t)
		generate(t, app)

		rr := app.authed(app.cards.HandleCreate, http.MethodPost, "/api/cards", `{"title": ""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete of an unknown card is a 404", func(t *testing.T) {
		app := newTestApp(t)

		req := httptest.NewRequest(http.MethodDelete, "/api/cards/nope", nil)
		req.SetPathValue("id", "nope")
		req.AddCookie(app.cookie)
		rr := httptest.NewRecorder()
		auth.RequireAuth(app.tokens)(http.HandlerFunc(app.cards.HandleDelete)).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("share needs no session", func(t *testing.T) {
		app := newTestApp(t)
		generate(t, app)

		rr := app.authed(app.cards.HandleCreate, http.MethodPost, "/api/cards", `{"title": "Shared"}`)
		var card model.PortfolioCard
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&card))

		// No cookie, no middleware: the endpoint is public.
		req := httptest.NewRequest(http.MethodPost, "/api/cards/"+card.ID+"/share", nil)
		req.SetPathValue("id", card.ID)
		anon := httptest.NewRecorder()
		app.cards.HandleShare(anon, req)
		assert.Equal(t, http.StatusOK, anon.Code)

		list := app.authed(app.cards.HandleList, http.MethodGet, "/api/cards", "")
		var cards []model.PortfolioCard
		assert.NoError(t, json.NewDecoder(list.Body).Decode(&cards))
		assert.Len(t, cards, 1)
		assert.EqualValues(t, 1, cards[0].ShareCount)
	})
}

func TestCreditHandler(t *testing.T) {
	t.Run("balance starts at zero", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.credits.HandleBalance, http.MethodGet, "/api/credits", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"balance": 0}`, rr.Body.String())
	})

	t.Run("purchase adds the pack and returns the new balance", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.credits.HandlePurchase, http.MethodPost, "/api/credits/purchase",
			`{"pack": "starter"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"balance": 5}`, rr.Body.String())

		rr = app.authed(app.credits.HandlePurchase, http.MethodPost, "/api/credits/purchase",
			`{"pack": "pro"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"balance": 25}`, rr.Body.String())
	})

	t.Run("unknown pack is a 400", func(t *testing.T) {
		app := newTestApp(t)

		rr := app.authed(app.credits.HandlePurchase, http.MethodPost, "/api/credits/purchase",
			`{"pack": "mega"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
