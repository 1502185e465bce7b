package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
)

// MOCK CONNECTORS:
// LinkedIn and Twitter don't expose public APIs for the profile stats we
// need (LinkedIn's API is partner-gated; Twitter's is paywalled). Until a
// real integration replaces them, these connectors synthesize a
// plausible-looking payload so the rest of the pipeline — storage, prompt
// building, insight generation — can be built and exercised end to end.
//
// DETERMINISTIC, NOT RANDOM-PER-CALL:
// The generator is seeded from the username, so fetching the same profile
// twice produces the same payload. Repeated force-refreshes then behave
// like a real (unchanged) upstream instead of rewriting the stored data on
// every call, and tests can assert on concrete values.

var (
	linkedinUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9-]{3,100}$`)
	twitterUsernameRe  = regexp.MustCompile(`^[a-zA-Z0-9_]{1,15}$`)
)

// seededRand returns a rand.Rand seeded from the username.
func seededRand(username string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(username))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// MockLinkedInConnector stands in for a real LinkedIn integration.
type MockLinkedInConnector struct{}

func NewMockLinkedInConnector() *MockLinkedInConnector { return &MockLinkedInConnector{} }

func (c *MockLinkedInConnector) Type() Type { return TypeLinkedIn }

// ValidateURL accepts https://www.linkedin.com/in/{username} profile URLs.
func (c *MockLinkedInConnector) ValidateURL(rawURL string) (string, bool) {
	u, ok := parseProfileURL(rawURL, "linkedin.com")
	if !ok {
		return "", false
	}
	segments := pathSegments(u)
	if len(segments) != 2 || segments[0] != "in" {
		return "", false
	}
	if !linkedinUsernameRe.MatchString(segments[1]) {
		return "", false
	}
	return segments[1], true
}

func (c *MockLinkedInConnector) Fetch(_ context.Context, username string) (json.RawMessage, error) {
	rng := seededRand("linkedin:" + username)

	headlines := []string{
		"Software Engineer", "Senior Software Engineer", "Full-Stack Developer",
		"Backend Engineer", "Platform Engineer",
	}

	payload := map[string]any{
		"username":        username,
		"headline":        headlines[rng.Intn(len(headlines))],
		"connections":     100 + rng.Intn(400),
		"endorsements":    rng.Intn(60),
		"posts":           rng.Intn(40),
		"profileViews":    20 + rng.Intn(200),
		"recommendations": rng.Intn(8),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("platform: marshalling linkedin payload: %w", err)
	}
	return raw, nil
}

// MockTwitterConnector stands in for a real Twitter/X integration.
type MockTwitterConnector struct{}

func NewMockTwitterConnector() *MockTwitterConnector { return &MockTwitterConnector{} }

func (c *MockTwitterConnector) Type() Type { return TypeTwitter }

// ValidateURL accepts https://twitter.com/{username} and https://x.com/{username}.
func (c *MockTwitterConnector) ValidateURL(rawURL string) (string, bool) {
	u, ok := parseProfileURL(rawURL, "twitter.com")
	if !ok {
		u, ok = parseProfileURL(rawURL, "x.com")
		if !ok {
			return "", false
		}
	}
	segments := pathSegments(u)
	if len(segments) != 1 {
		return "", false
	}
	if !twitterUsernameRe.MatchString(segments[0]) {
		return "", false
	}
	return segments[0], true
}

func (c *MockTwitterConnector) Fetch(_ context.Context, username string) (json.RawMessage, error) {
	rng := seededRand("twitter:" + username)

	payload := map[string]any{
		"username":       username,
		"followers":      50 + rng.Intn(2000),
		"following":      50 + rng.Intn(800),
		"tweets":         rng.Intn(3000),
		"techTweetRatio": float64(rng.Intn(80)+10) / 100.0,
		"engagementRate": float64(rng.Intn(50)+5) / 1000.0,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("platform: marshalling twitter payload: %w", err)
	}
	return raw, nil
}
