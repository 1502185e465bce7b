package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/truefolio/truefolio/internal/apperror"
)

var leetcodeUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,30}$`)

// matchedUserQuery asks LeetCode's public GraphQL endpoint for the profile
// and per-difficulty solve counts. This is the same query the leetcode.com
// profile page itself issues — there is no REST equivalent.
const matchedUserQuery = `
query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile {
      ranking
      reputation
    }
    submitStatsGlobal {
      acSubmissionNum {
        difficulty
        count
      }
    }
  }
}`

// LeetCodeConnector fetches solve statistics via LeetCode's GraphQL API.
type LeetCodeConnector struct {
	baseURL    string
	httpClient *http.Client
}

func NewLeetCodeConnector(baseURL string) *LeetCodeConnector {
	if baseURL == "" {
		baseURL = "https://leetcode.com"
	}
	return &LeetCodeConnector{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *LeetCodeConnector) Type() Type { return TypeLeetCode }

// ValidateURL accepts both URL shapes LeetCode has used for profiles:
// https://leetcode.com/u/{username}/ (current) and
// https://leetcode.com/{username}/ (legacy).
func (c *LeetCodeConnector) ValidateURL(rawURL string) (string, bool) {
	u, ok := parseProfileURL(rawURL, "leetcode.com")
	if !ok {
		return "", false
	}

	segments := pathSegments(u)
	var username string
	switch {
	case len(segments) == 2 && segments[0] == "u":
		username = segments[1]
	case len(segments) == 1:
		username = segments[0]
	default:
		return "", false
	}

	if !leetcodeUsernameRe.MatchString(username) {
		return "", false
	}
	return username, true
}

// leetcodeResponse mirrors the GraphQL response envelope. matchedUser is a
// pointer: LeetCode answers 200 with `"matchedUser": null` for unknown
// users, so "not found" has to be detected from the body, not the status.
type leetcodeResponse struct {
	Data struct {
		MatchedUser *struct {
			Username string `json:"username"`
			Profile  struct {
				Ranking    int `json:"ranking"`
				Reputation int `json:"reputation"`
			} `json:"profile"`
			SubmitStatsGlobal struct {
				AcSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStatsGlobal"`
		} `json:"matchedUser"`
	} `json:"data"`
}

// Fetch POSTs the matchedUser query and reshapes the answer into the stored
// payload: ranking, reputation, and solved counts per difficulty.
func (c *LeetCodeConnector) Fetch(ctx context.Context, username string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"query":     matchedUserQuery,
		"variables": map[string]string{"username": username},
	})
	if err != nil {
		return nil, fmt.Errorf("platform: marshalling leetcode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("platform: building leetcode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: calling leetcode API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperror.Upstream("LeetCode API", resp.StatusCode, string(respBody))
	}

	var decoded leetcodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("platform: decoding leetcode response: %w", err)
	}

	mu := decoded.Data.MatchedUser
	if mu == nil {
		return nil, apperror.Upstream("LeetCode API", http.StatusNotFound,
			fmt.Sprintf("no such user %q", username))
	}

	solved := map[string]int{}
	total := 0
	for _, s := range mu.SubmitStatsGlobal.AcSubmissionNum {
		solved[s.Difficulty] = s.Count
		if s.Difficulty == "All" {
			total = s.Count
		}
	}

	payload := map[string]any{
		"username":    mu.Username,
		"ranking":     mu.Profile.Ranking,
		"reputation":  mu.Profile.Reputation,
		"totalSolved": total,
		"solved":      solved,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("platform: marshalling leetcode payload: %w", err)
	}
	return raw, nil
}
