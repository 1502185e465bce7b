package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/truefolio/truefolio/internal/apperror"
)

// githubUsernameRe is GitHub's documented username shape: alphanumeric and
// hyphens, no leading/trailing/double hyphen, at most 39 characters. We stay
// permissive on the hyphen placement — the API will reject anything truly
// invalid, and validation should err on the side of letting Fetch decide.
var githubUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9-]{1,39}$`)

// GitHubConnector fetches public profile stats from the GitHub REST API.
type GitHubConnector struct {
	baseURL    string
	httpClient *http.Client
}

// NewGitHubConnector creates the connector. baseURL is overridable for tests;
// empty means the real API.
func NewGitHubConnector(baseURL string) *GitHubConnector {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubConnector{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *GitHubConnector) Type() Type { return TypeGitHub }

// ValidateURL accepts https://github.com/{username} profile URLs.
// Deeper paths (github.com/user/repo) are rejected — that's a repo URL, not
// a profile URL.
func (c *GitHubConnector) ValidateURL(rawURL string) (string, bool) {
	u, ok := parseProfileURL(rawURL, "github.com")
	if !ok {
		return "", false
	}
	segments := pathSegments(u)
	if len(segments) != 1 {
		return "", false
	}
	if !githubUsernameRe.MatchString(segments[0]) {
		return "", false
	}
	return segments[0], true
}

// githubUser is the subset of the GitHub /users/{username} response we keep.
// GitHub returns a much larger object — we only unmarshal what we need.
type githubUser struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at"`
}

type githubRepo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	UpdatedAt   string `json:"updated_at"`
}

// Fetch calls /users/{u} and /users/{u}/repos and reshapes the result into
// the payload stored on the connection: profile fields, aggregate counts,
// the language distribution, and the most recently pushed repos.
func (c *GitHubConnector) Fetch(ctx context.Context, username string) (json.RawMessage, error) {
	var user githubUser
	if err := c.getJSON(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, username), &user); err != nil {
		return nil, err
	}

	var repos []githubRepo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/users/%s/repos?sort=pushed&per_page=100", c.baseURL, username), &repos); err != nil {
		return nil, err
	}

	// Aggregate: total stars and language histogram across public repos.
	totalStars := 0
	languageCounts := map[string]int{}
	for _, r := range repos {
		totalStars += r.Stars
		if r.Language != "" {
			languageCounts[r.Language]++
		}
	}

	languages := make([]string, 0, len(languageCounts))
	for lang := range languageCounts {
		languages = append(languages, lang)
	}
	// Most used language first; ties broken alphabetically so the payload is
	// stable across fetches of unchanged data.
	sort.Slice(languages, func(i, j int) bool {
		if languageCounts[languages[i]] != languageCounts[languages[j]] {
			return languageCounts[languages[i]] > languageCounts[languages[j]]
		}
		return languages[i] < languages[j]
	})

	recent := repos
	if len(recent) > 5 {
		recent = recent[:5]
	}

	payload := map[string]any{
		"login":       user.Login,
		"name":        user.Name,
		"bio":         user.Bio,
		"publicRepos": user.PublicRepos,
		"followers":   user.Followers,
		"following":   user.Following,
		"memberSince": user.CreatedAt,
		"totalStars":  totalStars,
		"languages":   languages,
		"recentRepos": recent,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("platform: marshalling github payload: %w", err)
	}
	return raw, nil
}

// getJSON performs one GET and decodes the body, translating non-2xx
// responses into typed upstream errors.
func (c *GitHubConnector) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("platform: building github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: calling github API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperror.Upstream("GitHub API", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("platform: decoding github response: %w", err)
	}
	return nil
}
