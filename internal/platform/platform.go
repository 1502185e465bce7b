// Package platform implements the per-platform connectors: given a profile
// URL, extract the username; given a username, fetch a payload describing
// the user's activity on that platform.
//
// THE CONNECTOR CONTRACT:
// Every platform — real API or stand-in — sits behind the same two-method
// interface. Callers (the platform service, the force-refresh loop) never
// know which kind they're talking to, so a mock can be swapped for a real
// integration by changing one line in NewRegistry.
//
// VALIDATION IS NOT AN ERROR:
// A URL that doesn't match the platform (wrong host, malformed path, odd
// characters) is a normal, expected outcome — the user pasted the wrong
// thing. ValidateURL therefore returns ("", false) rather than an error.
// Errors are reserved for Fetch: network failures and "profile not found"
// responses from the upstream, which callers surface to the UI.
package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// Type identifies an external platform a user can connect.
type Type string

const (
	TypeGitHub   Type = "github"
	TypeLeetCode Type = "leetcode"
	TypeLinkedIn Type = "linkedin"
	TypeTwitter  Type = "twitter"
)

// All lists every supported platform in the fixed order used by the prompt
// builder. Order matters there: the report should always discuss platforms
// in the same sequence.
func All() []Type {
	return []Type{TypeGitHub, TypeLeetCode, TypeLinkedIn, TypeTwitter}
}

// DisplayName is the human-facing name, used in prompts and API responses.
func (t Type) DisplayName() string {
	switch t {
	case TypeGitHub:
		return "GitHub"
	case TypeLeetCode:
		return "LeetCode"
	case TypeLinkedIn:
		return "LinkedIn"
	case TypeTwitter:
		return "Twitter"
	}
	return string(t)
}

// ParseType converts a request string into a Type.
// Returns ("", false) for anything unsupported.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeGitHub:
		return TypeGitHub, true
	case TypeLeetCode:
		return TypeLeetCode, true
	case TypeLinkedIn:
		return TypeLinkedIn, true
	case TypeTwitter:
		return TypeTwitter, true
	}
	return "", false
}

// Connector is the per-platform contract: URL validation plus data fetching.
type Connector interface {
	Type() Type

	// ValidateURL parses rawURL, checks the host belongs to this platform,
	// and extracts the username path segment. ("", false) for any mismatch.
	ValidateURL(rawURL string) (username string, ok bool)

	// Fetch retrieves a platform-specific JSON payload for a validated
	// username. Network failures and missing/private profiles return a
	// typed upstream error (apperror.ErrUpstream).
	Fetch(ctx context.Context, username string) (json.RawMessage, error)
}

// Registry maps each platform type to its connector.
type Registry map[Type]Connector

// RegistryOptions overrides upstream base URLs, used by tests to point the
// real connectors at an httptest server.
type RegistryOptions struct {
	GitHubBaseURL   string // default https://api.github.com
	LeetCodeBaseURL string // default https://leetcode.com
}

// NewRegistry builds the production connector set.
//
// GitHub and LeetCode talk to their real APIs. LinkedIn and Twitter have no
// usable public API for profile stats, so they get mock fetchers until a
// real integration (or a scraping provider) replaces them — behind the same
// interface, so nothing upstream of this constructor will change.
func NewRegistry(opts RegistryOptions) Registry {
	return Registry{
		TypeGitHub:   NewGitHubConnector(opts.GitHubBaseURL),
		TypeLeetCode: NewLeetCodeConnector(opts.LeetCodeBaseURL),
		TypeLinkedIn: NewMockLinkedInConnector(),
		TypeTwitter:  NewMockTwitterConnector(),
	}
}

// hostMatches reports whether the URL host is domain or a subdomain of it.
// "www.github.com" and "github.com" both match "github.com"; "evilgithub.com"
// does not.
func hostMatches(u *url.URL, domain string) bool {
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// pathSegments splits the URL path into its non-empty segments.
func pathSegments(u *url.URL) []string {
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// parseProfileURL is the shared front half of every ValidateURL: parse the
// raw string, require http(s), and require the expected host.
func parseProfileURL(rawURL, domain string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if !hostMatches(u, domain) {
		return nil, false
	}
	return u, true
}
