// Package ai wraps the OpenAI-compatible chat-completion API used to turn a
// user's aggregated platform data into a portfolio insight report.
//
// The wire format is the standard one implemented by OpenAI, OpenRouter,
// and every compatible gateway:
//
//	POST {baseURL}/chat/completions
//	{"messages":[{"role":"user","content":"..."}],
//	 "model":"...","max_tokens":2000,"temperature":0.7}
//
// with Bearer auth, and the answer's text at choices[0].message.content.
// Keeping to the common denominator means AI_BASE_URL can point at any
// provider without code changes.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/truefolio/truefolio/internal/apperror"
)

// Generation parameters for insight reports. MaxTokens bounds the response
// (the report schema fits comfortably in 2000); the mid-range temperature
// keeps the prose varied without letting the JSON structure drift.
const (
	maxTokens   = 2000
	temperature = 0.7
)

// Config holds everything the client needs. An empty APIKey does not stop
// construction — the server must come up without it, so auth and platform
// connections keep working — but every Complete call fails until the key is
// configured.
type Config struct {
	BaseURL string // e.g. "https://openrouter.ai/api/v1"
	APIKey  string
	Model   string // fixed model identifier sent on every request
}

// Client calls the chat-completion endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini"
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		// Completion calls are the slowest thing this server does; 60s is
		// generous for a 2000-token response but bounds a hung upstream.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// completionRequest / completionResponse mirror the wire shapes. We only
// declare the fields we read — the API returns much more.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages    []message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the model's
// text output.
//
// ERROR CONTRACT:
//   - non-2xx from the API → apperror.Upstream carrying status and body
//   - 2xx with no choices / empty message → apperror.MalformedAIResponse
//
// The caller is responsible for parsing the text (see ParseReport) — this
// method knows nothing about the report schema.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ai: API key is not configured (set AI_API_KEY)")
	}

	body, err := json.Marshal(completionRequest{
		Messages:    []message{{Role: "user", Content: prompt}},
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshalling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: calling completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep the body: a 402/429 from the provider names the quota or
		// model problem precisely, and that belongs in the logs.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", apperror.Upstream("completion API", resp.StatusCode, string(respBody))
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperror.MalformedAIResponse(fmt.Sprintf("completion response is not valid JSON: %v", err))
	}

	if len(decoded.Choices) == 0 {
		return "", apperror.MalformedAIResponse("completion response has no choices")
	}
	content := decoded.Choices[0].Message.Content
	if content == "" {
		return "", apperror.MalformedAIResponse("completion response has an empty message")
	}

	return content, nil
}
