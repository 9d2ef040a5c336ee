// Package oracle implements the decision oracle over an OpenAI-compatible
// chat completions API. Gemini is reached through its OpenAI-compatible endpoint.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultTimeout       = 60 * time.Second
)

// Config configures the oracle client.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// ConfigFrom builds a Config from the [oracle] section, reading the API key
// from the configured environment variable.
func ConfigFrom(cfg domain.OracleConfig, getenv func(string) string) Config {
	c := Config{
		Provider: cfg.Provider,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  time.Duration(cfg.Timeout),
	}
	if cfg.APIKeyEnv != "" {
		c.APIKey = getenv(cfg.APIKeyEnv)
	}
	return c
}

// New returns the oracle for the configured provider.
// Provider "none", or a hosted provider without an API key, yields an
// Unconfigured oracle that never acts.
func New(cfg Config) (domain.Oracle, error) {
	switch cfg.Provider {
	case domain.OracleNone:
		return Unconfigured{}, nil
	case domain.OracleGemini, "":
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultGeminiBaseURL
		}
		if cfg.APIKey == "" {
			return Unconfigured{}, nil
		}
	case domain.OracleOpenAI:
		// A custom base URL (e.g. a local server) may not need a key
		if cfg.BaseURL == "" {
			if cfg.APIKey == "" {
				return Unconfigured{}, nil
			}
			cfg.BaseURL = defaultOpenAIBaseURL
		}
	default:
		return nil, fmt.Errorf("unknown oracle provider: %q", cfg.Provider)
	}
	return NewClient(cfg), nil
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	apiKey  string
}

// NewClient creates a Client. Most callers should use New.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
	}
}

// chatRequest is the chat completions request format.
type chatRequest struct {
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat completions response format.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one system+user exchange and returns the assistant text.
func (c *Client) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// stripFences removes a surrounding ```json ... ``` block some models add.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
