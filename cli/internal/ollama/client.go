// Package ollama provides an HTTP client for the Ollama API (health check,
// model list, text generation).
package ollama

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
)

const _defaultTimeout = 60 * time.Second

// ErrUnreachable indicates the Ollama server could not be reached
// (connection refused, timeout, or non-2xx).
var ErrUnreachable = errors.New("ollama server unreachable")

// Client calls the Ollama API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an Ollama client. baseURL is the API root (e.g.
// http://localhost:11434). If httpClient is nil, a default client with a 60s
// timeout is used; per-request deadlines come from the context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: _defaultTimeout}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// CheckResult is the result of a health/model check.
type CheckResult struct {
	Reachable    bool     // Server responded with 200.
	ModelPresent bool     // Requested model name appears in the tags list.
	ModelNames   []string // All model names from /api/tags (for diagnostics).
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Check verifies the server is reachable and whether the given model is
// present. It GETs /api/tags and parses the response. On connection/HTTP
// error returns ErrUnreachable (via %w).
func (c *Client) Check(ctx context.Context, model string) (*CheckResult, error) {
	url := c.baseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: %w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	var body tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama tags: parse response: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	modelPresent := false
	for _, n := range names {
		if n == model {
			modelPresent = true
			break
		}
	}
	return &CheckResult{
		Reachable:    true,
		ModelPresent: modelPresent,
		ModelNames:   names,
	}, nil
}

// GenerateOptions are model runtime options passed to /api/generate.
// Zero values are omitted so the server defaults apply.
type GenerateOptions struct {
	Temperature float64
	NumCtx      int
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate POSTs a non-streaming /api/generate request and returns the
// model's complete response text, trimmed. The context bounds the whole
// call; callers set per-attempt deadlines with context.WithTimeout. On
// connection error returns ErrUnreachable (via %w).
func (c *Client) Generate(ctx context.Context, model, system, prompt string, opts *GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  model,
		System: system,
		Prompt: prompt,
		Stream: false,
	}
	if opts != nil {
		options := make(map[string]any, 2)
		if opts.Temperature > 0 {
			options["temperature"] = opts.Temperature
		}
		if opts.NumCtx > 0 {
			options["num_ctx"] = opts.NumCtx
		}
		if len(options) > 0 {
			reqBody.Options = options
		}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama generate: marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama generate: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("ollama generate: parse response: %w", err)
	}
	return strings.TrimSpace(body.Response), nil
}
