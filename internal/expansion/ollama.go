package expansion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/khanglvm/persona-search/internal/breaker"
	"github.com/khanglvm/persona-search/internal/config"
)

// GenerateRequest is one completion request.
type GenerateRequest struct {
	Model       string
	Temperature float64
	System      string
	Prompt      string
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// OllamaClient calls the Ollama /api/generate endpoint without streaming.
type OllamaClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker.Breaker[string]
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
	System  string        `json:"system"`
	Prompt  string        `json:"prompt"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaClient creates a client for cfg.URL. A zero RequestsPerSecond
// disables throttling.
func NewOllamaClient(cfg config.ExpansionConfig) *OllamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		breaker: breaker.New[string](breaker.Settings{Name: "ollama"}),
	}
}

// Generate sends req and returns the raw response text.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("expansion rate limit: %w", err)
	}
	return c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, req)
	})
}

func (c *OllamaClient) generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   req.Model,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
		System:  req.System,
		Prompt:  req.Prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return "", fmt.Errorf("generate returned status %d (failed to read body)", resp.StatusCode)
		}
		return "", fmt.Errorf("generate returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	return out.Response, nil
}
