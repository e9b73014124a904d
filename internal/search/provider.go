package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/khanglvm/persona-search/internal/breaker"
	"github.com/khanglvm/persona-search/internal/config"
)

// ErrProviderNotConfigured is returned when the web search credentials are missing.
var ErrProviderNotConfigured = errors.New("search provider not configured")

// Provider runs a web search.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	endpoint   string
	apiKey     string
	cx         string
	numResults int
	http       *http.Client
	breaker    *breaker.Breaker[[]Result]
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// NewGoogleClient creates a client from cfg.
func NewGoogleClient(cfg config.SearchConfig) *GoogleClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		cx:         cfg.CX,
		numResults: cfg.NumResults,
		http:       &http.Client{Timeout: timeout},
		breaker:    breaker.New[[]Result](breaker.Settings{Name: "web_search"}),
	}
}

// Search returns up to the configured number of results for query.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" || c.cx == "" {
		return nil, ErrProviderNotConfigured
	}
	return c.breaker.Execute(func() ([]Result, error) {
		return c.search(ctx, query)
	})
}

func (c *GoogleClient) search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", c.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return nil, fmt.Errorf("web search returned status %d (failed to read body)", resp.StatusCode)
		}
		return nil, fmt.Errorf("web search returned status %d: %s", resp.StatusCode, string(body))
	}

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode web search response: %w", err)
	}

	results := make([]Result, 0, len(out.Items))
	for _, item := range out.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// redact drops the query string, which carries the API key, from transport
// errors so they can be logged.
func (c *GoogleClient) redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = c.endpoint
	}
	return err
}
