// Package adapter provides clients for the external APIs the faucet reads from.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/faucet-intake/internal/circuitbreaker"
	"github.com/faucet-intake/internal/config"
	"github.com/faucet-intake/internal/types"
	"golang.org/x/time/rate"
)

// ErrPostNotFound is returned when the tweet does not exist or is not visible
var ErrPostNotFound = errors.New("tweet not found")

// TwitterClient reads tweets from the Twitter API v2
type TwitterClient struct {
	baseURL     string
	bearerToken string
	client      *http.Client
	limiter     *rate.Limiter
	breaker     *circuitbreaker.CircuitBreaker
}

// twitterTweetResponse is the body of GET /2/tweets/:id
type twitterTweetResponse struct {
	Data *struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Errors []twitterAPIError `json:"errors"`
}

type twitterAPIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// NewTwitterClient creates a client from configuration.
// RequestsPerSecond <= 0 disables client-side throttling.
func NewTwitterClient(cfg *config.TwitterConfig) *TwitterClient {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if cfg.RequestsPerSecond > 1 {
			burst = int(cfg.RequestsPerSecond)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TwitterClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Name:        "twitter",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
			// A missing tweet says nothing about API health
			IsFailure: func(err error) bool { return !errors.Is(err, ErrPostNotFound) },
		}),
	}
}

// GetPost fetches a tweet by id
func (c *TwitterClient) GetPost(ctx context.Context, id string) (*types.SocialPost, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("twitter rate limiter: %w", err)
	}

	var post *types.SocialPost
	err := c.breaker.Execute(ctx, func() error {
		var fetchErr error
		post, fetchErr = c.fetch(ctx, id)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (c *TwitterClient) fetch(ctx context.Context, id string) (*types.SocialPost, error) {
	endpoint := fmt.Sprintf("%s/2/tweets/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read twitter response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed twitterTweetResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode twitter response: %w", err)
	}

	// The API answers 200 with an errors array for deleted or protected tweets
	if parsed.Data == nil {
		if len(parsed.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, parsed.Errors[0].Detail)
		}
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}

	return &types.SocialPost{
		ID:   parsed.Data.ID,
		Text: parsed.Data.Text,
	}, nil
}

// BreakerState exposes the circuit state for health reporting
func (c *TwitterClient) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}
