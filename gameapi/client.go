package gameapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a plain HTTP client for the read-only game-state API.
// It performs no caching or retries; see CachedClient for the resilient
// wrapper used by the rest of the application.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new game API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPlayer retrieves a single player profile by ally code
func (c *Client) FetchPlayer(ctx context.Context, allyCode int64) (*Player, error) {
	url := fmt.Sprintf("%s/player/%d", c.baseURL, allyCode)

	var player Player
	if err := c.get(ctx, url, &player); err != nil {
		return nil, err
	}

	return &player, nil
}

// FetchGuildRoster retrieves a guild's current roster. When includeActivity
// is set, the response carries per-member daily contribution metrics.
func (c *Client) FetchGuildRoster(ctx context.Context, guildID string, includeActivity bool) (*GuildRoster, error) {
	url := fmt.Sprintf("%s/guild/%s", c.baseURL, guildID)
	if includeActivity {
		url += "?activity=true"
	}

	var roster GuildRoster
	if err := c.get(ctx, url, &roster); err != nil {
		return nil, err
	}

	return &roster, nil
}

// get performs a GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
