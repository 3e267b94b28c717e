package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

// Client talks to a running award server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Award is the part of an issued award the verifier compares.
type Award struct {
	ID            string  `json:"id"`
	AchievementID string  `json:"achievement_id"`
	Group         string  `json:"group"`
	Threshold     float64 `json:"threshold"`
	AchievedValue float64 `json:"achieved_value"`
	ImageURL      string  `json:"image_url"`
}

// BatchSummary is the part of a batch summary the runner reports.
type BatchSummary struct {
	Kind     string         `json:"kind"`
	Units    int            `json:"units"`
	Statuses map[string]int `json:"statuses"`
	Failures []struct {
		CompetitorID string `json:"competitor_id"`
		Group        string `json:"group"`
		Status       string `json:"status"`
		Reason       string `json:"reason"`
		Error        string `json:"error"`
	} `json:"failures"`
}

// Health returns nil when the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		return fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// RunBatch triggers a batch of the given kind and waits for its summary.
func (c *Client) RunBatch(ctx context.Context, kind string) (BatchSummary, error) {
	var out BatchSummary
	err := c.json(ctx, http.MethodPost, "/v1/batch?kind="+url.QueryEscape(kind), &out)
	return out, err
}

// Achievements lists a competitor's awards.
func (c *Client) Achievements(ctx context.Context, competitorID string) ([]Award, error) {
	var out []Award
	err := c.json(ctx, http.MethodGet, "/v1/members/"+url.PathEscape(competitorID)+"/achievements", &out)
	return out, err
}

func (c *Client) json(ctx context.Context, method, path string, v any) error {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}
