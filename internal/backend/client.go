// Package backend talks to the external billing and usage service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/milad/smartmeter/internal/domain"
)

// ErrUpstream marks any failure to get a usable answer from the backend.
var ErrUpstream = errors.New("backend upstream error")

// Fixed sub-paths of the backend API.
const (
	PathBilling     = "/api/billing/current"
	PathContact     = "/api/contact"
	PathPayments    = "/api/payments"
	PathUsageLatest = "/api/usage/latest"
	PathAnalytics   = "/api/analytics"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 4 << 20

// Client issues single best-effort calls: no retries, no caching.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the backend rooted at baseURL. A nil hc gets a
// client with a 10s timeout.
func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be an absolute http(s) url", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

// BaseURL is the backend root this client forwards to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Billing returns the backend's current billing record as sent.
func (c *Client) Billing(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "billing", http.MethodGet, PathBilling, nil, nil, &out)
	return out, err
}

// LatestUsage returns the backend's latest reading as sent.
func (c *Client) LatestUsage(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "usage_latest", http.MethodGet, PathUsageLatest, nil, nil, &out)
	return out, err
}

func (c *Client) Analytics(ctx context.Context, g domain.Granularity) ([]domain.AnalyticsPoint, error) {
	var out struct {
		Points []domain.AnalyticsPoint `json:"points"`
	}
	q := url.Values{"granularity": []string{string(g)}}
	if err := c.do(ctx, "analytics", http.MethodGet, PathAnalytics, q, nil, &out); err != nil {
		return nil, err
	}
	if out.Points == nil {
		out.Points = []domain.AnalyticsPoint{}
	}
	return out.Points, nil
}

// Contact forwards body verbatim and returns the backend's reply.
func (c *Client) Contact(ctx context.Context, body []byte) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "contact", http.MethodPost, PathContact, nil, body, &out)
	return out, err
}

// Payment forwards body verbatim and returns the backend's reply.
func (c *Client) Payment(ctx context.Context, body []byte) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "payments", http.MethodPost, PathPayments, nil, body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, out any) error {
	start := time.Now()
	outcome := "error"
	defer func() { observeUpstream(op, outcome, time.Since(start)) }()

	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("%w: %s: build request: %v", ErrUpstream, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
	}
	defer resp.Body.Close()
	outcome = strconv.Itoa(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUpstream, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrUpstream, op, resp.StatusCode)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: %s: response is not JSON", ErrUpstream, op)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUpstream, op, err)
	}
	return nil
}
