// Package httpclient provides the HTTP plumbing shared by all provider
// clients: JSON request/response handling, request IDs, an optional
// client-side rate limiter, and a request mutator hook for providers
// that sign or re-authorize requests.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultTimeout = 60 * time.Second

// Mutator adjusts a request just before it is sent. Providers use it for
// request signing (Bedrock SigV4) and token injection (Vertex OAuth2).
type Mutator func(req *http.Request) error

// Config configures a Client.
type Config struct {
	// Timeout applies per request. Defaults to 60s.
	Timeout time.Duration

	// UserAgent is sent on every request when non-empty.
	UserAgent string

	// RequestsPerSecond enables a client-side rate limiter when > 0.
	RequestsPerSecond float64

	// Mutate runs after standard headers are set and before the request
	// is sent.
	Mutate Mutator
}

// Client is a thin wrapper around http.Client used by provider clients.
type Client struct {
	hc        *http.Client
	userAgent string
	limiter   *rate.Limiter
	mutate    Mutator
}

// Response carries the raw result of a request. Body is fully read and
// the connection released before Response is returned.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// New creates a Client from config.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		hc:        &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		mutate:    cfg.Mutate,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// PostJSON marshals in, POSTs it to url with the given extra headers, and
// reads the full response body. When the status is 2xx and out is
// non-nil, the body is unmarshaled into out. Non-2xx responses are not
// an error here; callers decode the body into their provider's error
// shape.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, in, out any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.mutate != nil {
		if err := c.mutate(req); err != nil {
			return nil, fmt.Errorf("preparing request: %w", err)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		RequestID:  requestID,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	return result, nil
}

// Get fetches url and returns the raw response. Used by the CLI for
// document URLs; provider clients only POST.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
