package synth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second

	// defaultRequestsPerSecond keeps a cold cache from hammering the
	// backend; public TTS endpoints throttle aggressively.
	defaultRequestsPerSecond = 4

	// maxResponseBytes caps a single clip. Spoken countdown phrases
	// are a few seconds long; anything bigger is a misbehaving backend.
	maxResponseBytes = 32 << 20
)

// ClientOption configures the HTTP client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps backend requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithHTTPClient swaps the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client synthesizes speech through an HTTP service exposing
// GET {base}/synthesize?text=...&lang=...&tld=... and answering with an
// audio/wav body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(defaultRequestsPerSecond, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Synthesizer.
func (c *Client) Name() string { return "http" }

// Synthesize implements Synthesizer.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("text", req.Text)
	q.Set("lang", req.Language)
	q.Set("tld", req.Accent)
	endpoint := c.baseURL + "/synthesize?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build synthesis request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/wav")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("unable to read synthesis response: %w", err)
	}

	log.Debug("synthesized clip",
		"text", req.Text,
		"lang", req.Language,
		"bytes", len(data),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return data, nil
}
