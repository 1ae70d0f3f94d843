// Package upstream issues logical fetches against the external catalog.
// The client applies a per-request timeout and an exponential-backoff retry
// policy for transient failures; it knows nothing about entity shape and
// applies no inter-call pacing (pacing belongs to the orchestrator).
package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/racketdata/ttsync/pkg/constants"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/logging"
)

// Policy is the retry policy for one logical fetch: up to MaxAttempts
// tries, waiting BaseDelay before the first retry and multiplying the
// delay by Multiplier for each one after.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  int
}

// DefaultPolicy returns the standard retry policy (3 attempts, 2s base,
// doubling).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: constants.MaxRetries,
		BaseDelay:   constants.RetryBaseDelay,
		Multiplier:  constants.RetryMultiplier,
	}
}

// delay returns the wait before the given retry (1-based).
func (p Policy) delay(retry int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= time.Duration(p.Multiplier)
	}
	return d
}

// Fetcher is the single operation consumed by the orchestrator.
type Fetcher interface {
	// Get fetches a document via GET with query parameters.
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
	// PostForm fetches a document via a POSTed form, as used by the
	// members directory.
	PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error)
}

// Client implements Fetcher against an HTTP upstream.
type Client struct {
	baseURL string
	http    *http.Client
	policy  Policy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPolicy replaces the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: constants.DefaultFetchTimeout},
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a document via GET with query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return c.fetch(ctx, endpoint, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// PostForm fetches a document via a POSTed form.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	target := c.baseURL + endpoint
	body := form.Encode()
	return c.fetch(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// fetch runs the retry loop around a single logical fetch. The request is
// rebuilt per attempt because request bodies are not replayable.
func (c *Client) fetch(ctx context.Context, endpoint string, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := c.policy.delay(attempt - 1)
			logging.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Retrying upstream fetch")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		setHeaders(req)

		body, err := c.do(req, endpoint)
		if err == nil {
			return body, nil
		}
		if !errors.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, errors.NewTransientError(endpoint, c.policy.MaxAttempts, lastErr)
}

// do performs one exchange and classifies the outcome.
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, errors.ErrCanceled
		}
		// Connection refused, DNS failure, client timeout: all transient.
		return nil, &errors.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: http.StatusServiceUnavailable,
			Message:    err.Error(),
			Err:        err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: http.StatusServiceUnavailable,
			Message:    "truncated response body",
			Err:        err,
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &errors.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	default:
		// 4xx other than 429 will not improve with retries.
		return nil, &errors.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}
}

// setHeaders applies the browser-like headers the upstream expects.
func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.ErrCanceled
	case <-timer.C:
		return nil
	}
}
