// Package fetch provides bounded HTTP retrieval with retries, redirect
// limits and a response byte budget, plus JSON decoding with a parse error
// distinct from transport errors.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// commonUserAgent is used when no user agent is configured.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8"

	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 2
	defaultRetryDelay   = 500 * time.Millisecond
	defaultMaxBodyBytes = 2 << 20
	maxRedirects        = 3
)

// ErrTooManyRedirects is returned when the redirect hop bound is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrBodyTooLarge is returned when a response exceeds the byte budget.
var ErrBodyTooLarge = errors.New("response body too large")

// TransportError wraps a network-level failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError indicates a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// ParseError indicates a well-transported but undecodable body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	MaxRetries   int
	RetryDelay   time.Duration
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Headers      map[string]string
}

// Client retrieves bodies over HTTP GET with linear-backoff retries.
type Client struct {
	http *http.Client
	opts Options
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = commonUserAgent
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		opts: opts,
	}
}

// Get fetches a URL, retrying idempotent GETs with linear backoff on
// transport errors and non-2xx statuses.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.GetWithHeaders(ctx, rawURL, nil)
}

// GetWithHeaders is Get with additional per-request headers layered over
// the client's configured headers.
func (c *Client) GetWithHeaders(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	var lastErr error

	attempts := c.opts.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.opts.RetryDelay
			select {
			case <-ctx.Done():
				return nil, &TransportError{URL: rawURL, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		body, err := c.get(ctx, rawURL, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Oversized bodies and cancelled contexts will not improve on retry.
		if errors.Is(err, ErrBodyTooLarge) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", commonAcceptHeader)
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Read one byte past the budget so oversized bodies are detected
	// instead of silently truncated.
	limited := io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	return body, nil
}

// DecodeJSON unmarshals a response body, reporting failures as a
// *ParseError so callers can distinguish them from transport errors.
func DecodeJSON(body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}
