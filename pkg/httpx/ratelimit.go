package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultMaxRetries  = 2
	DefaultBaseBackoff = time.Millisecond * 500
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitedClient wraps an HTTPClient and retries requests rejected with
// 429, honoring the Retry-After header when the server provides one. It is
// safe for concurrent use.
type RateLimitedClient struct {
	client      HTTPClient
	baseBackoff time.Duration
	maxRetries  int
}

type ClientOption func(*RateLimitedClient)

// NewRateLimitedClient creates a client that respects 429 responses. A
// request is retried a bounded number of times before giving up with an
// error.
func NewRateLimitedClient(opts ...ClientOption) *RateLimitedClient {
	c := &RateLimitedClient{
		client:      http.DefaultClient,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: DefaultBaseBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *RateLimitedClient) {
		c.maxRetries = maxRetries
	}
}

func WithBaseBackoff(baseBackoff time.Duration) ClientOption {
	return func(c *RateLimitedClient) {
		c.baseBackoff = baseBackoff
	}
}

func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *RateLimitedClient) {
		c.client = client
	}
}

// Do executes the request, sleeping out rate limits. Callers must treat this
// as potentially slow: a Retry-After wait blocks for its full duration.
func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt == c.maxRetries {
			resp.Body.Close()
			break
		}

		wait := c.retryAfter(resp, attempt)
		resp.Body.Close()

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("rate limit exceeded after %d retries", c.maxRetries)
}

// retryAfter prefers the server's Retry-After header, falling back to an
// exponential backoff based on the attempt count.
func (c *RateLimitedClient) retryAfter(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}

		if at, err := http.ParseTime(header); err == nil {
			if wait := time.Until(at); wait > 0 {
				return wait
			}
		}
	}

	return c.baseBackoff << attempt
}
