package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/trackarr/trackarr/pkg/httpx"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"go.uber.org/zap"
)

const (
	// DefaultCacheTTL is how long detail and search responses are reused
	// before hitting the provider again.
	DefaultCacheTTL = 6 * time.Hour

	defaultMaxRetries = 2
)

// ErrorParser extracts the provider's human-readable message from an error
// response body. Every provider nests it differently.
type ErrorParser func(statusCode int, body []byte) string

// Doer is the shared request layer under every network adapter: rate-limit
// aware HTTP, bounded retries for transient failures, response caching, and
// error normalization into *Error.
type Doer struct {
	source     media.Source
	client     httpx.HTTPClient
	cache      *gocache.Cache
	parseError ErrorParser
	maxRetries uint64
}

type DoerOption func(*Doer)

// WithHTTPClient overrides the underlying HTTP client, used by tests.
func WithHTTPClient(client httpx.HTTPClient) DoerOption {
	return func(d *Doer) {
		d.client = client
	}
}

// WithErrorParser installs the provider-specific error message extractor.
func WithErrorParser(parse ErrorParser) DoerOption {
	return func(d *Doer) {
		d.parseError = parse
	}
}

// WithCacheTTL overrides how long successful GET responses are cached.
func WithCacheTTL(ttl time.Duration) DoerOption {
	return func(d *Doer) {
		d.cache = gocache.New(ttl, 10*time.Minute)
	}
}

func NewDoer(source media.Source, opts ...DoerOption) *Doer {
	d := &Doer{
		source:     source,
		client:     httpx.NewRateLimitedClient(),
		cache:      gocache.New(DefaultCacheTTL, 10*time.Minute),
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// JSON performs a request and decodes the response into dest. GET responses
// are cached by URL. Non-2xx responses become *Error; transport failures are
// retried with exponential backoff before surfacing.
func (d *Doer) JSON(ctx context.Context, method, url string, header http.Header, payload []byte, dest any) error {
	log := logger.FromCtx(ctx)

	cacheable := method == http.MethodGet
	if cacheable {
		if cached, ok := d.cache.Get(url); ok {
			return json.Unmarshal(cached.([]byte), dest)
		}
	}

	var body []byte
	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := d.client.Do(req)
		if err != nil {
			log.Debug("provider request failed", zap.String("url", url), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(&Error{
				Provider:   d.source,
				StatusCode: resp.StatusCode,
				Message:    d.extractMessage(resp.StatusCode, b),
			})
		}

		body = b
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries), ctx))
	if err != nil {
		if _, ok := AsError(err); ok {
			return err
		}
		return &Error{Provider: d.source, Message: err.Error()}
	}

	if cacheable {
		d.cache.SetDefault(url, body)
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &Error{Provider: d.source, Message: fmt.Sprintf("unexpected response shape: %v", err)}
	}

	return nil
}

// Invalidate drops a cached response, used after auth token refresh.
func (d *Doer) Invalidate(url string) {
	d.cache.Delete(url)
}

func (d *Doer) extractMessage(statusCode int, body []byte) string {
	if d.parseError != nil {
		if msg := d.parseError(statusCode, body); msg != "" {
			return msg
		}
	}
	return http.StatusText(statusCode)
}
