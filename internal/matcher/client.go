// Package matcher talks to the external entity-matching service (a
// yente-compatible API). Client performs single dataset queries with retry,
// circuit breaking and an optional response cache; Gateway fans a screening
// out over every configured dataset and aggregates the candidates.
package matcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"sanctions-gateway/internal/platform/config"
	"sanctions-gateway/pkg/platform/circuit"
	"sanctions-gateway/pkg/platform/sentinel"
)

const (
	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
	defaultBackoff   = 100 * time.Millisecond
)

// Client queries the matcher over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL      string
	http         *http.Client
	maxRetries   uint64
	retryBackoff time.Duration
	breaker      *circuit.Breaker
	cache        Cache
	metrics      *Metrics
	logger       *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithCache enables the response cache.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client built from config.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a matcher client. ConnectTimeout bounds dialing and
// Timeout bounds each HTTP exchange, body included.
func NewClient(cfg config.Matcher, opts ...ClientOption) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		http:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		breaker: circuit.New("matcher",
			circuit.WithFailureThreshold(cfg.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.BreakerSuccesses),
			circuit.WithCooldown(cfg.BreakerCooldown),
		),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = defaultBackoff
	}
	return c
}

// Ready calls GET /readyz. While the breaker is open and cooling down it
// reports sentinel.ErrCircuitOpen without a network call.
func (c *Client) Ready(ctx context.Context) error {
	if !c.breaker.Allow() {
		return NewMatcherError(ErrorProviderOutage, "", "circuit open", sentinel.ErrCircuitOpen)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		c.breaker.Release()
		return NewMatcherError(ErrorInternal, "", "build readiness request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		err = classifyTransport("", err)
		c.recordOutcome(err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		err := newStatusError("", resp.StatusCode, "matcher not ready")
		c.recordOutcome(err)
		return err
	}
	c.recordOutcome(nil)
	return nil
}

// Match queries one dataset. Cached responses are served even while the
// breaker is open. Transient failures are retried with exponential backoff
// up to the configured retry count.
func (c *Client) Match(ctx context.Context, dataset string, q PersonQuery) (*DatasetResult, error) {
	payload, err := q.Payload()
	if err != nil {
		return nil, NewMatcherError(ErrorInternal, dataset, "encode query", err)
	}

	key := CacheKey(dataset, payload)
	if body, ok := c.cached(ctx, key); ok {
		candidates, skipped, err := parseResults(dataset, body)
		if err == nil {
			return &DatasetResult{Dataset: dataset, Candidates: candidates, Skipped: skipped, StatusCode: http.StatusOK, Cached: true}, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached match response", "dataset", dataset, "error", err)
	}

	if !c.breaker.Allow() {
		return nil, NewMatcherError(ErrorProviderOutage, dataset, "circuit open", sentinel.ErrCircuitOpen)
	}

	var body []byte
	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBackoff)), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.metrics.incRetry(dataset)
			c.logger.DebugContext(ctx, "retrying matcher query", "dataset", dataset, "attempt", attempt)
		}
		b, callErr := c.post(ctx, dataset, payload)
		if callErr != nil {
			if IsRetryable(callErr) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		body = b
		return nil
	})
	if err != nil {
		err = normalize(dataset, err)
		c.recordOutcome(err)
		return nil, err
	}
	c.recordOutcome(nil)

	candidates, skipped, err := parseResults(dataset, body)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, body)

	return &DatasetResult{Dataset: dataset, Candidates: candidates, Skipped: skipped, StatusCode: http.StatusOK}, nil
}

func (c *Client) post(ctx context.Context, dataset string, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + "/match/" + url.PathEscape(dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, NewMatcherError(ErrorInternal, dataset, "build match request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError(dataset, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransport(dataset, err)
	}
	return body, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.incCache("hit")
		return body, true
	case errors.Is(err, sentinel.ErrCacheMiss):
		c.metrics.incCache("miss")
	default:
		c.metrics.incCache("error")
		c.logger.WarnContext(ctx, "match cache lookup failed", "error", err)
	}
	return nil, false
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.logger.WarnContext(ctx, "match cache store failed", "error", err)
	}
}

// recordOutcome feeds the breaker. Only transient failures count against the
// matcher; a 4xx or an undecodable body says nothing about its availability.
func (c *Client) recordOutcome(err error) {
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.metrics.setBreakerOpen(false)
			c.logger.Info("matcher circuit breaker closed")
		}
		return
	}
	if !IsRetryable(err) {
		c.breaker.Release()
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.setBreakerOpen(true)
		c.logger.Warn("matcher circuit breaker opened", "error", err)
	}
}

// BreakerState reports the breaker position for health reporting.
func (c *Client) BreakerState() circuit.State {
	return c.breaker.State()
}

func classifyTransport(dataset string, err error) *MatcherError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewMatcherError(ErrorTimeout, dataset, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		e := NewMatcherError(ErrorTimeout, dataset, "request cancelled", err)
		e.Retryable = false
		return e
	}
	return NewMatcherError(ErrorProviderOutage, dataset, "matcher unreachable", fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err))
}

// normalize converts what retry.Do returns (a matcher error or the context
// error that interrupted backoff) into a *MatcherError.
func normalize(dataset string, err error) error {
	var me *MatcherError
	if errors.As(err, &me) {
		return me
	}
	return classifyTransport(dataset, err)
}
