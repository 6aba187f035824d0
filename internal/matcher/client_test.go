package matcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sanctions-gateway/internal/platform/config"
	"sanctions-gateway/pkg/platform/circuit"
	"sanctions-gateway/pkg/platform/sentinel"
	tu "sanctions-gateway/pkg/testutil"
)

const ofac = "us_ofac_sdn"

func testMatcherConfig(baseURL string) config.Matcher {
	cfg := config.New().Matcher
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.ConnectTimeout = time.Second
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

type ClientSuite struct {
	suite.Suite
	yente   *tu.FakeYente
	metrics *Metrics
	client  *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.yente = tu.NewFakeYente(s.T())
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.client = NewClient(testMatcherConfig(s.yente.URL()), WithMetrics(s.metrics))
}

func (s *ClientSuite) TestMatchReturnsCandidates() {
	s.yente.SetResults(ofac, tu.YenteEntity{
		ID: "NK-1", Caption: "Ivan Petrov", Score: 0.93, Match: true,
		Names: []string{"Ivan Petrov"}, Aliases: []string{"I. Petrov"},
		Programs: []string{"RUSSIA-EO14024"},
	})

	res, err := s.client.Match(context.Background(), ofac, PersonQuery{FullName: "Ivan Petrov", Country: "RU"})
	s.Require().NoError(err)

	s.Equal(ofac, res.Dataset)
	s.Equal(http.StatusOK, res.StatusCode)
	s.False(res.Cached)
	s.Require().Len(res.Candidates, 1)
	s.Equal([]string{"I. Petrov", "Ivan Petrov"}, res.Candidates[0].Names)
	s.Equal(map[string][]string{"name": {"Ivan Petrov"}, "country": {"RU"}}, s.yente.LastProperties(ofac))
}

func (s *ClientSuite) TestTransientStatusIsRetried() {
	s.yente.FailNext(ofac, http.StatusServiceUnavailable, http.StatusTooManyRequests)
	s.yente.SetResults(ofac, tu.YenteEntity{ID: "E1", Caption: "E1", Score: 0.4})

	res, err := s.client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().NoError(err)

	s.Len(res.Candidates, 1)
	s.Equal(3, s.yente.Calls(ofac))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Retries.WithLabelValues(ofac)))
}

func (s *ClientSuite) TestRetriesAreBounded() {
	s.yente.FailNext(ofac, 500, 500, 500, 500)

	_, err := s.client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().Error(err)

	s.Equal(ErrorBadStatus, CategoryOf(err))
	s.Equal(500, StatusOf(err))
	s.Equal(3, s.yente.Calls(ofac), "one call plus max_retries")
}

func (s *ClientSuite) TestClientErrorIsNotRetried() {
	s.yente.FailNext(ofac, http.StatusBadRequest)

	_, err := s.client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().Error(err)

	s.Equal(ErrorBadStatus, CategoryOf(err))
	s.False(IsRetryable(err))
	s.Equal(1, s.yente.Calls(ofac))
}

func (s *ClientSuite) TestUndecodableBodyIsBadData() {
	s.yente.SetRawResponse(ofac, `{"responses": [}`)

	_, err := s.client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})

	s.Equal(ErrorBadData, CategoryOf(err))
	s.Equal(1, s.yente.Calls(ofac))
}

func (s *ClientSuite) TestSlowMatcherTimesOut() {
	cfg := testMatcherConfig(s.yente.URL())
	cfg.Timeout = 30 * time.Millisecond
	cfg.MaxRetries = 0
	client := NewClient(cfg)
	s.yente.SetDelay(500 * time.Millisecond)

	_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})

	s.Equal(ErrorTimeout, CategoryOf(err))
	s.True(IsRetryable(err))
}

func (s *ClientSuite) TestUnreachableMatcherIsAnOutage() {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	cfg := testMatcherConfig(dead.URL)
	cfg.MaxRetries = 0

	_, err := NewClient(cfg).Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})

	s.Equal(ErrorProviderOutage, CategoryOf(err))
	s.True(errors.Is(err, sentinel.ErrUnavailable))
}

func (s *ClientSuite) TestOpenBreakerFailsFastWithoutNetwork() {
	cfg := testMatcherConfig(s.yente.URL())
	cfg.MaxRetries = 0
	breaker := circuit.New("matcher", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := NewClient(cfg, WithBreaker(breaker), WithMetrics(s.metrics))
	s.yente.FailNext(ofac, 503, 503)

	for range 2 {
		_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
		s.Require().Error(err)
	}
	s.Equal(circuit.StateOpen, client.BreakerState())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerState))

	_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.True(errors.Is(err, sentinel.ErrCircuitOpen))
	s.Equal(2, s.yente.Calls(ofac))

	err = client.Ready(context.Background())
	s.True(errors.Is(err, sentinel.ErrCircuitOpen))
	s.Equal(0, s.yente.ReadyCalls())
}

func (s *ClientSuite) TestClientErrorsDoNotTripBreaker() {
	cfg := testMatcherConfig(s.yente.URL())
	breaker := circuit.New("matcher", circuit.WithFailureThreshold(1))
	client := NewClient(cfg, WithBreaker(breaker))
	s.yente.FailNext(ofac, 422)

	_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().Error(err)
	s.Equal(circuit.StateClosed, client.BreakerState())
}

func (s *ClientSuite) TestClientErrorReleasesTrialCall() {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cfg := testMatcherConfig(s.yente.URL())
	cfg.MaxRetries = 0
	breaker := circuit.New("matcher", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Minute), circuit.WithClock(clock))
	client := NewClient(cfg, WithBreaker(breaker))
	s.yente.FailNext(ofac, 503, 422)

	_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().Error(err)
	s.Require().Equal(circuit.StateOpen, client.BreakerState())

	now = now.Add(2 * time.Minute)
	_, err = client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.Require().Error(err)
	s.False(errors.Is(err, sentinel.ErrCircuitOpen))

	_, err = client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})
	s.NoError(err)
	s.Equal(3, s.yente.Calls(ofac))
}

func (s *ClientSuite) TestReady() {
	s.NoError(s.client.Ready(context.Background()))

	s.yente.SetReady(http.StatusServiceUnavailable)
	err := s.client.Ready(context.Background())
	s.Equal(ErrorBadStatus, CategoryOf(err))
	s.Equal(2, s.yente.ReadyCalls())
}

func (s *ClientSuite) TestCacheServesRepeatQueries() {
	cache := newMemoryCache()
	client := NewClient(testMatcherConfig(s.yente.URL()), WithCache(cache), WithMetrics(s.metrics))
	s.yente.SetResults(ofac, tu.YenteEntity{ID: "E1", Caption: "E1", Score: 0.6})
	q := PersonQuery{FullName: "Jane Doe"}

	first, err := client.Match(context.Background(), ofac, q)
	s.Require().NoError(err)
	second, err := client.Match(context.Background(), ofac, q)
	s.Require().NoError(err)

	s.False(first.Cached)
	s.True(second.Cached)
	s.Equal(first.Candidates, second.Candidates)
	s.Equal(1, s.yente.Calls(ofac))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))
}

func (s *ClientSuite) TestCacheFailuresNeverFailQueries() {
	cache := newMemoryCache()
	cache.err = errors.New("connection reset")
	client := NewClient(testMatcherConfig(s.yente.URL()), WithCache(cache), WithMetrics(s.metrics))

	_, err := client.Match(context.Background(), ofac, PersonQuery{FullName: "Jane Doe"})

	s.NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("error")))
}

func TestMatcherError(t *testing.T) {
	err := newStatusError(ofac, 502, "bad gateway")
	assert.True(t, err.Retryable)
	assert.Equal(t, "matcher us_ofac_sdn [bad_status]: status 502: bad gateway", err.Error())

	wrapped := errors.Join(errors.New("ctx"), err)
	assert.Equal(t, ErrorBadStatus, CategoryOf(wrapped))
	assert.Equal(t, 502, StatusOf(wrapped))

	assert.Equal(t, ErrorInternal, CategoryOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))

	require.False(t, newStatusError(ofac, 404, "").Retryable)
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	body, ok := c.data[key]
	if !ok {
		return nil, sentinel.ErrCacheMiss
	}
	return body, nil
}

func (c *memoryCache) Set(_ context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = body
	return nil
}
