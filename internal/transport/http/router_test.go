package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-gateway/internal/audit"
	"sanctions-gateway/internal/decision"
	"sanctions-gateway/internal/matcher"
	"sanctions-gateway/internal/platform/config"
	"sanctions-gateway/internal/platform/metrics"
	"sanctions-gateway/internal/screening"
	"sanctions-gateway/internal/screening/handler"
	screeningmetrics "sanctions-gateway/internal/screening/metrics"
	"sanctions-gateway/pkg/platform/middleware/requestid"
	"sanctions-gateway/pkg/testutil"
)

const (
	ofac = "us_ofac_sdn"
	un   = "un_sc_sanctions"
)

type stack struct {
	router http.Handler
	yente  *testutil.FakeYente
	pub    *audit.Publisher
	sink   *audit.MemorySink
}

func newStack(t *testing.T) *stack {
	t.Helper()
	yente := testutil.NewFakeYente(t)

	cfg := config.New()
	cfg.Matcher.BaseURL = yente.URL()
	cfg.Matcher.Timeout = 2 * time.Second
	cfg.Matcher.RetryBackoff = time.Millisecond

	m := metrics.New(cfg.Service.Name, cfg.Service.Version)
	sink := audit.NewMemorySink()
	pub := audit.NewPublisher(sink, audit.WithMetrics(audit.NewMetrics(m.Registry)))
	t.Cleanup(func() { _ = pub.Close() })

	client := matcher.NewClient(cfg.Matcher, matcher.WithMetrics(matcher.NewMetrics(m.Registry)))
	gateway := matcher.NewGateway(client, cfg.Matcher.Datasets, pub)
	engine, err := decision.NewEngine(cfg.Thresholds)
	require.NoError(t, err)
	sm := screeningmetrics.New(m.Registry)
	svc := screening.New(gateway, engine, pub, screening.WithMetrics(sm))

	router := NewRouter(Info{Name: cfg.Service.Name, Version: cfg.Service.Version}, handler.New(svc, nil, sm), m, nil)
	return &stack{router: router, yente: yente, pub: pub, sink: sink}
}

func TestScreenPersonEndToEnd(t *testing.T) {
	s := newStack(t)

	testutil.Given(t, "a strong match on one dataset and an outage on the other", func(t *testing.T) {
		s.yente.SetResults(ofac, testutil.YenteEntity{
			ID: "NK-1", Caption: "Ivan Petrov", Score: 0.90, Match: true,
			Names: []string{"Ivan Petrov"}, Programs: []string{"RUSSIA-EO14024"},
		})
		s.yente.FailNext(un, 503, 503, 503)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/sanctions/screen/person",
			map[string]string{"full_name": "Ivan Petrov", "country": "ru"})
		req.Header.Set(requestid.Header, "corr-1")

		testutil.When(t, "the person is screened", func(t *testing.T) {
			rr := testutil.DoRequest(s.router, req)

			testutil.Then(t, "the response blocks and reports the failed dataset", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				assert.Equal(t, "corr-1", rr.Header().Get(requestid.Header))
				resp := testutil.UnmarshalResponse[handler.ScreenPersonResponse](t, rr)
				assert.Equal(t, "corr-1", resp.RequestID)
				assert.Equal(t, "block", resp.Decision)
				assert.Equal(t, "critical", resp.RiskLevel)
				assert.Equal(t, []string{ofac, un}, resp.DatasetsChecked)
				assert.Equal(t, []string{un}, resp.Metadata.DatasetsFailed)
				require.Len(t, resp.Matches, 1)
				assert.Equal(t, []string{"RU"}, s.yente.LastProperties(ofac)["country"])
			})

			testutil.Then(t, "the audit trail starts with the request and ends with the decision", func(t *testing.T) {
				require.NoError(t, s.pub.Close())
				types := audit.Types(s.sink.ForRequest("corr-1"))
				require.NotEmpty(t, types)
				assert.Equal(t, audit.EventScreeningRequest, types[0])
				assert.Equal(t, audit.EventScreeningDecision, types[len(types)-1])
				assert.Contains(t, types, audit.EventScreeningError)
			})
		})
	})
}

func TestScreenPersonMatcherDown(t *testing.T) {
	s := newStack(t)
	s.yente.SetReady(http.StatusServiceUnavailable)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/sanctions/screen/person",
		map[string]string{"full_name": "Jane Doe"}))

	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "service_unavailable")
	assert.Zero(t, s.yente.Calls(ofac))
}

func TestRejectedScreeningIsAudited(t *testing.T) {
	s := newStack(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/sanctions/screen/person",
		map[string]string{"full_name": "Jane Doe", "country": "GBR"})
	req.Header.Set(requestid.Header, "corr-invalid")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	assert.Zero(t, s.yente.Calls(ofac))
	require.NoError(t, s.pub.Close())
	events := s.sink.ForRequest("corr-invalid")
	require.Len(t, events, 1)
	rejected, ok := events[0].(*audit.ScreeningError)
	require.True(t, ok)
	assert.Equal(t, audit.ErrorValidation, rejected.ErrorType)
	assert.Equal(t, audit.SeverityWarning, rejected.Severity)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newStack(t)

	index := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatusOK(t, index)
	testutil.AssertJSONContains(t, index, "status", "running")

	health := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/health"))
	testutil.AssertStatusOK(t, health)
	testutil.AssertJSONContains(t, health, "status", "healthy")

	s.yente.SetReady(http.StatusServiceUnavailable)
	degraded := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/health"))
	testutil.AssertStatusOK(t, degraded)
	testutil.AssertJSONContains(t, degraded, "status", "degraded")

	notReady := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
	testutil.AssertStatus(t, notReady, http.StatusServiceUnavailable)

	m := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, m)
	assert.Contains(t, m.Body.String(), `sanctions_http_requests_total{method="GET",route="/health",status="200"} 2`)

	missing := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/nope"))
	testutil.AssertStatus(t, missing, http.StatusNotFound)
}
