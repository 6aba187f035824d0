package matcher

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sanctions-gateway/internal/audit"
	"sanctions-gateway/internal/decision"
)

// Matcher performs single dataset queries and readiness checks.
type Matcher interface {
	Match(ctx context.Context, dataset string, q PersonQuery) (*DatasetResult, error)
	Ready(ctx context.Context) error
}

// Auditor receives the per-dataset audit events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// DatasetStatus is the outcome of one dataset query.
type DatasetStatus string

const (
	StatusOK     DatasetStatus = "ok"
	StatusFailed DatasetStatus = "failed"
)

// DatasetOutcome records how one dataset query went.
type DatasetOutcome struct {
	Dataset        string
	Status         DatasetStatus
	Latency        time.Duration
	CandidateCount int
	SkippedCount   int
	Cached         bool
	Err            error
}

// Aggregate is the combined result of screening every dataset. Candidates
// are ordered by score descending; equal scores keep configured dataset
// order, then matcher order.
type Aggregate struct {
	Candidates []decision.MatchCandidate
	Outcomes   []DatasetOutcome
}

// Checked lists every dataset that was queried, in configured order.
func (a Aggregate) Checked() []string {
	out := make([]string, 0, len(a.Outcomes))
	for _, o := range a.Outcomes {
		out = append(out, o.Dataset)
	}
	return out
}

// Failed lists the datasets whose query failed, in configured order.
func (a Aggregate) Failed() []string {
	var out []string
	for _, o := range a.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o.Dataset)
		}
	}
	return out
}

// AllFailed reports whether no dataset answered.
func (a Aggregate) AllFailed() bool {
	return len(a.Outcomes) > 0 && len(a.Failed()) == len(a.Outcomes)
}

// Skipped counts malformed candidates dropped across datasets.
func (a Aggregate) Skipped() int {
	n := 0
	for _, o := range a.Outcomes {
		n += o.SkippedCount
	}
	return n
}

// Gateway fans a person query out over the configured datasets.
type Gateway struct {
	matcher        Matcher
	datasets       []string
	maxConcurrency int
	auditor        Auditor
	metrics        *Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithGatewayMetrics sets the metrics collector.
func WithGatewayMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMaxConcurrency bounds how many datasets are queried at once.
func WithMaxConcurrency(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxConcurrency = n
		}
	}
}

// NewGateway builds a gateway over datasets. The dataset order is the order
// of Aggregate.Outcomes and the tie-break order of candidates.
func NewGateway(m Matcher, datasets []string, auditor Auditor, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		matcher:        m,
		datasets:       slices.Clone(datasets),
		maxConcurrency: len(datasets),
		auditor:        auditor,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         otel.Tracer("sanctions-gateway/matcher"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Datasets returns the configured datasets.
func (g *Gateway) Datasets() []string {
	return slices.Clone(g.datasets)
}

// Ready delegates to the matcher readiness check.
func (g *Gateway) Ready(ctx context.Context) error {
	return g.matcher.Ready(ctx)
}

// ScreenAll queries every dataset concurrently and waits for all of them.
// A failing dataset never cancels the others; its failure is recorded in
// its outcome. Each query writes its result into its own slot.
func (g *Gateway) ScreenAll(ctx context.Context, requestID string, q PersonQuery) Aggregate {
	outcomes := make([]DatasetOutcome, len(g.datasets))
	results := make([][]decision.MatchCandidate, len(g.datasets))

	var group errgroup.Group
	group.SetLimit(max(g.maxConcurrency, 1))
	for i, dataset := range g.datasets {
		group.Go(func() error {
			results[i], outcomes[i] = g.screenDataset(ctx, requestID, dataset, q)
			return nil
		})
	}
	_ = group.Wait()

	var candidates []decision.MatchCandidate
	for _, r := range results {
		candidates = append(candidates, r...)
	}
	slices.SortStableFunc(candidates, func(a, b decision.MatchCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return Aggregate{Candidates: candidates, Outcomes: outcomes}
}

func (g *Gateway) screenDataset(ctx context.Context, requestID, dataset string, q PersonQuery) ([]decision.MatchCandidate, DatasetOutcome) {
	ctx, span := g.tracer.Start(ctx, "matcher.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sanctions.dataset", dataset),
			attribute.String("sanctions.request_id", requestID),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := g.matcher.Match(ctx, dataset, q)
	latency := time.Since(start)

	outcome := DatasetOutcome{Dataset: dataset, Latency: latency}
	query := &audit.MatcherQuery{
		Header:         audit.Header{RequestID: requestID},
		Dataset:        dataset,
		QueryFields:    q.Fields(),
		ResponseTimeMs: audit.RoundMillis(latency),
	}

	if err != nil {
		category := CategoryOf(err)
		outcome.Status = StatusFailed
		outcome.Err = err
		query.ResponseStatus = StatusOf(err)
		g.auditor.Emit(ctx, query)
		g.auditor.Emit(ctx, &audit.ScreeningError{
			Header:       audit.Header{RequestID: requestID},
			ErrorType:    "matcher_" + string(category),
			ErrorMessage: err.Error(),
			Dataset:      dataset,
			Severity:     audit.SeverityError,
		})
		g.metrics.incFailure(dataset, category)
		g.metrics.observeQuery(dataset, "failed", latency.Seconds())
		g.logger.WarnContext(ctx, "dataset query failed",
			"request_id", requestID,
			"dataset", dataset,
			"category", category,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		return nil, outcome
	}

	outcome.Status = StatusOK
	outcome.CandidateCount = len(res.Candidates)
	outcome.SkippedCount = len(res.Skipped)
	outcome.Cached = res.Cached
	query.ResponseStatus = res.StatusCode
	query.Cached = res.Cached
	g.auditor.Emit(ctx, query)

	for _, s := range res.Skipped {
		g.auditor.Emit(ctx, &audit.ScreeningError{
			Header:       audit.Header{RequestID: requestID},
			ErrorType:    audit.ErrorMalformedCandidate,
			ErrorMessage: fmt.Sprintf("entity %q dropped: %s", s.EntityID, s.Reason),
			Dataset:      dataset,
			Severity:     audit.SeverityWarning,
		})
	}
	g.metrics.addSkipped(dataset, len(res.Skipped))

	found := &audit.MatchesFound{
		Header:     audit.Header{RequestID: requestID},
		Dataset:    dataset,
		MatchCount: len(res.Candidates),
	}
	if top, ok := topCandidate(res.Candidates); ok {
		found.TopScore = audit.RoundScore(top.Score)
		found.TopEntityID = top.EntityID
	}
	g.auditor.Emit(ctx, found)

	g.metrics.observeQuery(dataset, "ok", latency.Seconds())
	span.SetAttributes(
		attribute.Int("sanctions.candidates", len(res.Candidates)),
		attribute.Int("sanctions.skipped", len(res.Skipped)),
		attribute.Bool("sanctions.cached", res.Cached),
	)
	return res.Candidates, outcome
}

// topCandidate returns the first candidate with the highest score.
func topCandidate(cs []decision.MatchCandidate) (decision.MatchCandidate, bool) {
	if len(cs) == 0 {
		return decision.MatchCandidate{}, false
	}
	top := cs[0]
	for _, c := range cs[1:] {
		if c.Score > top.Score {
			top = c
		}
	}
	return top, true
}
