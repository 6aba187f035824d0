// Package screening orchestrates a person screening: it fans the query out to
// the matcher gateway, hands the candidates to the decision engine, audits
// every step and shapes the result.
package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sanctions-gateway/internal/audit"
	"sanctions-gateway/internal/decision"
	"sanctions-gateway/internal/matcher"
	"sanctions-gateway/internal/screening/metrics"
	dErrors "sanctions-gateway/pkg/domain-errors"
	"sanctions-gateway/pkg/requestcontext"
)

const defaultMaxMatches = 10

// Service screens people. It is safe for concurrent use; requests share only
// the gateway, the engine and the auditor.
type Service struct {
	gateway        Gateway
	engine         *decision.Engine
	auditor        Auditor
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	maxMatches     int
	readinessCheck bool
	requestTimeout time.Duration
	newID          func() string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxMatches caps the matches returned in a Result.
func WithMaxMatches(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxMatches = n
		}
	}
}

// WithReadinessCheck toggles the matcher readiness check before screening.
func WithReadinessCheck(enabled bool) Option {
	return func(s *Service) {
		s.readinessCheck = enabled
	}
}

// WithRequestTimeout bounds a screening end to end.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.requestTimeout = d
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs the screening service.
func New(gateway Gateway, engine *decision.Engine, auditor Auditor, opts ...Option) *Service {
	s := &Service{
		gateway:        gateway,
		engine:         engine,
		auditor:        auditor,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         otel.Tracer("sanctions-gateway/screening"),
		maxMatches:     defaultMaxMatches,
		readinessCheck: true,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Screen runs one screening. It never returns a clear decision without a
// matcher answer: an unavailable matcher, or every dataset failing, is a
// CodeServiceUnavailable error. Every outcome is audited.
func (s *Service) Screen(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	requestID := s.requestID(ctx, req)
	now := requestcontext.Now(ctx).UTC()

	ctx, span := s.tracer.Start(ctx, "screening.Screen", trace.WithAttributes(
		attribute.String("sanctions.request_id", requestID),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = s.fail(ctx, requestID, audit.ErrorUnexpected, audit.SeverityCritical,
				dErrors.Wrap(fmt.Errorf("panic: %v", rec), dErrors.CodeInternal, "screening failed"))
			result = nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		s.metrics.ObserveScreenLatency(time.Since(start))
	}()

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	s.auditor.Emit(ctx, &audit.ScreeningRequest{
		Header:    audit.Header{RequestID: requestID, Timestamp: now},
		UserID:    req.UserID,
		Context:   req.TransactionContext,
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestData: audit.RequestData{
			FullName:      req.FullName,
			Country:       req.Country,
			HasDOB:        req.DateOfBirth != "",
			HasPassport:   req.PassportNumber != "",
			HasNationalID: req.NationalID != "",
		},
	})

	if s.readinessCheck {
		if err := s.gateway.Ready(ctx); err != nil {
			return nil, s.fail(ctx, requestID, audit.ErrorMatcherUnavailable, audit.SeverityCritical,
				dErrors.Wrap(err, dErrors.CodeServiceUnavailable, "sanctions matching service unavailable"))
		}
	}

	agg := s.gateway.ScreenAll(ctx, requestID, req.Query())
	if agg.AllFailed() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, s.fail(ctx, requestID, audit.ErrorRequestTimeout, audit.SeverityCritical,
				dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "screening timed out"))
		}
		return nil, s.fail(ctx, requestID, audit.ErrorAllDatasetsFailed, audit.SeverityCritical,
			dErrors.Wrap(firstError(agg), dErrors.CodeServiceUnavailable, "no sanctions dataset could be screened"))
	}

	d := s.engine.Decide(agg.Candidates)
	failed := agg.Failed()

	s.auditor.Emit(ctx, &audit.ScreeningDecision{
		Header:         audit.Header{RequestID: requestID},
		UserID:         req.UserID,
		Context:        req.TransactionContext,
		Decision:       string(d.Decision),
		RiskLevel:      string(d.RiskLevel),
		TopScore:       audit.RoundScore(d.TopScore),
		TotalMatches:   len(agg.Candidates),
		Reasons:        d.Reasons,
		DatasetsFailed: failed,
	})
	s.metrics.ObserveDecision(string(d.Decision), string(d.RiskLevel), d.TopScore, len(failed) > 0)

	span.SetAttributes(
		attribute.String("sanctions.decision", string(d.Decision)),
		attribute.Float64("sanctions.top_score", d.TopScore),
		attribute.Int("sanctions.datasets_failed", len(failed)),
	)
	s.logger.InfoContext(ctx, "screening decided",
		"request_id", requestID,
		"user_id", req.UserID,
		"decision", d.Decision,
		"risk_level", d.RiskLevel,
		"top_score", d.TopScore,
		"total_matches", len(agg.Candidates),
		"datasets_failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return s.buildResult(requestID, now, req, d, agg), nil
}

// Reject audits a request refused before screening, such as a body that failed
// to decode or validate.
func (s *Service) Reject(ctx context.Context, err error) {
	requestID := s.requestID(ctx, Request{})
	s.auditor.Emit(ctx, &audit.ScreeningError{
		Header:       audit.Header{RequestID: requestID},
		ErrorType:    audit.ErrorValidation,
		ErrorMessage: err.Error(),
		Severity:     audit.SeverityWarning,
	})
	s.logger.InfoContext(ctx, "screening request rejected",
		"request_id", requestID,
		"error", err,
	)
}

// Ready reports whether the matcher can take screenings.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.gateway.Ready(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeServiceUnavailable, "sanctions matching service unavailable")
	}
	return nil
}

// Health reports service health. A failing matcher degrades, never fails,
// the health report.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:            HealthHealthy,
		MatcherStatus:     "ok",
		DatasetsAvailable: s.gateway.Datasets(),
		Timestamp:         requestcontext.Now(ctx).UTC(),
	}
	if err := s.gateway.Ready(ctx); err != nil {
		h.Status = HealthDegraded
		h.MatcherStatus = err.Error()
	}
	return h
}

// Thresholds returns the thresholds the engine decides with.
func (s *Service) Thresholds() decision.Thresholds {
	return s.engine.Thresholds()
}

func (s *Service) requestID(ctx context.Context, req Request) string {
	if req.RequestID != "" {
		return req.RequestID
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		return id
	}
	return s.newID()
}

// fail audits and logs a screening that ended without a decision and
// returns err unchanged.
func (s *Service) fail(ctx context.Context, requestID, errorType string, severity audit.Severity, err *dErrors.Error) error {
	s.auditor.Emit(ctx, &audit.ScreeningError{
		Header:       audit.Header{RequestID: requestID},
		ErrorType:    errorType,
		ErrorMessage: err.Error(),
		Severity:     severity,
	})
	s.metrics.IncrementFailure(errorType)
	s.logger.ErrorContext(ctx, "screening failed",
		"request_id", requestID,
		"error_type", errorType,
		"error", err,
	)
	return err
}

func (s *Service) buildResult(requestID string, now time.Time, req Request, d decision.ScreeningDecision, agg matcher.Aggregate) *Result {
	matches := agg.Candidates
	if len(matches) > s.maxMatches {
		matches = matches[:s.maxMatches]
	}

	datasetResults := make([]DatasetResult, 0, len(agg.Outcomes))
	for _, o := range agg.Outcomes {
		dr := DatasetResult{
			Dataset:        o.Dataset,
			Status:         o.Status,
			CandidateCount: o.CandidateCount,
			SkippedCount:   o.SkippedCount,
			Latency:        o.Latency,
			Cached:         o.Cached,
		}
		if o.Err != nil {
			dr.Error = string(matcher.CategoryOf(o.Err))
		}
		datasetResults = append(datasetResults, dr)
	}

	return &Result{
		RequestID:       requestID,
		Timestamp:       now,
		Decision:        d,
		Matches:         matches,
		DatasetsChecked: agg.Checked(),
		Metadata: Metadata{
			TotalMatchesFound:          len(agg.Candidates),
			MatchesReturned:            len(matches),
			Thresholds:                 s.engine.Thresholds(),
			InputFieldsProvided:        req.inputFields(),
			DatasetsFailed:             agg.Failed(),
			MalformedCandidatesSkipped: agg.Skipped(),
			DatasetResults:             datasetResults,
		},
	}
}

func firstError(agg matcher.Aggregate) error {
	for _, o := range agg.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return errors.New("no dataset answered")
}
