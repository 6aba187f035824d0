package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sanctions-gateway/internal/audit"
	"sanctions-gateway/internal/decision"
	"sanctions-gateway/internal/matcher"
	"sanctions-gateway/internal/platform/config"
	"sanctions-gateway/internal/platform/httpserver"
	"sanctions-gateway/internal/platform/kafka"
	"sanctions-gateway/internal/platform/logger"
	"sanctions-gateway/internal/platform/metrics"
	"sanctions-gateway/internal/platform/redis"
	"sanctions-gateway/internal/screening"
	screeningHandler "sanctions-gateway/internal/screening/handler"
	screeningMetrics "sanctions-gateway/internal/screening/metrics"
	httptransport "sanctions-gateway/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sanctions-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	engine, err := decision.NewEngine(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("decision engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.Service.Name, cfg.Service.Version)

	publisher, err := buildAuditTrail(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("audit trail close failed", "error", err)
		}
	}()

	mm := matcher.NewMetrics(m.Registry)
	clientOpts := []matcher.ClientOption{
		matcher.WithMetrics(mm),
		matcher.WithLogger(log),
	}
	redisClient, err := redis.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		clientOpts = append(clientOpts, matcher.WithCache(matcher.NewRedisCache(redisClient.Client, cfg.Cache.TTL)))
		log.Info("matcher response cache enabled", "ttl", cfg.Cache.TTL)
	}

	client := matcher.NewClient(cfg.Matcher, clientOpts...)
	gateway := matcher.NewGateway(client, cfg.Matcher.Datasets, publisher,
		matcher.WithGatewayLogger(log),
		matcher.WithGatewayMetrics(mm),
		matcher.WithMaxConcurrency(cfg.Matcher.MaxConcurrency),
	)

	sm := screeningMetrics.New(m.Registry)
	service := screening.New(gateway, engine, publisher,
		screening.WithLogger(log),
		screening.WithMetrics(sm),
		screening.WithMaxMatches(cfg.Response.MaxMatches),
		screening.WithReadinessCheck(cfg.Matcher.ReadinessCheck),
		screening.WithRequestTimeout(cfg.Server.RequestTimeout),
	)

	router := httptransport.NewRouter(
		httptransport.Info{Name: cfg.Service.Name, Version: cfg.Service.Version},
		screeningHandler.New(service, log, sm),
		m,
		log,
	)
	srv := httpserver.New(cfg.Server, router)

	log.Info("starting sanctions gateway",
		"addr", cfg.Server.Addr,
		"version", cfg.Service.Version,
		"matcher", cfg.Matcher.BaseURL,
		"datasets", cfg.Matcher.Datasets,
		"thresholds", cfg.Thresholds,
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildAuditTrail writes to the rotated audit file and, when brokers are
// configured, to the audit topic as well.
func buildAuditTrail(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *slog.Logger) (*audit.Publisher, error) {
	fileSink, err := audit.NewFileSink(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	sinks := []audit.Sink{fileSink}

	producer, err := kafka.NewProducer(ctx, cfg.Audit.Kafka)
	if err != nil {
		_ = fileSink.Close()
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if producer != nil {
		if err := producer.EnsureTopic(ctx, 1); err != nil {
			log.Warn("audit topic not ensured", "topic", producer.Topic(), "error", err)
		}
		sinks = append(sinks, audit.NewKafkaSink(producer, producer.Topic()))
		log.Info("audit topic sink enabled", "topic", producer.Topic())
	}

	return audit.NewPublisher(audit.NewMultiSink(sinks...),
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(m.Registry)),
		audit.WithBufferSize(cfg.Audit.BufferSize),
	), nil
}
