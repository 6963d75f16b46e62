package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "booking-scheduler-backend"

type AppMetrics struct {
	authFlowCounter              metric.Int64Counter
	authReqDuration              metric.Float64Histogram
	accessTokenValidationCounter metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	abuseGuardCounter            metric.Int64Counter
	abuseGuardCooldown           metric.Float64Histogram
	mailDeliveryCounter          metric.Int64Counter
	mailDeliveryDuration         metric.Float64Histogram
	schedulingConflictCounter    metric.Int64Counter
	bookingEventCounter          metric.Int64Counter
	orderEventCounter            metric.Int64Counter
	lookupCacheCounter           metric.Int64Counter
	avatarStorageCounter         metric.Int64Counter
	repositoryOpCounter          metric.Int64Counter
	queryClauseSkippedCounter    metric.Int64Counter
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
	dbStartupCounter             metric.Int64Counter
	dbStartupDuration            metric.Float64Histogram
	toolCommandCounter           metric.Int64Counter
	toolCommandDuration          metric.Float64Histogram
	loadgenRequestCounter        metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	views := make([]sdkmetric.View, 0, 3)
	for _, name := range []string{"auth.request.duration", "mail.delivery.duration", "health.check.duration"} {
		views = append(views, sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationBuckets}},
		))
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(views...),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

// instrumentSet creates instruments and keeps the first error.
type instrumentSet struct {
	meter metric.Meter
	err   error
}

func (s *instrumentSet) counter(name, desc string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("create counter %s: %w", name, err)
	}
	return c
}

func (s *instrumentSet) seconds(name, desc string) metric.Float64Histogram {
	h, err := s.meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("create histogram %s: %w", name, err)
	}
	return h
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	s := &instrumentSet{meter: meter}
	m := &AppMetrics{
		authFlowCounter:              s.counter("auth.flow.events", "Auth flow outcomes by flow"),
		authReqDuration:              s.seconds("auth.request.duration", "Auth flow latency in seconds"),
		accessTokenValidationCounter: s.counter("auth.access_token.validation.events", "Bearer token validation outcomes"),
		rateLimitDecisionCounter:     s.counter("http.rate_limit.decisions", "Rate limiter decisions"),
		abuseGuardCounter:            s.counter("auth.abuse_guard.events", "Login and recovery abuse guard events"),
		abuseGuardCooldown:           s.seconds("auth.abuse_guard.cooldown", "Cooldown imposed by the abuse guard"),
		mailDeliveryCounter:          s.counter("mail.delivery.events", "Transactional mail delivery outcomes"),
		mailDeliveryDuration:         s.seconds("mail.delivery.duration", "Transactional mail delivery latency"),
		schedulingConflictCounter:    s.counter("scheduling.conflicts", "Rejected slot and booking writes by reason"),
		bookingEventCounter:          s.counter("booking.events", "Booking lifecycle events"),
		orderEventCounter:            s.counter("order.events", "Order lifecycle events"),
		lookupCacheCounter:           s.counter("lookup.cache.events", "Lookup cache hits and misses"),
		avatarStorageCounter:         s.counter("storage.avatar.events", "Avatar object storage events"),
		repositoryOpCounter:          s.counter("repository.operations", "Repository operations by entity"),
		queryClauseSkippedCounter:    s.counter("query.clause.skipped", "Table-state clauses ignored by the query builder"),
		healthCheckResultCounter:     s.counter("health.check.results", "Readiness check results"),
		healthCheckDuration:          s.seconds("health.check.duration", "Readiness check latency"),
		dbStartupCounter:             s.counter("database.startup.events", "Database startup phase outcomes"),
		dbStartupDuration:            s.seconds("database.startup.duration", "Database startup phase latency"),
		toolCommandCounter:           s.counter("tool.command.runs", "CLI tool command runs"),
		toolCommandDuration:          s.seconds("tool.command.duration", "CLI tool command latency"),
		loadgenRequestCounter:        s.counter("loadgen.requests", "Load generator requests by status class"),
	}
	if s.err != nil {
		return nil, s.err
	}
	return m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	return m
}

func RecordAuthFlowEvent(ctx context.Context, flow, outcome string) {
	if m := current(); m != nil {
		m.authFlowCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthRequestDuration(ctx context.Context, flow, outcome string, d time.Duration) {
	if m := current(); m != nil {
		m.authReqDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAccessTokenValidation(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, decision, backend string) {
	if m := current(); m != nil {
		m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("decision", decision),
			attribute.String("backend", backend),
		))
	}
}

func RecordAuthAbuseGuardEvent(ctx context.Context, scope, action, outcome string) {
	if m := current(); m != nil {
		m.abuseGuardCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAuthAbuseCooldown(ctx context.Context, scope string, d time.Duration) {
	if d <= 0 {
		return
	}
	if m := current(); m != nil {
		m.abuseGuardCooldown.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
	}
}

func RecordMailDelivery(ctx context.Context, template, outcome string, d time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.mailDeliveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", template),
		attribute.String("outcome", outcome),
	))
	m.mailDeliveryDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("template", template)))
}

func RecordSchedulingConflict(ctx context.Context, reason string) {
	if m := current(); m != nil {
		m.schedulingConflictCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func RecordBookingEvent(ctx context.Context, action, outcome string) {
	if m := current(); m != nil {
		m.bookingEventCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordOrderEvent(ctx context.Context, action, outcome string) {
	if m := current(); m != nil {
		m.orderEventCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordLookupCacheEvent(ctx context.Context, kind, outcome string) {
	if m := current(); m != nil {
		m.lookupCacheCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordAvatarStorageEvent(ctx context.Context, action, outcome string) {
	if m := current(); m != nil {
		m.avatarStorageCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRepositoryOperation(ctx context.Context, entity, op, result string) {
	if m := current(); m != nil {
		m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("op", op),
			attribute.String("result", result),
		))
	}
}

func RecordQueryClauseSkipped(ctx context.Context, entity, reason string) {
	if m := current(); m != nil {
		m.queryClauseSkippedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("reason", reason),
		))
	}
}

func RecordHealthCheckResult(ctx context.Context, check, status string) {
	if m := current(); m != nil {
		m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("status", status),
		))
	}
}

func RecordHealthCheckDuration(ctx context.Context, check string, d time.Duration) {
	if m := current(); m != nil {
		m.healthCheckDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("check", check)))
	}
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	if m := current(); m != nil {
		m.dbStartupCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, d time.Duration) {
	if m := current(); m != nil {
		m.dbStartupDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
	}
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	if m := current(); m != nil {
		m.toolCommandCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, d time.Duration) {
	if m := current(); m != nil {
		m.toolCommandDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordLoadgenRequest(ctx context.Context, statusClass, profile string) {
	if m := current(); m != nil {
		m.loadgenRequestCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status_class", statusClass),
			attribute.String("profile", profile),
		))
	}
}
