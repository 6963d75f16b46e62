package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs command metrics on client once per process.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(meterName), client)
		if err != nil {
			logger.Warn("redis observability instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis observability instrumentation enabled")
	})
}

type redisMetricsHook struct {
	commands metric.Int64Counter
	latency  metric.Float64Histogram
	keyspace metric.Int64Counter
}

func newRedisMetricsHook(meter metric.Meter, client redis.UniversalClient) (*redisMetricsHook, error) {
	s := &instrumentSet{meter: meter}
	hook := &redisMetricsHook{
		commands: s.counter("redis.command.total", "Redis commands by status"),
		latency:  s.seconds("redis.command.duration", "Redis command latency"),
		keyspace: s.counter("redis.keyspace.lookups", "Redis read lookups by hit or miss"),
	}
	if s.err != nil {
		return nil, s.err
	}

	inUse, err := meter.Int64ObservableGauge("redis.pool.in_use", metric.WithDescription("Redis connections checked out of the pool"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if stats := client.PoolStats(); stats != nil {
			o.ObserveInt64(inUse, int64(stats.TotalConns)-int64(stats.IdleConns))
		}
		return nil
	}, inUse)
	if err != nil {
		return nil, err
	}
	return hook, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd, err)
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", strings.ToLower(cmd.Name())),
		))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.observe(ctx, cmd, cmd.Err())
		}
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("command", "pipeline")))
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, cmd redis.Cmder, err error) {
	command := strings.ToLower(cmd.Name())
	h.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", redisCommandStatus(err)),
	))
	if outcome, ok := keyspaceOutcome(command, err); ok {
		h.keyspace.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("outcome", outcome),
		))
	}
}

func redisCommandStatus(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "error"
	}
}

func keyspaceOutcome(command string, err error) (string, bool) {
	switch command {
	case "get", "hget", "getex":
	default:
		return "", false
	}
	switch {
	case err == nil:
		return "hit", true
	case errors.Is(err, redis.Nil):
		return "miss", true
	default:
		return "", false
	}
}
