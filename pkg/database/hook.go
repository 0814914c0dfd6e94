package database

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/EcommerceGo/storefront/pkg/database"

var commandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "redis_command_duration_seconds",
		Help:    "Duration of Redis commands",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"command", "status"},
)

func init() {
	prometheus.MustRegister(commandDuration)
}

// RedisHook traces and times every Redis command. A redis.Nil reply is a
// miss, not an error.
type RedisHook struct {
	slowThreshold time.Duration
	logger        *slog.Logger
}

var _ redis.Hook = (*RedisHook)(nil)

// NewRedisHook creates a hook. Commands slower than slowThreshold are logged
// as warnings; zero disables slow command logging.
func NewRedisHook(slowThreshold time.Duration, logger *slog.Logger) *RedisHook {
	return &RedisHook{slowThreshold: slowThreshold, logger: logger}
}

// DialHook implements redis.Hook.
func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook implements redis.Hook.
func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, end := h.start(ctx, cmd.Name(), 1)
		err := next(ctx, cmd)
		end(cmd.Name(), err)
		return err
	}
}

// ProcessPipelineHook implements redis.Hook.
func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, end := h.start(ctx, "pipeline", len(cmds))
		err := next(ctx, cmds)
		end("pipeline", err)
		return err
	}
}

func (h *RedisHook) start(ctx context.Context, name string, size int) (context.Context, func(string, error)) {
	begin := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+strings.ToLower(name),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", name),
			attribute.Int("db.redis.commands", size),
		),
	)

	return ctx, func(command string, err error) {
		elapsed := time.Since(begin)
		status := "ok"
		if err != nil && !errors.Is(err, redis.Nil) {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		commandDuration.WithLabelValues(strings.ToLower(command), status).Observe(elapsed.Seconds())

		if h.slowThreshold > 0 && h.logger != nil && elapsed >= h.slowThreshold {
			h.logger.WarnContext(ctx, "slow redis command",
				slog.String("command", command),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
