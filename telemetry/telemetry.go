package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "resumechat"

// InitLogger installs a JSON slog logger as the default. When logFile is set
// the output is also written to a rotated file.
func InitLogger(level, logFile string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	cleanup := func() {}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotated)
		cleanup = func() { rotated.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)

	return logger, cleanup, nil
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitMetrics installs a meter provider exporting to w every interval.
func InitMetrics(ctx context.Context, w io.Writer, interval time.Duration) (func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown meter provider", "error", err)
		}
	}, nil
}

// Recorder counts document loads and chat replies by outcome and failure kind.
type Recorder struct {
	loads   metric.Int64Counter
	replies metric.Int64Counter
	latency metric.Float64Histogram
}

// NewRecorder builds counters on the given provider, or on the global one if mp is nil.
func NewRecorder(mp metric.MeterProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(serviceName)

	r := &Recorder{}
	var err error
	if r.loads, err = meter.Int64Counter("resume.loads",
		metric.WithDescription("Document load attempts by state and failure kind")); err != nil {
		slog.Warn("failed to create counter", "name", "resume.loads", "error", err)
	}
	if r.replies, err = meter.Int64Counter("chat.replies",
		metric.WithDescription("Chat replies by outcome and failure kind")); err != nil {
		slog.Warn("failed to create counter", "name", "chat.replies", "error", err)
	}
	if r.latency, err = meter.Float64Histogram("chat.reply.duration",
		metric.WithDescription("Chat reply duration in milliseconds")); err != nil {
		slog.Warn("failed to create histogram", "name", "chat.reply.duration", "error", err)
	}
	return r
}

func (r *Recorder) Load(ctx context.Context, state, kind string) {
	if r == nil || r.loads == nil {
		return
	}
	r.loads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.String("kind", kind),
	))
}

func (r *Recorder) Reply(ctx context.Context, outcome, kind string, took time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("kind", kind),
	)
	if r.replies != nil {
		r.replies.Add(ctx, 1, attrs)
	}
	if r.latency != nil {
		r.latency.Record(ctx, float64(took.Milliseconds()), attrs)
	}
}
