package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Options configures the process-wide logging setup.
type Options struct {
	Level  slog.Level
	Format string // text or json
	// File, if set, receives a copy of every log line (append mode).
	File string
	// Exporter, if set, exports logs via OpenTelemetry: otlp-grpc, otlp-http or stdout.
	Exporter string
}

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger and the W3C trace context
// propagator. The returned function must be called before exit.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	var closers []func(context.Context) error

	var out io.Writer = os.Stdout
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closers = append(closers, func(context.Context) error { return f.Close() })
	}

	handler, err := newStdoutHandler(out, opts.Level, opts.Format)
	if err != nil {
		return nil, errors.Join(err, closeAll(ctx, closers))
	}

	if opts.Exporter != "" {
		provider, err := newLoggerProvider(ctx, opts.Exporter, opts.Level)
		if err != nil {
			return nil, errors.Join(err, closeAll(ctx, closers))
		}
		handler = newFanoutHandler(handler, newOTelHandler(provider))
		closers = append(closers, provider.Shutdown)
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return closeAll(ctx, closers)
	}, nil
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}

// closeAll runs closers in reverse order and joins their errors.
func closeAll(ctx context.Context, closers []func(context.Context) error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
