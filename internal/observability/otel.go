package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName is the OpenTelemetry scope of exported log records.
const instrumentationName = "github.com/florianilch/cursor-gcp-connector"

// Supported values for Options.Exporter. The OTLP exporters are configured through
// the standard OTEL_EXPORTER_OTLP_* environment variables.
const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
	ExporterStdout   = "stdout"
)

// newLoggerProvider creates a batching logger provider for the named exporter that
// drops records below level, and registers it globally.
func newLoggerProvider(ctx context.Context, exporter string, level slog.Level) (*sdklog.LoggerProvider, error) {
	var exp sdklog.Exporter
	var err error
	switch exporter {
	case ExporterOTLPGRPC:
		exp, err = otlploggrpc.New(ctx)
	case ExporterOTLPHTTP:
		exp, err = otlploghttp.New(ctx)
	case ExporterStdout:
		exp, err = stdoutlog.New()
	default:
		return nil, fmt.Errorf("unsupported log exporter %q (expected: %s, %s, %s)",
			exporter, ExporterOTLPGRPC, ExporterOTLPHTTP, ExporterStdout)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s log exporter: %w", exporter, err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), minSeverity(level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(provider)

	return provider, nil
}

// newOTelHandler bridges slog records into the given provider.
func newOTelHandler(provider *sdklog.LoggerProvider) slog.Handler {
	return otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
}

// minSeverity maps a slog level to the minimum exported severity.
func minSeverity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
