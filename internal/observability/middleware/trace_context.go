package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceContextExtraction extracts W3C trace context from Traceparent/Tracestate
// headers into the request context and adds trace_id/span_id to the request log.
//
// No spans are created. The headers themselves are forwarded to the backend
// untouched, so the backend joins the same trace.
//
// Must run inside Logging for the request log attributes to be recorded.
func TraceContextExtraction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		// Works without an active span
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			// SetLogAttrs is no-op if Logging middleware does not exist.
			SetLogAttrs(ctx,
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
