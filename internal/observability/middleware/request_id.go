package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDContextKey is a context key for storing request IDs.
type RequestIDContextKey struct{}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey{}).(string)
	return id
}

// RequestIDGeneration takes the request ID from the client header, or generates
// one, and stores it in the request context. The header itself is left in place
// so the ID also reaches the backend.
func RequestIDGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = RequestID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		r = r.WithContext(context.WithValue(r.Context(), RequestIDContextKey{}, requestID))
		if r.Header.Get(RequestIDHeader) == "" {
			r.Header = r.Header.Clone()
			if r.Header == nil {
				r.Header = make(http.Header)
			}
			r.Header.Set(RequestIDHeader, requestID)
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDPropagation sets the X-Request-ID response header and adds the ID to
// the request log.
func RequestIDPropagation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := RequestID(r.Context()); requestID != "" {
			// Set early to ensure it's present during recovery scenarios
			w.Header().Set(RequestIDHeader, requestID)
			SetLogAttrs(r.Context(), slog.String("request_id", requestID))
		}

		next.ServeHTTP(w, r)
	})
}
