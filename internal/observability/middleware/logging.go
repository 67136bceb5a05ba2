package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// healthPath is probed by supervisors every few seconds; successful probes are not logged.
const healthPath = "/health"

// Logging logs HTTP requests with method, path, status, and duration.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS.Concise(true),

		// Request bodies carry whole conversations; they are logged by the relay
		// in debug mode only.
		LogRequestHeaders:  []string{"Content-Type", "User-Agent"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == healthPath && respStatus == http.StatusOK
		},

		RecoverPanics: false, // proxy.Recovery handles panics
	})
}

// SetLogAttrs sets attributes on the request log.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
