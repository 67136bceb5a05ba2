package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/florianilch/cursor-gcp-connector/internal/translate"
)

const (
	// debugBodyLimit caps request bodies written to debug logs.
	debugBodyLimit = 2000
	// errorBodyLimit caps backend error bodies written to logs.
	errorBodyLimit = 500
)

// translateFunc rewrites a client request body for the backend.
type translateFunc func(body []byte) ([]byte, translate.Stats, error)

// relay forwards requests to the backend and relays the responses.
// Both directions are fully buffered.
type relay struct {
	backend     string
	client      *http.Client
	translate   translateFunc
	postTimeout time.Duration
	getTimeout  time.Duration
	debug       bool
}

// translated handles requests whose JSON body is rewritten before forwarding.
func (rl *relay) translated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONError(ctx, w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			return
		}
		slog.ErrorContext(ctx, "failed to read request body", "error", err)
		writeJSONError(ctx, w, http.StatusBadRequest, fmt.Sprintf("read request body: %v", err))
		return
	}

	if rl.debug {
		slog.DebugContext(ctx, "incoming request", "body", truncate(body, debugBodyLimit))
	}

	rewritten, stats, err := rl.safeTranslate(body)
	if err != nil {
		slog.ErrorContext(ctx, "request translation failed", "error", err)
		writeJSONError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	if stats.MalformedInput {
		slog.WarnContext(ctx, "request body is not a JSON object, forwarding empty request", "body_bytes", len(body))
	}
	if len(stats.RemovedFields) > 0 {
		slog.InfoContext(ctx, "removed unsupported parameters", "fields", stats.RemovedFields)
	}
	if stats.Changed() {
		slog.InfoContext(ctx, "rewrote request", "translation", stats)
	}
	if rl.debug {
		slog.DebugContext(ctx, "outgoing request", "body", truncate(rewritten, debugBodyLimit))
	}

	rl.forward(w, r, rewritten, rl.postTimeout)
}

// passthrough forwards the request without a body and without rewriting.
func (rl *relay) passthrough(w http.ResponseWriter, r *http.Request) {
	rl.forward(w, r, nil, rl.getTimeout)
}

// safeTranslate runs the translator and converts a panic into an error.
func (rl *relay) safeTranslate(body []byte) (out []byte, stats translate.Stats, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("translate request: panic: %v", rec)
		}
	}()

	out, stats, err = rl.translate(body)
	if err != nil {
		return nil, stats, fmt.Errorf("translate request: %w", err)
	}
	return out, stats, nil
}

// forward sends the request to the backend and relays the response. A nil body
// forwards no body. The backend call is bounded by timeout.
func (rl *relay) forward(w http.ResponseWriter, r *http.Request, body []byte, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	target := rl.backend + r.URL.RequestURI()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create backend request", "error", err)
		writeJSONError(r.Context(), w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header = outboundHeaders(r.Header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		rl.writeBackendError(r.Context(), w, target, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		rl.writeBackendError(r.Context(), w, target, err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.ErrorContext(ctx, "backend returned error",
			"status", resp.StatusCode,
			"body", truncate(respBody, errorBodyLimit),
		)
	}

	copyResponseHeaders(w.Header(), resp.Header, len(respBody))
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		slog.DebugContext(ctx, "failed to write response", "error", err)
	}
}

// writeBackendError reports a backend that could not be reached or did not answer
// in time: 504 for timeouts, 502 otherwise.
func (rl *relay) writeBackendError(ctx context.Context, w http.ResponseWriter, target string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	slog.ErrorContext(ctx, "backend request failed", "target", target, "status", status, "error", err)
	writeJSONError(ctx, w, status, err.Error())
}

// truncate returns at most limit bytes of b as a string.
func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit])
}
