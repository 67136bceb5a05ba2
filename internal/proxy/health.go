package proxy

import (
	"net/http"
	"time"
)

// ServiceName identifies this service in health responses.
const ServiceName = "cursor-gcp-connector"

// healthStatus is the body of GET /health.
type healthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// healthHandler answers health probes locally; they never reach the backend.
// Returns 200 "healthy" once the application is ready, 503 "starting" before.
func healthHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")

		status := healthStatus{
			Status:    "healthy",
			Service:   ServiceName,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		if checker != nil && !checker.IsReady() {
			status.Status = "starting"
			code = http.StatusServiceUnavailable
		}

		writeJSON(r.Context(), w, status, code)
	}
}
