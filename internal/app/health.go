package app

import (
	"sync/atomic"

	"github.com/florianilch/cursor-gcp-connector/internal/proxy"
)

// Health tracks whether the connector accepts traffic. It starts out not ready
// and is flipped by App around the listener's lifetime. Safe for concurrent use.
type Health struct {
	ready atomic.Bool
}

var _ proxy.ReadinessChecker = (*Health)(nil)

// NewHealth returns a Health that reports not ready.
func NewHealth() *Health {
	return &Health{}
}

// SetReady updates the readiness state.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness state.
func (h *Health) IsReady() bool {
	return h.ready.Load()
}
