package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// probeTimeout bounds a single health probe.
const probeTimeout = 5 * time.Second

// ProbeResult is the outcome of probing one service.
type ProbeResult struct {
	Name string
	URL  string
	Err  error
}

// OK reports whether the probe succeeded.
func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// Probe issues GET <baseURL>/health and fails unless the service answers 2xx.
func Probe(ctx context.Context, client *http.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	target := strings.TrimRight(baseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: unexpected status %d", target, resp.StatusCode)
	}
	return nil
}

// ProbeAll probes the connector itself and its backend concurrently. Results are
// returned in a fixed order: connector first, backend second.
func ProbeAll(ctx context.Context, client *http.Client, cfg *Config) []ProbeResult {
	results := []ProbeResult{
		{Name: "connector", URL: "http://" + cfg.LocalAddr()},
		{Name: "backend", URL: cfg.Backend.URL},
	}

	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			results[i].Err = Probe(ctx, client, results[i].URL)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
