package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockBackendTransport returns a canned backend response without network calls.
type mockBackendTransport struct {
	responseBody   string
	responseStatus int
}

func (m *mockBackendTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	return &http.Response{
		StatusCode:    m.responseStatus,
		Body:          io.NopCloser(strings.NewReader(m.responseBody)),
		ContentLength: int64(len(m.responseBody)),
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Request:       req,
	}, nil
}

// mockReadinessChecker always reports ready status.
type mockReadinessChecker struct{}

func (mockReadinessChecker) IsReady() bool {
	return true
}

// exchange is a recorded client request and the backend's answer to its rewrite.
type exchange struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}

// loadExchange reads a fixture from testdata.
func loadExchange(tb testing.TB, name string) exchange {
	tb.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		tb.Fatalf("Failed to read fixture %s: %v", name, err)
	}

	var ex exchange
	if err := json.Unmarshal(data, &ex); err != nil {
		tb.Fatalf("Failed to parse fixture %s: %v", name, err)
	}
	return ex
}

// setupProxyWithMockTransport creates a Proxy with full middleware stack but mocked backend.
// Suppresses logging to isolate benchmark measurements from I/O overhead.
func setupProxyWithMockTransport(b *testing.B, transport http.RoundTripper) *Proxy {
	b.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	previous := slog.Default()
	slog.SetDefault(discard)
	b.Cleanup(func() { slog.SetDefault(previous) })

	proxy, err := New("http://backend.invalid", mockReadinessChecker{},
		WithTransport(transport),
		WithLogger(discard),
	)
	if err != nil {
		b.Fatalf("Failed to create proxy: %v", err)
	}

	return proxy
}

var benchmarkScenarios = []struct {
	name    string
	fixture string
}{
	{name: "multi_turn", fixture: "multi_turn.json"},
	{name: "tool_use", fixture: "tool_use.json"},
	{name: "mixed_content", fixture: "mixed_content.json"},
}

// BenchmarkProxy measures end-to-end latency of a rewritten POST.
// Includes routing, middleware, translation and response buffering.
// Excludes network latency to the backend (mocked transport).
func BenchmarkProxy(b *testing.B) {
	for _, s := range benchmarkScenarios {
		ex := loadExchange(b, s.fixture)

		b.Run(s.name, func(b *testing.B) {
			proxy := setupProxyWithMockTransport(b, &mockBackendTransport{
				responseBody:   string(ex.Response),
				responseStatus: http.StatusOK,
			})
			server := httptest.NewServer(proxy)
			defer server.Close()

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				resp, err := http.Post(
					server.URL+"/v1/chat/completions",
					"application/json",
					strings.NewReader(string(ex.Request)),
				)
				if err != nil {
					b.Fatalf("Request failed: %v", err)
				}

				if resp.StatusCode != http.StatusOK {
					b.Fatalf("Unexpected status code: %d", resp.StatusCode)
				}

				_, err = io.Copy(io.Discard, resp.Body)
				if err != nil {
					b.Fatalf("Failed to read response: %v", err)
				}
				_ = resp.Body.Close()
			}
		})
	}
}

// BenchmarkProxyConcurrentThroughput measures concurrent throughput using
// b.RunParallel. Reports allocations per request under concurrent execution.
func BenchmarkProxyConcurrentThroughput(b *testing.B) {
	ex := loadExchange(b, "tool_use.json")

	proxy := setupProxyWithMockTransport(b, &mockBackendTransport{
		responseBody:   string(ex.Response),
		responseStatus: http.StatusOK,
	})
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := http.Post(
				server.URL+"/v1/chat/completions",
				"application/json",
				strings.NewReader(string(ex.Request)),
			)
			if err != nil {
				b.Errorf("Request failed: %v", err)
				return
			}

			if resp.StatusCode != http.StatusOK {
				b.Errorf("Unexpected status code: %d", resp.StatusCode)
			}

			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	})
}

// BenchmarkProxyHealth measures the locally answered health probe.
func BenchmarkProxyHealth(b *testing.B) {
	proxy := setupProxyWithMockTransport(b, &mockBackendTransport{responseStatus: http.StatusInternalServerError})

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		rec := httptest.NewRecorder()
		proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			b.Fatalf("Unexpected status code: %d", rec.Code)
		}
	}
}
