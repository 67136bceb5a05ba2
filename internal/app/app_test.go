package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestHealth(t *testing.T) {
	h := NewHealth()
	if h.IsReady() {
		t.Fatal("new Health should not be ready")
	}
	h.SetReady(true)
	if !h.IsReady() {
		t.Fatal("Health should be ready after SetReady(true)")
	}
	h.SetReady(false)
	if h.IsReady() {
		t.Fatal("Health should not be ready after SetReady(false)")
	}
}

func TestNew_InvalidBackend(t *testing.T) {
	cfg, err := Load("", environ(), nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Backend.URL = "ftp://example.com"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for non-http backend URL")
	}
}

func TestApp_StartServesUntilCancelled(t *testing.T) {
	var backendCalls atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer backend.Close()

	cfg, err := Load("", environ(), map[string]any{
		"server.host": "127.0.0.1",
		"server.port": freePort(t),
		"backend.url": backend.URL,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	base := "http://" + cfg.LocalAddr()
	deadline := time.Now().Add(5 * time.Second)
	for !application.Health().IsReady() {
		if time.Now().After(deadline) {
			t.Fatal("app did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var status struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || status.Status != "healthy" || status.Service != "cursor-gcp-connector" {
		t.Errorf("health = %d %+v", resp.StatusCode, status)
	}

	resp, err = http.Post(base+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST status = %d, want 200", resp.StatusCode)
	}
	if got := backendCalls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1 (health must stay local)", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
	if application.Health().IsReady() {
		t.Error("app still ready after shutdown")
	}
}

func TestApp_StartFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg, err := Load("", environ(), map[string]any{
		"server.host": "127.0.0.1",
		"server.port": ln.Addr().(*net.TCPAddr).Port,
	})
	if err != nil {
		t.Fatal(err)
	}
	application, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := application.Start(context.Background()); err == nil {
		t.Fatal("expected startup error on busy port")
	}
	if application.Health().IsReady() {
		t.Error("app reports ready after failed startup")
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "starting", status: http.StatusServiceUnavailable, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("probe path = %q, want /health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := Probe(context.Background(), srv.Client(), srv.URL+"/")
			if (err != nil) != tt.wantErr {
				t.Errorf("Probe() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProbeAll_ReportsEachService(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	// Nothing listens on the connector port.
	cfg, err := Load("", environ(), map[string]any{
		"server.port": freePort(t),
		"backend.url": backend.URL,
	})
	if err != nil {
		t.Fatal(err)
	}

	results := ProbeAll(context.Background(), http.DefaultClient, cfg)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "connector" || results[0].OK() {
		t.Errorf("connector result = %+v, want failure", results[0])
	}
	if results[1].Name != "backend" || !results[1].OK() {
		t.Errorf("backend result = %+v, want success", results[1])
	}
	if want := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port); results[0].URL != want {
		t.Errorf("connector URL = %q, want %q", results[0].URL, want)
	}
}
