package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/florianilch/cursor-gcp-connector/internal/observability/middleware"
	"github.com/florianilch/cursor-gcp-connector/internal/translate"
)

const (
	defaultPostTimeout     = 5 * time.Minute
	defaultGetTimeout      = 30 * time.Second
	defaultMaxRequestBytes = 32 << 20
)

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy is the HTTP front of the connector: it answers health probes, rewrites
// POST bodies for the backend and relays everything else unchanged.
type Proxy struct {
	handler http.Handler
	server  *http.Server
	relay   *relay
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

type options struct {
	transport       http.RoundTripper
	postTimeout     time.Duration
	getTimeout      time.Duration
	maxRequestBytes int64
	debug           bool
	logger          *slog.Logger
}

// Option configures a Proxy.
type Option func(*options)

// WithTransport sets the transport used for backend requests.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithTimeouts bounds backend calls for rewritten (POST) and passthrough (GET) requests.
func WithTimeouts(post, get time.Duration) Option {
	return func(o *options) {
		if post > 0 {
			o.postTimeout = post
		}
		if get > 0 {
			o.getTimeout = get
		}
	}
}

// WithMaxRequestBytes limits the size of inbound request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRequestBytes = n
		}
	}
}

// WithDebug enables logging of request bodies.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithLogger sets the logger used for access logs. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Proxy forwarding to backendURL.
func New(backendURL string, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", backendURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: missing host", backendURL)
	}

	o := options{
		transport:       http.DefaultTransport,
		postTimeout:     defaultPostTimeout,
		getTimeout:      defaultGetTimeout,
		maxRequestBytes: defaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	rl := &relay{
		backend: strings.TrimRight(backendURL, "/"),
		client: &http.Client{
			Transport: o.transport,
			// Client.Timeout = 0: each call is bounded by its own context deadline
		},
		translate:   translate.Translate,
		postTimeout: o.postTimeout,
		getTimeout:  o.getTimeout,
		debug:       o.debug,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", healthHandler(health))
	mux.HandleFunc("POST /", rl.translated)
	mux.HandleFunc("GET /", rl.passthrough)

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.Logging(o.logger),
		middleware.TraceContextExtraction,
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(o.maxRequestBytes),
	)

	return &Proxy{
		handler: handler,
		relay:   rl,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Responses are written only after the backend answered.
			WriteTimeout: o.postTimeout + 30*time.Second,
			IdleTimeout:  2 * time.Minute,
		},
	}, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. Listen errors are returned
// directly; errors after startup are delivered on the returned channel, which is
// closed when the server stops.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String(), "backend", p.relay.backend)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx
// is done.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
