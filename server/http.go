package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/health"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/resilience"
)

const (
	mcpPath         = "/mcp"
	healthTimeout   = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// NewHandler builds the HTTP handler of the streamable-http transport.
func NewHandler(a *app.App, opts Options) http.Handler {
	opts.defaults()
	cfg := opts.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(cfg.CORSOrigins)))
	}

	health.Mount(r, newAggregator(a))
	if cfg.Telemetry.MetricsExporter == "prometheus" {
		r.Handle("/metrics", promhttp.Handler())
	}

	server := newMCPServer(a, opts, nil)
	var h http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})

	if store := keyStore(a, cfg); store != nil {
		verifier := auth.NewVerifier(auth.NewIdentityResolver(opts.Logger), store, auth.VerifierConfig{
			CacheTTL: cfg.TokenCacheTTL,
		})
		if km := a.KeyManager(); km != nil {
			km.OnChange(verifier.Purge)
		}
		h = mcpauth.RequireBearerToken(verifier.Verify, nil)(h)
	}
	r.Handle(mcpPath, h)

	return r
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Mcp-Session-Id",
			"Mcp-Protocol-Version",
			auth.AgentHeader,
		},
		ExposedHeaders: []string{"Mcp-Session-Id", "WWW-Authenticate"},
		MaxAge:         300,
	}
}

// newAggregator backs the health probes: the application lifecycle, the
// upstream knowledge base and process memory.
func newAggregator(a *app.App) *health.Aggregator {
	agg := health.NewAggregator(healthTimeout)
	agg.Register(health.NewReadyChecker("lifecycle", a.Ready))
	agg.Register(health.NewPingChecker("upstream", func(ctx context.Context) (bool, error) {
		return a.Service().Debug().Healthy(ctx)
	}))
	if b, ok := a.Service().(breakerSource); ok {
		agg.Register(circuitChecker(b.Breaker()))
	}
	agg.Register(health.NewMemoryChecker(0))
	return agg
}

func serveHTTP(ctx context.Context, a *app.App, opts Options) error {
	srv := &http.Server{
		Addr:              opts.Config.Addr(),
		Handler:           NewHandler(a, opts),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		opts.Logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	opts.Logger.Info(ctx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type breakerSource interface {
	Breaker() *resilience.CircuitBreaker
}

// circuitChecker degrades readiness while upstream calls are being
// rejected without reaching OpenViking.
func circuitChecker(cb *resilience.CircuitBreaker) health.Checker {
	return health.NewCheckerFunc("upstream_circuit", func(context.Context) health.Result {
		state, failures := cb.Snapshot()
		details := map[string]any{"state": state.String(), "consecutive_failures": failures}
		if state == resilience.StateClosed {
			return health.Healthy("circuit closed").WithDetails(details)
		}
		return health.Degraded("circuit " + state.String()).WithDetails(details)
	})
}
