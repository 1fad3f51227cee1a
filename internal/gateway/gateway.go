// ABOUTME: Gateway orchestrator that wires the store, catalog, grants and HTTP server
// ABOUTME: Seeds configured servers, runs the capability refresher, and manages lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/catalog"
	"github.com/2389/mcp-router/internal/config"
	"github.com/2389/mcp-router/internal/dedupe"
	"github.com/2389/mcp-router/internal/grants"
	"github.com/2389/mcp-router/internal/store"
)

// Idempotency-Key replay window and capacity.
const (
	idempotencyTTL     = 10 * time.Minute
	idempotencyMaxSize = 10_000
)

// Gateway owns the router's components and the HTTP server in front of them.
type Gateway struct {
	config     *config.Config
	store      store.Store
	catalog    *catalog.Service
	grants     *grants.Service
	httpServer *http.Server
	logger     *slog.Logger

	// idempotency replays responses for retried permission mutations;
	// applyFlight runs concurrent retries of one mutation once
	idempotency *dedupe.Cache[cachedResponse]
	applyFlight singleflight.Group

	// verifier is nil when no jwt_secret is configured
	verifier *auth.JWTVerifier
}

// initStore opens the SQLite store named by config, or MCP_ROUTER_DB_PATH when set.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("MCP_ROUTER_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway backed by SQLite and live MCP discovery.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	discoverer := catalog.NewMCPDiscoverer(version, nil, logger.With("component", "discovery"))
	g, err := newGateway(cfg, s, discoverer, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return g, nil
}

// newGateway wires components around an existing store and discoverer.
func newGateway(cfg *config.Config, s store.Store, d catalog.Discoverer, logger *slog.Logger) (*Gateway, error) {
	catalogSvc := catalog.NewService(s, d, catalog.Options{
		DiscoveryTimeout: cfg.Catalog.DiscoveryTimeout,
		MaxParallel:      cfg.Catalog.MaxParallel,
	}, logger)

	g := &Gateway{
		config:      cfg,
		store:       s,
		catalog:     catalogSvc,
		grants:      grants.NewService(s, catalogSvc, logger),
		logger:      logger.With("component", "gateway"),
		idempotency: dedupe.New[cachedResponse](idempotencyTTL, idempotencyMaxSize),
	}

	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			g.idempotency.Close()
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		g.verifier = verifier
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	// The API key in the body is the credential here, not an admin token.
	mux.HandleFunc("POST /api/authorize", g.handleAuthorize)

	g.registerAdminRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g, nil
}

// registerAdminRoutes registers the admin API, behind JWT auth when a secret is configured.
func (g *Gateway) registerAdminRoutes(mux *http.ServeMux) {
	wrap := func(h http.HandlerFunc) http.Handler { return h }
	if g.verifier != nil {
		authMiddleware := auth.HTTPAuthMiddleware(g.verifier, g.logger)
		wrap = func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
		g.logger.Info("HTTP auth middleware enabled")
	} else {
		g.logger.Warn("HTTP auth disabled - no jwt_secret configured")
	}

	routes := map[string]http.HandlerFunc{
		"GET /api/servers":                    g.handleListServers,
		"POST /api/servers":                   g.handleCreateServer,
		"GET /api/servers/{id}":               g.handleGetServer,
		"PATCH /api/servers/{id}":             g.handleUpdateServer,
		"DELETE /api/servers/{id}":            g.handleDeleteServer,
		"POST /api/servers/{id}/refresh":      g.handleRefreshServer,
		"GET /api/servers/{id}/capabilities":  g.handleListCapabilities,
		"PATCH /api/servers/{id}/capabilities": g.handleSetCapability,
		"POST /api/refresh":                   g.handleRefreshAll,
		"GET /api/keys":                       g.handleListKeys,
		"POST /api/keys":                      g.handleCreateKey,
		"DELETE /api/keys/{id}":               g.handleRevokeKey,
		"GET /api/keys/{id}/permissions":      g.handleViewPermissions,
		"POST /api/keys/{id}/permissions":     g.handleApplyPermissions,
		"GET /api/catalog":                    g.handleCatalog,
		"GET /api/audit":                      g.handleAudit,
	}
	for pattern, h := range routes {
		mux.Handle(pattern, wrap(h))
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// SeedServers registers configured servers that are not in the store yet.
// Existing servers with the same name are left untouched.
func (g *Gateway) SeedServers(ctx context.Context) error {
	for _, s := range g.config.Servers {
		_, err := g.store.GetServerByName(ctx, s.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("looking up server %s: %w", s.Name, err)
		}

		srv := &store.Server{
			Name:      s.Name,
			Transport: store.Transport(s.Transport),
			Command:   s.Command,
			Args:      s.Args,
			Env:       s.Env,
			URL:       s.URL,
			Enabled:   !s.Disabled,
		}
		if err := g.store.CreateServer(ctx, srv); err != nil {
			return fmt.Errorf("seeding server %s: %w", s.Name, err)
		}
		g.audit(ctx, store.AuditCreateServer, "server", srv.ID, map[string]any{"name": srv.Name, "source": "config"})
		g.logger.Info("seeded server from config", "server", srv.Name, "transport", srv.Transport)
	}
	return nil
}

// startServer serves HTTP in a goroutine, returning the error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// Run seeds servers, starts the refresher and the HTTP server, and blocks
// until ctx is canceled or the server fails.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.SeedServers(ctx); err != nil {
		return errors.Join(err, g.gracefulShutdown())
	}

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return errors.Join(fmt.Errorf("listening on HTTP address: %w", err), g.gracefulShutdown())
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	refreshDone := make(chan struct{})
	if interval := g.config.Catalog.RefreshInterval; interval > 0 {
		go func() {
			defer close(refreshDone)
			g.catalog.Run(refreshCtx, interval)
		}()
	} else {
		g.logger.Warn("capability refresher disabled", "refresh_interval", interval)
		close(refreshDone)
	}

	errCh := g.startServer(ln)

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	stopRefresh()
	<-refreshDone

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout,
// since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())
	g.idempotency.Close()

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the store answers and at least one server is connected.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	servers, err := g.store.ListServers(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}

	connected := 0
	for _, s := range servers {
		if s.Enabled && s.Status == store.ServerStatusConnected {
			connected++
		}
	}
	if connected == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no servers connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d servers)", connected)
}
