// ABOUTME: Catalog service that refreshes server capabilities and builds the permission catalog
// ABOUTME: Coalesces concurrent refreshes and fans out over all servers with a bounded errgroup

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/2389/mcp-router/internal/store"
)

// Refresh errors
var (
	ErrServerDisabled = errors.New("server is disabled")
	ErrDiscovery      = errors.New("discovery failed")
)

// Options tunes discovery.
type Options struct {
	DiscoveryTimeout time.Duration
	MaxParallel      int
}

// RefreshResult reports the outcome of refreshing one server.
type RefreshResult struct {
	ServerID     string
	ServerName   string
	Capabilities int
	Err          error
}

// Service owns capability discovery and exposes the enabled catalog.
type Service struct {
	store      store.Store
	discoverer Discoverer
	opts       Options
	logger     *slog.Logger
	flight     singleflight.Group
}

// NewService creates a catalog service.
func NewService(s store.Store, d Discoverer, opts Options, logger *slog.Logger) *Service {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Service{
		store:      s,
		discoverer: d,
		opts:       opts,
		logger:     logger.With("component", "catalog"),
	}
}

// Refresh rediscovers one server and persists its capabilities. On failure the
// previous capabilities are kept and the server is marked as errored.
// Concurrent calls for the same server share a single discovery.
func (s *Service) Refresh(ctx context.Context, serverID string) (int, error) {
	ch := s.flight.DoChan(serverID, func() (any, error) {
		// Detached so one caller giving up does not fail the others waiting on it.
		return s.refresh(context.WithoutCancel(ctx), serverID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		n, _ := res.Val.(int)
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *Service) refresh(ctx context.Context, serverID string) (int, error) {
	srv, err := s.store.GetServer(ctx, serverID)
	if err != nil {
		return 0, fmt.Errorf("loading server: %w", err)
	}
	if !srv.Enabled {
		return 0, fmt.Errorf("%w: %s", ErrServerDisabled, srv.Name)
	}

	if s.opts.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DiscoveryTimeout)
		defer cancel()
	}

	start := time.Now()
	caps, err := s.discoverer.Discover(ctx, srv)
	if err != nil {
		s.logger.Warn("discovery failed", "server", srv.Name, "error", err)
		if serr := s.store.SetServerStatus(context.WithoutCancel(ctx), srv.ID, store.ServerStatusError, err.Error()); serr != nil {
			s.logger.Error("recording server status", "server", srv.Name, "error", serr)
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrDiscovery, srv.Name, err)
	}
	caps = dropInvalid(s.logger, srv.Name, caps)

	if err := s.store.ReplaceCapabilities(ctx, srv.ID, caps); err != nil {
		return 0, fmt.Errorf("saving capabilities: %w", err)
	}
	if err := s.store.SetServerStatus(ctx, srv.ID, store.ServerStatusConnected, ""); err != nil {
		return 0, fmt.Errorf("recording server status: %w", err)
	}

	s.logger.Info("refreshed server",
		"server", srv.Name,
		"capabilities", len(caps),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return len(caps), nil
}

// RefreshAll refreshes every enabled server, at most MaxParallel at a time.
// Per-server failures are reported in the results and never abort the rest.
func (s *Service) RefreshAll(ctx context.Context) ([]RefreshResult, error) {
	servers, err := s.store.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}
	enabled := lo.Filter(servers, func(srv *store.Server, _ int) bool { return srv.Enabled })

	results := make([]RefreshResult, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for i, srv := range enabled {
		g.Go(func() error {
			n, err := s.Refresh(gctx, srv.ID)
			results[i] = RefreshResult{ServerID: srv.ID, ServerName: srv.Name, Capabilities: n, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := lo.CountBy(results, func(r RefreshResult) bool { return r.Err != nil })
	s.logger.Info("refresh complete", "servers", len(results), "failed", failed)
	return results, nil
}

// Identifiers returns the permission catalog: one identifier per enabled
// capability of every enabled server, ordered by server name, kind and name.
// Capabilities of different kinds that share a name collapse into one entry.
func (s *Service) Identifiers(ctx context.Context) ([]string, error) {
	caps, err := s.store.ListCapabilities(ctx, store.CapabilityFilter{OnlyEnabled: true})
	if err != nil {
		return nil, fmt.Errorf("listing capabilities: %w", err)
	}
	return lo.Uniq(lo.Map(caps, func(c store.Capability, _ int) string { return c.Identifier() })), nil
}

// Run refreshes all servers immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("starting capability refresher", "interval", interval)
	if _, err := s.RefreshAll(ctx); err != nil {
		s.logger.Error("refreshing servers", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("capability refresher stopped")
			return
		case <-ticker.C:
			if _, err := s.RefreshAll(ctx); err != nil {
				s.logger.Error("refreshing servers", "error", err)
			}
		}
	}
}
