// ABOUTME: Permission service binding the catalog, the store and the reconciler
// ABOUTME: Serves views, applies mutations with auditing, and authorizes API key calls

package grants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/dedupe"
	"github.com/2389/mcp-router/internal/permission"
	"github.com/2389/mcp-router/internal/store"
)

// Authorization errors
var (
	ErrUnknownKey = errors.New("unknown api key")
	ErrKeyRevoked = errors.New("api key revoked")
)

// CatalogSource supplies the current permission catalog.
type CatalogSource interface {
	Identifiers(ctx context.Context) ([]string, error)
}

// Service implements the permission editor and router-side enforcement.
type Service struct {
	store    store.Store
	catalog  CatalogSource
	inflight *dedupe.Supersede
	logger   *slog.Logger

	// applyMu serializes read-modify-write of granted sets.
	applyMu sync.Mutex
}

// NewService creates a permission service.
func NewService(s store.Store, catalog CatalogSource, logger *slog.Logger) *Service {
	return &Service{
		store:    s,
		catalog:  catalog,
		inflight: dedupe.NewSupersede(),
		logger:   logger.With("component", "grants"),
	}
}

// View returns the key's permission state over the catalog filtered by search.
// A newer View or Apply for the same key cancels this one, in which case the
// returned error satisfies errors.Is(err, dedupe.ErrSuperseded).
func (s *Service) View(ctx context.Context, keyID, search string) (*View, error) {
	ctx, done := s.inflight.Begin(ctx, keyID)
	defer done()

	if _, err := s.store.GetAPIKey(ctx, keyID); err != nil {
		return nil, s.viewErr(ctx, fmt.Errorf("loading key: %w", err))
	}
	catalog, err := s.catalog.Identifiers(ctx)
	if err != nil {
		return nil, s.viewErr(ctx, fmt.Errorf("loading catalog: %w", err))
	}
	catalog = exactIdentifiers(catalog)
	granted, err := s.store.GetGrants(ctx, keyID)
	if err != nil {
		return nil, s.viewErr(ctx, fmt.Errorf("loading grants: %w", err))
	}
	if ctx.Err() != nil {
		return nil, s.viewErr(ctx, ctx.Err())
	}

	return BuildView(keyID, search, catalog, granted), nil
}

func (s *Service) viewErr(ctx context.Context, err error) error {
	if dedupe.IsSuperseded(ctx) {
		s.logger.Debug("view superseded")
		return fmt.Errorf("%w: %w", dedupe.ErrSuperseded, err)
	}
	return err
}

// Apply changes the key's granted set, persists it, and returns the refreshed
// view for the mutation's query. An unchanged set is not rewritten.
func (s *Service) Apply(ctx context.Context, keyID string, m Mutation) (*View, error) {
	s.inflight.Cancel(keyID)

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if _, err := s.store.GetAPIKey(ctx, keyID); err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}
	catalog, err := s.catalog.Identifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	catalog = exactIdentifiers(catalog)
	before, err := s.store.GetGrants(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("loading grants: %w", err)
	}

	after, err := apply(m, catalog, before)
	if err != nil {
		return nil, err
	}

	if !after.Equal(before) {
		if err := s.store.ReplaceGrants(ctx, keyID, after); err != nil {
			return nil, fmt.Errorf("saving grants: %w", err)
		}
		s.audit(ctx, &store.AuditEntry{
			Actor:      auth.Actor(ctx),
			Action:     store.AuditChangeGrants,
			TargetType: "key",
			TargetID:   keyID,
			Detail: map[string]any{
				"op":         string(m.Op),
				"scope":      string(m.Scope),
				"group":      m.Group,
				"q":          m.Query,
				"identifier": m.Identifier,
				"before":     before.Len(),
				"after":      after.Len(),
			},
		})
		s.logger.Info("grants changed", "key", keyID, "op", m.Op, "before", before.Len(), "after", after.Len())
	}

	return BuildView(keyID, m.Query, catalog, after), nil
}

// exactIdentifiers drops catalog entries containing '*'. Selecting one would
// store a pattern covering identifiers the editor never showed.
func exactIdentifiers(ids []string) []string {
	return lo.Reject(ids, func(id string, _ int) bool { return permission.IsWildcard(id) })
}

// Authorize decides whether the API key presented as token may use identifier.
// Unknown and revoked keys are reported as errors; a key that simply lacks the
// grant returns false with a nil error.
func (s *Service) Authorize(ctx context.Context, token, identifier string) (*store.APIKey, bool, error) {
	if token == "" {
		return nil, false, ErrUnknownKey
	}
	key, err := s.store.GetAPIKeyByTokenHash(ctx, HashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrUnknownKey
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading key: %w", err)
	}
	if key.Revoked() {
		return key, false, ErrKeyRevoked
	}

	granted, err := s.store.GetGrants(ctx, key.ID)
	if err != nil {
		return nil, false, fmt.Errorf("loading grants: %w", err)
	}

	if !permission.IsChecked(identifier, granted) {
		s.audit(ctx, &store.AuditEntry{
			Actor:      key.Name,
			Action:     store.AuditDenyAuthorize,
			TargetType: "key",
			TargetID:   key.ID,
			Detail:     map[string]any{"identifier": identifier},
		})
		return key, false, nil
	}

	if err := s.store.TouchAPIKey(ctx, key.ID); err != nil {
		s.logger.Warn("touching api key", "key", key.ID, "error", err)
	}
	return key, true, nil
}

// audit records an entry; failures are logged, never surfaced.
func (s *Service) audit(ctx context.Context, e *store.AuditEntry) {
	if err := s.store.AppendAuditLog(ctx, e); err != nil {
		s.logger.Error("appending audit log", "action", e.Action, "error", err)
	}
}
