// ABOUTME: HTTP API handlers for servers, capabilities, API keys, permissions and audit
// ABOUTME: Maps store, catalog and grants errors onto JSON error responses

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/catalog"
	"github.com/2389/mcp-router/internal/dedupe"
	"github.com/2389/mcp-router/internal/grants"
	"github.com/2389/mcp-router/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// IdempotencyHeader lets clients retry a permission mutation safely.
const IdempotencyHeader = "Idempotency-Key"

// ServerResponse is the JSON form of a registered MCP server.
type ServerResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Transport   string            `json:"transport"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"`
	Enabled     bool              `json:"enabled"`
	Status      string            `json:"status"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	RefreshedAt *time.Time        `json:"refreshed_at,omitempty"`
}

// CreateServerRequest is the JSON body for POST /api/servers.
type CreateServerRequest struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Enabled   *bool             `json:"enabled,omitempty"`
}

// UpdateServerRequest is the JSON body for PATCH /api/servers/{id}.
// Absent fields are left unchanged.
type UpdateServerRequest struct {
	Name      *string            `json:"name,omitempty"`
	Transport *string            `json:"transport,omitempty"`
	Command   *string            `json:"command,omitempty"`
	Args      *[]string          `json:"args,omitempty"`
	Env       *map[string]string `json:"env,omitempty"`
	URL       *string            `json:"url,omitempty"`
	Enabled   *bool              `json:"enabled,omitempty"`
}

// RefreshResponse reports one server's discovery outcome.
type RefreshResponse struct {
	ServerID     string `json:"server_id"`
	ServerName   string `json:"server_name"`
	Capabilities int    `json:"capabilities"`
	Error        string `json:"error,omitempty"`
}

// CapabilityResponse is the JSON form of a discovered capability.
type CapabilityResponse struct {
	Identifier  string `json:"identifier"`
	Server      string `json:"server"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// SetCapabilityRequest is the JSON body for PATCH /api/servers/{id}/capabilities.
type SetCapabilityRequest struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// KeyResponse is the JSON form of an API key. Token is only set on creation.
type KeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Token      string     `json:"token,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// CreateKeyRequest is the JSON body for POST /api/keys.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// AuthorizeRequest is the JSON body for POST /api/authorize.
type AuthorizeRequest struct {
	Token      string `json:"token"`
	Identifier string `json:"identifier"`
}

// AuthorizeResponse answers whether the key may use the identifier.
type AuthorizeResponse struct {
	Allowed bool   `json:"allowed"`
	KeyID   string `json:"key_id,omitempty"`
}

// AuditEntryResponse is the JSON form of an audit log entry.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// cachedResponse is a permission mutation response kept for Idempotency-Key replays.
type cachedResponse struct {
	status int
	body   []byte
}

func toServerResponse(s *store.Server) ServerResponse {
	return ServerResponse{
		ID:          s.ID,
		Name:        s.Name,
		Transport:   string(s.Transport),
		Command:     s.Command,
		Args:        s.Args,
		Env:         s.Env,
		URL:         s.URL,
		Enabled:     s.Enabled,
		Status:      string(s.Status),
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		RefreshedAt: s.RefreshedAt,
	}
}

func toCapabilityResponse(c store.Capability, _ int) CapabilityResponse {
	return CapabilityResponse{
		Identifier:  c.Identifier(),
		Server:      c.ServerName,
		Kind:        string(c.Kind),
		Name:        c.Name,
		Description: c.Description,
		Enabled:     c.Enabled,
	}
}

func toKeyResponse(k *store.APIKey) KeyResponse {
	return KeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
	}
}

// sendJSON writes v as a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("writing response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// errorStatus maps a service error onto an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, catalog.ErrServerDisabled),
		errors.Is(err, dedupe.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, grants.ErrUnknownKey), errors.Is(err, grants.ErrKeyRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrDiscovery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendServiceError logs unexpected failures and writes the mapped status.
// Internal errors are not echoed to the client.
func (g *Gateway) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		g.sendJSONError(w, status, "internal error")
		return
	}
	g.sendJSONError(w, status, err.Error())
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func (g *Gateway) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// audit records an admin action; failures are logged, never surfaced.
func (g *Gateway) audit(ctx context.Context, action store.AuditAction, targetType, targetID string, detail map[string]any) {
	err := g.store.AppendAuditLog(ctx, &store.AuditEntry{
		Actor:      auth.Actor(ctx),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		g.logger.Error("appending audit log", "action", action, "error", err)
	}
}

// handleListServers handles GET /api/servers.
func (g *Gateway) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := g.store.ListServers(r.Context())
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, lo.Map(servers, func(s *store.Server, _ int) ServerResponse {
		return toServerResponse(s)
	}))
}

// handleCreateServer handles POST /api/servers.
func (g *Gateway) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req CreateServerRequest
	if !g.decodeJSON(w, r, &req) {
		return
	}

	srv := &store.Server{
		Name:      req.Name,
		Transport: store.Transport(req.Transport),
		Command:   req.Command,
		Args:      req.Args,
		Env:       req.Env,
		URL:       req.URL,
		Enabled:   req.Enabled == nil || *req.Enabled,
	}
	if err := g.store.CreateServer(r.Context(), srv); err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.audit(r.Context(), store.AuditCreateServer, "server", srv.ID, map[string]any{
		"name":      srv.Name,
		"transport": string(srv.Transport),
	})
	g.logger.Info("server registered", "server", srv.Name, "transport", srv.Transport)
	g.sendJSON(w, http.StatusCreated, toServerResponse(srv))
}

// handleGetServer handles GET /api/servers/{id}.
func (g *Gateway) handleGetServer(w http.ResponseWriter, r *http.Request) {
	srv, err := g.store.GetServer(r.Context(), r.PathValue("id"))
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, toServerResponse(srv))
}

// handleUpdateServer handles PATCH /api/servers/{id}.
func (g *Gateway) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var req UpdateServerRequest
	if !g.decodeJSON(w, r, &req) {
		return
	}

	srv, err := g.store.GetServer(r.Context(), r.PathValue("id"))
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	changed := []string{}
	if req.Name != nil {
		srv.Name = *req.Name
		changed = append(changed, "name")
	}
	if req.Transport != nil {
		srv.Transport = store.Transport(*req.Transport)
		changed = append(changed, "transport")
	}
	if req.Command != nil {
		srv.Command = *req.Command
		changed = append(changed, "command")
	}
	if req.Args != nil {
		srv.Args = *req.Args
		changed = append(changed, "args")
	}
	if req.Env != nil {
		srv.Env = *req.Env
		changed = append(changed, "env")
	}
	if req.URL != nil {
		srv.URL = *req.URL
		changed = append(changed, "url")
	}
	if req.Enabled != nil {
		srv.Enabled = *req.Enabled
		changed = append(changed, "enabled")
	}

	if err := g.store.UpdateServer(r.Context(), srv); err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.audit(r.Context(), store.AuditUpdateServer, "server", srv.ID, map[string]any{"fields": changed})
	g.sendJSON(w, http.StatusOK, toServerResponse(srv))
}

// handleDeleteServer handles DELETE /api/servers/{id}.
// Grants naming the server are kept; they match nothing until it returns.
func (g *Gateway) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	srv, err := g.store.GetServer(r.Context(), id)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	if err := g.store.DeleteServer(r.Context(), id); err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.audit(r.Context(), store.AuditDeleteServer, "server", id, map[string]any{"name": srv.Name})
	g.logger.Info("server deleted", "server", srv.Name)
	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshServer handles POST /api/servers/{id}/refresh.
func (g *Gateway) handleRefreshServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := g.catalog.Refresh(r.Context(), id)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	srv, err := g.store.GetServer(r.Context(), id)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, RefreshResponse{ServerID: srv.ID, ServerName: srv.Name, Capabilities: n})
}

// handleRefreshAll handles POST /api/refresh.
// Always 200; per-server failures are reported in the body.
func (g *Gateway) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	results, err := g.catalog.RefreshAll(r.Context())
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, lo.Map(results, func(res catalog.RefreshResult, _ int) RefreshResponse {
		out := RefreshResponse{ServerID: res.ServerID, ServerName: res.ServerName, Capabilities: res.Capabilities}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		return out
	}))
}

// handleListCapabilities handles GET /api/servers/{id}/capabilities.
func (g *Gateway) handleListCapabilities(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := g.store.GetServer(r.Context(), id); err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	caps, err := g.store.ListCapabilities(r.Context(), store.CapabilityFilter{ServerID: id})
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, lo.Map(caps, toCapabilityResponse))
}

// handleSetCapability handles PATCH /api/servers/{id}/capabilities.
func (g *Gateway) handleSetCapability(w http.ResponseWriter, r *http.Request) {
	var req SetCapabilityRequest
	if !g.decodeJSON(w, r, &req) {
		return
	}

	kind := store.CapabilityKind(req.Kind)
	switch kind {
	case store.KindTool, store.KindResource, store.KindPrompt:
	default:
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown capability kind %q", req.Kind))
		return
	}
	if req.Name == "" {
		g.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	id := r.PathValue("id")
	if err := g.store.SetCapabilityEnabled(r.Context(), id, kind, req.Name, req.Enabled); err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	g.audit(r.Context(), store.AuditToggleCap, "capability", id, map[string]any{
		"kind":    req.Kind,
		"name":    req.Name,
		"enabled": req.Enabled,
	})
	g.sendJSON(w, http.StatusOK, req)
}

// handleCatalog handles GET /api/catalog, the identifiers keys can be granted.
func (g *Gateway) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ids, err := g.catalog.Identifiers(r.Context())
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, map[string]any{"identifiers": ids, "total": len(ids)})
}

// handleListKeys handles GET /api/keys.
func (g *Gateway) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := g.store.ListAPIKeys(r.Context())
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, lo.Map(keys, func(k *store.APIKey, _ int) KeyResponse {
		return toKeyResponse(k)
	}))
}

// handleCreateKey handles POST /api/keys. The token is only ever returned here.
func (g *Gateway) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if !g.decodeJSON(w, r, &req) {
		return
	}

	key, token, err := g.grants.CreateKey(r.Context(), req.Name)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}

	resp := toKeyResponse(key)
	resp.Token = token
	g.sendJSON(w, http.StatusCreated, resp)
}

// handleRevokeKey handles DELETE /api/keys/{id}.
func (g *Gateway) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if err := g.grants.RevokeKey(r.Context(), r.PathValue("id")); err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleViewPermissions handles GET /api/keys/{id}/permissions?q=.
func (g *Gateway) handleViewPermissions(w http.ResponseWriter, r *http.Request) {
	view, err := g.grants.View(r.Context(), r.PathValue("id"), r.URL.Query().Get("q"))
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, view)
}

// handleApplyPermissions handles POST /api/keys/{id}/permissions.
// A repeated Idempotency-Key for the same key replays the first response.
// Requests sharing a key while the first is still running wait for its result.
func (g *Gateway) handleApplyPermissions(w http.ResponseWriter, r *http.Request) {
	keyID := r.PathValue("id")

	idem := r.Header.Get(IdempotencyHeader)
	cacheKey := keyID + ":" + idem
	if idem != "" {
		if cached, ok := g.idempotency.Get(cacheKey); ok {
			g.replay(w, keyID, cached)
			return
		}
	}

	var m grants.Mutation
	if !g.decodeJSON(w, r, &m) {
		return
	}

	if idem == "" {
		resp, err := g.applyMutation(r.Context(), keyID, m)
		if err != nil {
			g.sendServiceError(w, r, err)
			return
		}
		g.writeCached(w, resp)
		return
	}

	// Followers must not fail because the leader's client went away.
	ctx := context.WithoutCancel(r.Context())
	executed := false
	v, err, _ := g.applyFlight.Do(cacheKey, func() (any, error) {
		if cached, ok := g.idempotency.Get(cacheKey); ok {
			return cached, nil
		}
		executed = true
		resp, err := g.applyMutation(ctx, keyID, m)
		if err != nil {
			return nil, err
		}
		g.idempotency.Put(cacheKey, resp)
		return resp, nil
	})
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	resp := v.(cachedResponse)
	if !executed {
		g.replay(w, keyID, resp)
		return
	}
	g.writeCached(w, resp)
}

// applyMutation runs m and renders the resulting view.
func (g *Gateway) applyMutation(ctx context.Context, keyID string, m grants.Mutation) (cachedResponse, error) {
	view, err := g.grants.Apply(ctx, keyID, m)
	if err != nil {
		return cachedResponse{}, err
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(view); err != nil {
		return cachedResponse{}, fmt.Errorf("encoding view: %w", err)
	}
	return cachedResponse{status: http.StatusOK, body: buf.Bytes()}, nil
}

func (g *Gateway) replay(w http.ResponseWriter, keyID string, resp cachedResponse) {
	g.logger.Debug("replaying idempotent request", "key", keyID)
	w.Header().Set("Idempotent-Replayed", "true")
	g.writeCached(w, resp)
}

func (g *Gateway) writeCached(w http.ResponseWriter, resp cachedResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}

// handleAuthorize handles POST /api/authorize. The API key in the body is
// the credential; unknown and revoked keys get 401, missing grants get allowed=false.
func (g *Gateway) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !g.decodeJSON(w, r, &req) {
		return
	}
	if req.Identifier == "" {
		g.sendJSONError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	key, allowed, err := g.grants.Authorize(r.Context(), req.Token, req.Identifier)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, AuthorizeResponse{Allowed: allowed, KeyID: key.ID})
}

// handleAudit handles GET /api/audit with optional action, target_type,
// target_id, since (RFC 3339) and limit filters.
func (g *Gateway) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.AuditFilter

	if v := q.Get("action"); v != "" {
		action := store.AuditAction(v)
		f.Action = &action
	}
	if v := q.Get("target_type"); v != "" {
		f.TargetType = &v
	}
	if v := q.Get("target_id"); v != "" {
		f.TargetID = &v
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = &since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	entries, err := g.store.ListAuditLog(r.Context(), f)
	if err != nil {
		g.sendServiceError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, lo.Map(entries, func(e store.AuditEntry, _ int) AuditEntryResponse {
		return AuditEntryResponse{
			ID:         e.ID,
			Actor:      e.Actor,
			Action:     string(e.Action),
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Timestamp:  e.Timestamp,
			Detail:     e.Detail,
		}
	}))
}
