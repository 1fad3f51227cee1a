// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows service and API tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mcp-router/internal/permission"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	servers map[string]*Server        // keyed by server ID
	caps    map[string][]Capability   // keyed by server ID
	keys    map[string]*APIKey        // keyed by key ID
	grants  map[string]permission.Set // keyed by key ID
	audit   []AuditEntry
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		servers: make(map[string]*Server),
		caps:    make(map[string][]Capability),
		keys:    make(map[string]*APIKey),
		grants:  make(map[string]permission.Set),
	}
}

func (m *MockStore) CreateServer(ctx context.Context, srv *Server) error {
	if err := ValidateServer(srv); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.servers {
		if existing.Name == srv.Name {
			return fmt.Errorf("%w: server %q", ErrDuplicate, srv.Name)
		}
	}
	if srv.ID == "" {
		srv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if srv.CreatedAt.IsZero() {
		srv.CreatedAt = now
	}
	srv.UpdatedAt = now
	if srv.Status == "" {
		srv.Status = ServerStatusUnknown
	}

	cp := *srv
	m.servers[cp.ID] = &cp
	return nil
}

func (m *MockStore) GetServer(ctx context.Context, id string) (*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	srv, ok := m.servers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *srv
	return &cp, nil
}

func (m *MockStore) GetServerByName(ctx context.Context, name string) (*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, srv := range m.servers {
		if srv.Name == name {
			cp := *srv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListServers(ctx context.Context) ([]*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Server, 0, len(m.servers))
	for _, srv := range m.servers {
		cp := *srv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) UpdateServer(ctx context.Context, srv *Server) error {
	if err := ValidateServer(srv); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.servers[srv.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.servers {
		if id != srv.ID && other.Name == srv.Name {
			return fmt.Errorf("%w: server %q", ErrDuplicate, srv.Name)
		}
	}
	srv.UpdatedAt = time.Now().UTC()
	cp := *srv
	cp.Status = existing.Status
	cp.LastError = existing.LastError
	cp.RefreshedAt = existing.RefreshedAt
	cp.CreatedAt = existing.CreatedAt
	m.servers[srv.ID] = &cp
	return nil
}

func (m *MockStore) DeleteServer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[id]; !ok {
		return ErrNotFound
	}
	delete(m.servers, id)
	delete(m.caps, id)
	return nil
}

func (m *MockStore) SetServerStatus(ctx context.Context, id string, status ServerStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	srv, ok := m.servers[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	srv.Status = status
	srv.LastError = lastError
	srv.RefreshedAt = &now
	return nil
}

func (m *MockStore) ReplaceCapabilities(ctx context.Context, serverID string, caps []Capability) error {
	if err := validateCapabilities(caps); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[serverID]; !ok {
		return ErrNotFound
	}
	disabled := make(map[string]bool)
	for _, c := range m.caps[serverID] {
		if !c.Enabled {
			disabled[string(c.Kind)+"/"+c.Name] = true
		}
	}

	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		c.ServerID = serverID
		c.Enabled = !disabled[string(c.Kind)+"/"+c.Name]
		out = append(out, c)
	}
	m.caps[serverID] = out
	return nil
}

func (m *MockStore) ListCapabilities(ctx context.Context, f CapabilityFilter) ([]Capability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Capability{}
	for serverID, caps := range m.caps {
		if f.ServerID != "" && serverID != f.ServerID {
			continue
		}
		srv := m.servers[serverID]
		if f.OnlyEnabled && !srv.Enabled {
			continue
		}
		for _, c := range caps {
			if f.OnlyEnabled && !c.Enabled {
				continue
			}
			c.ServerName = srv.Name
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServerName != out[j].ServerName {
			return out[i].ServerName < out[j].ServerName
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MockStore) SetCapabilityEnabled(ctx context.Context, serverID string, kind CapabilityKind, name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.caps[serverID] {
		if c.Kind == kind && c.Name == name {
			m.caps[serverID][i].Enabled = enabled
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if key.Name == "" || key.TokenHash == "" {
		return fmt.Errorf("%w: key name and token hash are required", ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.keys {
		if k.TokenHash == key.TokenHash {
			return fmt.Errorf("%w: api key", ErrDuplicate)
		}
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	cp := *key
	m.keys[cp.ID] = &cp
	return nil
}

func (m *MockStore) GetAPIKey(ctx context.Context, id string) (*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *MockStore) GetAPIKeyByTokenHash(ctx context.Context, hash string) (*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, k := range m.keys {
		if k.TokenHash == hash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		cp := *k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockStore) RevokeAPIKey(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	if k.RevokedAt == nil {
		now := time.Now().UTC()
		k.RevokedAt = &now
	}
	return nil
}

func (m *MockStore) TouchAPIKey(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if k, ok := m.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (m *MockStore) GetGrants(ctx context.Context, keyID string) (permission.Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.keys[keyID]; !ok {
		return nil, ErrNotFound
	}
	return m.grants[keyID].Clone(), nil
}

func (m *MockStore) ReplaceGrants(ctx context.Context, keyID string, granted permission.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[keyID]; !ok {
		return ErrNotFound
	}
	m.grants[keyID] = granted.Clone()
	return nil
}

func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, *e)
	return nil
}

func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.TargetType != nil && e.TargetType != *f.TargetType {
			continue
		}
		if f.TargetID != nil && e.TargetID != *f.TargetID {
			continue
		}
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		out = append(out, e)
		if len(out) == normalizeAuditLimit(f.Limit) {
			break
		}
	}
	return out, nil
}

func (m *MockStore) Close() error {
	return nil
}
