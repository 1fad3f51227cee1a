// ABOUTME: Store interface and data types for mcp-router persistence
// ABOUTME: Defines servers, capabilities, API keys, grants and the audit log

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/mcp-router/internal/permission"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique field (server name, key token) collides
var ErrDuplicate = errors.New("already exists")

// ErrInvalid is returned when an entity fails validation before it is written
var ErrInvalid = errors.New("invalid")

// Transport names how the router reaches an MCP server
type Transport string

const (
	TransportStdio Transport = "stdio" // spawn Command with Args
	TransportHTTP  Transport = "http"  // streamable HTTP at URL
	TransportSSE   Transport = "sse"   // legacy SSE at URL
)

// ServerStatus is the result of the most recent discovery attempt
type ServerStatus string

const (
	ServerStatusUnknown   ServerStatus = "unknown"
	ServerStatusConnected ServerStatus = "connected"
	ServerStatusError     ServerStatus = "error"
)

// Server is a registered MCP server. Name is the identifier prefix for every
// capability it exposes, so it may not contain the "__" separator.
type Server struct {
	ID          string
	Name        string
	Transport   Transport
	Command     string
	Args        []string
	Env         map[string]string
	URL         string
	Enabled     bool
	Status      ServerStatus
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RefreshedAt *time.Time
}

// CapabilityKind distinguishes tools, resources and prompts
type CapabilityKind string

const (
	KindTool     CapabilityKind = "tool"
	KindResource CapabilityKind = "resource"
	KindPrompt   CapabilityKind = "prompt"
)

// Capability is one tool, resource or prompt discovered on a server
type Capability struct {
	ServerID    string
	ServerName  string // filled on reads
	Kind        CapabilityKind
	Name        string
	Description string
	Enabled     bool
}

// Identifier returns the permission identifier "<server>__<name>".
func (c Capability) Identifier() string {
	return permission.Identifier(c.ServerName, c.Name)
}

// CapabilityFilter narrows ListCapabilities
type CapabilityFilter struct {
	ServerID    string // empty for all servers
	OnlyEnabled bool   // skip disabled capabilities and capabilities of disabled servers
}

// APIKey is a credential that callers present to the router. Only the hash of
// the token is stored; Prefix is kept for display.
type APIKey struct {
	ID         string
	Name       string
	TokenHash  string
	Prefix     string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// Revoked reports whether the key has been revoked.
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Store defines persistence for the router
type Store interface {
	// Servers
	CreateServer(ctx context.Context, srv *Server) error
	GetServer(ctx context.Context, id string) (*Server, error)
	GetServerByName(ctx context.Context, name string) (*Server, error)
	ListServers(ctx context.Context) ([]*Server, error)
	UpdateServer(ctx context.Context, srv *Server) error
	DeleteServer(ctx context.Context, id string) error
	SetServerStatus(ctx context.Context, id string, status ServerStatus, lastError string) error

	// Capabilities
	ReplaceCapabilities(ctx context.Context, serverID string, caps []Capability) error
	ListCapabilities(ctx context.Context, f CapabilityFilter) ([]Capability, error)
	SetCapabilityEnabled(ctx context.Context, serverID string, kind CapabilityKind, name string, enabled bool) error

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKey(ctx context.Context, id string) (*APIKey, error)
	GetAPIKeyByTokenHash(ctx context.Context, hash string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, id string) error

	// Grants
	GetGrants(ctx context.Context, keyID string) (permission.Set, error)
	ReplaceGrants(ctx context.Context, keyID string, granted permission.Set) error

	// Audit
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	Close() error
}
