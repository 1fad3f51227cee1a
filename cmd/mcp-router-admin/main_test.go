// ABOUTME: Tests for mcp-router-admin argument parsing, config and commands
// ABOUTME: Commands run against an httptest router stub that records requests

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-router/internal/gateway"
	"github.com/2389/mcp-router/internal/grants"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MCP_ROUTER_URL", "")
	t.Setenv("MCP_ROUTER_TOKEN", "")

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, defaultRouterURL, cfg.URL)
		assert.Empty(t, cfg.Token)
	})

	t.Run("file with env expansion", func(t *testing.T) {
		t.Setenv("ADMIN_JWT", "secret-token")
		path := filepath.Join(t.TempDir(), "admin.toml")
		require.NoError(t, os.WriteFile(path, []byte("url = \"https://router.example.com/\"\ntoken = \"${ADMIN_JWT}\"\n"), 0600))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://router.example.com", cfg.URL)
		assert.Equal(t, "secret-token", cfg.Token)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "admin.toml")
		require.NoError(t, os.WriteFile(path, []byte("url = \"http://a:1\"\ntoken = \"file\"\n"), 0600))
		t.Setenv("MCP_ROUTER_URL", "http://b:2")
		t.Setenv("MCP_ROUTER_TOKEN", "env")

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "http://b:2", cfg.URL)
		assert.Equal(t, "env", cfg.Token)
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "admin.toml")
		require.NoError(t, os.WriteFile(path, []byte("url = \"ftp://router\"\n"), 0600))
		_, err := loadConfig(path)
		assert.ErrorContains(t, err, "http or https")

		require.NoError(t, os.WriteFile(path, []byte("url = [\n"), 0600))
		_, err = loadConfig(path)
		assert.ErrorContains(t, err, "parsing")
	})
}

func TestParseServerFlags(t *testing.T) {
	req, err := parseServerFlags([]string{"files", "--command", "mcp-files", "--arg", "/srv", "--arg", "-r", "--env", "DEBUG=1"})
	require.NoError(t, err)
	assert.Equal(t, "files", req.Name)
	assert.Equal(t, "stdio", req.Transport)
	assert.Equal(t, []string{"/srv", "-r"}, req.Args)
	assert.Equal(t, map[string]string{"DEBUG": "1"}, req.Env)
	assert.Nil(t, req.Enabled)

	req, err = parseServerFlags([]string{"docs", "--url", "http://localhost:9000/mcp", "--disabled"})
	require.NoError(t, err)
	assert.Equal(t, "http", req.Transport, "a url implies the http transport")
	require.NotNil(t, req.Enabled)
	assert.False(t, *req.Enabled)

	for _, args := range [][]string{
		{},
		{"--command", "x"},
		{"files", "--command"},
		{"files", "--env", "NOEQUALS"},
		{"files", "--bogus", "x"},
	} {
		_, err := parseServerFlags(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestParsePermsArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		action  string
		want    grants.Mutation
		wantErr string
	}{
		{"default show", []string{"laptop"}, "show", grants.Mutation{}, ""},
		{"show with query", []string{"laptop", "--q", "weather"}, "show", grants.Mutation{Query: "weather"}, ""},
		{"select all", []string{"laptop", "all"}, "all", grants.Mutation{Op: grants.OpSelectAll}, ""},
		{"filtered none", []string{"laptop", "none", "--q=alert"}, "none",
			grants.Mutation{Op: grants.OpSelectNone, Scope: grants.ScopeFiltered, Query: "alert"}, ""},
		{"group invert", []string{"laptop", "invert", "--group", "weather"}, "invert",
			grants.Mutation{Op: grants.OpInvert, Scope: grants.ScopeGroup, Group: "weather"}, ""},
		{"explicit scope wins", []string{"laptop", "all", "--scope", "all", "--q", "x"}, "all",
			grants.Mutation{Op: grants.OpSelectAll, Scope: grants.ScopeAll, Query: "x"}, ""},
		{"toggle", []string{"laptop", "toggle", "news"}, "toggle",
			grants.Mutation{Op: grants.OpToggleGroup, Group: "news"}, ""},
		{"grant pattern", []string{"laptop", "grant", "weather__*"}, "grant",
			grants.Mutation{Op: grants.OpAdd, Identifier: "weather__*"}, ""},
		{"revoke", []string{"laptop", "revoke", "news__headlines"}, "revoke",
			grants.Mutation{Op: grants.OpRemove, Identifier: "news__headlines"}, ""},
		{"no key", nil, "", grants.Mutation{}, "usage"},
		{"grant without target", []string{"laptop", "grant"}, "", grants.Mutation{}, "needs a target"},
		{"toggle without group", []string{"laptop", "toggle"}, "", grants.Mutation{}, "needs a target"},
		{"unknown action", []string{"laptop", "nuke"}, "", grants.Mutation{}, "unknown perms action"},
		{"unknown flag", []string{"laptop", "--force"}, "", grants.Mutation{}, "unknown flag"},
		{"dangling flag", []string{"laptop", "all", "--group"}, "", grants.Mutation{}, "requires a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parsePermsArgs(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "laptop", p.key)
			assert.Equal(t, tt.action, p.action)
			assert.Equal(t, tt.want, p.mutation)
		})
	}
}

// recorded is what the stub router received.
type recorded struct {
	auth      []string
	mutations []grants.Mutation
	idemKeys  []string
	deleted   []string
}

// stubRouter serves canned API responses and records what it received.
type stubRouter struct {
	mu sync.Mutex
	recorded
}

// snapshot copies the recorded requests under the lock.
func (s *stubRouter) snapshot() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recorded{
		auth:      append([]string(nil), s.auth...),
		mutations: append([]grants.Mutation(nil), s.mutations...),
		idemKeys:  append([]string(nil), s.idemKeys...),
		deleted:   append([]string(nil), s.deleted...),
	}
}

func (s *stubRouter) handler(t *testing.T) http.Handler {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	servers := []gateway.ServerResponse{
		{ID: "srv-1", Name: "weather", Transport: "stdio", Command: "weather-mcp", Enabled: true, Status: "connected", RefreshedAt: &now},
		{ID: "srv-2", Name: "news", Transport: "http", URL: "http://news/mcp", Enabled: true, Status: "error", LastError: "connection refused"},
	}
	keys := []gateway.KeyResponse{
		{ID: "key-1", Name: "laptop", Prefix: "mcpr_abcd1234", CreatedAt: now},
		{ID: "key-2", Name: "old", Prefix: "mcpr_ffff0000", CreatedAt: now, RevokedAt: &now},
	}
	view := grants.View{
		KeyID: "key-1",
		Groups: []grants.GroupView{{
			Server: "weather",
			Items: []grants.Item{
				{Identifier: "weather__alerts", Name: "alerts", Checked: true},
				{Identifier: "weather__forecast", Name: "forecast", Checked: false},
			},
			SelectedCount: 1, Total: 2, Partial: true,
		}},
		Selected: 1, Total: 2,
		Granted: []string{"weather__alerts", "news__*"},
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("OK")) })
	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready (1 servers)"))
	})
	mux.HandleFunc("GET /api/servers", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, servers) })
	mux.HandleFunc("POST /api/servers", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.CreateServerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Name == "weather" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": `already exists: server "weather"`})
			return
		}
		writeJSON(w, http.StatusCreated, gateway.ServerResponse{ID: "srv-3", Name: req.Name, Transport: req.Transport, Command: req.Command, Args: req.Args, Enabled: true})
	})
	mux.HandleFunc("DELETE /api/servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deleted = append(s.deleted, r.PathValue("id"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []gateway.RefreshResponse{
			{ServerID: "srv-1", ServerName: "weather", Capabilities: 2},
			{ServerID: "srv-2", ServerName: "news", Error: "discovery failed: news: connection refused"},
		})
	})
	mux.HandleFunc("GET /api/keys", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, keys) })
	mux.HandleFunc("POST /api/keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, gateway.KeyResponse{ID: "key-3", Name: "ci", Prefix: "mcpr_12345678", Token: "mcpr_" + "12345678deadbeef"})
	})
	mux.HandleFunc("GET /api/keys/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		v := view
		v.Query = r.URL.Query().Get("q")
		writeJSON(w, 200, v)
	})
	mux.HandleFunc("POST /api/keys/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		var m grants.Mutation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		s.mu.Lock()
		s.mutations = append(s.mutations, m)
		s.idemKeys = append(s.idemKeys, r.Header.Get(gateway.IdempotencyHeader))
		s.mu.Unlock()
		writeJSON(w, 200, view)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func setupAdmin(t *testing.T) (*admin, *stubRouter, *bytes.Buffer) {
	t.Helper()
	stub := &stubRouter{}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	c := newClient(&Config{URL: srv.URL, Token: "admin-jwt"})
	return &admin{out: &out, client: c}, stub, &out
}

func TestAdmin_Status(t *testing.T) {
	a, stub, out := setupAdmin(t)

	require.NoError(t, a.run(context.Background(), "status", nil))
	assert.Contains(t, out.String(), "Health:  OK")
	assert.Contains(t, out.String(), "Servers: 2 (1 connected, 1 error)")
	assert.Contains(t, out.String(), "Keys:    2 (1 active)")
	assert.Contains(t, stub.snapshot().auth, "Bearer admin-jwt")
}

func TestAdmin_Servers(t *testing.T) {
	a, stub, out := setupAdmin(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "servers", nil))
	assert.Contains(t, out.String(), "weather")
	assert.Contains(t, out.String(), "news: connection refused")

	out.Reset()
	require.NoError(t, a.run(ctx, "servers", []string{"add", "files", "--command", "mcp-files", "--arg", "/srv"}))
	assert.Contains(t, out.String(), "Registered server: files")
	assert.Contains(t, out.String(), "mcp-files /srv")

	err := a.run(ctx, "servers", []string{"add", "weather", "--command", "x"})
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Message, "already exists")

	out.Reset()
	require.NoError(t, a.run(ctx, "servers", []string{"rm", "news"}))
	assert.Equal(t, []string{"srv-2"}, stub.snapshot().deleted, "names resolve to IDs")

	assert.ErrorContains(t, a.run(ctx, "servers", []string{"rm", "missing"}), "no server")

	out.Reset()
	require.NoError(t, a.run(ctx, "servers", []string{"refresh"}))
	assert.Contains(t, out.String(), "connection refused")

	assert.ErrorContains(t, a.run(ctx, "servers", []string{"explode"}), "unknown servers subcommand")
}

func TestAdmin_Keys(t *testing.T) {
	a, _, out := setupAdmin(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "keys", []string{"list"}))
	assert.Contains(t, out.String(), "laptop")
	assert.Contains(t, out.String(), "revoked")

	out.Reset()
	require.NoError(t, a.run(ctx, "keys", []string{"create", "ci"}))
	assert.Contains(t, out.String(), "mcpr_12345678deadbeef")

	assert.ErrorContains(t, a.run(ctx, "keys", []string{"create"}), "usage")
}

func TestAdmin_Perms(t *testing.T) {
	a, stub, out := setupAdmin(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "perms", []string{"laptop", "--q", "alert"}))
	text := out.String()
	assert.Contains(t, text, `Permissions for laptop matching "alert"`)
	assert.Contains(t, text, "(1/2)")
	assert.Contains(t, text, "Selected 1 of 2")
	assert.Contains(t, text, "Patterns: news__*")
	assert.Empty(t, stub.snapshot().mutations, "show does not mutate")

	out.Reset()
	require.NoError(t, a.run(ctx, "perms", []string{"key-1", "grant", "weather__*"}))
	require.NoError(t, a.run(ctx, "perms", []string{"laptop", "invert", "--group", "weather"}))

	rec := stub.snapshot()
	require.Len(t, rec.mutations, 2)
	assert.Equal(t, grants.Mutation{Op: grants.OpAdd, Identifier: "weather__*"}, rec.mutations[0])
	assert.Equal(t, grants.Mutation{Op: grants.OpInvert, Scope: grants.ScopeGroup, Group: "weather"}, rec.mutations[1])
	require.Len(t, rec.idemKeys, 2)
	assert.NotEmpty(t, rec.idemKeys[0])
	assert.NotEqual(t, rec.idemKeys[0], rec.idemKeys[1], "each mutation gets its own idempotency key")

	out.Reset()
	require.NoError(t, a.run(ctx, "perms", []string{"old", "all"}))
	assert.Contains(t, out.String(), "is revoked")

	assert.ErrorContains(t, a.run(ctx, "perms", []string{"nobody"}), "no key")
}

func TestAdmin_UnknownCommand(t *testing.T) {
	a, _, _ := setupAdmin(t)
	assert.ErrorIs(t, a.run(context.Background(), "launch", nil), errUsage)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded\n")
	}))
	defer srv.Close()

	c := newClient(&Config{URL: srv.URL})
	err := c.do(context.Background(), http.MethodGet, "/api/servers", nil, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded (HTTP 502)", apiErr.Error())
}
