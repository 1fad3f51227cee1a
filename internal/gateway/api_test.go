// ABOUTME: Tests for the HTTP API handlers
// ABOUTME: Drives the mux with httptest against a MockStore and a canned discoverer

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/config"
	"github.com/2389/mcp-router/internal/grants"
	"github.com/2389/mcp-router/internal/permission"
	"github.com/2389/mcp-router/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeDiscoverer returns canned capabilities per server name.
type fakeDiscoverer struct {
	mu   sync.Mutex
	caps map[string][]store.Capability
	errs map[string]error
}

func (f *fakeDiscoverer) Discover(ctx context.Context, srv *store.Server) ([]store.Capability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[srv.Name]; err != nil {
		return nil, err
	}
	return f.caps[srv.Name], nil
}

func tools(names ...string) []store.Capability {
	out := make([]store.Capability, 0, len(names))
	for _, n := range names {
		out = append(out, store.Capability{Kind: store.KindTool, Name: n})
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = ":memory:"
	cfg.Catalog.MaxParallel = 2
	cfg.Catalog.DiscoveryTimeout = time.Second
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config, fd *fakeDiscoverer) (*Gateway, *store.MockStore) {
	t.Helper()
	ms := store.NewMockStore()
	g, err := newGateway(cfg, ms, fd, testLogger())
	require.NoError(t, err)
	t.Cleanup(g.idempotency.Close)
	return g, ms
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func createServer(t *testing.T, h http.Handler, name string) ServerResponse {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/servers", CreateServerRequest{
		Name: name, Transport: "stdio", Command: "mcp-" + name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ServerResponse](t, w)
}

func createKey(t *testing.T, h http.Handler, name string) KeyResponse {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/keys", CreateKeyRequest{Name: name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[KeyResponse](t, w)
}

func TestServersCRUD(t *testing.T) {
	g, ms := newTestGateway(t, testConfig(), &fakeDiscoverer{})
	h := g.Handler()

	created := createServer(t, h, "weather")
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled, "servers are enabled unless asked otherwise")
	assert.Equal(t, "unknown", created.Status)

	w := doRequest(t, h, http.MethodPost, "/api/servers", CreateServerRequest{Name: "weather", Transport: "stdio", Command: "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, h, http.MethodPost, "/api/servers", CreateServerRequest{Name: "bad__name", Transport: "stdio", Command: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, http.MethodPost, "/api/servers", CreateServerRequest{Name: "remote", Transport: "http"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "needs a url")

	w = doRequest(t, h, http.MethodGet, "/api/servers/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weather", decode[ServerResponse](t, w).Name)

	disabled := false
	w = doRequest(t, h, http.MethodPatch, "/api/servers/"+created.ID, UpdateServerRequest{Enabled: &disabled})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[ServerResponse](t, w)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "mcp-weather", updated.Command, "absent fields are unchanged")

	w = doRequest(t, h, http.MethodGet, "/api/servers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]ServerResponse](t, w), 1)

	w = doRequest(t, h, http.MethodDelete, "/api/servers/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/servers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", errorMessage(t, w))

	entries, err := ms.ListAuditLog(context.Background(), store.AuditFilter{TargetID: &created.ID})
	require.NoError(t, err)
	actions := make([]store.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
		assert.Equal(t, auth.SystemActor, e.Actor)
	}
	assert.Equal(t, []store.AuditAction{store.AuditDeleteServer, store.AuditUpdateServer, store.AuditCreateServer}, actions)
}

func TestCreateServer_InvalidJSON(t *testing.T) {
	g, _ := newTestGateway(t, testConfig(), &fakeDiscoverer{})

	req := httptest.NewRequest(http.MethodPost, "/api/servers", bytes.NewBufferString(`{"name":`))
	w := httptest.NewRecorder()
	g.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "invalid JSON body", errorMessage(t, w))
}

func TestRefreshServer(t *testing.T) {
	fd := &fakeDiscoverer{
		caps: map[string][]store.Capability{"weather": tools("forecast", "alerts")},
		errs: map[string]error{"broken": errors.New("exit status 1")},
	}
	g, _ := newTestGateway(t, testConfig(), fd)
	h := g.Handler()

	weather := createServer(t, h, "weather")
	broken := createServer(t, h, "broken")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"ok", "/api/servers/" + weather.ID + "/refresh", http.StatusOK},
		{"discovery failure", "/api/servers/" + broken.ID + "/refresh", http.StatusBadGateway},
		{"missing", "/api/servers/nope/refresh", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := doRequest(t, h, http.MethodGet, "/api/servers/"+weather.ID, nil)
	assert.Equal(t, "connected", decode[ServerResponse](t, w).Status)

	w = doRequest(t, h, http.MethodGet, "/api/servers/"+broken.ID, nil)
	got := decode[ServerResponse](t, w)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "exit status 1", got.LastError)

	disabled := false
	doRequest(t, h, http.MethodPatch, "/api/servers/"+weather.ID, UpdateServerRequest{Enabled: &disabled})
	w = doRequest(t, h, http.MethodPost, "/api/servers/"+weather.ID+"/refresh", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRefreshAll(t *testing.T) {
	fd := &fakeDiscoverer{
		caps: map[string][]store.Capability{"weather": tools("forecast")},
		errs: map[string]error{"broken": errors.New("connection refused")},
	}
	g, _ := newTestGateway(t, testConfig(), fd)
	h := g.Handler()
	createServer(t, h, "weather")
	createServer(t, h, "broken")

	w := doRequest(t, h, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	results := decode[[]RefreshResponse](t, w)
	require.Len(t, results, 2)
	byName := map[string]RefreshResponse{}
	for _, r := range results {
		byName[r.ServerName] = r
	}
	assert.Equal(t, 1, byName["weather"].Capabilities)
	assert.Empty(t, byName["weather"].Error)
	assert.Contains(t, byName["broken"].Error, "connection refused")
}

func TestCapabilities(t *testing.T) {
	fd := &fakeDiscoverer{caps: map[string][]store.Capability{"weather": tools("forecast", "alerts")}}
	g, _ := newTestGateway(t, testConfig(), fd)
	h := g.Handler()

	srv := createServer(t, h, "weather")
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/api/servers/"+srv.ID+"/refresh", nil).Code)

	w := doRequest(t, h, http.MethodGet, "/api/servers/"+srv.ID+"/capabilities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	caps := decode[[]CapabilityResponse](t, w)
	require.Len(t, caps, 2)
	assert.Equal(t, "weather__alerts", caps[0].Identifier)

	w = doRequest(t, h, http.MethodPatch, "/api/servers/"+srv.ID+"/capabilities",
		SetCapabilityRequest{Kind: "tool", Name: "alerts", Enabled: false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, h, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cat := decode[struct {
		Identifiers []string `json:"identifiers"`
		Total       int      `json:"total"`
	}](t, w)
	assert.Equal(t, []string{"weather__forecast"}, cat.Identifiers)
	assert.Equal(t, 1, cat.Total)

	tests := []struct {
		name   string
		req    SetCapabilityRequest
		status int
	}{
		{"unknown kind", SetCapabilityRequest{Kind: "widget", Name: "alerts"}, http.StatusBadRequest},
		{"missing name", SetCapabilityRequest{Kind: "tool"}, http.StatusBadRequest},
		{"unknown capability", SetCapabilityRequest{Kind: "prompt", Name: "alerts"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPatch, "/api/servers/"+srv.ID+"/capabilities", tt.req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w = doRequest(t, h, http.MethodGet, "/api/servers/missing/capabilities", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKeys(t *testing.T) {
	g, _ := newTestGateway(t, testConfig(), &fakeDiscoverer{})
	h := g.Handler()

	key := createKey(t, h, "laptop")
	assert.NotEmpty(t, key.ID)
	assert.Contains(t, key.Token, grants.TokenPrefix)
	assert.Equal(t, key.Token[:len(key.Prefix)], key.Prefix)

	w := doRequest(t, h, http.MethodPost, "/api/keys", CreateKeyRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)
	keys := decode[[]KeyResponse](t, w)
	require.Len(t, keys, 1)
	assert.Empty(t, keys[0].Token, "tokens are only returned on creation")

	w = doRequest(t, h, http.MethodDelete, "/api/keys/"+key.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/keys", nil)
	assert.NotNil(t, decode[[]KeyResponse](t, w)[0].RevokedAt)

	w = doRequest(t, h, http.MethodDelete, "/api/keys/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func setupPermissions(t *testing.T) (*Gateway, http.Handler, KeyResponse) {
	t.Helper()
	fd := &fakeDiscoverer{caps: map[string][]store.Capability{
		"weather": tools("forecast", "alerts"),
		"news":    tools("headlines"),
	}}
	g, _ := newTestGateway(t, testConfig(), fd)
	h := g.Handler()
	createServer(t, h, "weather")
	createServer(t, h, "news")
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/api/refresh", nil).Code)
	return g, h, createKey(t, h, "laptop")
}

func TestPermissions_ViewAndApply(t *testing.T) {
	_, h, key := setupPermissions(t)
	path := "/api/keys/" + key.ID + "/permissions"

	w := doRequest(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[grants.View](t, w)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 0, view.Selected)

	w = doRequest(t, h, http.MethodGet, path+"?q=alert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[grants.View](t, w)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "weather", view.Groups[0].Server)

	w = doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: grants.OpToggleGroup, Group: "weather"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[grants.View](t, w)
	assert.Equal(t, 2, view.Selected)

	w = doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: grants.OpAdd, Identifier: "news__*"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[grants.View](t, w).Selected)

	w = doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/keys/missing/permissions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPermissions_IdempotencyKey(t *testing.T) {
	_, h, key := setupPermissions(t)
	path := "/api/keys/" + key.ID + "/permissions"
	invert := grants.Mutation{Op: grants.OpInvert}

	first := doRequest(t, h, http.MethodPost, path, invert, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 3, decode[grants.View](t, first).Selected)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	replay := doRequest(t, h, http.MethodPost, path, invert, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), replay.Body.String())

	w := doRequest(t, h, http.MethodGet, path, nil)
	assert.Equal(t, 3, decode[grants.View](t, w).Selected, "replayed invert must not run twice")

	other := doRequest(t, h, http.MethodPost, path, invert, IdempotencyHeader, "def")
	require.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, 0, decode[grants.View](t, other).Selected)

	// Failed mutations are not cached, so a corrected retry goes through.
	bad := doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: "explode"}, IdempotencyHeader, "ghi")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	good := doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: grants.OpSelectAll}, IdempotencyHeader, "ghi")
	assert.Equal(t, http.StatusOK, good.Code)
}

// slowGrantsStore widens the window between reading and writing grants.
type slowGrantsStore struct {
	*store.MockStore
	delay time.Duration
	saves atomic.Int32
}

func (s *slowGrantsStore) GetGrants(ctx context.Context, keyID string) (permission.Set, error) {
	time.Sleep(s.delay)
	return s.MockStore.GetGrants(ctx, keyID)
}

func (s *slowGrantsStore) ReplaceGrants(ctx context.Context, keyID string, granted permission.Set) error {
	s.saves.Add(1)
	return s.MockStore.ReplaceGrants(ctx, keyID, granted)
}

func TestPermissions_IdempotencyKey_ConcurrentRetries(t *testing.T) {
	ss := &slowGrantsStore{MockStore: store.NewMockStore(), delay: 20 * time.Millisecond}
	fd := &fakeDiscoverer{caps: map[string][]store.Capability{
		"weather": tools("forecast", "alerts"),
		"news":    tools("headlines"),
	}}
	g, err := newGateway(testConfig(), ss, fd, testLogger())
	require.NoError(t, err)
	t.Cleanup(g.idempotency.Close)
	h := g.Handler()

	createServer(t, h, "weather")
	createServer(t, h, "news")
	require.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/api/refresh", nil).Code)
	key := createKey(t, h, "laptop")
	path := "/api/keys/" + key.ID + "/permissions"
	savesBefore := ss.saves.Load()

	const retries = 4
	results := make([]*httptest.ResponseRecorder, retries)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range retries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i] = doRequest(t, h, http.MethodPost, path, grants.Mutation{Op: grants.OpInvert}, IdempotencyHeader, "same")
		}()
	}
	close(start)
	wg.Wait()

	executed := 0
	for _, w := range results {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, results[0].Body.String(), w.Body.String())
		if w.Header().Get("Idempotent-Replayed") == "" {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
	assert.Equal(t, int32(1), ss.saves.Load()-savesBefore)

	w := doRequest(t, h, http.MethodGet, path, nil)
	assert.Equal(t, 3, decode[grants.View](t, w).Selected)
}

func TestAuthorize(t *testing.T) {
	_, h, key := setupPermissions(t)
	doRequest(t, h, http.MethodPost, "/api/keys/"+key.ID+"/permissions",
		grants.Mutation{Op: grants.OpAdd, Identifier: "weather__*"})

	tests := []struct {
		name    string
		req     AuthorizeRequest
		status  int
		allowed bool
	}{
		{"granted by wildcard", AuthorizeRequest{Token: key.Token, Identifier: "weather__forecast"}, http.StatusOK, true},
		{"not granted", AuthorizeRequest{Token: key.Token, Identifier: "news__headlines"}, http.StatusOK, false},
		{"unknown token", AuthorizeRequest{Token: "mcpr_nope", Identifier: "weather__forecast"}, http.StatusUnauthorized, false},
		{"missing token", AuthorizeRequest{Identifier: "weather__forecast"}, http.StatusUnauthorized, false},
		{"missing identifier", AuthorizeRequest{Token: key.Token}, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/api/authorize", tt.req)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusOK {
				resp := decode[AuthorizeResponse](t, w)
				assert.Equal(t, tt.allowed, resp.Allowed)
				assert.Equal(t, key.ID, resp.KeyID)
			}
		})
	}

	doRequest(t, h, http.MethodDelete, "/api/keys/"+key.ID, nil)
	w := doRequest(t, h, http.MethodPost, "/api/authorize", AuthorizeRequest{Token: key.Token, Identifier: "weather__forecast"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "api key revoked", errorMessage(t, w))
}

func TestAudit(t *testing.T) {
	_, h, key := setupPermissions(t)
	doRequest(t, h, http.MethodPost, "/api/keys/"+key.ID+"/permissions", grants.Mutation{Op: grants.OpSelectAll})

	w := doRequest(t, h, http.MethodGet, "/api/audit?action=change_grants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]AuditEntryResponse](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, key.ID, entries[0].TargetID)
	assert.Equal(t, "select_all", entries[0].Detail["op"])

	w = doRequest(t, h, http.MethodGet, "/api/audit?target_type=server&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]AuditEntryResponse](t, w), 1)

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	w = doRequest(t, h, http.MethodGet, "/api/audit?since="+future, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]AuditEntryResponse](t, w))

	for _, q := range []string{"since=yesterday", "limit=0", "limit=abc"} {
		w = doRequest(t, h, http.MethodGet, "/api/audit?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestAdminAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = testSecret
	g, ms := newTestGateway(t, cfg, &fakeDiscoverer{})
	h := g.Handler()

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := verifier.Generate("alice", time.Hour)
	require.NoError(t, err)

	w := doRequest(t, h, http.MethodGet, "/api/servers", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodGet, "/api/servers", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost, "/api/keys", CreateKeyRequest{Name: "ci"}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, w.Code)
	key := decode[KeyResponse](t, w)

	// The API key itself is the credential for authorize.
	w = doRequest(t, h, http.MethodPost, "/api/authorize", AuthorizeRequest{Token: key.Token, Identifier: "a__b"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[AuthorizeResponse](t, w).Allowed)

	action := store.AuditCreateKey
	entries, err := ms.ListAuditLog(context.Background(), store.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrInvalid, http.StatusBadRequest},
		{store.ErrDuplicate, http.StatusConflict},
		{grants.ErrUnknownKey, http.StatusUnauthorized},
		{grants.ErrKeyRevoked, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, errorStatus(tt.err))
		})
	}
}
