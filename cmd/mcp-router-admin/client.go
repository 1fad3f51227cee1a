// ABOUTME: HTTP client for the mcp-router admin API
// ABOUTME: Sends JSON requests with the admin bearer token and decodes error bodies

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/gateway"
	"github.com/2389/mcp-router/internal/grants"
)

// apiError is a non-2xx response from the router.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(cfg *Config) *client {
	return &client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (c *client) do(ctx context.Context, method, path string, body, out any, headers ...string) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// getText fetches a plain text endpoint, returning the status and body.
func (c *client) getText(ctx context.Context, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(data)), nil
}

func (c *client) listServers(ctx context.Context) ([]gateway.ServerResponse, error) {
	var out []gateway.ServerResponse
	if err := c.do(ctx, http.MethodGet, "/api/servers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveServer accepts a server ID or name.
func (c *client) resolveServer(ctx context.Context, ref string) (gateway.ServerResponse, error) {
	servers, err := c.listServers(ctx)
	if err != nil {
		return gateway.ServerResponse{}, err
	}
	srv, ok := lo.Find(servers, func(s gateway.ServerResponse) bool { return s.ID == ref || s.Name == ref })
	if !ok {
		return gateway.ServerResponse{}, fmt.Errorf("no server named or with ID %q", ref)
	}
	return srv, nil
}

func (c *client) listKeys(ctx context.Context) ([]gateway.KeyResponse, error) {
	var out []gateway.KeyResponse
	if err := c.do(ctx, http.MethodGet, "/api/keys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveKey accepts a key ID or name. Names shared by several keys are ambiguous.
func (c *client) resolveKey(ctx context.Context, ref string) (gateway.KeyResponse, error) {
	keys, err := c.listKeys(ctx)
	if err != nil {
		return gateway.KeyResponse{}, err
	}
	if k, ok := lo.Find(keys, func(k gateway.KeyResponse) bool { return k.ID == ref }); ok {
		return k, nil
	}
	named := lo.Filter(keys, func(k gateway.KeyResponse, _ int) bool { return k.Name == ref })
	switch len(named) {
	case 0:
		return gateway.KeyResponse{}, fmt.Errorf("no key named or with ID %q", ref)
	case 1:
		return named[0], nil
	default:
		return gateway.KeyResponse{}, fmt.Errorf("%d keys are named %q; use the key ID", len(named), ref)
	}
}

func (c *client) viewPermissions(ctx context.Context, keyID, query string) (*grants.View, error) {
	path := "/api/keys/" + url.PathEscape(keyID) + "/permissions"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var view grants.View
	if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) applyPermissions(ctx context.Context, keyID string, m grants.Mutation) (*grants.View, error) {
	var view grants.View
	err := c.do(ctx, http.MethodPost, "/api/keys/"+url.PathEscape(keyID)+"/permissions", m, &view,
		gateway.IdempotencyHeader, generateIdempotencyKey())
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// idemCounter provides a monotonic fallback sequence for idempotency keys
var idemCounter atomic.Uint64

// generateIdempotencyKey creates a random idempotency key for permission mutations
func generateIdempotencyKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fall back to pid+counter+timestamp (collision-free even within same tick)
		return fmt.Sprintf("%d-%d-%x", os.Getpid(), idemCounter.Add(1), time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
