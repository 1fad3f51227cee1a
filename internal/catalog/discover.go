// ABOUTME: Capability discovery against upstream MCP servers using the MCP Go SDK
// ABOUTME: Connects over stdio, streamable HTTP or SSE and lists tools, resources and prompts

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/store"
)

// ClientName is advertised to upstream servers during initialization.
const ClientName = "mcp-router"

// maxPages bounds cursor pagination against servers that never stop paging.
const maxPages = 1000

// ErrTooManyPages is returned when a listing does not terminate within maxPages.
var ErrTooManyPages = errors.New("listing exceeded page limit")

// Discoverer lists the capabilities one upstream server exposes.
type Discoverer interface {
	Discover(ctx context.Context, srv *store.Server) ([]store.Capability, error)
}

// TransportFunc builds the client transport used to reach srv.
type TransportFunc func(srv *store.Server) (mcp.Transport, error)

// MCPDiscoverer discovers capabilities by opening a short-lived MCP client session.
type MCPDiscoverer struct {
	client    *mcp.Client
	transport TransportFunc
	logger    *slog.Logger
}

// NewMCPDiscoverer creates a discoverer. A nil transport selects DefaultTransport.
func NewMCPDiscoverer(version string, transport TransportFunc, logger *slog.Logger) *MCPDiscoverer {
	if transport == nil {
		transport = DefaultTransport(http.DefaultClient)
	}
	return &MCPDiscoverer{
		client:    mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: version}, nil),
		transport: transport,
		logger:    logger,
	}
}

// DefaultTransport maps a registered server onto the matching SDK transport.
func DefaultTransport(httpClient *http.Client) TransportFunc {
	return func(srv *store.Server) (mcp.Transport, error) {
		switch srv.Transport {
		case store.TransportStdio:
			cmd := exec.Command(srv.Command, srv.Args...)
			cmd.Env = append(os.Environ(), envList(srv.Env)...)
			return &mcp.CommandTransport{Command: cmd}, nil
		case store.TransportHTTP:
			return &mcp.StreamableClientTransport{Endpoint: srv.URL, HTTPClient: httpClient}, nil
		case store.TransportSSE:
			return &mcp.SSEClientTransport{Endpoint: srv.URL, HTTPClient: httpClient}, nil
		default:
			return nil, fmt.Errorf("%w: unknown transport %q", store.ErrInvalid, srv.Transport)
		}
	}
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := lo.MapToSlice(env, func(k, v string) string { return k + "=" + v })
	slices.Sort(out)
	return out
}

// Discover connects to srv, lists every advertised capability kind and closes
// the session. Kinds the server does not advertise are skipped.
func (d *MCPDiscoverer) Discover(ctx context.Context, srv *store.Server) ([]store.Capability, error) {
	transport, err := d.transport(srv)
	if err != nil {
		return nil, err
	}

	session, err := d.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", srv.Name, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Debug("closing discovery session", "server", srv.Name, "error", err)
		}
	}()

	var advertised *mcp.ServerCapabilities
	if res := session.InitializeResult(); res != nil {
		advertised = res.Capabilities
	}
	if advertised == nil {
		advertised = &mcp.ServerCapabilities{}
	}

	var caps []store.Capability
	if advertised.Tools != nil {
		tools, err := listTools(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("listing tools of %s: %w", srv.Name, err)
		}
		caps = append(caps, lo.Map(tools, func(t *mcp.Tool, _ int) store.Capability {
			return store.Capability{Kind: store.KindTool, Name: t.Name, Description: t.Description}
		})...)
	}
	if advertised.Resources != nil {
		resources, err := listResources(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("listing resources of %s: %w", srv.Name, err)
		}
		caps = append(caps, lo.Map(resources, func(r *mcp.Resource, _ int) store.Capability {
			return store.Capability{Kind: store.KindResource, Name: r.Name, Description: r.Description}
		})...)
	}
	if advertised.Prompts != nil {
		prompts, err := listPrompts(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("listing prompts of %s: %w", srv.Name, err)
		}
		caps = append(caps, lo.Map(prompts, func(p *mcp.Prompt, _ int) store.Capability {
			return store.Capability{Kind: store.KindPrompt, Name: p.Name, Description: p.Description}
		})...)
	}

	caps = dropInvalid(d.logger, srv.Name, caps)
	caps = lo.UniqBy(caps, func(c store.Capability) string { return string(c.Kind) + "/" + c.Name })

	d.logger.Debug("discovered capabilities", "server", srv.Name, "count", len(caps))
	return caps, nil
}

func listTools(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Tool, error) {
	var out []*mcp.Tool
	params := &mcp.ListToolsParams{}
	for range maxPages {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Tools...)
		if res.NextCursor == "" {
			return out, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
	return nil, ErrTooManyPages
}

func listResources(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Resource, error) {
	var out []*mcp.Resource
	params := &mcp.ListResourcesParams{}
	for range maxPages {
		res, err := session.ListResources(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Resources...)
		if res.NextCursor == "" {
			return out, nil
		}
		params = &mcp.ListResourcesParams{Cursor: res.NextCursor}
	}
	return nil, ErrTooManyPages
}

func listPrompts(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Prompt, error) {
	var out []*mcp.Prompt
	params := &mcp.ListPromptsParams{}
	for range maxPages {
		res, err := session.ListPrompts(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Prompts...)
		if res.NextCursor == "" {
			return out, nil
		}
		params = &mcp.ListPromptsParams{Cursor: res.NextCursor}
	}
	return nil, ErrTooManyPages
}

// dropInvalid removes capabilities whose names cannot form an exact
// identifier, logging each one.
func dropInvalid(logger *slog.Logger, server string, caps []store.Capability) []store.Capability {
	return lo.Filter(caps, func(c store.Capability, _ int) bool {
		if err := store.ValidateCapability(c); err != nil {
			logger.Warn("skipping capability", "server", server, "kind", c.Kind, "name", c.Name, "error", err)
			return false
		}
		return true
	})
}
