// Package catalog discovers what upstream MCP servers offer and turns it into
// the permission catalog.
//
// MCPDiscoverer opens a short-lived MCP client session (stdio, streamable HTTP
// or SSE) and lists tools, resources and prompts. Service persists the result,
// records per-server status, and serves Identifiers: the ordered list of
// "server__name" permission identifiers for everything currently enabled.
package catalog
