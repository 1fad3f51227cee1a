// Package config handles configuration loading for mcp-router.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MCP_ROUTER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mcp-router/config.yaml
//  3. ~/.config/mcp-router/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${MCP_ROUTER_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	catalog:
//	  refresh_interval: "10m"
//	  discovery_timeout: "30s"
//	  max_parallel: 4
//
// # Seed Servers
//
// The servers list registers upstream MCP servers at startup:
//
//	servers:
//	  - name: files
//	    transport: stdio
//	    command: mcp-files
//	    args: ["--root", "/srv"]
//	  - name: search
//	    transport: http
//	    url: http://localhost:9000/mcp
//
// Names must be unique and must not contain the "__" separator.
package config
