// Package gateway orchestrates the mcp-router server components.
//
// # Overview
//
// The gateway package owns the data store, the capability catalog, the
// permission service and the HTTP server that exposes them. It seeds servers
// listed in the config file, keeps their capabilities fresh in the
// background, and serves the admin and authorization API.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, version, logger)
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx) // blocks until ctx is canceled
//
// Run seeds servers, starts the refresher and the HTTP listener, and on
// cancellation shuts down with a fresh 5 second context.
//
// # HTTP API
//
//   - GET /health - Liveness check
//   - GET /health/ready - At least one enabled server is connected
//   - GET|POST /api/servers - List or register MCP servers
//   - GET|PATCH|DELETE /api/servers/{id} - Inspect, edit or remove a server
//   - POST /api/servers/{id}/refresh - Rediscover one server
//   - POST /api/refresh - Rediscover every enabled server
//   - GET|PATCH /api/servers/{id}/capabilities - List or toggle capabilities
//   - GET /api/catalog - Identifiers that can be granted
//   - GET|POST /api/keys, DELETE /api/keys/{id} - API key management
//   - GET|POST /api/keys/{id}/permissions - Permission editor view and mutations
//   - POST /api/authorize - Check an API key against an identifier
//   - GET /api/audit - Audit log
//
// Admin routes require a JWT bearer token when auth.jwt_secret is set.
// /api/authorize takes the API key in its body instead.
//
// # Errors
//
// Errors are written as {"error": "..."}:
//
//	not found             404
//	invalid input         400
//	duplicate, disabled,
//	superseded            409
//	unknown/revoked key   401
//	discovery failure     502
//
// # Idempotency
//
// POST /api/keys/{id}/permissions honours the Idempotency-Key header. A retry
// with the same key within ten minutes gets the original response replayed
// with Idempotent-Replayed: true instead of applying the mutation again.
// Retries that arrive while the first request is still running wait for it
// and replay its result.
package gateway
