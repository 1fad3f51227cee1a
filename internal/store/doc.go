// Package store provides persistent storage for the router using SQLite.
//
// # Data Models
//
//   - Server: a registered MCP server and how to reach it (stdio, http, sse)
//   - Capability: a tool, resource or prompt discovered on a server; its
//     permission identifier is "<server name>__<capability name>"
//   - APIKey: a caller credential, stored as a SHA-256 token hash
//   - Grants: the granted set of an API key (identifiers and wildcard patterns)
//   - AuditEntry: who changed which server, key or granted set
//
// # Implementations
//
// SQLiteStore is the production implementation (modernc.org/sqlite, WAL mode,
// foreign keys on). MockStore is an in-memory implementation with the same
// semantics for tests of the layers above.
//
// Capability and grant lists are always replaced wholesale inside a single
// transaction, so readers never see a half-applied refresh or grant change.
package store
