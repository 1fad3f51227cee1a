// Package grants manages which API keys may use which MCP capabilities.
//
// A key's granted set holds exact identifiers ("weather__forecast"), server
// wildcards ("weather__*") and the global wildcard ("*"). View renders that set
// against the live catalog the way the permission editor shows it: grouped by
// server, filtered by a search term, with checked, full and partial state.
// Apply runs one editor action (select all, select none, invert, toggle a
// group, add or remove a pattern) and persists the result with an audit entry.
//
// Authorize is the enforcement side: it resolves a presented token to its key
// and answers whether that key may use a given identifier.
package grants
