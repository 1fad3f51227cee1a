// Package permission reconciles a catalog of permission identifiers with the
// set of grants held by an API key.
//
// # Identifiers
//
// Every capability a registered MCP server exposes is addressed as
//
//	<server>__<resource>
//
// for example "weather__get_forecast". The text before the first "__" names
// the owning server and is the grouping key for every grouped view.
//
// # Grants
//
// A granted set holds exact identifiers and wildcard patterns:
//
//	*              every identifier
//	weather__*     every identifier of server "weather" with a non-empty resource
//	weather__alerts exactly that identifier
//
// Any element containing '*' is treated as a pattern.
//
// # Operations
//
// All functions are pure. Bulk operations (SelectAll, SelectNone, Invert,
// ToggleGroup) take a granted set and a scope and return a new set; callers own
// persistence of the result. Bulk operations work on exact membership only:
// SelectNone never retracts a wildcard, so identifiers it covers remain checked.
package permission
