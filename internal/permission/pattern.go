// ABOUTME: Permission identifier parsing and wildcard pattern matching
// ABOUTME: Identifiers are "<server>__<resource>"; patterns are "*", "<server>__*" or exact

package permission

import "strings"

// Separator splits the owning server from the resource name in an identifier.
const Separator = "__"

// All is the wildcard pattern that matches every identifier.
const All = "*"

const serverWildcardSuffix = Separator + "*"

// MatchesPattern reports whether a granted element matches a catalog identifier.
func MatchesPattern(pattern, identifier string) bool {
	if pattern == All {
		return true
	}
	if strings.HasSuffix(pattern, serverWildcardSuffix) {
		prefix := strings.TrimSuffix(pattern, serverWildcardSuffix) + Separator
		return strings.HasPrefix(identifier, prefix) && len(identifier) > len(prefix)
	}
	return pattern == identifier
}

// IsWildcard reports whether a granted element is treated as a pattern.
// Any element containing '*' is a wildcard, whatever its shape.
func IsWildcard(s string) bool {
	return strings.Contains(s, "*")
}

// SplitIdentifier splits an identifier on the first separator.
// ok is false when there is no separator or nothing follows it.
func SplitIdentifier(id string) (server, resource string, ok bool) {
	server, resource, found := strings.Cut(id, Separator)
	if !found || resource == "" {
		return "", "", false
	}
	return server, resource, true
}

// Identifier joins a server name and resource name.
func Identifier(server, resource string) string {
	return server + Separator + resource
}

// ServerWildcard returns the pattern granting every resource of server.
func ServerWildcard(server string) string {
	return server + serverWildcardSuffix
}
