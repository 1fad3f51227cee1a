// ABOUTME: Mutation requests against a key's granted set and their scope resolution
// ABOUTME: Validates ops, scopes and patterns before the reconciler runs

package grants

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/permission"
	"github.com/2389/mcp-router/internal/store"
)

// Op names a change to a granted set.
type Op string

const (
	OpSelectAll   Op = "select_all"
	OpSelectNone  Op = "select_none"
	OpInvert      Op = "invert"
	OpToggleGroup Op = "toggle_group"
	OpAdd         Op = "add"
	OpRemove      Op = "remove"
)

// Scope selects which identifiers a bulk op touches.
type Scope string

const (
	ScopeAll      Scope = "all"      // the whole catalog
	ScopeFiltered Scope = "filtered" // identifiers matching Query
	ScopeGroup    Scope = "group"    // one server group, narrowed by Query
)

// Mutation is a single change request from the permission editor.
type Mutation struct {
	Op         Op     `json:"op"`
	Scope      Scope  `json:"scope,omitempty"`
	Group      string `json:"group,omitempty"`
	Query      string `json:"q,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// invalid wraps store.ErrInvalid so callers can map it to a bad request.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidatePattern accepts an exact "server__name" identifier, a
// "server__*" wildcard or the global "*".
func ValidatePattern(p string) error {
	if p == permission.All {
		return nil
	}
	server, rest, ok := permission.SplitIdentifier(p)
	switch {
	case !ok || server == "":
		return invalid("%q is not a server__name identifier", p)
	case strings.Contains(server, "*"):
		return invalid("%q: wildcard is only allowed as the whole name", p)
	case rest == permission.All:
		return nil
	case strings.Contains(rest, "*"):
		return invalid("%q: wildcard is only allowed as the whole name", p)
	}
	return nil
}

// apply computes the new granted set for m over catalog.
func apply(m Mutation, catalog []string, granted permission.Set) (permission.Set, error) {
	groups := permission.GroupByServer(catalog)

	switch m.Op {
	case OpAdd, OpRemove:
		if m.Identifier == "" {
			return nil, invalid("%s requires an identifier", m.Op)
		}
		if m.Op == OpRemove {
			return permission.Remove(granted, m.Identifier), nil
		}
		if err := ValidatePattern(m.Identifier); err != nil {
			return nil, err
		}
		return permission.Add(granted, m.Identifier), nil

	case OpToggleGroup:
		g, err := findGroup(groups, m.Group, m.Query)
		if err != nil {
			return nil, err
		}
		return permission.ToggleGroup(granted, g), nil

	case OpSelectAll, OpSelectNone, OpInvert:
		scope, err := resolveScope(groups, m)
		if err != nil {
			return nil, err
		}
		switch m.Op {
		case OpSelectAll:
			return permission.SelectAll(granted, scope), nil
		case OpSelectNone:
			return permission.SelectNone(granted, scope), nil
		default:
			return permission.Invert(granted, scope), nil
		}
	}
	return nil, invalid("unknown op %q", m.Op)
}

func resolveScope(groups []permission.Group, m Mutation) ([]string, error) {
	switch m.Scope {
	case ScopeAll, "":
		return permission.Identifiers(groups), nil
	case ScopeFiltered:
		return permission.Identifiers(permission.FilterGroups(groups, m.Query)), nil
	case ScopeGroup:
		g, err := findGroup(groups, m.Group, m.Query)
		if err != nil {
			return nil, err
		}
		return g.Identifiers, nil
	}
	return nil, invalid("unknown scope %q", m.Scope)
}

// findGroup looks the group up in the filtered view, so a group op only
// touches the identifiers the editor is showing.
func findGroup(groups []permission.Group, server, query string) (permission.Group, error) {
	if server == "" {
		return permission.Group{}, invalid("group is required")
	}
	g, ok := lo.Find(permission.FilterGroups(groups, query), func(g permission.Group) bool {
		return g.Server == server
	})
	if !ok {
		return permission.Group{}, invalid("unknown group %q", server)
	}
	return g, nil
}
