// ABOUTME: Groups catalog identifiers by owning server and derives group selection state
// ABOUTME: Identifiers without a resource part after "__" are left out of every group

package permission

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Group is the slice of the catalog owned by one server.
type Group struct {
	Server      string
	Identifiers []string
}

// GroupByServer partitions a catalog by server prefix. Groups are ordered by
// a root-locale collation of the server name (byte order breaks ties) and each
// group keeps catalog order. Ungroupable identifiers are dropped.
func GroupByServer(catalog []string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, id := range catalog {
		server, _, ok := SplitIdentifier(id)
		if !ok {
			continue
		}
		i, seen := index[server]
		if !seen {
			i = len(groups)
			index[server] = i
			groups = append(groups, Group{Server: server})
		}
		groups[i].Identifiers = append(groups[i].Identifiers, id)
	}

	// Collators carry scratch buffers, so each call gets its own.
	coll := collate.New(language.Und)
	slices.SortStableFunc(groups, func(a, b Group) int {
		if c := coll.CompareString(a.Server, b.Server); c != 0 {
			return c
		}
		return strings.Compare(a.Server, b.Server)
	})
	return groups
}

// FilterGroups narrows groups to those matching term, case-insensitively.
// A group whose server name matches keeps all of its identifiers; otherwise
// only matching identifiers remain and empty groups are dropped.
func FilterGroups(groups []Group, term string) []Group {
	if term == "" {
		return groups
	}
	needle := strings.ToLower(term)

	var out []Group
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Server), needle) {
			out = append(out, g)
			continue
		}
		matched := lo.Filter(g.Identifiers, func(id string, _ int) bool {
			return strings.Contains(strings.ToLower(id), needle)
		})
		if len(matched) > 0 {
			out = append(out, Group{Server: g.Server, Identifiers: matched})
		}
	}
	return out
}

// Identifiers flattens groups into a single scope, in view order.
func Identifiers(groups []Group) []string {
	return lo.FlatMap(groups, func(g Group, _ int) []string {
		return g.Identifiers
	})
}

// SelectedCount returns how many of the group's identifiers are granted.
func SelectedCount(g Group, granted Set) int {
	return ComputeCheckedSet(g.Identifiers, granted).Len()
}

// IsGroupFullySelected is true for a non-empty group whose identifiers are all granted.
func IsGroupFullySelected(g Group, granted Set) bool {
	return len(g.Identifiers) > 0 && SelectedCount(g, granted) == len(g.Identifiers)
}

// IsGroupPartiallySelected is true when some but not all identifiers are granted.
func IsGroupPartiallySelected(g Group, granted Set) bool {
	n := SelectedCount(g, granted)
	return n > 0 && n < len(g.Identifiers)
}

// ToggleGroup deselects a fully selected group and selects any other group.
func ToggleGroup(granted Set, g Group) Set {
	if IsGroupFullySelected(g, granted) {
		return SelectNone(granted, g.Identifiers)
	}
	return SelectAll(granted, g.Identifiers)
}
