// ABOUTME: Computes which catalog identifiers are covered by a granted set
// ABOUTME: Exact grants are hash lookups; wildcard grants are scanned per identifier

package permission

// ComputeCheckedSet returns the identifiers from ids that are granted, either
// exactly or through a wildcard element of granted.
//
// Granted sets tend to hold many exact grants and very few wildcards, so the
// set is split once: exact membership stays O(1) and only the wildcards are
// scanned for each identifier.
func ComputeCheckedSet(ids []string, granted Set) Set {
	exact, wildcards := partition(granted)

	checked := make(Set)
	for _, id := range ids {
		if exact.Has(id) || matchesAny(wildcards, id) {
			checked[id] = struct{}{}
		}
	}
	return checked
}

// IsChecked reports whether a single identifier is granted.
func IsChecked(id string, granted Set) bool {
	if granted.Has(id) {
		return true
	}
	for e := range granted {
		if IsWildcard(e) && MatchesPattern(e, id) {
			return true
		}
	}
	return false
}

func partition(granted Set) (exact Set, wildcards []string) {
	exact = make(Set, len(granted))
	for e := range granted {
		if IsWildcard(e) {
			wildcards = append(wildcards, e)
			continue
		}
		exact[e] = struct{}{}
	}
	return exact, wildcards
}

func matchesAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if MatchesPattern(p, id) {
			return true
		}
	}
	return false
}
