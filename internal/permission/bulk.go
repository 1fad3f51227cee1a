// ABOUTME: Bulk grant operations (select all, select none, invert) over a scope
// ABOUTME: Membership here is exact string membership; wildcard grants are never synthesized or retracted

package permission

// SelectAll returns granted ∪ scope.
func SelectAll(granted Set, scope []string) Set {
	out := granted.Clone()
	for _, id := range scope {
		out[id] = struct{}{}
	}
	return out
}

// SelectNone returns granted minus scope. Wildcard grants that cover members
// of scope are left alone, so those members stay checked.
func SelectNone(granted Set, scope []string) Set {
	out := granted.Clone()
	for _, id := range scope {
		delete(out, id)
	}
	return out
}

// Invert returns (granted - scope) ∪ (scope - granted).
func Invert(granted Set, scope []string) Set {
	out := granted.Clone()
	for id := range NewSet(scope...) {
		if granted.Has(id) {
			delete(out, id)
		} else {
			out[id] = struct{}{}
		}
	}
	return out
}

// Add returns granted ∪ {id}. id may be an identifier or a pattern.
func Add(granted Set, id string) Set {
	out := granted.Clone()
	out[id] = struct{}{}
	return out
}

// Remove returns granted minus {id}.
func Remove(granted Set, id string) Set {
	out := granted.Clone()
	delete(out, id)
	return out
}
