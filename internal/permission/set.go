// ABOUTME: String set used for granted and checked permission identifiers
// ABOUTME: Mutating helpers in this package always return a fresh Set

package permission

import (
	"slices"

	"github.com/samber/lo"
)

// Set is an unordered set of identifiers or patterns.
type Set map[string]struct{}

// NewSet builds a set from the given elements. Duplicates collapse.
func NewSet(elems ...string) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Has reports whether e is an exact member of the set.
func (s Set) Has(e string) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of elements.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy. A nil set clones to an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	return out
}

// Sorted returns the elements in byte order, for stable output and storage.
func (s Set) Sorted() []string {
	keys := lo.Keys(s)
	slices.Sort(keys)
	return keys
}

// Equal reports whether both sets hold the same elements.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for e := range s {
		if !other.Has(e) {
			return false
		}
	}
	return true
}
