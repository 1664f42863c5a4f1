// Package graph implements cycle-safe traversals over the family graph:
// generation-bounded ancestor/descendant searches, ancestor-closure caches for
// common-ancestor detection, and relationship-path reconstruction.
//
// The family graph is not assumed to be acyclic. Corrupt data can make a
// person their own ancestor, so every walk is guarded by a visited set or map
// keyed by handle. Handles that do not resolve are skipped.
package graph

import (
	"math"
	"sort"

	"kincore/pkg/domain"
)

// Unlimited is the generation bound used when a traversal has no maximum depth.
const Unlimited = math.MaxInt

// Graph is the subset of domain.Database the traversals need.
type Graph interface {
	Person(h domain.Handle) (domain.Person, bool)
	Family(h domain.Handle) (domain.Family, bool)
}

// Visit is one handle reached by a traversal together with its generation.
type Visit struct {
	Handle     domain.Handle
	Generation int
}

// HandleSet is an unordered set of handles.
type HandleSet map[domain.Handle]struct{}

// NewHandleSet builds a set from the given handles, ignoring empty ones.
func NewHandleSet(handles ...domain.Handle) HandleSet {
	s := make(HandleSet, len(handles))
	for _, h := range handles {
		s.Add(h)
	}
	return s
}

// Add inserts h unless it is empty.
func (s HandleSet) Add(h domain.Handle) {
	if h == "" {
		return
	}
	s[h] = struct{}{}
}

// Remove deletes h from the set.
func (s HandleSet) Remove(h domain.Handle) { delete(s, h) }

// Has reports membership.
func (s HandleSet) Has(h domain.Handle) bool {
	_, ok := s[h]
	return ok
}

// Len returns the number of handles.
func (s HandleSet) Len() int { return len(s) }

// Union adds every member of other to s.
func (s HandleSet) Union(other HandleSet) {
	for h := range other {
		s[h] = struct{}{}
	}
}

// Intersects reports whether the two sets share at least one handle.
func (s HandleSet) Intersects(other HandleSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for h := range small {
		if _, ok := large[h]; ok {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s HandleSet) Clone() HandleSet {
	out := make(HandleSet, len(s))
	out.Union(s)
	return out
}

// Sorted returns the members in ascending order.
func (s HandleSet) Sorted() []domain.Handle {
	out := make([]domain.Handle, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
