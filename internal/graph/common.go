package graph

import "kincore/pkg/domain"

// AncestorCache memoizes ancestor closures. The closure of a person is the
// person together with every ancestor reachable through any parent family.
// A parent family that records no parents contributes its own family handle
// as a placeholder ancestor, so that two people descending from the same
// unknown couple still share an ancestor. A family whose recorded parents do
// not resolve, and a parent family handle that does not resolve, contribute
// nothing.
//
// The cache is not safe for concurrent use.
type AncestorCache struct {
	g        Graph
	closures map[domain.Handle]HandleSet
}

// NewAncestorCache returns an empty cache over g.
func NewAncestorCache(g Graph) *AncestorCache {
	return &AncestorCache{g: g, closures: make(map[domain.Handle]HandleSet)}
}

// Len returns the number of memoized closures.
func (c *AncestorCache) Len() int { return len(c.closures) }

// Known reports whether the closure of h is already memoized.
func (c *AncestorCache) Known(h domain.Handle) bool {
	_, ok := c.closures[h]
	return ok
}

// Closure returns the memoized ancestor closure of h, computing it on first
// use. Unresolvable handles have an empty closure. The returned set must not
// be modified.
func (c *AncestorCache) Closure(h domain.Handle) HandleSet {
	if set, ok := c.closures[h]; ok {
		return set
	}
	root, ok := c.g.Person(h)
	if !ok {
		c.closures[h] = HandleSet{}
		return c.closures[h]
	}

	closure := NewHandleSet(h)
	visited := map[domain.Handle]struct{}{h: {}}
	queue := []domain.Person{root}
	for len(queue) > 0 {
		person := queue[0]
		queue = queue[1:]
		for _, fh := range person.ParentFamilies {
			family, ok := c.g.Family(fh)
			if !ok {
				continue
			}
			parents := family.Parents()
			if len(parents) == 0 {
				closure.Add(fh)
				continue
			}
			for _, ph := range parents {
				parent, ok := c.g.Person(ph)
				if !ok {
					continue
				}
				if _, seen := visited[ph]; seen {
					continue
				}
				visited[ph] = struct{}{}
				if known, ok := c.closures[ph]; ok {
					closure.Union(known)
					continue
				}
				closure.Add(ph)
				queue = append(queue, parent)
			}
		}
	}
	c.closures[h] = closure
	return closure
}

// SharesAncestor reports whether a and b have intersecting, non-empty closures.
func (c *AncestorCache) SharesAncestor(a, b domain.Handle) bool {
	ca := c.Closure(a)
	if len(ca) == 0 {
		return false
	}
	cb := c.Closure(b)
	if len(cb) == 0 {
		return false
	}
	return ca.Intersects(cb)
}

// HasCommonAncestor is a one-shot SharesAncestor with a fresh cache.
func HasCommonAncestor(g Graph, a, b domain.Handle) bool {
	return NewAncestorCache(g).SharesAncestor(a, b)
}
