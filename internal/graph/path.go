package graph

import (
	"math"

	"kincore/pkg/domain"
)

// RelationshipPath returns the people connecting a and b through their
// nearest common ancestors, walking only each person's main parent family.
//
// The result holds both roots, every nearest common ancestor, and every
// descendant of a common ancestor that lies on an ancestral chain of either
// root. It is a set that may contain branches, not a linear path. An
// unresolvable root yields an empty set.
func RelationshipPath(g Graph, a, b domain.Handle) HandleSet {
	result := HandleSet{}
	if _, ok := g.Person(a); !ok {
		return result
	}
	if _, ok := g.Person(b); !ok {
		return result
	}

	ranksA := mainLineRanks(g, a)
	ranksB := mainLineRanks(g, b)

	best := math.MaxInt
	var common []domain.Handle
	for h, rank := range ranksA {
		if _, ok := ranksB[h]; !ok {
			continue
		}
		switch {
		case rank < best:
			best = rank
			common = append(common[:0], h)
		case rank == best:
			common = append(common, h)
		}
	}

	result.Add(a)
	result.Add(b)
	for _, ancestor := range common {
		result.Add(ancestor)
		for h := range descendantsOf(g, ancestor) {
			if _, ok := ranksA[h]; ok {
				result.Add(h)
			}
			if _, ok := ranksB[h]; ok {
				result.Add(h)
			}
		}
	}
	return result
}

// mainLineRanks maps every ancestor reachable through main parent families
// (and the root itself, rank 0) to the generation at which it was first reached.
func mainLineRanks(g Graph, root domain.Handle) map[domain.Handle]int {
	ranks := map[domain.Handle]int{root: 0}
	queue := []domain.Handle{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		person, ok := g.Person(current)
		if !ok {
			continue
		}
		fh, ok := person.MainParentFamily()
		if !ok {
			continue
		}
		family, ok := g.Family(fh)
		if !ok {
			continue
		}
		for _, parent := range family.Parents() {
			if _, seen := ranks[parent]; seen {
				continue
			}
			if _, ok := g.Person(parent); !ok {
				continue
			}
			ranks[parent] = ranks[current] + 1
			queue = append(queue, parent)
		}
	}
	return ranks
}

// descendantsOf returns every descendant of root through all own families.
func descendantsOf(g Graph, root domain.Handle) HandleSet {
	return FindDescendants(g, []domain.Handle{root}, AllLinks())
}
