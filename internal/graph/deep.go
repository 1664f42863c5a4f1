package graph

import "kincore/pkg/domain"

// DeepRelationshipPath finds shortest paths (in links) from root to every
// target through the whole family graph: parents, children, spouses and
// siblings. The result is the union of the handles on those paths. The search
// stops as soon as every reachable target has been satisfied, or when progress
// reports cancellation, in which case the partial union is returned.
func DeepRelationshipPath(g Graph, root domain.Handle, targets HandleSet, progress domain.Progress) HandleSet {
	result := HandleSet{}
	if len(targets) == 0 {
		return result
	}
	if _, ok := g.Person(root); !ok {
		return result
	}
	progress = domain.OrNoProgress(progress)
	remaining := targets.Clone()

	walkFamilyGraph(g, root, progress, func(current domain.Handle, pred map[domain.Handle]domain.Handle) bool {
		if !remaining.Has(current) {
			return false
		}
		for _, h := range walkBack(pred, root, current) {
			result.Add(h)
		}
		remaining.Remove(current)
		return len(remaining) == 0
	})
	return result
}

// ShortestPath returns the ordered chain of handles from a to b through the
// whole family graph, or nil when b is unreachable.
func ShortestPath(g Graph, a, b domain.Handle) []domain.Handle {
	if _, ok := g.Person(a); !ok {
		return nil
	}
	var path []domain.Handle
	walkFamilyGraph(g, a, domain.NoProgress, func(current domain.Handle, pred map[domain.Handle]domain.Handle) bool {
		if current != b {
			return false
		}
		chain := walkBack(pred, a, current)
		path = make([]domain.Handle, len(chain))
		for i, h := range chain {
			path[len(chain)-1-i] = h
		}
		return true
	})
	return path
}

// walkFamilyGraph walks the family graph breadth-first from root, recording
// for each reached handle the handle it was reached from. visit is called for
// every dequeued handle and stops the walk by returning true.
func walkFamilyGraph(g Graph, root domain.Handle, progress domain.Progress, visit func(domain.Handle, map[domain.Handle]domain.Handle) bool) {
	pred := map[domain.Handle]domain.Handle{root: ""}
	queue := []domain.Handle{root}
	for len(queue) > 0 {
		if progress.Cancelled() {
			break
		}
		progress.Step()
		current := queue[0]
		queue = queue[1:]
		if visit(current, pred) {
			break
		}
		person, ok := g.Person(current)
		if !ok {
			continue
		}
		for _, next := range familyPeople(g, person) {
			if _, seen := pred[next]; seen {
				continue
			}
			pred[next] = current
			queue = append(queue, next)
		}
	}
}

// walkBack follows predecessor links from h to root, returning h first.
func walkBack(pred map[domain.Handle]domain.Handle, root, h domain.Handle) []domain.Handle {
	chain := []domain.Handle{h}
	for h != root {
		h = pred[h]
		chain = append(chain, h)
	}
	return chain
}

// familyPeople lists everyone sharing a family with person: spouses and
// children through own families, parents and siblings through parent families.
func familyPeople(g Graph, person domain.Person) []domain.Handle {
	self := person.Handle
	var out []domain.Handle
	add := func(h domain.Handle) {
		if h != "" && h != self {
			out = append(out, h)
		}
	}
	families := make([]domain.Handle, 0, len(person.Families)+len(person.ParentFamilies))
	families = append(families, person.Families...)
	families = append(families, person.ParentFamilies...)
	for _, fh := range families {
		family, ok := g.Family(fh)
		if !ok {
			continue
		}
		add(family.Father)
		add(family.Mother)
		for _, child := range family.Children {
			add(child)
		}
	}
	return out
}
