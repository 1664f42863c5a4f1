package graph

import "kincore/pkg/domain"

// Direction selects which links a traversal follows.
type Direction int

const (
	// Up follows parent-family links towards ancestors.
	Up Direction = iota
	// Down follows own-family links towards descendants.
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "descendants"
	}
	return "ancestors"
}

type traverseOptions struct {
	minGen    int
	maxGen    int
	inclusive bool
	allLinks  bool
	progress  domain.Progress
}

// Option configures Traverse.
type Option func(*traverseOptions)

// WithMinGeneration sets the smallest generation that is reported. The
// default is 1, which leaves the seeds out.
func WithMinGeneration(n int) Option {
	return func(o *traverseOptions) { o.minGen = n }
}

// WithMaxGeneration sets the deepest generation that is reported and expanded.
func WithMaxGeneration(n int) Option {
	return func(o *traverseOptions) { o.maxGen = n }
}

// Inclusive reports the seeds themselves (generation 0).
func Inclusive() Option {
	return func(o *traverseOptions) { o.inclusive = true }
}

// InclusiveIf is Inclusive when include is true.
func InclusiveIf(include bool) Option {
	return func(o *traverseOptions) { o.inclusive = include }
}

// AllLinks follows every parent family (up) or own family (down) instead of
// only the first one.
func AllLinks() Option {
	return func(o *traverseOptions) { o.allLinks = true }
}

// WithProgress reports one step per dequeued handle and stops the walk when
// the progress reports cancellation.
func WithProgress(p domain.Progress) Option {
	return func(o *traverseOptions) { o.progress = domain.OrNoProgress(p) }
}

type queued struct {
	handle domain.Handle
	gen    int
}

// Traverse runs a breadth-first search from every seed at once. The visited
// set is shared across seeds so a group of people is walked in a single pass.
// Visits are returned in BFS order. A cancelled walk returns what was found
// so far.
func Traverse(g Graph, seeds []domain.Handle, dir Direction, opts ...Option) []Visit {
	o := traverseOptions{minGen: 1, maxGen: Unlimited, progress: domain.NoProgress}
	for _, opt := range opts {
		opt(&o)
	}

	queue := make([]queued, 0, len(seeds))
	for _, seed := range seeds {
		if seed != "" {
			queue = append(queue, queued{handle: seed})
		}
	}
	visited := make(map[domain.Handle]struct{}, len(seeds))
	var out []Visit

	for len(queue) > 0 {
		if o.progress.Cancelled() {
			break
		}
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current.handle]; seen {
			continue
		}
		visited[current.handle] = struct{}{}
		o.progress.Step()

		person, ok := g.Person(current.handle)
		if !ok {
			continue
		}
		if (current.gen >= o.minGen && current.gen <= o.maxGen) || (current.gen == 0 && o.inclusive) {
			out = append(out, Visit{Handle: current.handle, Generation: current.gen})
		}
		if current.gen >= o.maxGen {
			continue
		}
		for _, next := range linked(g, person, dir, o.allLinks) {
			if _, seen := visited[next]; !seen {
				queue = append(queue, queued{handle: next, gen: current.gen + 1})
			}
		}
	}
	return out
}

// linked returns the handles one step away from person in the given direction.
func linked(g Graph, person domain.Person, dir Direction, allLinks bool) []domain.Handle {
	families := person.ParentFamilies
	if dir == Down {
		families = person.Families
	}
	if !allLinks && len(families) > 1 {
		families = families[:1]
	}
	var out []domain.Handle
	for _, fh := range families {
		family, ok := g.Family(fh)
		if !ok {
			continue
		}
		if dir == Down {
			for _, child := range family.Children {
				if child != "" {
					out = append(out, child)
				}
			}
			continue
		}
		out = append(out, family.Parents()...)
	}
	return out
}

// FindAncestors returns the ancestors of the seeds as a set.
func FindAncestors(g Graph, seeds []domain.Handle, opts ...Option) HandleSet {
	return collect(Traverse(g, seeds, Up, opts...))
}

// FindDescendants returns the descendants of the seeds as a set.
func FindDescendants(g Graph, seeds []domain.Handle, opts ...Option) HandleSet {
	return collect(Traverse(g, seeds, Down, opts...))
}

func collect(visits []Visit) HandleSet {
	out := make(HandleSet, len(visits))
	for _, v := range visits {
		out.Add(v.Handle)
	}
	return out
}
