package core

import (
	"context"

	"kincore/internal/graph"
	"kincore/pkg/domain"
)

func personGraphRules() []RuleSpec {
	ns := domain.NamespacePerson
	const (
		ancestral    = "Ancestral filters"
		descendant   = "Descendant filters"
		family       = "Family filters"
		relationship = "Relationship filters"
	)
	return []RuleSpec{
		{
			Kind: "IsAncestorOf", Namespace: ns, Name: "Ancestors of <person>",
			Description: "Matches people that are ancestors of a specified person", Category: ancestral,
			Labels: []string{"ID:", "Inclusive:"},
			New: func(b *RuleBase) Rule {
				return &lineageOf{RuleBase: b, dir: graph.Up, bounds: inclusiveBounds}
			},
		},
		{
			Kind: "IsDescendantOf", Namespace: ns, Name: "Descendants of <person>",
			Description: "Matches all descendants for the specified person", Category: descendant,
			Labels: []string{"ID:", "Inclusive:"},
			New: func(b *RuleBase) Rule {
				return &lineageOf{RuleBase: b, dir: graph.Down, bounds: inclusiveBounds}
			},
		},
		{
			Kind: "IsLessThanNthGenerationAncestorOf", Namespace: ns,
			Name:        "Ancestors of <person> not more than <N> generations away",
			Description: "Matches people that are ancestors of a specified person not more than N generations away",
			Category:    ancestral, Labels: []string{"ID:", "Number of generations:"},
			New: func(b *RuleBase) Rule { return &lineageOf{RuleBase: b, dir: graph.Up, bounds: lessThanNth} },
		},
		{
			Kind: "IsMoreThanNthGenerationAncestorOf", Namespace: ns,
			Name:        "Ancestors of <person> at least <N> generations away",
			Description: "Matches people that are ancestors of a specified person at least N generations away",
			Category:    ancestral, Labels: []string{"ID:", "Number of generations:"},
			New: func(b *RuleBase) Rule { return &lineageOf{RuleBase: b, dir: graph.Up, bounds: moreThanNth} },
		},
		{
			Kind: "IsLessThanNthGenerationDescendantOf", Namespace: ns,
			Name:        "Descendants of <person> not more than <N> generations away",
			Description: "Matches people that are descendants of a specified person not more than N generations away",
			Category:    descendant, Labels: []string{"ID:", "Number of generations:"},
			New: func(b *RuleBase) Rule { return &lineageOf{RuleBase: b, dir: graph.Down, bounds: lessThanNth} },
		},
		{
			Kind: "IsMoreThanNthGenerationDescendantOf", Namespace: ns,
			Name:        "Descendants of <person> at least <N> generations away",
			Description: "Matches people that are descendants of a specified person at least N generations away",
			Category:    descendant, Labels: []string{"ID:", "Number of generations:"},
			New: func(b *RuleBase) Rule { return &lineageOf{RuleBase: b, dir: graph.Down, bounds: moreThanNth} },
		},
		{
			Kind: "IsAncestorOfFilterMatch", Namespace: ns, Name: "Ancestors of <filter> match",
			Description: "Matches people that are ancestors of anybody matched by a filter", Category: ancestral,
			Labels: []string{"Filter name:", "Inclusive:"},
			New:    func(b *RuleBase) Rule { return &lineageOfFilterMatch{RuleBase: b, dir: graph.Up} },
		},
		{
			Kind: "IsDescendantOfFilterMatch", Namespace: ns, Name: "Descendants of <filter> match",
			Description: "Matches people that are descendants of anybody matched by a filter", Category: descendant,
			Labels: []string{"Filter name:", "Inclusive:"},
			New:    func(b *RuleBase) Rule { return &lineageOfFilterMatch{RuleBase: b, dir: graph.Down} },
		},
		{
			Kind: "HasCommonAncestorWith", Namespace: ns, Name: "People with a common ancestor with <person>",
			Description: "Matches people that have a common ancestor with a specified person", Category: ancestral,
			Labels: []string{"ID:"},
			New:    func(b *RuleBase) Rule { return &commonAncestorWith{RuleBase: b} },
		},
		{
			Kind: "HasCommonAncestorWithFilterMatch", Namespace: ns,
			Name:        "People with a common ancestor with <filter> match",
			Description: "Matches people that have a common ancestor with anybody matched by a filter",
			Category:    ancestral, Labels: []string{"Filter name:"},
			New: func(b *RuleBase) Rule { return &commonAncestorWith{RuleBase: b, fromFilter: true} },
		},
		{
			Kind: "RelationshipPathBetween", Namespace: ns, Name: "Relationship path between <persons>",
			Description: "Matches the ancestors of two persons back to a common ancestor, producing the relationship path between two persons.",
			Category:    relationship, Labels: []string{"ID:", "ID:"},
			New: func(b *RuleBase) Rule { return &relationshipPathBetween{RuleBase: b} },
		},
		{
			Kind: "DeepRelationshipPathBetween", Namespace: ns,
			Name:        "Deep relationship path between <person> and people matching <filter>",
			Description: "Matches all people on the shortest links from a person to each person matched by a filter",
			Category:    relationship, Labels: []string{"ID:", "Filter name:"},
			New: func(b *RuleBase) Rule { return &deepRelationshipPathBetween{RuleBase: b} },
		},
		{
			Kind: "IsParentOfFilterMatch", Namespace: ns, Name: "Parents of <filter> match",
			Description: "Matches parents of anybody matched by a filter", Category: family,
			Labels: []string{"Filter name:"},
			New:    func(b *RuleBase) Rule { return &relativesOfFilterMatch{RuleBase: b, relatives: parentsOf} },
		},
		{
			Kind: "IsChildOfFilterMatch", Namespace: ns, Name: "Children of <filter> match",
			Description: "Matches children of anybody matched by a filter", Category: family,
			Labels: []string{"Filter name:"},
			New:    func(b *RuleBase) Rule { return &relativesOfFilterMatch{RuleBase: b, relatives: childrenOf} },
		},
		{
			Kind: "IsSpouseOfFilterMatch", Namespace: ns, Name: "Spouses of <filter> match",
			Description: "Matches people married to anybody matching a filter", Category: family,
			Labels: []string{"Filter name:"},
			New:    func(b *RuleBase) Rule { return &relativesOfFilterMatch{RuleBase: b, relatives: spousesOf} },
		},
		{
			Kind: "IsSiblingOfFilterMatch", Namespace: ns, Name: "Siblings of <filter> match",
			Description: "Matches siblings of anybody matched by a filter", Category: family,
			Labels: []string{"Filter name:"},
			New:    func(b *RuleBase) Rule { return &relativesOfFilterMatch{RuleBase: b, relatives: siblingsOf} },
		},
	}
}

// generationBounds turns the rule parameters into traversal options. ok=false
// means the parameters cannot select anybody.
type generationBounds func(r *RuleBase) (opts []graph.Option, ok bool)

// inclusiveBounds includes the person only when the flag is set; an empty flag
// is exclusive, as for the filter-match variants.
func inclusiveBounds(r *RuleBase) ([]graph.Option, bool) {
	return []graph.Option{graph.InclusiveIf(r.ParamFlag(1, false))}, true
}

// lessThanNth keeps generations 0..N-1: the first generation is the person.
func lessThanNth(r *RuleBase) ([]graph.Option, bool) {
	n, ok := r.ParamInt(1)
	if !ok || n < 1 {
		return nil, false
	}
	return []graph.Option{graph.WithMinGeneration(0), graph.WithMaxGeneration(n - 1)}, true
}

// moreThanNth keeps generations N-1 and beyond.
func moreThanNth(r *RuleBase) ([]graph.Option, bool) {
	n, ok := r.ParamInt(1)
	if !ok {
		return nil, false
	}
	return []graph.Option{graph.WithMinGeneration(max(n-1, 0))}, true
}

// rootHandle resolves the ID parameter at index i.
func rootHandle(db FilterDatabase, r *RuleBase, i int) (domain.Handle, bool) {
	e, ok := db.FindByID(domain.NamespacePerson, r.Param(i))
	if !ok {
		logger().Debug("rule person not found", "kind", r.Kind(), "id", r.Param(i))
		return "", false
	}
	return e.EntityHandle(), true
}

// filterMatches runs the library filter named by parameter i over all people.
// A missing filter matches nobody.
func filterMatches(ctx context.Context, db FilterDatabase, r *RuleBase, i int, progress domain.Progress) ([]domain.Handle, error) {
	f, ok := db.Filter(domain.NamespacePerson, r.Param(i))
	if !ok {
		logger().Warn("referenced filter not found", "kind", r.Kind(), "filter", r.Param(i))
		return nil, nil
	}
	return f.Apply(ctx, db, nil, progress)
}

func membership(members graph.HandleSet, e domain.Entity) bool {
	return members.Has(e.EntityHandle())
}

// lineageOf matches the ancestors or descendants of one person. Descendants
// follow every family of each person; ancestors follow the main parent family.
type lineageOf struct {
	*RuleBase
	dir     graph.Direction
	bounds  generationBounds
	members graph.HandleSet
}

func (r *lineageOf) prepare(_ context.Context, db FilterDatabase, progress domain.Progress) error {
	r.members = graph.HandleSet{}
	root, ok := rootHandle(db, r.RuleBase, 0)
	if !ok {
		return nil
	}
	opts, ok := r.bounds(r.RuleBase)
	if !ok {
		return nil
	}
	opts = append(opts, graph.WithProgress(progress))
	if r.dir == graph.Down {
		opts = append(opts, graph.AllLinks())
	}
	for _, v := range graph.Traverse(db, []domain.Handle{root}, r.dir, opts...) {
		r.members.Add(v.Handle)
	}
	return nil
}

func (r *lineageOf) reset() { r.members = nil }

func (r *lineageOf) Apply(_ FilterDatabase, e domain.Entity) bool { return membership(r.members, e) }

// lineageOfFilterMatch matches ancestors or descendants of everyone matched
// by a library filter.
type lineageOfFilterMatch struct {
	*RuleBase
	dir     graph.Direction
	members graph.HandleSet
}

func (r *lineageOfFilterMatch) prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	r.members = graph.HandleSet{}
	seeds, err := filterMatches(ctx, db, r.RuleBase, 0, progress)
	if err != nil || len(seeds) == 0 {
		return err
	}
	opts := []graph.Option{graph.InclusiveIf(r.ParamFlag(1, false)), graph.WithProgress(progress)}
	if r.dir == graph.Down {
		opts = append(opts, graph.AllLinks())
	}
	for _, v := range graph.Traverse(db, seeds, r.dir, opts...) {
		r.members.Add(v.Handle)
	}
	return nil
}

func (r *lineageOfFilterMatch) reset() { r.members = nil }

func (r *lineageOfFilterMatch) Apply(_ FilterDatabase, e domain.Entity) bool {
	return membership(r.members, e)
}

// commonAncestorWith matches people sharing an ancestor with a person, or with
// anybody matched by a filter.
type commonAncestorWith struct {
	*RuleBase
	fromFilter bool
	cache      *graph.AncestorCache
	ancestors  graph.HandleSet
}

func (r *commonAncestorWith) prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	r.cache = graph.NewAncestorCache(db)
	r.ancestors = graph.HandleSet{}
	var with []domain.Handle
	if r.fromFilter {
		matches, err := filterMatches(ctx, db, r.RuleBase, 0, progress)
		if err != nil {
			return err
		}
		with = matches
	} else if root, ok := rootHandle(db, r.RuleBase, 0); ok {
		with = []domain.Handle{root}
	}
	progress.Begin("Finding common ancestors", len(with))
	defer progress.End()
	for _, h := range with {
		if progress.Cancelled() {
			break
		}
		progress.Step()
		r.ancestors.Union(r.cache.Closure(h))
	}
	return nil
}

func (r *commonAncestorWith) reset() {
	r.cache = nil
	r.ancestors = nil
}

func (r *commonAncestorWith) Apply(_ FilterDatabase, e domain.Entity) bool {
	if r.cache == nil || len(r.ancestors) == 0 {
		return false
	}
	return r.cache.Closure(e.EntityHandle()).Intersects(r.ancestors)
}

type relationshipPathBetween struct {
	*RuleBase
	members graph.HandleSet
}

func (r *relationshipPathBetween) prepare(_ context.Context, db FilterDatabase, _ domain.Progress) error {
	r.members = graph.HandleSet{}
	a, okA := rootHandle(db, r.RuleBase, 0)
	b, okB := rootHandle(db, r.RuleBase, 1)
	if !okA || !okB {
		return nil
	}
	r.members = graph.RelationshipPath(db, a, b)
	return nil
}

func (r *relationshipPathBetween) reset() { r.members = nil }

func (r *relationshipPathBetween) Apply(_ FilterDatabase, e domain.Entity) bool {
	return membership(r.members, e)
}

type deepRelationshipPathBetween struct {
	*RuleBase
	members graph.HandleSet
}

func (r *deepRelationshipPathBetween) prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	r.members = graph.HandleSet{}
	root, ok := rootHandle(db, r.RuleBase, 0)
	if !ok {
		return nil
	}
	targets, err := filterMatches(ctx, db, r.RuleBase, 1, progress)
	if err != nil {
		return err
	}
	progress.Begin("Finding relationship paths", 0)
	defer progress.End()
	r.members = graph.DeepRelationshipPath(db, root, graph.NewHandleSet(targets...), progress)
	return nil
}

func (r *deepRelationshipPathBetween) reset() { r.members = nil }

func (r *deepRelationshipPathBetween) Apply(_ FilterDatabase, e domain.Entity) bool {
	return membership(r.members, e)
}

// relativesOfFilterMatch matches the relatives of everyone matched by a
// library filter.
type relativesOfFilterMatch struct {
	*RuleBase
	relatives func(db FilterDatabase, p domain.Person, add func(domain.Handle))
	members   graph.HandleSet
}

func (r *relativesOfFilterMatch) prepare(ctx context.Context, db FilterDatabase, progress domain.Progress) error {
	r.members = graph.HandleSet{}
	matches, err := filterMatches(ctx, db, r.RuleBase, 0, progress)
	if err != nil {
		return err
	}
	for _, h := range matches {
		if p, ok := db.Person(h); ok {
			r.relatives(db, p, r.members.Add)
		}
	}
	return nil
}

func (r *relativesOfFilterMatch) reset() { r.members = nil }

func (r *relativesOfFilterMatch) Apply(_ FilterDatabase, e domain.Entity) bool {
	return membership(r.members, e)
}

func parentsOf(db FilterDatabase, p domain.Person, add func(domain.Handle)) {
	for _, fh := range p.ParentFamilies {
		if f, ok := db.Family(fh); ok {
			for _, parent := range f.Parents() {
				add(parent)
			}
		}
	}
}

func childrenOf(db FilterDatabase, p domain.Person, add func(domain.Handle)) {
	for _, fh := range p.Families {
		if f, ok := db.Family(fh); ok {
			for _, child := range f.Children {
				add(child)
			}
		}
	}
}

func spousesOf(db FilterDatabase, p domain.Person, add func(domain.Handle)) {
	for _, fh := range p.Families {
		if f, ok := db.Family(fh); ok {
			for _, parent := range f.Parents() {
				if parent != p.Handle {
					add(parent)
				}
			}
		}
	}
}

// siblingsOf follows the main parent family only.
func siblingsOf(db FilterDatabase, p domain.Person, add func(domain.Handle)) {
	fh, ok := p.MainParentFamily()
	if !ok {
		return
	}
	if f, ok := db.Family(fh); ok {
		for _, child := range f.Children {
			if child != p.Handle {
				add(child)
			}
		}
	}
}
