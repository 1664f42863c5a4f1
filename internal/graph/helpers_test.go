package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"kincore/pkg/domain"
)

type testGraph struct {
	people   map[domain.Handle]domain.Person
	families map[domain.Handle]domain.Family
}

func newTestGraph() *testGraph {
	return &testGraph{
		people:   make(map[domain.Handle]domain.Person),
		families: make(map[domain.Handle]domain.Family),
	}
}

func (g *testGraph) Person(h domain.Handle) (domain.Person, bool) {
	p, ok := g.people[h]
	return p, ok
}

func (g *testGraph) Family(h domain.Handle) (domain.Family, bool) {
	f, ok := g.families[h]
	return f, ok
}

func (g *testGraph) ensure(h domain.Handle) domain.Person {
	if p, ok := g.people[h]; ok {
		return p
	}
	p := domain.Person{Base: domain.Base{Handle: h, ID: string(h)}}
	g.people[h] = p
	return p
}

// addFamily registers a family and links its parents and children to it.
func (g *testGraph) addFamily(fh, father, mother domain.Handle, children ...domain.Handle) {
	g.families[fh] = domain.Family{Base: domain.Base{Handle: fh}, Father: father, Mother: mother, Children: children}
	for _, parent := range []domain.Handle{father, mother} {
		if parent == "" {
			continue
		}
		p := g.ensure(parent)
		p.Families = append(p.Families, fh)
		g.people[parent] = p
	}
	for _, child := range children {
		c := g.ensure(child)
		c.ParentFamilies = append(c.ParentFamilies, fh)
		g.people[child] = c
	}
}

// addPedigree builds a full binary pedigree above root. Father of X is XF,
// mother of X is XM, so a handle's length minus len(root) is its generation.
func (g *testGraph) addPedigree(root domain.Handle, depth int) {
	g.ensure(root)
	if depth == 0 {
		return
	}
	father, mother := root+"F", root+"M"
	g.addFamily("fam-"+root, father, mother, root)
	g.addPedigree(father, depth-1)
	g.addPedigree(mother, depth-1)
}

type cancelAfter struct {
	steps int
	limit int
	begun bool
}

func (c *cancelAfter) Begin(string, int) { c.begun = true }
func (c *cancelAfter) Step()             { c.steps++ }
func (c *cancelAfter) Cancelled() bool   { return c.steps >= c.limit }
func (c *cancelAfter) End()              {}

func handles(values ...string) []domain.Handle {
	out := make([]domain.Handle, len(values))
	for i, v := range values {
		out[i] = domain.Handle(v)
	}
	return out
}

func assertSet(t *testing.T, got HandleSet, want ...string) {
	t.Helper()
	if diff := cmp.Diff(NewHandleSet(handles(want...)...).Sorted(), got.Sorted()); diff != "" {
		t.Fatalf("unexpected handle set (-want +got):\n%s", diff)
	}
}
