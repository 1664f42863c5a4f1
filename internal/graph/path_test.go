package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"kincore/pkg/domain"
)

// cousinTree builds first cousins A and B whose single recorded common
// grandparent is G, plus relatives that lie outside the A-G-B subtree.
func cousinTree() *testGraph {
	g := newTestGraph()
	g.addFamily("fg", "G", "", "PA", "PB", "Uncle")
	g.addFamily("fa", "PA", "MA", "A", "SibA")
	g.addFamily("fb", "PB", "MB", "B")
	g.addFamily("fu", "Uncle", "Aunt", "Cousin")
	g.addPedigree("MA", 2)
	g.addPedigree("G", 1)
	return g
}

func TestRelationshipPathFirstCousins(t *testing.T) {
	g := cousinTree()

	got := RelationshipPath(g, "A", "B")
	assertSet(t, got, "A", "B", "G", "PA", "PB")
	for _, outsider := range []domain.Handle{"MA", "MB", "SibA", "Uncle", "Cousin", "GF", "MAF"} {
		if got.Has(outsider) {
			t.Fatalf("unexpected %s in relationship path", outsider)
		}
	}
}

func TestRelationshipPathKeepsTiedCommonAncestors(t *testing.T) {
	g := newTestGraph()
	g.addFamily("fp", "GF", "GM", "P1", "P2")
	g.addFamily("f1", "P1", "", "A")
	g.addFamily("f2", "P2", "", "B")

	assertSet(t, RelationshipPath(g, "A", "B"), "A", "B", "GF", "GM", "P1", "P2")
}

func TestRelationshipPathParentAndChild(t *testing.T) {
	g := newTestGraph()
	g.addPedigree("C", 2)

	assertSet(t, RelationshipPath(g, "C", "CF"), "C", "CF")
}

func TestRelationshipPathUnknownRoot(t *testing.T) {
	g := cousinTree()
	if got := RelationshipPath(g, "A", "nobody"); got.Len() != 0 {
		t.Fatalf("expected empty path for unknown root, got %v", got.Sorted())
	}
}

func TestRelationshipPathTerminatesOnCycle(t *testing.T) {
	g := newTestGraph()
	g.addFamily("f1", "A", "B", "P")
	g.addFamily("f2", "P", "C", "A")
	g.addFamily("f3", "A", "", "Q")

	got := RelationshipPath(g, "P", "Q")
	if !got.Has("A") || !got.Has("P") || !got.Has("Q") {
		t.Fatalf("expected path through A, got %v", got.Sorted())
	}
}

func TestDeepRelationshipPathThroughMarriage(t *testing.T) {
	g := newTestGraph()
	g.addFamily("marriage", "R", "S", "Kid")
	g.addFamily("in-laws", "SF", "SM", "S", "T")
	g.addFamily("unrelated", "U1", "U2", "U3")

	got := DeepRelationshipPath(g, "R", NewHandleSet("T"), nil)
	assertSet(t, got, "R", "S", "T")

	got = DeepRelationshipPath(g, "R", NewHandleSet("T", "Kid", "U3"), nil)
	assertSet(t, got, "R", "S", "T", "Kid")
}

func TestDeepRelationshipPathEdgeCases(t *testing.T) {
	g := newTestGraph()
	g.addFamily("f", "A", "B", "C")

	if got := DeepRelationshipPath(g, "A", HandleSet{}, nil); got.Len() != 0 {
		t.Fatalf("expected empty result without targets")
	}
	if got := DeepRelationshipPath(g, "nobody", NewHandleSet("C"), nil); got.Len() != 0 {
		t.Fatalf("expected empty result for unknown root")
	}
	assertSet(t, DeepRelationshipPath(g, "A", NewHandleSet("A"), nil), "A")
}

func TestDeepRelationshipPathStopsOnceTargetsSatisfied(t *testing.T) {
	g := newTestGraph()
	g.addPedigree("P", 6)

	progress := &cancelAfter{limit: 1 << 20}
	DeepRelationshipPath(g, "P", NewHandleSet("PF"), progress)
	if progress.steps > 3 {
		t.Fatalf("expected early stop after reaching target, took %d steps", progress.steps)
	}
}

func TestShortestPathOrdersChain(t *testing.T) {
	g := newTestGraph()
	g.addFamily("marriage", "R", "S")
	g.addFamily("in-laws", "SF", "SM", "S", "T")

	want := handles("R", "S", "T")
	if diff := cmp.Diff(want, ShortestPath(g, "R", "T")); diff != "" {
		t.Fatalf("unexpected path (-want +got):\n%s", diff)
	}
	if path := ShortestPath(g, "R", "nobody"); path != nil {
		t.Fatalf("expected nil path to unreachable handle, got %v", path)
	}
}
