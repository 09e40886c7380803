package topology

import (
	"errors"
	"testing"

	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

func inst(name string) *node.Instance {
	return node.New(name, &node.Type{Name: name}, nil)
}

func TestAddNodeAndEdgeDedup(t *testing.T) {
	tp := New()
	a, b := node.Handle(0), node.Handle(1)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))

	if err := tp.AddEdge(Edge{Src: a, Tgt: b}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := tp.AddEdge(Edge{Src: a, Tgt: b}); err != nil {
		t.Fatalf("duplicate AddEdge: %v", err)
	}
	if len(tp.Edges()) != 1 {
		t.Fatalf("Edges() = %v, want 1 deduplicated edge", tp.Edges())
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	tp := New()
	a := node.Handle(0)
	tp.AddNode(a, inst("a"))
	if err := tp.AddEdge(Edge{Src: a, Tgt: node.Handle(99)}); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("err = %v, want ErrUnknownNode", err)
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	tp := New()
	a, b, c := node.Handle(0), node.Handle(1), node.Handle(2)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.AddNode(c, inst("c"))
	_ = tp.AddEdge(Edge{Src: a, Tgt: b})
	_ = tp.AddEdge(Edge{Src: b, Tgt: c})

	tp.RemoveNode(b)
	if tp.HasNode(b) {
		t.Fatal("b should be removed")
	}
	if len(tp.Edges()) != 0 {
		t.Fatalf("Edges() = %v, want all edges touching b removed", tp.Edges())
	}
}

func TestHasCycleDetectsCycle(t *testing.T) {
	tp := New()
	a, b, c := node.Handle(0), node.Handle(1), node.Handle(2)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.AddNode(c, inst("c"))
	_ = tp.AddEdge(Edge{Src: a, Tgt: b})
	_ = tp.AddEdge(Edge{Src: b, Tgt: c})
	_ = tp.AddEdge(Edge{Src: c, Tgt: a})

	if !tp.HasCycle() {
		t.Fatal("expected cycle to be detected")
	}
	if _, err := tp.TopologicalSort(); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("TopologicalSort err = %v, want ErrCycleDetected", err)
	}
}

func TestTopologicalSortRespectsEdges(t *testing.T) {
	tp := New()
	a, b, c, d := node.Handle(0), node.Handle(1), node.Handle(2), node.Handle(3)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.AddNode(c, inst("c"))
	tp.AddNode(d, inst("d"))
	_ = tp.AddEdge(Edge{Src: a, Tgt: b})
	_ = tp.AddEdge(Edge{Src: a, Tgt: c})
	_ = tp.AddEdge(Edge{Src: b, Tgt: d})
	_ = tp.AddEdge(Edge{Src: c, Tgt: d})

	order, err := tp.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	pos := make(map[node.Handle]int, len(order))
	for i, h := range order {
		pos[h] = i
	}
	for _, e := range tp.Edges() {
		if pos[e.Src] >= pos[e.Tgt] {
			t.Fatalf("edge %v->%v violated by order %v", e.Src, e.Tgt, order)
		}
	}
}

func TestRootsAndLeaves(t *testing.T) {
	tp := New()
	a, b, c := node.Handle(0), node.Handle(1), node.Handle(2)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.AddNode(c, inst("c"))
	_ = tp.AddEdge(Edge{Src: a, Tgt: b})
	_ = tp.AddEdge(Edge{Src: b, Tgt: c})

	roots := tp.Roots()
	if len(roots) != 1 || roots[0] != a {
		t.Fatalf("Roots() = %v, want [a]", roots)
	}
	leaves := tp.Leaves()
	if len(leaves) != 1 || leaves[0] != c {
		t.Fatalf("Leaves() = %v, want [c]", leaves)
	}
}

func TestTransitiveQueries(t *testing.T) {
	tp := New()
	a, b, c := node.Handle(0), node.Handle(1), node.Handle(2)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.AddNode(c, inst("c"))
	_ = tp.AddEdge(Edge{Src: a, Tgt: b})
	_ = tp.AddEdge(Edge{Src: b, Tgt: c})

	deps := tp.TransitiveDependencies(c)
	if len(deps) != 2 {
		t.Fatalf("TransitiveDependencies(c) = %v, want [a b]", deps)
	}
	dependents := tp.TransitiveDependents(a)
	if len(dependents) != 2 {
		t.Fatalf("TransitiveDependents(a) = %v, want [b c]", dependents)
	}
}

func TestValidateCatchesDanglingEdge(t *testing.T) {
	tp := New()
	a := node.Handle(0)
	tp.AddNode(a, inst("a"))
	tp.edges = append(tp.edges, Edge{Src: a, Tgt: node.Handle(42)})

	if err := tp.Validate(); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("Validate() = %v, want ErrDanglingEdge", err)
	}
}

func TestValidateAllowsUnconstrainedSchema(t *testing.T) {
	tp := New()
	a, b := node.Handle(0), node.Handle(1)
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, inst("b"))
	tp.edges = append(tp.edges, Edge{Src: a, SrcOutIdx: 0, Tgt: b, TgtInIdx: 5})

	// b's Type has zero declared slots, so no bound is enforced and this
	// should validate cleanly.
	if err := tp.Validate(); err != nil {
		t.Fatalf("Validate() with unconstrained schema = %v, want nil", err)
	}
}

func TestValidateCatchesInvalidSlotIndexWithSchema(t *testing.T) {
	tp := New()
	a := node.Handle(0)
	b := node.Handle(1)
	bTyp := &node.Type{
		Name:       "b",
		InputSlots: []slot.Info{slot.FromStatic(0, resource.KindBuffer, false)},
	}
	tp.AddNode(a, inst("a"))
	tp.AddNode(b, node.New("b", bTyp, nil))
	tp.edges = append(tp.edges, Edge{Src: a, SrcOutIdx: 0, Tgt: b, TgtInIdx: 5})

	if err := tp.Validate(); !errors.Is(err, ErrInvalidSlotIndex) {
		t.Fatalf("Validate() = %v, want ErrInvalidSlotIndex", err)
	}
}
