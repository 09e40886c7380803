package connect

import (
	"errors"
	"testing"

	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

type fakeEdge struct {
	src, tgt           node.Handle
	srcOutIdx, tgtInIdx int
}

type fakeGraph struct {
	handles   map[*node.Instance]node.Handle
	edges     []fakeEdge
	lifetimes map[string]resource.Lifetime
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{handles: make(map[*node.Instance]node.Handle), lifetimes: make(map[string]resource.Lifetime)}
}

func (g *fakeGraph) AddEdge(src node.Handle, srcOutIdx int, tgt node.Handle, tgtInIdx int) error {
	g.edges = append(g.edges, fakeEdge{src, tgt, srcOutIdx, tgtInIdx})
	return nil
}

func (g *fakeGraph) HandleOf(inst *node.Instance) (node.Handle, bool) {
	h, ok := g.handles[inst]
	return h, ok
}

func (g *fakeGraph) RegisterDependencyUse(owner node.Handle, resourceName string) {}

func (g *fakeGraph) SourceLifetime(srcNode string, srcSlot int) (resource.Lifetime, bool) {
	l, ok := g.lifetimes[srcNode]
	return l, ok
}

func newInst(name string, h node.Handle, g *fakeGraph) *node.Instance {
	i := node.New(name, &node.Type{Name: name}, nil)
	i.Handle = h
	g.handles[i] = h
	return i
}

func TestDirectRuleResolvesEdge(t *testing.T) {
	g := newFakeGraph()
	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)

	pipeline := NewPipeline(NewRuleSet())
	ctx := &Context{SrcNode: src, SrcSlot: 0, TgtNode: tgt, TgtSlot: 0, Graph: g}
	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false)

	ruleName, err := pipeline.Run(ctx, srcSlot, tgtSlot)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ruleName != "DirectRule" {
		t.Fatalf("ruleName = %q, want DirectRule", ruleName)
	}
	if len(g.edges) != 1 {
		t.Fatalf("edges = %v, want 1", g.edges)
	}
}

func TestDirectRuleRejectsDoubleDriver(t *testing.T) {
	g := newFakeGraph()
	srcA := newInst("srcA", 0, g)
	srcB := newInst("srcB", 1, g)
	tgt := newInst("tgt", 2, g)

	pipeline := NewPipeline(NewRuleSet())
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false)
	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)

	ctx1 := &Context{SrcNode: srcA, TgtNode: tgt, TgtSlot: 0, Graph: g}
	if _, err := pipeline.Run(ctx1, srcSlot, tgtSlot); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	ctx2 := &Context{SrcNode: srcB, TgtNode: tgt, TgtSlot: 0, Graph: g}
	_, err := pipeline.Run(ctx2, srcSlot, tgtSlot)
	if !errors.Is(err, ErrTargetHasDriver) {
		t.Fatalf("second Run err = %v, want ErrTargetHasDriver", err)
	}
}

func TestAccumulationRuleOrdersBySortKey(t *testing.T) {
	g := newFakeGraph()
	accRule := &AccumulationRule{}
	rules := &RuleSet{}
	rules.Register(accRule)

	pipeline := NewPipeline(rules)
	tgt := newInst("tgt", 0, g)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false, slot.WithFlags(slot.Accumulation))
	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)

	a := newInst("a", 1, g)
	b := newInst("b", 2, g)
	c := newInst("c", 3, g)

	run := func(src *node.Instance, sortKey int64) {
		ctx := &Context{SrcNode: src, TgtNode: tgt, TgtSlot: 0, SortKey: sortKey, HasSortKey: true, Graph: g}
		if _, err := pipeline.Run(ctx, srcSlot, tgtSlot); err != nil {
			t.Fatalf("Run(%s): %v", src.Name, err)
		}
	}
	run(a, 20)
	run(b, 10)
	run(c, 15)

	acc := accRule.Accumulator(tgt.Name, 0)
	resolved := acc.Resolved()
	if len(resolved) != 3 {
		t.Fatalf("Resolved() len = %d, want 3", len(resolved))
	}
	want := []string{"b", "c", "a"}
	for i, v := range resolved {
		c := v.(Contribution)
		if c.SourceNode != want[i] {
			t.Fatalf("Resolved()[%d] = %q, want %q", i, c.SourceNode, want[i])
		}
	}
}

func TestAccumulationRuleRejectsTransientForNonValueStrategy(t *testing.T) {
	g := newFakeGraph()
	g.lifetimes["src"] = resource.Transient

	accRule := &AccumulationRule{}
	acc := accRule.Accumulator("tgt", 0)
	acc.strategy = Reference

	rules := &RuleSet{}
	rules.Register(accRule)
	pipeline := NewPipeline(rules)

	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false, slot.WithFlags(slot.Accumulation))
	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)

	ctx := &Context{SrcNode: src, TgtNode: tgt, TgtSlot: 0, Graph: g}
	_, err := pipeline.Run(ctx, srcSlot, tgtSlot)
	if !errors.Is(err, ErrTransientReference) {
		t.Fatalf("err = %v, want ErrTransientReference", err)
	}
}

func TestVariadicRuleRecordsTentativeSlot(t *testing.T) {
	g := newFakeGraph()
	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)

	variadicRule := &VariadicRule{}
	rules := &RuleSet{}
	rules.Register(variadicRule)
	pipeline := NewPipeline(rules)

	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)
	tgtSlot := slot.FromBinding(slot.BindingRef{BindingIndex: 3, DescriptorType: "uniform"}, resource.KindBuffer)

	ctx := &Context{SrcNode: src, SrcSlot: 0, TgtNode: tgt, TgtSlot: 3, Graph: g}
	if _, err := pipeline.Run(ctx, srcSlot, tgtSlot); err != nil {
		t.Fatalf("Run: %v", err)
	}

	info, ok := variadicRule.Variadics.Get(tgt.Name, 3)
	if !ok {
		t.Fatal("expected variadic slot to be recorded")
	}
	if info.State != SlotTentative || info.SourceNode != "src" {
		t.Fatalf("info = %+v", info)
	}
}

func TestModifierPipelineOrdering(t *testing.T) {
	g := newFakeGraph()
	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)

	pipeline := NewPipeline(NewRuleSet())
	pipeline.Use(&DebugTagModifier{Tag: "viz"})
	pipeline.Use(&SlotRoleModifier{Role: slot.Execute})

	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false)
	ctx := &Context{SrcNode: src, TgtNode: tgt, Graph: g}

	if _, err := pipeline.Run(ctx, srcSlot, tgtSlot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.DebugTag != "viz" {
		t.Fatalf("DebugTag = %q, want viz", ctx.DebugTag)
	}
	if !ctx.HasRoleOverride || ctx.RoleOverride != slot.Execute {
		t.Fatalf("RoleOverride = %v, HasRoleOverride = %v", ctx.RoleOverride, ctx.HasRoleOverride)
	}
}

func TestFieldExtractionRequiresPersistentSource(t *testing.T) {
	g := newFakeGraph()
	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)

	pipeline := NewPipeline(NewRuleSet())
	pipeline.Use(&FieldExtractionModifier{SourceLifetime: resource.Transient})

	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false)
	ctx := &Context{SrcNode: src, TgtNode: tgt, Graph: g}

	_, err := pipeline.Run(ctx, srcSlot, tgtSlot)
	if !errors.Is(err, ErrTransientReference) {
		t.Fatalf("err = %v, want ErrTransientReference", err)
	}
}

func TestAccumulationSortConfigSkipsOnWrongRule(t *testing.T) {
	g := newFakeGraph()
	src := newInst("src", 0, g)
	tgt := newInst("tgt", 1, g)

	pipeline := NewPipeline(NewRuleSet())
	pipeline.Use(&AccumulationSortConfig{SortKey: 5})

	srcSlot := slot.FromStatic(0, resource.KindBuffer, true)
	tgtSlot := slot.FromStatic(0, resource.KindBuffer, false) // not Accumulation => DirectRule matches
	ctx := &Context{SrcNode: src, TgtNode: tgt, Graph: g}

	if _, err := pipeline.Run(ctx, srcSlot, tgtSlot); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ctx.HasSortKey {
		t.Fatal("expected AccumulationSortConfig to skip itself for a non-accumulation connection")
	}
}
