// Package rendergraph is the facade that wires every sub-package
// (node, topology, connect, hooks, access, exec, budget, event, cleanup)
// into the single Graph type described end to end in spec.md: typed
// nodes and slots, a connect rule/modifier pipeline, DAG topology, a
// four-phase node lifecycle, wave-partitioned parallel execution, an
// adaptive frame-budget controller, and a cleanup/deferred-destruction
// stack — driven by Compile (spec.md §4.5) and RenderFrame (spec.md
// §4.10).
package rendergraph

import (
	"fmt"
	"sync"

	"github.com/vixengraph/rendergraph/access"
	"github.com/vixengraph/rendergraph/budget"
	"github.com/vixengraph/rendergraph/cleanup"
	"github.com/vixengraph/rendergraph/connect"
	"github.com/vixengraph/rendergraph/event"
	"github.com/vixengraph/rendergraph/exec"
	"github.com/vixengraph/rendergraph/hooks"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/topology"
)

// Graph owns every node instance, resource, and subsystem for one render
// graph (spec.md §3 "Graph"). Construction (AddNode/Connect) is
// single-threaded, as is Compile; RenderFrame may dispatch node tasks
// across a worker pool internally but is itself expected to be called
// from a single driving goroutine (spec.md §5).
type Graph struct {
	mu sync.Mutex

	Types    *node.Registry
	Topo     *topology.Topology
	Pipeline *connect.Pipeline
	Hooks    *hooks.Registry
	Deps     *hooks.DependencyTracker
	Access   *access.Tracker
	Bus      *event.Bus

	waveScheduler *exec.WaveScheduler
	executor      *exec.FlowExecutor

	BudgetRegistry *budget.Registry
	capacity       *budget.CapacityTracker
	budgetManager  *budget.Manager

	Cleanup    *cleanup.Stack
	Deferred   *cleanup.DeferredQueue
	cleanupLag uint64

	instances  []*node.Instance // dense arena, indexed by node.Handle
	byName     map[string]node.Handle
	resources  map[string]*resource.Resource
	loopActive map[string]bool

	compiled  bool
	execOrder []node.Handle
	waves     []exec.Wave

	frameNumber    uint64
	totalSeconds   float64
	deltaSeconds   float64
	lastFrameNanos int64
	compilingNode  node.Handle
}

// New creates an empty Graph, ready for AddNode/Connect calls.
func New(opts ...Option) *Graph {
	g := &Graph{
		Types:          node.NewRegistry(),
		Topo:           topology.New(),
		Pipeline:       connect.NewPipeline(connect.NewRuleSet()),
		Hooks:          hooks.NewRegistry(),
		Deps:           hooks.NewDependencyTracker(),
		Access:         access.NewTracker(),
		Bus:            event.NewBus(),
		BudgetRegistry: budget.NewRegistry(),
		Cleanup:        cleanup.NewStack(),
		Deferred:       cleanup.NewDeferredQueue(),
		byName:         make(map[string]node.Handle),
		resources:      make(map[string]*resource.Resource),
		loopActive:     make(map[string]bool),
		compilingNode:  node.InvalidHandle,
		cleanupLag:     3,
	}
	g.waveScheduler = exec.NewWaveScheduler(g.Access)
	g.executor = exec.NewFlowExecutor(exec.Parallel, 0)
	g.capacity = budget.NewCapacityTracker(16_666_667, 0.05) // 16.67ms default, ±5% deadband
	g.budgetManager = budget.NewManager(g.BudgetRegistry, g.capacity)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close releases the executor's worker pool. Call once the graph is no
// longer in use.
func (g *Graph) Close() {
	g.executor.Close()
}

// RegisterNodeType registers typ so AddNode can instantiate it by name.
func (g *Graph) RegisterNodeType(typ *node.Type) {
	g.Types.Register(typ)
}

// AddNode instantiates typeName under instanceName and adds it to the
// topology, returning its dense handle. Fails once the graph is compiled
// (spec.md §5 "construction is single-threaded... undefined alongside
// render_frame" — the facade turns that into a hard error instead).
func (g *Graph) AddNode(typeName, instanceName string) (node.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.compiled {
		return node.InvalidHandle, ErrAlreadyCompiled
	}
	if _, exists := g.byName[instanceName]; exists {
		return node.InvalidHandle, fmt.Errorf("%w: %q", ErrDuplicateNodeName, instanceName)
	}

	inst, err := g.Types.New(typeName, instanceName)
	if err != nil {
		return node.InvalidHandle, err
	}

	h := node.Handle(len(g.instances))
	inst.Handle = h
	g.instances = append(g.instances, inst)
	g.byName[instanceName] = h
	g.Topo.AddNode(h, inst)
	return h, nil
}

// GetInstance returns the instance at h.
func (g *Graph) GetInstance(h node.Handle) (*node.Instance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if int(h) < 0 || int(h) >= len(g.instances) {
		return nil, false
	}
	return g.instances[h], true
}

// GetInstanceByName returns the instance named name.
func (g *Graph) GetInstanceByName(name string) (*node.Instance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.instances[h], true
}

// GetTopology exposes the underlying topology for read-only inspection.
func (g *Graph) GetTopology() *topology.Topology { return g.Topo }

// GetExecutionOrder returns the topological order computed by the last
// successful Compile, or an empty slice if the graph is not compiled.
func (g *Graph) GetExecutionOrder() []node.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]node.Handle, len(g.execOrder))
	copy(out, g.execOrder)
	return out
}

// GetTime returns the total simulated seconds elapsed across every
// RenderFrame call so far.
func (g *Graph) GetTime() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalSeconds
}

// GetBudgetManager exposes the budget.Manager coupling the task profile
// registry with the capacity tracker.
func (g *Graph) GetBudgetManager() *budget.Manager { return g.budgetManager }

// GetTaskProfileRegistry exposes the budget.Registry directly, for nodes
// that register their own task profile at Setup/Compile time.
func (g *Graph) GetTaskProfileRegistry() *budget.Registry { return g.BudgetRegistry }

// SetLoopActive marks a named loop active or inactive for
// Instance.ShouldExecuteThisFrame gating (spec.md §9 Open Questions: "no
// loop connected, or at least one connected loop active").
func (g *Graph) SetLoopActive(loopName string, active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loopActive[loopName] = active
}

// AccumulatedContributions returns the resolved, ordered contribution
// list every Connect call has appended to tgtName's accumulation input
// slot tgtSlot: insertion order, or a stable sort by (sort_key,
// insertion_order) if any contribution carried WithSortKey (spec.md
// §4.4). Returns nil if the slot has no accumulator yet (no Connect call
// has targeted it).
func (g *Graph) AccumulatedContributions(tgtName string, tgtSlot int) []connect.Contribution {
	g.mu.Lock()
	defer g.mu.Unlock()

	rule := g.Pipeline.Rules.Accumulation()
	if rule == nil {
		return nil
	}
	resolved := rule.Accumulator(tgtName, tgtSlot).Resolved()
	out := make([]connect.Contribution, 0, len(resolved))
	for _, v := range resolved {
		if c, ok := v.(connect.Contribution); ok {
			out = append(out, c)
		}
	}
	return out
}

// Connect resolves the rule/modifier pipeline for one (srcName, srcSlot)
// -> (tgtName, tgtSlot) connection (spec.md §4.4). Returns the matched
// rule's name on success.
func (g *Graph) Connect(srcName string, srcSlot int, tgtName string, tgtSlot int, opts ...ConnectOption) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.compiled {
		return "", ErrAlreadyCompiled
	}

	srcH, ok := g.byName[srcName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeName, srcName)
	}
	tgtH, ok := g.byName[tgtName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeName, tgtName)
	}
	srcInst, tgtInst := g.instances[srcH], g.instances[tgtH]

	if srcSlot < 0 || srcSlot >= len(srcInst.Type.OutputSlots) {
		return "", fmt.Errorf("%w: %q output %d", ErrUnknownSlot, srcName, srcSlot)
	}
	if tgtSlot < 0 || tgtSlot >= len(tgtInst.Type.InputSlots) {
		return "", fmt.Errorf("%w: %q input %d", ErrUnknownSlot, tgtName, tgtSlot)
	}
	srcSlotInfo := srcInst.Type.OutputSlots[srcSlot]
	tgtSlotInfo := tgtInst.Type.InputSlots[tgtSlot]

	ctx := &connect.Context{
		SrcNode:               srcInst,
		SrcSlot:                srcSlot,
		TgtNode:               tgtInst,
		TgtSlot:               tgtSlot,
		EffectiveResourceKind: tgtSlotInfo.ResourceKind,
		SrcResourceKind:       srcSlotInfo.ResourceKind,
		Graph:                 g,
	}
	for _, opt := range opts {
		opt(ctx)
	}

	return g.Pipeline.Run(ctx, srcSlotInfo, tgtSlotInfo)
}

// --- connect.GraphView ---

// AddEdge implements connect.GraphView by delegating to the topology and,
// if the node relationship is new, the explicit dependency list (spec.md
// §3: AddDependency covers edges beyond slot-driven ones, but a slot edge
// always implies a dependency too).
func (g *Graph) AddEdge(src node.Handle, srcOutIdx int, tgt node.Handle, tgtInIdx int) error {
	if err := g.Topo.AddEdge(topology.Edge{Src: src, SrcOutIdx: srcOutIdx, Tgt: tgt, TgtInIdx: tgtInIdx}); err != nil {
		return err
	}
	g.instances[tgt].AddDependency(src)
	return nil
}

// HandleOf implements connect.GraphView.
func (g *Graph) HandleOf(inst *node.Instance) (node.Handle, bool) {
	h, ok := g.byName[inst.Name]
	return h, ok
}

// RegisterDependencyUse implements connect.GraphView, recording that
// owner will consume resourceName once it exists (used by variadic
// bindings ahead of the producer's Compile).
func (g *Graph) RegisterDependencyUse(owner node.Handle, resourceName string) {
	g.Deps.MarkUsed(g.instances[owner].Name, resourceName)
}

// SourceLifetime implements connect.GraphView. srcNode's output slot
// srcSlot's lifetime is only known once srcNode has compiled and its
// Bundle's Outputs has been populated in slot order (see CreateResource).
func (g *Graph) SourceLifetime(srcNode string, srcSlot int) (resource.Lifetime, bool) {
	h, ok := g.byName[srcNode]
	if !ok {
		return 0, false
	}
	inst := g.instances[h]
	outs := inst.Bundles[0].Outputs
	if srcSlot < 0 || srcSlot >= len(outs) || outs[srcSlot] == nil {
		return 0, false
	}
	return outs[srcSlot].Lifetime, true
}

// --- node.ResourceProvider ---

// CreateResource implements node.ResourceProvider. Called from within a
// node's CompileImpl, once per output slot it produces, in output-slot
// order: the Nth call during a node's Compile fills Bundles[0].Outputs[N],
// which is how SourceLifetime and per-frame input wiring both locate a
// resource by (node, slot) without the interface needing to carry a slot
// index explicitly.
func (g *Graph) CreateResource(name string, kind resource.Kind, desc resource.Descriptor, lifetime resource.Lifetime) *resource.Resource {
	res := &resource.Resource{Name: name, Kind: kind, Descriptor: desc, Lifetime: lifetime, Producer: int(g.compilingNode)}
	g.resources[name] = res

	owner := g.instances[g.compilingNode]
	owner.Bundles[0].Outputs = append(owner.Bundles[0].Outputs, res)
	g.Deps.RegisterProducer(name, owner.Name)
	g.Access.Record(name, g.compilingNode, access.Write, len(owner.Bundles[0].Outputs)-1, true)
	return res
}

// GetResource implements node.ResourceProvider.
func (g *Graph) GetResource(name string) (*resource.Resource, bool) {
	r, ok := g.resources[name]
	return r, ok
}

// MarkInputUsed implements node.ResourceProvider.
func (g *Graph) MarkInputUsed(owner node.Handle, resourceName string) {
	g.Deps.MarkUsed(g.instances[owner].Name, resourceName)
	g.Access.Record(resourceName, owner, access.Read, -1, false)
}

// SubmitDeferred implements node.ResourceProvider by forwarding to the
// graph's frame-delayed destruction queue (spec.md §4.9).
func (g *Graph) SubmitDeferred(name string, destroy func() error) {
	g.Deferred.Submit(name, destroy)
}
