package node

import (
	"fmt"

	"github.com/vixengraph/rendergraph/resource"
)

// Handle is a stable dense index into the owning graph's instance arena
// (spec.md §9: model the node<->graph cycle as an arena, not back-pointers).
type Handle int

// InvalidHandle is returned by lookups that find nothing.
const InvalidHandle Handle = -1

// State is the node's position in the four-phase lifecycle plus the two
// terminal states.
type State uint8

const (
	StateCreated State = iota
	StateReady
	StateCompiled
	StateExecuting
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateCompiled:
		return "Compiled"
	case StateExecuting:
		return "Executing"
	case StateComplete:
		return "Complete"
	case StateError:
		return "Error"
	default:
		return "Created"
	}
}

// LoopReference gates per-frame execution: a node executes this frame iff
// it has no LoopReference, or at least one referenced loop is active
// (spec.md §9 Open Questions resolution).
type LoopReference struct {
	LoopName string
}

// Bundle holds one task's aligned input/output resources (spec.md §3).
type Bundle struct {
	Inputs  []*resource.Resource
	Outputs []*resource.Resource
}

// ResourceProvider is the narrow view of the graph's resource table a
// node's Compile/Cleanup phase needs. The facade's Graph implements this;
// node never imports the facade package, avoiding an import cycle.
type ResourceProvider interface {
	CreateResource(name string, kind resource.Kind, desc resource.Descriptor, lifetime resource.Lifetime) *resource.Resource
	GetResource(name string) (*resource.Resource, bool)
	// MarkInputUsed records that this node read a resource during
	// Compile, feeding the dependency tracker (spec.md §4.5 step 6).
	MarkInputUsed(owner Handle, resourceName string)
	// SubmitDeferred schedules destroy to run once the graph's cleanup
	// lag in frames has passed, for a node replacing a GPU object at
	// recompile time rather than destroying one an in-flight frame may
	// still reference (spec.md §4.9).
	SubmitDeferred(name string, destroy func() error)
}

// SetupContext is passed to Behavior.SetupImpl. Setup may only touch
// static parameters (spec.md §4.2); it intentionally carries no resource
// access.
type SetupContext struct {
	Instance *Instance
}

// CompileContext is passed to Behavior.CompileImpl.
type CompileContext struct {
	Instance  *Instance
	Resources ResourceProvider
}

// ExecuteContext is passed to Behavior.ExecuteImpl, once per task.
type ExecuteContext struct {
	Instance     *Instance
	TaskIndex    int
	Bundle       *Bundle
	DeltaSeconds float64
	TotalSeconds float64
}

// CleanupContext is passed to Behavior.CleanupImpl.
type CleanupContext struct {
	Instance  *Instance
	Resources ResourceProvider
}

// Behavior is the small, non-virtual-dispatch-free interface concrete
// node implementations satisfy. The orchestration (state transitions,
// hook firing, idempotent cleanup) lives in Instance, a non-virtual
// wrapper around Behavior — spec.md §9's replacement for deep
// inheritance.
type Behavior interface {
	SetupImpl(ctx *SetupContext) error
	CompileImpl(ctx *CompileContext) error
	ExecuteImpl(ctx *ExecuteContext) error
	CleanupImpl(ctx *CleanupContext) error
}

// BaseBehavior gives concrete nodes no-op defaults for phases they don't
// need, the way the teacher's SolidPainter/FuncPainter pair lets callers
// implement only the parts of Painter they need. Embed it and override.
type BaseBehavior struct{}

func (BaseBehavior) SetupImpl(*SetupContext) error     { return nil }
func (BaseBehavior) CompileImpl(*CompileContext) error { return nil }
func (BaseBehavior) ExecuteImpl(*ExecuteContext) error { return nil }
func (BaseBehavior) CleanupImpl(*CleanupContext) error { return nil }

// Hooks are fired by Instance's orchestration around each phase. Populated
// directly by node authors for simple cases, and by the connect package
// (PostCompile) to wire deferred field extraction once a Persistent
// source has produced its handle (spec.md §4.2, §4.4).
type Hooks struct {
	PreSetup    []func(*Instance) error
	PostSetup   []func(*Instance) error
	PreCompile  []func(*Instance) error
	PostCompile []func(*Instance) error
	PreExecute  []func(*Instance) error
	PostExecute []func(*Instance) error
	PreCleanup  []func(*Instance) error
	PostCleanup []func(*Instance) error
}

func runHooks(fns []func(*Instance) error, n *Instance) error {
	for _, fn := range fns {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// Instance is the per-graph, mutable state for one node (spec.md §3
// Node). It owns parameters, tags, explicit dependencies, task bundles,
// and drives the four-phase state machine around a Behavior.
type Instance struct {
	Name       string
	Generation uint64
	Handle     Handle
	Type       *Type
	Params     *Params
	Hooks      Hooks

	tags         map[string]struct{}
	dependencies []Handle
	loops        []LoopReference

	State             State
	Bundles           []Bundle
	NeedsRecompile    bool
	DeferredRecompile bool

	cleanedUp bool
	behavior  Behavior
}

// New creates an Instance in StateCreated, wired to behavior and typ.
func New(name string, typ *Type, behavior Behavior) *Instance {
	return &Instance{
		Name:     name,
		Handle:   InvalidHandle,
		Type:     typ,
		Params:   NewParams(),
		tags:     make(map[string]struct{}),
		State:    StateCreated,
		Bundles:  []Bundle{{}},
		behavior: behavior,
	}
}

// AddTag adds a string tag for bulk operations (cleanup-by-tag, etc.).
func (n *Instance) AddTag(tag string) { n.tags[tag] = struct{}{} }

// HasTag reports whether tag was added via AddTag.
func (n *Instance) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

// Tags returns the set of tags currently on the node.
func (n *Instance) Tags() []string {
	out := make([]string, 0, len(n.tags))
	for t := range n.tags {
		out = append(out, t)
	}
	return out
}

// AddDependency records an explicit extra edge, in addition to those
// implied by Dependency-role slots (spec.md §3).
func (n *Instance) AddDependency(h Handle) {
	for _, existing := range n.dependencies {
		if existing == h {
			return
		}
	}
	n.dependencies = append(n.dependencies, h)
}

// Dependencies returns the explicit extra dependency set.
func (n *Instance) Dependencies() []Handle { return n.dependencies }

// AddLoopReference attaches a loop gate; spec.md §9 Open Questions:
// "a node executes this frame iff no loop is connected, or at least one
// connected loop is active".
func (n *Instance) AddLoopReference(ref LoopReference) { n.loops = append(n.loops, ref) }

// ShouldExecuteThisFrame evaluates the loop-gating rule given a predicate
// telling whether a named loop is currently active.
func (n *Instance) ShouldExecuteThisFrame(loopActive func(name string) bool) bool {
	if len(n.loops) == 0 {
		return true
	}
	for _, l := range n.loops {
		if loopActive(l.LoopName) {
			return true
		}
	}
	return false
}

// RegisterPostCompileCallback is used by the connect package to defer
// field extraction (or any wiring that needs the source's handle) until
// after this node's Compile phase runs (spec.md §4.2, §4.4).
func (n *Instance) RegisterPostCompileCallback(fn func(*Instance) error) {
	n.Hooks.PostCompile = append(n.Hooks.PostCompile, fn)
}

// checkState returns an error wrapping ErrInvalidTransition if the node is
// not in one of the allowed states. An invalid call here is a programming
// error in the orchestrator (spec.md §7 RuntimeInvariantBroken), not a
// data error, so phase methods return that error rather than silently
// no-op-ing.
func (n *Instance) checkState(allowed ...State) error {
	for _, s := range allowed {
		if n.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: node %q is %s", ErrInvalidTransition, n.Name, n.State)
}

// Setup runs the Behavior's SetupImpl, wrapped by Pre/PostSetup hooks.
// May only be called before the owning graph's topology is finalized.
func (n *Instance) Setup() error {
	if err := n.checkState(StateCreated); err != nil {
		return err
	}
	if missing, ok := n.Params.ValidateRequired(n.Type.Params); !ok {
		n.State = StateError
		return fmt.Errorf("%w: %q on node %q", ErrMissingRequiredParam, missing, n.Name)
	}
	if err := runHooks(n.Hooks.PreSetup, n); err != nil {
		n.State = StateError
		return err
	}
	if err := n.behavior.SetupImpl(&SetupContext{Instance: n}); err != nil {
		n.State = StateError
		return err
	}
	if err := runHooks(n.Hooks.PostSetup, n); err != nil {
		n.State = StateError
		return err
	}
	n.State = StateReady
	return nil
}

// Compile runs the Behavior's CompileImpl, wrapped by Pre/PostCompile
// hooks. Runs after topology is finalized; may read connected inputs and
// writes the node's outputs. Compile does not check that every
// non-nullable output was written.
func (n *Instance) Compile(rp ResourceProvider) error {
	if err := n.checkState(StateReady, StateCompiled); err != nil {
		return err
	}
	if err := runHooks(n.Hooks.PreCompile, n); err != nil {
		n.State = StateError
		return err
	}
	if err := n.behavior.CompileImpl(&CompileContext{Instance: n, Resources: rp}); err != nil {
		n.State = StateError
		return err
	}
	// PostCompile hooks power deferred wiring such as field extraction,
	// which requires this node's own outputs (or a connected source's
	// output) to already carry their produced handle.
	if err := runHooks(n.Hooks.PostCompile, n); err != nil {
		n.State = StateError
		return err
	}
	n.State = StateCompiled
	n.NeedsRecompile = false
	n.DeferredRecompile = false
	return nil
}

// ExecuteTask runs one task's ExecuteImpl and leaves the node in
// Executing until FinishExecute. It runs no Pre/PostExecute hooks.
func (n *Instance) ExecuteTask(ctx *ExecuteContext) error {
	if err := n.checkState(StateCompiled, StateExecuting); err != nil {
		return err
	}
	n.State = StateExecuting
	if err := n.behavior.ExecuteImpl(ctx); err != nil {
		n.State = StateError
		return err
	}
	return nil
}

// FinishExecute transitions a node back to Compiled (ready for the next
// frame's Execute) after all of its tasks for this frame have returned
// without error.
func (n *Instance) FinishExecute() {
	if n.State == StateExecuting {
		n.State = StateCompiled
	}
}

// Cleanup runs the Behavior's CleanupImpl exactly once; subsequent calls
// are no-ops, satisfying spec.md §4.2's idempotency requirement and the
// quantified invariant in spec.md §8 ("calling it twice yields identical
// external effects as calling it once").
func (n *Instance) Cleanup(rp ResourceProvider) error {
	if n.cleanedUp {
		return nil
	}
	if err := runHooks(n.Hooks.PreCleanup, n); err != nil {
		return err
	}
	if err := n.behavior.CleanupImpl(&CleanupContext{Instance: n, Resources: rp}); err != nil {
		// Cleanup errors are recorded but never abort cleanup of other
		// nodes (spec.md §7); the caller (cleanup.Stack) is responsible
		// for continuing past this error.
		n.cleanedUp = true
		return err
	}
	n.cleanedUp = true
	n.State = StateCreated
	return runHooks(n.Hooks.PostCleanup, n)
}

// CleanedUp reports whether Cleanup has already run.
func (n *Instance) CleanedUp() bool { return n.cleanedUp }

// MarkNeedsRecompile flags the node as dirty. If called during Execute,
// the recompile is deferred to next frame's processing (spec.md §3
// "deferred_recompile").
func (n *Instance) MarkNeedsRecompile() {
	if n.State == StateExecuting {
		n.DeferredRecompile = true
		return
	}
	n.NeedsRecompile = true
}

// ResetForRecompile transitions a compiled/error node, or one that Cleanup
// returned to Created, back to Ready so Compile can run again, used by
// hot-reload (spec.md §4.7 ShaderReloaded handling). It also clears
// cleanedUp: the caller is expected to have already run Cleanup for the
// node's old resources before calling this, and the rebuilt node needs its
// own Cleanup to fire again once those new resources are themselves torn
// down.
func (n *Instance) ResetForRecompile() {
	if n.State == StateCompiled || n.State == StateError || (n.State == StateCreated && n.cleanedUp) {
		n.State = StateReady
		n.Generation++
		n.cleanedUp = false
	}
}
