package connect

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// Sentinel errors, in the teacher's package-level-var style.
var (
	ErrNoMatchingRule       = errors.New("connect: no rule can handle this connection")
	ErrTargetHasDriver      = errors.New("connect: target slot already has a driver")
	ErrIncompatibleKind     = errors.New("connect: source and target resource kinds are incompatible")
	ErrRequiredSlotUnfilled = errors.New("connect: required slot has no driver")
	ErrNotAccumulationSlot  = errors.New("connect: target slot is not flagged Accumulation")
	ErrNotVariadicSlot      = errors.New("connect: target slot is not a shader binding")
	ErrTransientReference   = errors.New("connect: Reference/Span accumulation requires a Persistent source")
)

// Rule decides whether and how a (src_slot, tgt_slot) pair is wired.
// Registered rules are tried in descending priority order; the first
// whose CanHandle returns true handles the connection (spec.md §4.4).
type Rule interface {
	Name() string
	CanHandle(srcSlot, tgtSlot slot.Info) bool
	Validate(ctx *Context) Result
	Resolve(ctx *Context) Result
	Priority() uint32
}

// RuleSet holds every registered rule, sorted by descending priority.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a RuleSet preloaded with the three built-in rules, in
// the priorities spec.md §4.4 suggests (Accumulation 100, Direct 50,
// Variadic 25).
func NewRuleSet() *RuleSet {
	rs := &RuleSet{}
	rs.Register(&AccumulationRule{})
	rs.Register(&DirectRule{})
	rs.Register(&VariadicRule{})
	return rs
}

// Register adds a rule and re-sorts by descending priority, ties broken by
// insertion order (stable sort).
func (rs *RuleSet) Register(r Rule) {
	rs.rules = append(rs.rules, r)
	sort.SliceStable(rs.rules, func(i, j int) bool { return rs.rules[i].Priority() > rs.rules[j].Priority() })
}

// Match returns the first rule (by descending priority) whose CanHandle
// accepts the slot pair.
func (rs *RuleSet) Match(srcSlot, tgtSlot slot.Info) (Rule, error) {
	for _, r := range rs.rules {
		if r.CanHandle(srcSlot, tgtSlot) {
			return r, nil
		}
	}
	return nil, ErrNoMatchingRule
}

// Accumulation returns the RuleSet's AccumulationRule, letting a caller
// read back a target slot's resolved contributions after every Connect
// call has run. Returns nil if the set was built without one.
func (rs *RuleSet) Accumulation() *AccumulationRule {
	for _, r := range rs.rules {
		if a, ok := r.(*AccumulationRule); ok {
			return a
		}
	}
	return nil
}

// Contribution is the payload AccumulationRule appends to an
// Accumulator for each Connect call: identifies the source but not the
// resource value itself, which is only known once the graph executes.
type Contribution struct {
	SourceNode string
	SourceSlot int
}

type accumKey struct {
	tgtName string
	tgtSlot int
}

// AccumulationRule appends one entry per call to an ordered accumulation
// slot (spec.md §4.4). Accumulators are keyed by (target node, target
// slot) and created on first use with the Value storage strategy; callers
// needing Reference/Span semantics call SetStrategy on the slot's
// Accumulator before any connection is made.
type AccumulationRule struct {
	mu           sync.Mutex
	accumulators map[accumKey]*Accumulator
}

func (r *AccumulationRule) Name() string     { return "AccumulationRule" }
func (r *AccumulationRule) Priority() uint32 { return 100 }

func (r *AccumulationRule) CanHandle(srcSlot, tgtSlot slot.Info) bool {
	return tgtSlot.Flags.Has(slot.Accumulation)
}

// Accumulator returns (creating if necessary) the Accumulator for
// tgtName/tgtSlot.
func (r *AccumulationRule) Accumulator(tgtName string, tgtSlot int) *Accumulator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.accumulators == nil {
		r.accumulators = make(map[accumKey]*Accumulator)
	}
	key := accumKey{tgtName: tgtName, tgtSlot: tgtSlot}
	a, ok := r.accumulators[key]
	if !ok {
		a = NewAccumulator(Value)
		r.accumulators[key] = a
	}
	return a
}

func (r *AccumulationRule) Validate(ctx *Context) Result {
	if !slot.CompatibleKind(ctx.SrcResourceKind, ctx.EffectiveResourceKind) {
		ctx.AbortErr = ErrIncompatibleKind
		return Abort
	}
	acc := r.Accumulator(ctx.TgtNode.Name, ctx.TgtSlot)
	if acc.Strategy() != Value {
		// Reference/Span strategies require a stable address; a Transient
		// source is a compile-time rejection (spec.md §4.4).
		lifetime, ok := ctx.Graph.SourceLifetime(ctx.SrcNode.Name, ctx.SrcSlot)
		if ok && lifetime != resource.Persistent {
			ctx.AbortErr = ErrTransientReference
			return Abort
		}
	}
	return OK
}

func (r *AccumulationRule) Resolve(ctx *Context) Result {
	srcHandle, ok := ctx.Graph.HandleOf(ctx.SrcNode)
	if !ok {
		ctx.AbortErr = fmt.Errorf("connect: source node %q has no graph handle", ctx.SrcNode.Name)
		return Abort
	}
	tgtHandle, ok := ctx.Graph.HandleOf(ctx.TgtNode)
	if !ok {
		ctx.AbortErr = fmt.Errorf("connect: target node %q has no graph handle", ctx.TgtNode.Name)
		return Abort
	}
	if err := ctx.Graph.AddEdge(srcHandle, ctx.SrcSlot, tgtHandle, ctx.TgtSlot); err != nil {
		ctx.AbortErr = err
		return Abort
	}
	acc := r.Accumulator(ctx.TgtNode.Name, ctx.TgtSlot)
	contribution := Contribution{SourceNode: ctx.SrcNode.Name, SourceSlot: ctx.SrcSlot}
	acc.Append(contribution, 0, ctx.SortKey, ctx.HasSortKey)
	return OK
}

// DirectRule is the default 1:1 wiring: both slot-to-slot and
// slot-to-binding, rejecting a target that already has a driver (outside
// accumulation) and enforcing kind compatibility. Slot nullability is not
// consulted: every non-accumulation input accepts exactly one driver.
type DirectRule struct {
	// drivenTargets tracks which (node, slot) pairs already have a driver,
	// so a second non-accumulation Connect to the same input is rejected.
	drivenTargets map[driverKey]bool
}

type driverKey struct {
	tgtName string
	tgtSlot int
}

func (r *DirectRule) Name() string     { return "DirectRule" }
func (r *DirectRule) Priority() uint32 { return 50 }

func (r *DirectRule) CanHandle(srcSlot, tgtSlot slot.Info) bool {
	return !tgtSlot.Flags.Has(slot.Accumulation) && tgtSlot.Origin != slot.OriginBinding
}

func (r *DirectRule) Validate(ctx *Context) Result {
	if !slot.CompatibleKind(ctx.SrcResourceKind, ctx.EffectiveResourceKind) {
		ctx.AbortErr = ErrIncompatibleKind
		return Abort
	}
	if r.drivenTargets == nil {
		r.drivenTargets = make(map[driverKey]bool)
	}
	key := driverKey{tgtName: ctx.TgtNode.Name, tgtSlot: ctx.TgtSlot}
	if r.drivenTargets[key] {
		ctx.AbortErr = ErrTargetHasDriver
		return Abort
	}
	return OK
}

func (r *DirectRule) Resolve(ctx *Context) Result {
	srcHandle, ok := ctx.Graph.HandleOf(ctx.SrcNode)
	if !ok {
		ctx.AbortErr = fmt.Errorf("connect: source node %q has no graph handle", ctx.SrcNode.Name)
		return Abort
	}
	tgtHandle, ok := ctx.Graph.HandleOf(ctx.TgtNode)
	if !ok {
		ctx.AbortErr = fmt.Errorf("connect: target node %q has no graph handle", ctx.TgtNode.Name)
		return Abort
	}
	if err := ctx.Graph.AddEdge(srcHandle, ctx.SrcSlot, tgtHandle, ctx.TgtSlot); err != nil {
		ctx.AbortErr = err
		return Abort
	}
	if r.drivenTargets == nil {
		r.drivenTargets = make(map[driverKey]bool)
	}
	r.drivenTargets[driverKey{tgtName: ctx.TgtNode.Name, tgtSlot: ctx.TgtSlot}] = true
	return OK
}

// VariadicRule targets a shader Binding, updating the target node's
// variadic slot map. It registers no hooks, so a binding fed by a
// Transient source is not refreshed each frame.
type VariadicRule struct {
	Variadics *VariadicTable
}

func (r *VariadicRule) Name() string     { return "VariadicRule" }
func (r *VariadicRule) Priority() uint32 { return 25 }

func (r *VariadicRule) CanHandle(srcSlot, tgtSlot slot.Info) bool {
	return tgtSlot.Origin == slot.OriginBinding
}

func (r *VariadicRule) Validate(ctx *Context) Result {
	if !slot.CompatibleKind(ctx.SrcResourceKind, ctx.EffectiveResourceKind) {
		ctx.AbortErr = ErrIncompatibleKind
		return Abort
	}
	return OK
}

func (r *VariadicRule) Resolve(ctx *Context) Result {
	if r.Variadics == nil {
		r.Variadics = NewVariadicTable()
	}
	info := VariadicSlotInfo{
		SourceNode:         ctx.SrcNode.Name,
		SourceOutput:       ctx.SrcSlot,
		HasFieldExtraction: ctx.HasFieldExtraction,
		FieldOffset:        ctx.FieldOffset,
		State:              SlotTentative,
	}
	r.Variadics.Update(ctx.TgtNode.Name, ctx.TgtSlot, info)

	// No post-compile or pre-execute hook is registered here; the recorded
	// entry is not refreshed per frame.
	return OK
}
