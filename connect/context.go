// Package connect implements the rule-and-modifier connection pipeline
// described in spec.md §4.4: declarative Connect calls are turned into
// validated topology edges, variadic slot bindings, or accumulation
// appends by the first matching Rule, shaped along the way by an ordered
// chain of Modifiers.
package connect

import (
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// Result is returned by a Rule's Validate/Resolve and a Modifier's phase
// methods.
type Result uint8

const (
	// OK continues the pipeline.
	OK Result = iota
	// Skip ignores this modifier for this connection only; the pipeline
	// continues with the next modifier or the rule.
	Skip
	// Abort stops the pipeline entirely; no edge is created.
	Abort
)

// Context carries everything a Rule or Modifier needs across the three
// connection phases (spec.md §4.4 "ConnectionContext").
type Context struct {
	SrcNode *node.Instance
	SrcSlot int
	TgtNode *node.Instance
	TgtSlot int

	// EffectiveResourceKind starts as the target slot's declared kind and
	// may be narrowed by FieldExtractionModifier so the rule's type check
	// runs against the extracted field rather than the outer struct.
	EffectiveResourceKind resource.Kind

	// SrcResourceKind is the source output slot's declared kind, set once
	// by the facade before the pipeline runs. Rules compare this against
	// EffectiveResourceKind to enforce spec.md §4.1/§7 type compatibility;
	// it is never itself narrowed by a modifier.
	SrcResourceKind resource.Kind

	RoleOverride    slot.Role
	HasRoleOverride bool

	SortKey    int64
	HasSortKey bool

	DebugTag string

	// MatchedRuleName is set by Pipeline.Run once a rule has been matched,
	// before any modifier phase runs, so rule-config modifiers like
	// AccumulationSortConfig can self-validate against it.
	MatchedRuleName string

	// FieldOffset/FieldSize/FieldTypeName, when HasFieldExtraction is set,
	// describe the struct field FieldExtractionModifier selected.
	HasFieldExtraction bool
	FieldOffset        uintptr
	FieldSize          uintptr
	FieldTypeName      string

	Graph GraphView

	// AbortErr carries the reason when a phase returns Abort.
	AbortErr error
}

// GraphView is the narrow slice of the owning graph a rule or modifier may
// need (topology edge creation, variadic-slot bookkeeping, hook
// registration). Keeping this as an interface in the connect package
// avoids an import cycle with the facade package.
type GraphView interface {
	AddEdge(src node.Handle, srcOutIdx int, tgt node.Handle, tgtInIdx int) error
	HandleOf(inst *node.Instance) (node.Handle, bool)
	RegisterDependencyUse(owner node.Handle, resourceName string)
	// SourceLifetime reports the lifetime of the resource produced by
	// srcNode's output slot srcSlot, if already known (it may not be, if
	// the source hasn't compiled yet).
	SourceLifetime(srcNode string, srcSlot int) (resource.Lifetime, bool)
}
