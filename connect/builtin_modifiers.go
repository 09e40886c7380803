package connect

import (
	"log/slog"

	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// FieldExtractionModifier narrows the connection to one field of the
// source's struct, requiring the source's resource to be Persistent
// (stable address) since a Transient resource's backing memory may move
// between frames (spec.md §4.4).
type FieldExtractionModifier struct {
	BaseModifier
	FieldName string
	Offset    uintptr
	Size      uintptr
	TypeName  string
	// SourceLifetime is supplied by the caller (the facade looks the
	// source's resource up); required here because the modifier has no
	// graph access of its own.
	SourceLifetime resource.Lifetime
}

func (m *FieldExtractionModifier) Name() string { return "FieldExtractionModifier" }
func (m *FieldExtractionModifier) Priority() uint32 { return 50 }

func (m *FieldExtractionModifier) PreValidation(ctx *Context) Result {
	if m.SourceLifetime != resource.Persistent {
		ctx.AbortErr = ErrTransientReference
		return Abort
	}
	ctx.HasFieldExtraction = true
	ctx.FieldOffset = m.Offset
	ctx.FieldSize = m.Size
	ctx.FieldTypeName = m.TypeName
	// Narrow the effective kind to the extracted field's type so the
	// rule's type check runs against the field, not the outer struct
	// (spec.md §4.4). A field type that was never registered via
	// resource.RegisterKind leaves EffectiveResourceKind at the target
	// slot's declared kind, same as if no extraction had happened.
	if k, ok := resource.KindForType(m.TypeName); ok {
		ctx.EffectiveResourceKind = k
	}
	return OK
}

// SlotRoleModifier overrides the Dependency/Execute role bitmask the rule
// would otherwise use (spec.md §4.4).
type SlotRoleModifier struct {
	BaseModifier
	Role slot.Role
}

func (m *SlotRoleModifier) Name() string     { return "SlotRoleModifier" }
func (m *SlotRoleModifier) Priority() uint32 { return 50 }

func (m *SlotRoleModifier) PreResolve(ctx *Context) Result {
	ctx.RoleOverride = m.Role
	ctx.HasRoleOverride = true
	return OK
}

// DebugTagModifier attaches a visualization-only string; it has no
// semantic effect on the connection (spec.md §4.4).
type DebugTagModifier struct {
	BaseModifier
	Tag string
}

func (m *DebugTagModifier) Name() string     { return "DebugTagModifier" }
func (m *DebugTagModifier) Priority() uint32 { return 50 }

func (m *DebugTagModifier) PreValidation(ctx *Context) Result {
	ctx.DebugTag = m.Tag
	return OK
}

// AccumulationSortConfig is a rule-config modifier: it writes a sort key
// into the context but only makes sense paired with AccumulationRule. If
// the matched rule is anything else it logs and skips itself rather than
// aborting the connection (spec.md §4.4).
type AccumulationSortConfig struct {
	BaseModifier
	SortKey int64
}

func (m *AccumulationSortConfig) Name() string     { return "AccumulationSortConfig" }
func (m *AccumulationSortConfig) Priority() uint32 { return 50 }

func (m *AccumulationSortConfig) PreResolve(ctx *Context) Result {
	if ctx.MatchedRuleName != (&AccumulationRule{}).Name() {
		slog.Default().Warn("AccumulationSortConfig attached to a non-accumulation connection, skipping",
			slog.String("matched_rule", ctx.MatchedRuleName))
		return Skip
	}
	ctx.SortKey = m.SortKey
	ctx.HasSortKey = true
	return OK
}
