// Package slot defines the unified runtime representation of a node's
// input/output ports, whether they are statically declared or resolved
// from shader reflection at Compile time. Both paths build an Info value
// through the same unexported constructor so they can never drift apart
// (spec.md §4.1: "a single source of truth").
package slot

import "github.com/vixengraph/rendergraph/resource"

// Nullability controls whether a connection is required before Compile.
type Nullability uint8

const (
	Required Nullability = iota
	Optional
)

// Role is a bitmask over the roles a slot can play at once.
type Role uint32

const (
	// Dependency slots create a topology edge that drives topological
	// order.
	Dependency Role = 1 << iota
	// Execute slots are re-read every frame (needed for Transient
	// sources, whose handle is only valid for the producing frame).
	Execute
	// CleanupOnly slots participate in cleanup dependency tracking but
	// not in Compile-time validation.
	CleanupOnly
	// Output marks a slot as node output (vs input).
	Output
	// Debug slots exist purely for visualization/tooling.
	Debug
)

func (r Role) Has(f Role) bool { return r&f != 0 }

// Mutability constrains how a node may touch the resource through a slot.
type Mutability uint8

const (
	ReadOnly Mutability = iota
	WriteOnly
	ReadWrite
)

// Scope determines how DetermineTaskCount treats this slot's array.
type Scope uint8

const (
	NodeLevel Scope = iota
	TaskLevel
	InstanceLevel
)

// Flags is a bitmask of slot behavior modifiers.
type Flags uint32

const (
	Accumulation Flags = 1 << iota
	MultiConnect
	ExplicitOrder
)

func (f Flags) Has(g Flags) bool { return f&g != 0 }

// ArrayMode distinguishes a singular slot from an array-shaped one.
type ArrayMode uint8

const (
	Singular ArrayMode = iota
	Array
)

// Origin identifies which of the three mutually exclusive slot kinds an
// Info value represents (spec.md §3 invariant: "a slot is exactly one of
// {static-input, static-output, binding}").
type Origin uint8

const (
	OriginStaticInput Origin = iota
	OriginStaticOutput
	OriginBinding
)

// Info is the single runtime representation of a slot, whatever its
// origin. Every field here mirrors the compile-time ResourceSlot<T, Idx,
// ...> template described in spec.md §3/§4.1; FromStatic and FromBinding
// are the only two constructors, and both delegate to build() so the
// field list is written exactly once.
type Info struct {
	Origin       Origin
	Index        int
	ResourceKind resource.Kind
	Nullability  Nullability
	Role         Role
	Mutability   Mutability
	Scope        Scope
	Flags        Flags
	ArrayMode    ArrayMode

	// Binding-only fields, populated from shader reflection.
	BindingIndex   uint32
	DescriptorType string

	// Field-extraction fields, populated by connect.FieldExtractionModifier.
	HasFieldExtraction bool
	FieldOffset        uintptr
	FieldSize          uintptr
	FieldTypeName      string
}

// InfoOption customizes an Info during construction.
type InfoOption func(*Info)

func WithNullability(n Nullability) InfoOption { return func(i *Info) { i.Nullability = n } }
func WithRole(r Role) InfoOption               { return func(i *Info) { i.Role = r } }
func WithMutability(m Mutability) InfoOption    { return func(i *Info) { i.Mutability = m } }
func WithScope(s Scope) InfoOption              { return func(i *Info) { i.Scope = s } }
func WithFlags(f Flags) InfoOption              { return func(i *Info) { i.Flags = f } }
func WithArrayMode(a ArrayMode) InfoOption       { return func(i *Info) { i.ArrayMode = a } }

// build is the single place that assembles an Info from common fields;
// FromStatic and FromBinding differ only in Origin and the binding-only
// fields, everything else flows through here.
func build(origin Origin, index int, kind resource.Kind, opts []InfoOption) Info {
	info := Info{
		Origin:       origin,
		Index:        index,
		ResourceKind: kind,
		Nullability:  Required,
		Mutability:   ReadOnly,
		Scope:        NodeLevel,
		ArrayMode:    Singular,
	}
	for _, opt := range opts {
		opt(&info)
	}
	return info
}

// FromStatic builds an Info for a compile-time-declared input or output
// slot. isOutput selects OriginStaticOutput vs OriginStaticInput and also
// forces the Output role bit so Role.Has(Output) stays consistent with
// Origin — spec.md §4.1's invariant "kind_derived_from_T ==
// slot_info.resource_kind" is upheld by always deriving kind from the
// caller-supplied resource.Kind rather than re-deriving it here.
func FromStatic(index int, kind resource.Kind, isOutput bool, opts ...InfoOption) Info {
	origin := OriginStaticInput
	if isOutput {
		origin = OriginStaticOutput
	}
	info := build(origin, index, kind, opts)
	if isOutput {
		info.Role |= Output
	}
	return info
}

// BindingRef identifies a shader-reflected binding point a VariadicRule
// connection targets.
type BindingRef struct {
	BindingIndex   uint32
	DescriptorType string
}

// FromBinding builds an Info for a slot whose identity comes from shader
// reflection (a "variadic" target, spec.md Glossary).
func FromBinding(ref BindingRef, kind resource.Kind, opts ...InfoOption) Info {
	info := build(OriginBinding, -1, kind, opts)
	info.BindingIndex = ref.BindingIndex
	info.DescriptorType = ref.DescriptorType
	return info
}

// CompatibleKind reports whether a connection between a source of kind
// srcKind and a target slot accepting tgtKind is allowed under spec.md
// §4.1: exact match, or either end is PassThroughStorage.
func CompatibleKind(srcKind, tgtKind resource.Kind) bool {
	if srcKind == tgtKind {
		return true
	}
	return srcKind == resource.KindPassThroughStorage || tgtKind == resource.KindPassThroughStorage
}
