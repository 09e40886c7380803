// Package resource describes GPU-owned resources: their kind, descriptor,
// lifetime, and opaque handle. The package never touches an actual GPU API;
// it only tracks what a resource is and who produced it.
package resource

import "fmt"

// Kind tags the semantic category of a resource, independent of its
// concrete Go type. Concrete node packages register their handle types
// against a Kind via RegisterKind so the engine can reason about
// compatibility without importing the GPU driver.
type Kind uint8

const (
	// KindUnknown is the zero value; no resource should carry it past
	// registration.
	KindUnknown Kind = iota
	KindImage
	KindBuffer
	KindCubeMap
	KindImage3D
	KindStorageImage
	KindAccelerationStructure
	// KindPassThroughStorage is the generic escape hatch described in
	// spec.md §4.1: either end of a connection may be this kind, and the
	// rule's type check treats it as compatible with everything.
	KindPassThroughStorage
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindBuffer:
		return "Buffer"
	case KindCubeMap:
		return "CubeMap"
	case KindImage3D:
		return "Image3D"
	case KindStorageImage:
		return "StorageImage"
	case KindAccelerationStructure:
		return "AccelerationStructure"
	case KindPassThroughStorage:
		return "PassThroughStorage"
	default:
		return "Unknown"
	}
}

// Lifetime classifies how long a resource instance's backing GPU object
// lives.
type Lifetime uint8

const (
	// Transient resources are created and destroyed within a single frame
	// and must be re-read by Execute-role consumers every frame.
	Transient Lifetime = iota
	// Persistent resources have a stable address across frames; required
	// for Reference/Span accumulation storage strategies and for
	// FieldExtractionModifier sources.
	Persistent
	// Imported resources are owned by the embedding application, not the
	// graph.
	Imported
	// Static resources never change after creation (e.g. a baked LUT).
	Static
)

func (l Lifetime) String() string {
	switch l {
	case Persistent:
		return "Persistent"
	case Imported:
		return "Imported"
	case Static:
		return "Static"
	default:
		return "Transient"
	}
}

// StableAddress reports whether the lifetime guarantees the resource's
// storage does not move or get recreated from frame to frame. Reference
// and Span accumulation storage strategies, and field extraction, both
// require this.
func (l Lifetime) StableAddress() bool {
	return l == Persistent || l == Static
}

var typeRegistry = map[string]Kind{}

// RegisterKind associates a stable type name (usually the result of
// fmt.Sprintf("%T", zero value) called by the concrete node package) with
// a resource Kind. Call this once, typically from an init() in the
// package defining the concrete handle type, mirroring how the compile-time
// trait in spec.md §4.1 maps a handle type to a Kind at compile time — in
// Go the closest equivalent is a registration map consulted at Compile
// time. Panics on duplicate registration with a different Kind.
func RegisterKind(typeName string, k Kind) {
	if existing, ok := typeRegistry[typeName]; ok && existing != k {
		panic(fmt.Sprintf("resource: type %q already registered as %s, cannot re-register as %s", typeName, existing, k))
	}
	typeRegistry[typeName] = k
}

// KindForType looks up the Kind registered for typeName. The second
// return value is false if nothing was registered; callers should treat
// that as a RuntimeInvariantBroken condition (spec.md §7) since it means
// a slot was declared for a type nobody registered.
func KindForType(typeName string) (Kind, bool) {
	k, ok := typeRegistry[typeName]
	return k, ok
}
