package resource

// HandleKind tags which payload field of Handle is meaningful. The core
// never interprets the payload; it only compares and forwards it to the
// GPU driver the embedding application supplies.
type HandleKind uint8

const (
	HandleNone HandleKind = iota
	HandleU64
	HandlePointer
)

// Handle is the single tagged-union GPU handle type described in spec.md
// §9: rather than modeling every concrete Vulkan/D3D/Metal handle type,
// the core carries one opaque union with a kind tag and a payload.
// Concrete node packages decide what the payload means.
type Handle struct {
	Kind HandleKind
	U64  uint64
	Ptr  any
}

// IsValid reports whether the handle has been set to something other than
// the zero value.
func (h Handle) IsValid() bool {
	switch h.Kind {
	case HandleU64:
		return h.U64 != 0
	case HandlePointer:
		return h.Ptr != nil
	default:
		return false
	}
}

// HandleFromU64 wraps a raw integer handle (e.g. a gpucore.BufferID).
func HandleFromU64(v uint64) Handle {
	return Handle{Kind: HandleU64, U64: v}
}

// HandleFromPointer wraps an opaque driver object.
func HandleFromPointer(p any) Handle {
	return Handle{Kind: HandlePointer, Ptr: p}
}

// Resource is an opaque GPU object plus its descriptor and lifetime,
// owned exclusively by the Graph that created it (spec.md §3). Resource
// values are held in the graph's resource table; node code only ever
// sees a *Resource reference that is valid for the current frame's
// execution window (spec.md §5).
type Resource struct {
	// Name is a stable, unique identifier used for dependency-tracker and
	// cleanup-stack bookkeeping (the "cleanup name" spec.md §4.9 refers
	// to).
	Name string

	Kind       Kind
	Descriptor Descriptor
	Lifetime   Lifetime
	Handle     Handle

	// Producer is the dense node handle index of the node that produces
	// this resource. spec.md §3: exactly one producer, many consumers.
	Producer int
}

// SetHandle installs the GPU handle produced by the owning node. Called
// exactly once per frame for Transient resources (at Execute) and exactly
// once ever for Persistent/Static/Imported resources (at Compile or at
// import time).
func (r *Resource) SetHandle(h Handle) {
	r.Handle = h
}
