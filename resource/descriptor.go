package resource

// Descriptor is a closed sum type over the kind-specific, immutable
// description of a resource. Descriptors compare by structural equality:
// all implementations are plain comparable structs (or implement Equal for
// the rare slice-bearing case), matching spec.md §3's "compare by
// structural equality" invariant.
type Descriptor interface {
	isDescriptor()
	// Equal reports structural equality with another Descriptor of the
	// same concrete type. Descriptors of different concrete types are
	// never equal.
	Equal(Descriptor) bool
}

// ImageFormat mirrors the closed set of pixel formats the engine cares
// about at the core level; concrete node packages may map GPU-driver
// formats onto these.
type ImageFormat uint32

const (
	FormatUnknown ImageFormat = iota
	FormatRGBA8
	FormatRGBA8SRGB
	FormatBGRA8
	FormatR8
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float
	FormatDepth32Float
)

// ImageUsage is a bitmask, following the teacher's BufferUsage/TextureUsage
// style of explicit power-of-two flags rather than an enum of combinations.
type ImageUsage uint32

const (
	ImageUsageCopySrc ImageUsage = 1 << iota
	ImageUsageCopyDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageRenderTarget
	ImageUsageDepthStencil
)

// ImageDescriptor describes a 2D image, cube map face set, or 3D image.
type ImageDescriptor struct {
	Width, Height, Depth uint32
	MipLevels            uint32
	Format               ImageFormat
	Usage                ImageUsage
}

func (ImageDescriptor) isDescriptor() {}

func (d ImageDescriptor) Equal(other Descriptor) bool {
	o, ok := other.(ImageDescriptor)
	return ok && d == o
}

// BufferMemoryProperty is a bitmask of memory-visibility requirements.
type BufferMemoryProperty uint32

const (
	MemoryDeviceLocal BufferMemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

// BufferUsage mirrors the teacher's gpucore.BufferUsage bit layout.
type BufferUsage uint32

const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
)

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Size          uint64
	Usage         BufferUsage
	MemoryProps   BufferMemoryProperty
}

func (BufferDescriptor) isDescriptor() {}

func (d BufferDescriptor) Equal(other Descriptor) bool {
	o, ok := other.(BufferDescriptor)
	return ok && d == o
}

// OpaqueDescriptor is used for resource kinds the core has no structured
// opinion about (acceleration structures, pass-through storage): a free
// string tag plus an opaque size hint, compared by value.
type OpaqueDescriptor struct {
	Tag  string
	Size uint64
}

func (OpaqueDescriptor) isDescriptor() {}

func (d OpaqueDescriptor) Equal(other Descriptor) bool {
	o, ok := other.(OpaqueDescriptor)
	return ok && d == o
}
