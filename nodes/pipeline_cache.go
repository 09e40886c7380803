package nodes

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// PipelineDescriptor is the minimal set of fields that affect a compiled
// render pipeline's identity, adapted from the teacher's
// HALRenderPipelineDescriptor down to the fields this graph actually
// varies: shader code, entry points, and color/depth formats.
type PipelineDescriptor struct {
	Label              string
	VertexCode         []byte
	VertexEntryPoint   string
	FragmentCode       []byte
	FragmentEntryPoint string
	ColorFormat        types.TextureFormat
	DepthFormat        types.TextureFormat
}

func hashPipelineDescriptor(desc PipelineDescriptor) uint64 {
	h := fnv.New64a()
	writeString := func(s string) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	writeString(desc.VertexEntryPoint)
	writeString(desc.FragmentEntryPoint)
	_, _ = h.Write(desc.VertexCode)
	_, _ = h.Write(desc.FragmentCode)
	var formats [8]byte
	binary.LittleEndian.PutUint32(formats[0:4], uint32(desc.ColorFormat))
	binary.LittleEndian.PutUint32(formats[4:8], uint32(desc.DepthFormat))
	_, _ = h.Write(formats[:])
	return h.Sum64()
}

// CachedPipeline is the placeholder pipeline object kept in the cache;
// actual HAL pipeline creation is left to the embedding application's
// hal.Device, the same "construct the descriptor, defer device calls"
// split the teacher's native.HALPipelineCache uses while HAL integration
// is incomplete.
type CachedPipeline struct {
	id   uint64
	desc PipelineDescriptor
}

func (p *CachedPipeline) ID() uint64 { return p.id }

var pipelineIDCounter uint64

func nextPipelineID() uint64 { return atomic.AddUint64(&pipelineIDCounter, 1) }

// PipelineCacheBehavior caches compiled pipelines by descriptor hash,
// avoiding redundant shader-compile/validate work across frames and
// across recompiles of sibling nodes that request the same descriptor
// (adapted from the teacher's backend/native.HALPipelineCache
// double-checked-locking pattern).
type PipelineCacheBehavior struct {
	node.BaseBehavior

	device gpucontextDeviceView
	build  func(hal.Device, PipelineDescriptor) (*CachedPipeline, error)

	mu      sync.RWMutex
	cache   map[uint64]*CachedPipeline
	hits    uint64
	misses  uint64
}

// gpucontextDeviceView is the narrow slice of DeviceContextBehavior a
// pipeline cache needs: just enough to reach a hal.Device once opened.
// Kept as its own tiny interface so PipelineCacheBehavior doesn't import
// gpucontext directly.
type gpucontextDeviceView interface {
	HALDevice() hal.Device
}

// NewPipelineCacheNode registers a PipelineCache node type on g and
// returns it along with its Behavior, so the caller can read Stats()
// directly. device is the DeviceContextBehavior constructed earlier for
// the same graph (constructor injection, not a graph lookup, since
// Instance does not expose its Behavior). build actually creates a HAL
// pipeline from a descriptor; the embedding application supplies it since
// the core has no GPU driver dependency of its own.
func NewPipelineCacheNode(g *rendergraph.Graph, device gpucontextDeviceView, build func(hal.Device, PipelineDescriptor) (*CachedPipeline, error)) (*node.Type, *PipelineCacheBehavior) {
	behavior := &PipelineCacheBehavior{
		device: device,
		build:  build,
		cache:  make(map[uint64]*CachedPipeline),
	}
	typ := &node.Type{
		ID:   allocTypeID(),
		Name: "PipelineCache",
		InputSlots: []slot.Info{
			slot.FromStatic(0, resource.KindPassThroughStorage, false, slot.WithRole(slot.Dependency)),
		},
		OutputSlots: []slot.Info{
			slot.FromStatic(0, resource.KindPassThroughStorage, true, slot.WithMutability(slot.WriteOnly)),
		},
		Pipeline: node.PipelineGraphics,
	}
	typ.NewInstance = func(instanceName string) *node.Instance {
		return node.New(instanceName, typ, behavior)
	}
	g.RegisterNodeType(typ)
	return typ, behavior
}

// GetOrCreate returns the cached pipeline for desc, building it through
// build on a cache miss. Safe for concurrent use from multiple node
// tasks within the same wave.
func (b *PipelineCacheBehavior) GetOrCreate(desc PipelineDescriptor) (*CachedPipeline, error) {
	key := hashPipelineDescriptor(desc)

	b.mu.RLock()
	if p, ok := b.cache[key]; ok {
		b.mu.RUnlock()
		atomic.AddUint64(&b.hits, 1)
		return p, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.cache[key]; ok {
		atomic.AddUint64(&b.hits, 1)
		return p, nil
	}

	var dev hal.Device
	if b.device != nil {
		dev = b.device.HALDevice()
	}
	p, err := b.build(dev, desc)
	if err != nil {
		return nil, fmt.Errorf("nodes: PipelineCache: build %q: %w", desc.Label, err)
	}
	if p.id == 0 {
		p.id = nextPipelineID()
	}
	p.desc = desc
	b.cache[key] = p
	atomic.AddUint64(&b.misses, 1)
	return p, nil
}

// Stats reports cache hit/miss counters.
func (b *PipelineCacheBehavior) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&b.hits), atomic.LoadUint64(&b.misses)
}

func (b *PipelineCacheBehavior) CompileImpl(ctx *node.CompileContext) error {
	res := ctx.Resources.CreateResource(
		ctx.Instance.Name+".cache",
		resource.KindPassThroughStorage,
		resource.OpaqueDescriptor{Tag: "pipeline-cache"},
		resource.Persistent,
	)
	res.SetHandle(resource.HandleFromPointer(b))
	return nil
}

func (b *PipelineCacheBehavior) CleanupImpl(*node.CleanupContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[uint64]*CachedPipeline)
	return nil
}
