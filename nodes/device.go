// Package nodes provides the concrete node types an embedding application
// registers with a Graph: a GPU device context, texture import, pipeline
// caching, shader reflection, and a text-overlay HUD. Each constructor
// takes the owning *rendergraph.Graph directly and registers its node
// type with it, without the core needing a generic "graph-aware node"
// hook.
package nodes

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/slot"
)

// DeviceContextBehavior opens a GPU device context during Compile and
// exposes its capability bits, the way the teacher's backend packages
// probe a HAL device once per renderer lifetime rather than per draw
// call. It has no slots of its own: other nodes reach the opened device
// through a direct Go reference to this Behavior (see Device), since a
// device context has no GPU-resource lifetime for the resource table to
// track.
type DeviceContextBehavior struct {
	node.BaseBehavior

	opts   gpucontext.Options
	device *gpucontext.Device
}

// NewDeviceContextNode registers a DeviceContext node type on g and
// returns it, along with the DeviceContextBehavior backing it, so the
// caller can AddNode it under whatever instance name it likes. opts
// configures the underlying gpucontext.Device (backend selection, power
// preference, and so on).
//
// A graph normally carries exactly one DeviceContext node, so every
// instance of this Type shares the single returned Behavior rather than
// each getting its own (the pattern every constructor in this package
// follows, so a caller can reach Device()/HALDevice() or wire one node's
// output into a sibling constructor like NewPipelineCacheNode without a
// graph lookup).
func NewDeviceContextNode(g *rendergraph.Graph, opts gpucontext.Options) (*node.Type, *DeviceContextBehavior) {
	behavior := &DeviceContextBehavior{opts: opts}
	typ := &node.Type{
		ID:          allocTypeID(),
		Name:        "DeviceContext",
		InputSlots:  []slot.Info{},
		OutputSlots: []slot.Info{},
		Pipeline:    node.PipelineNone,
	}
	typ.NewInstance = func(instanceName string) *node.Instance {
		return node.New(instanceName, typ, behavior)
	}
	g.RegisterNodeType(typ)
	return typ, behavior
}

func (b *DeviceContextBehavior) CompileImpl(ctx *node.CompileContext) error {
	dev, err := gpucontext.Open(b.opts)
	if err != nil {
		return fmt.Errorf("nodes: DeviceContext %q: open device: %w", ctx.Instance.Name, err)
	}
	b.device = dev
	return nil
}

func (b *DeviceContextBehavior) CleanupImpl(*node.CleanupContext) error {
	if b.device != nil {
		b.device.Close()
		b.device = nil
	}
	return nil
}

// Device returns the compiled device context, or nil before Compile has
// run.
func (b *DeviceContextBehavior) Device() *gpucontext.Device { return b.device }

// HasCapability reports whether the opened device advertises name
// (spec.md §6's "capability-query interface returning booleans per named
// capability").
func (b *DeviceContextBehavior) HasCapability(name string) bool {
	if b.device == nil {
		return false
	}
	return b.device.SupportsCapability(name)
}

// SupportsFormat reports whether the opened device can use format as a
// render target or sampled texture, the same capability query as
// HasCapability keyed by a gputypes.TextureFormat instead of a bare
// string, so callers deciding a surface or pipeline color format don't
// need to know this device's internal capability-name spelling.
func (b *DeviceContextBehavior) SupportsFormat(format gputypes.TextureFormat) bool {
	return b.HasCapability(fmt.Sprintf("format:%s", format))
}

// HALDevice exposes the underlying HAL device for nodes that need to
// issue real GPU calls (PipelineCacheBehavior's build callback, in
// particular). Satisfies the gpucontextDeviceView interface in
// pipeline_cache.go.
func (b *DeviceContextBehavior) HALDevice() hal.Device {
	if b.device == nil {
		return nil
	}
	return b.device.HAL()
}
