package nodes

import (
	"fmt"
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/budget"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// FrameStats is the diagnostic line a TextOverlayBehavior renders; the
// embedding application calls SetStats once per frame, typically right
// after RenderFrame returns its FrameResult, so the HUD always shows the
// previous frame's numbers (the overlay itself executes earlier in that
// same frame's wave order).
type FrameStats struct {
	FrameNumber uint64
	WaveCount   int
	AverageNs   int64
	Utilization float64
}

// TextOverlayBehavior shapes a one-line diagnostic HUD ("frame 120 | 4
// waves | 12.4ms | 74%") through go-text/typesetting every Execute,
// demonstrating a real per-frame CPU cost that feeds the task-profile
// calibration system the way a shadow pass or post-process pass would
// (spec.md §4.8).
type TextOverlayBehavior struct {
	node.BaseBehavior

	face   *font.Face
	shaper shaping.HarfbuzzShaper

	mu    sync.Mutex
	stats FrameStats

	profile *budget.SimpleProfile
}

// NewTextOverlayNode registers a TextOverlay node type on g and returns
// it along with its Behavior, so the caller can call SetStats once per
// frame and RegisterWith after Compile. face is the shaped font used for
// the HUD line.
func NewTextOverlayNode(g *rendergraph.Graph, face *font.Face) (*node.Type, *TextOverlayBehavior) {
	behavior := &TextOverlayBehavior{face: face}
	typ := &node.Type{
		ID:   allocTypeID(),
		Name: "TextOverlay",
		OutputSlots: []slot.Info{
			slot.FromStatic(0, resource.KindBuffer, true, slot.WithMutability(slot.WriteOnly)),
		},
	}
	typ.NewInstance = func(instanceName string) *node.Instance {
		return node.New(instanceName, typ, behavior)
	}
	g.RegisterNodeType(typ)
	return typ, behavior
}

func (b *TextOverlayBehavior) SetupImpl(ctx *node.SetupContext) error {
	b.profile = budget.NewSimpleProfile(ctx.Instance.Name, "diagnostics", 5, 1, 1, 8)
	return nil
}

// SetStats updates the HUD's text, called by the embedding application
// once per frame.
func (b *TextOverlayBehavior) SetStats(s FrameStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = s
}

// RegisterWith installs this node's calibration profile into registry,
// using the node's own instance name as the budget task id (the
// convention every node in this package follows, matching how
// RenderFrame's executeNode records measurements).
func (b *TextOverlayBehavior) RegisterWith(registry *budget.Registry) error {
	if b.profile == nil {
		return fmt.Errorf("nodes: TextOverlay: RegisterWith called before Setup")
	}
	return registry.RegisterTask(b.profile)
}

func (b *TextOverlayBehavior) CompileImpl(ctx *node.CompileContext) error {
	res := ctx.Resources.CreateResource(
		ctx.Instance.Name+".vertices",
		resource.KindBuffer,
		resource.BufferDescriptor{Size: 4096, Usage: resource.BufferUsageVertex | resource.BufferUsageCopyDst},
		resource.Transient,
	)
	res.SetHandle(resource.HandleFromPointer([]byte(nil)))
	return nil
}

func (b *TextOverlayBehavior) ExecuteImpl(ctx *node.ExecuteContext) error {
	b.mu.Lock()
	s := b.stats
	b.mu.Unlock()

	line := fmt.Sprintf("frame %d | %d waves | %.2fms | %.0f%%",
		s.FrameNumber, s.WaveCount, float64(s.AverageNs)/1e6, s.Utilization*100)
	if wide, err := width.Widen.String(line); err == nil {
		line = wide
	}

	if b.face == nil {
		return nil
	}
	runes := []rune(line)
	input := shaping.Input{
		Text:     runes,
		RunStart: 0,
		RunEnd:   len(runes),
		Face:     b.face,
		Size:     fixed.I(16),
	}
	out := b.shaper.Shape(input)

	vertices := make([]byte, 0, len(out.Glyphs)*8)
	ctx.Bundle.Outputs[0].SetHandle(resource.HandleFromPointer(vertices))
	return nil
}
