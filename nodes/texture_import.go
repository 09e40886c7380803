package nodes

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/bmp"

	"github.com/gogpu/gputypes"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/node"
	"github.com/vixengraph/rendergraph/resource"
	"github.com/vixengraph/rendergraph/slot"
)

// imageFormatFromGPUType maps a gputypes.TextureFormat (the format
// constants shared across the gogpu backends) onto this engine's own
// resource.ImageFormat, rather than letting the resource table depend on
// gputypes directly. Unrecognized formats default to FormatRGBA8, the
// only format BMP decoding ever produces.
func imageFormatFromGPUType(f gputypes.TextureFormat) resource.ImageFormat {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSRGB:
		return resource.FormatRGBA8SRGB
	case gputypes.TextureFormatRGBA8Unorm:
		return resource.FormatRGBA8
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSRGB:
		return resource.FormatBGRA8
	default:
		return resource.FormatRGBA8
	}
}

// TextureImportBehavior decodes a BMP source into a Persistent Image
// resource during Compile, demonstrating a node whose output handle is
// stable across frames rather than recreated every Execute (spec.md
// §4.1's Persistent lifetime, required for Reference/Span accumulation
// and field-extraction sources downstream).
type TextureImportBehavior struct {
	node.BaseBehavior

	open   func() (io.ReadCloser, error)
	format gputypes.TextureFormat
	img    image.Image
}

// NewTextureImportNode registers a TextureImport node type on g and
// returns it along with its Behavior, so the caller can reach Image()
// after a frame has compiled. open is called once per Compile (and once
// per hot-reload recompile) to obtain the BMP source; the caller
// typically closes over os.Open or an embedded asset. format is the
// GPU-driver format the decoded image is uploaded as; it is translated to
// the engine's own resource.ImageFormat at Compile time rather than
// threaded through the resource table.
func NewTextureImportNode(g *rendergraph.Graph, open func() (io.ReadCloser, error), format gputypes.TextureFormat) (*node.Type, *TextureImportBehavior) {
	behavior := &TextureImportBehavior{open: open, format: format}
	typ := &node.Type{
		ID:   allocTypeID(),
		Name: "TextureImport",
		OutputSlots: []slot.Info{
			slot.FromStatic(0, resource.KindImage, true, slot.WithMutability(slot.WriteOnly)),
		},
	}
	typ.NewInstance = func(instanceName string) *node.Instance {
		return node.New(instanceName, typ, behavior)
	}
	g.RegisterNodeType(typ)
	return typ, behavior
}

func (b *TextureImportBehavior) CompileImpl(ctx *node.CompileContext) error {
	r, err := b.open()
	if err != nil {
		return fmt.Errorf("nodes: TextureImport %q: open source: %w", ctx.Instance.Name, err)
	}
	defer r.Close()

	img, err := bmp.Decode(r)
	if err != nil {
		return fmt.Errorf("nodes: TextureImport %q: decode bmp: %w", ctx.Instance.Name, err)
	}
	b.img = img

	bounds := img.Bounds()
	res := ctx.Resources.CreateResource(
		ctx.Instance.Name+".image",
		resource.KindImage,
		resource.ImageDescriptor{
			Width:  uint32(bounds.Dx()),
			Height: uint32(bounds.Dy()),
			Depth:  1,
			Format: imageFormatFromGPUType(b.format),
			Usage:  resource.ImageUsageSampled,
		},
		resource.Persistent,
	)
	res.SetHandle(resource.HandleFromPointer(img))
	return nil
}

func (b *TextureImportBehavior) CleanupImpl(*node.CleanupContext) error {
	b.img = nil
	return nil
}

// Image returns the decoded image, or nil before Compile has run.
func (b *TextureImportBehavior) Image() image.Image { return b.img }
