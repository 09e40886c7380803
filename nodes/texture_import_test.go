package nodes

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/vixengraph/rendergraph/resource"
)

func TestImageFormatFromGPUType(t *testing.T) {
	cases := []struct {
		in   gputypes.TextureFormat
		want resource.ImageFormat
	}{
		{gputypes.TextureFormatRGBA8Unorm, resource.FormatRGBA8},
		{gputypes.TextureFormatRGBA8UnormSRGB, resource.FormatRGBA8SRGB},
		{gputypes.TextureFormatBGRA8Unorm, resource.FormatBGRA8},
		{gputypes.TextureFormatBGRA8UnormSRGB, resource.FormatBGRA8},
	}
	for _, c := range cases {
		if got := imageFormatFromGPUType(c.in); got != c.want {
			t.Errorf("imageFormatFromGPUType(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTextureImportBehaviorCleanupClearsImage(t *testing.T) {
	b := &TextureImportBehavior{}
	if err := b.CleanupImpl(nil); err != nil {
		t.Fatalf("CleanupImpl: %v", err)
	}
	if b.Image() != nil {
		t.Fatalf("Image() non-nil after Cleanup on a never-compiled node")
	}
}
