// Command graphdemo builds a small render graph — a device context, a
// texture import, a shader reflection step, a pipeline cache depending on
// it, and a diagnostic text overlay — compiles it, and drives it through
// a fixed number of simulated frames, printing each frame's wave report
// and adaptive budget state.
package main

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/bmp"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/types"

	"github.com/vixengraph/rendergraph"
	"github.com/vixengraph/rendergraph/nodes"
)

const demoShaderSource = `
@group(0) @binding(0) var<uniform> frame : vec4<f32>;
@group(0) @binding(1) var albedo : texture_2d<f32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
	return frame;
}
`

func main() {
	var (
		frames     = flag.Int("frames", 30, "number of simulated frames to render")
		budgetMs   = flag.Float64("budget-ms", 16.667, "per-frame budget in milliseconds")
		frameMs    = flag.Float64("frame-ms", 14, "simulated frame delta passed to RenderFrame")
		sequential = flag.Bool("sequential", false, "use the sequential executor instead of the parallel one")
		verbose    = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	rendergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log := rendergraph.Logger()

	mode := rendergraph.Parallel
	if *sequential {
		mode = rendergraph.Sequential
	}

	g := rendergraph.New(
		rendergraph.WithBudget(int64(*budgetMs*1e6), 0.05),
		rendergraph.WithExecutorMode(mode, 0),
	)
	defer g.Close()

	deviceType, device := nodes.NewDeviceContextNode(g, gpucontext.Options{})
	if _, err := g.AddNode(deviceType.Name, "device"); err != nil {
		log.Error("add device node", "err", err)
		os.Exit(1)
	}

	textureType, texture := nodes.NewTextureImportNode(g, openDemoBMP, gputypes.TextureFormatRGBA8Unorm)
	if _, err := g.AddNode(textureType.Name, "texture"); err != nil {
		log.Error("add texture node", "err", err)
		os.Exit(1)
	}

	shaderType, shader := nodes.NewShaderReflectNode(g, demoShaderSource)
	if _, err := g.AddNode(shaderType.Name, "shader"); err != nil {
		log.Error("add shader node", "err", err)
		os.Exit(1)
	}

	pipelineType, pipelines := nodes.NewPipelineCacheNode(g, device, buildDemoPipeline)
	if _, err := g.AddNode(pipelineType.Name, "pipelines"); err != nil {
		log.Error("add pipeline cache node", "err", err)
		os.Exit(1)
	}

	overlayType, overlay := nodes.NewTextOverlayNode(g, nil)
	if _, err := g.AddNode(overlayType.Name, "hud"); err != nil {
		log.Error("add overlay node", "err", err)
		os.Exit(1)
	}

	if _, err := g.Connect("shader", 0, "pipelines", 0); err != nil {
		log.Error("connect shader to pipeline cache", "err", err)
		os.Exit(1)
	}

	if err := g.Compile(); err != nil {
		log.Error("compile", "err", err)
		os.Exit(1)
	}

	if err := overlay.RegisterWith(g.GetTaskProfileRegistry()); err != nil {
		log.Error("register overlay budget profile", "err", err)
		os.Exit(1)
	}

	log.Info("compiled", "capability_rtx", device.HasCapability("RTXSupport"), "texture_loaded", texture.Image() != nil)
	if bindings := shader.Bindings(); len(bindings) > 0 {
		log.Info("shader reflection", "bindings", len(bindings))
	}

	pipelineDesc := nodes.PipelineDescriptor{
		Label:              "demo-opaque",
		VertexCode:         []byte(demoShaderSource),
		VertexEntryPoint:   "vs_main",
		FragmentCode:       []byte(demoShaderSource),
		FragmentEntryPoint: "fs_main",
		ColorFormat:        types.TextureFormatRGBA8Unorm,
	}

	frameDelta := time.Duration(*frameMs * float64(time.Millisecond)).Seconds()
	for i := 0; i < *frames; i++ {
		result, err := g.RenderFrame(frameDelta)
		if err != nil {
			log.Error("render frame", "frame", i, "err", err)
			os.Exit(1)
		}

		if _, err := pipelines.GetOrCreate(pipelineDesc); err != nil {
			log.Error("get or create pipeline", "frame", i, "err", err)
			os.Exit(1)
		}

		hits, misses := pipelines.Stats()
		overlay.SetStats(nodes.FrameStats{
			FrameNumber: result.FrameNumber,
			WaveCount:   result.Report.WaveCount,
			AverageNs:   result.AverageNs,
			Utilization: result.Utilization,
		})

		log.Info("frame",
			"number", result.FrameNumber,
			"duration", result.Duration,
			"waves", result.Report.WaveCount,
			"budget_state", result.BudgetState,
			"adjusted_task", result.AdjustedTaskID,
			"pipeline_hits", hits,
			"pipeline_misses", misses,
		)
	}

	if err := g.CleanupAll(); err != nil {
		log.Error("cleanup", "err", err)
		os.Exit(1)
	}
}

// openDemoBMP synthesizes a small checkerboard image and encodes it as a
// BMP in memory, so the demo has no on-disk asset dependency.
func openDemoBMP() (io.ReadCloser, error) {
	const size = 16
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// buildDemoPipeline stands in for the embedding application's actual HAL
// pipeline construction; graphdemo has no real GPU surface to render
// into, so it returns an empty CachedPipeline and leaves assigning its
// identity to the pipeline cache.
func buildDemoPipeline(_ hal.Device, _ nodes.PipelineDescriptor) (*nodes.CachedPipeline, error) {
	return &nodes.CachedPipeline{}, nil
}
