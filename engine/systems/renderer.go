package systems

import (
	"fmt"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
	"github.com/spaghettifunk/playground/engine/scene"
)

// Frames to wait after the last resize event before the backend is resized.
const resizeSettleFrames uint8 = 30

type RendererSystemConfig struct {
	ApplicationName  string
	Width            uint32
	Height           uint32
	FramesInFlight   uint32
	EnableValidation bool
}

// RendererSystem turns render packets into draw commands for the backend. Each frame
// uses the frame-in-flight slot frameNumber % FramesInFlight; per-draw texture groups
// are scoped to that slot.
type RendererSystem struct {
	config    RendererSystemConfig
	backend   renderer.RendererBackend
	textures  *TextureSystem
	materials *MaterialSystem
	graph     *scene.Graph

	frameNumber uint64
	commands    []*metadata.DrawCommand

	// The current window framebuffer width.
	FramebufferWidth uint32
	// The current window framebuffer height.
	FramebufferHeight uint32
	// Indicates if the window is currently being resized.
	Resizing bool
	// The current number of frames since the last resize operation.
	// Only set if resizing = true. Otherwise 0.
	FramesSinceResize uint8
}

func NewRendererSystem(config RendererSystemConfig, backend renderer.RendererBackend, textures *TextureSystem, materials *MaterialSystem, graph *scene.Graph) *RendererSystem {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 1
	}
	return &RendererSystem{
		config:            config,
		backend:           backend,
		textures:          textures,
		materials:         materials,
		graph:             graph,
		FramebufferWidth:  config.Width,
		FramebufferHeight: config.Height,
	}
}

// FrameNumber returns the number of frames drawn so far.
func (r *RendererSystem) FrameNumber() uint64 {
	return r.frameNumber
}

// FrameIndex returns the frame-in-flight slot the next frame will use.
func (r *RendererSystem) FrameIndex() uint32 {
	return uint32(r.frameNumber % uint64(r.config.FramesInFlight))
}

func (r *RendererSystem) OnResize(width, height uint32) {
	// Flag as resizing and store the change, but wait to regenerate.
	r.Resizing = true
	r.FramebufferWidth = width
	r.FramebufferHeight = height
	// Also reset the frame count since the last resize operation.
	r.FramesSinceResize = 0
}

// DrawFrame renders one packet. Models whose mesh has not loaded are skipped.
func (r *RendererSystem) DrawFrame(packet *metadata.RenderPacket) error {
	// Make sure the window is not currently being resized by waiting a designated
	// number of frames after the last resize operation before performing the backend updates.
	if r.Resizing {
		r.FramesSinceResize++
		if r.FramesSinceResize < resizeSettleFrames {
			// Skip rendering the frame and try again next time.
			return nil
		}
		if err := r.backend.Resized(r.FramebufferWidth, r.FramebufferHeight); err != nil {
			return err
		}
		r.FramesSinceResize = 0
		r.Resizing = false
	}

	frameIndex := r.FrameIndex()
	if err := r.backend.BeginFrame(frameIndex, packet.DeltaTime); err != nil {
		return fmt.Errorf("begin frame %d: %w", r.frameNumber, err)
	}
	if err := r.textures.NewFrame(frameIndex); err != nil {
		return err
	}

	r.commands = r.commands[:0]
	for _, model := range packet.Models {
		if !model.Mesh.HasLoaded() || !r.graph.Contains(model.Node) {
			continue
		}
		world := r.graph.WorldMatrix(model.Node)
		for _, sm := range model.Mesh.SubMeshes {
			material := sm.Material
			if material == nil {
				material = r.materials.Default()
			}
			cmd := &metadata.DrawCommand{
				Mesh:    model.Mesh,
				SubMesh: sm,
				Constants: metadata.DrawConstants{
					Model:         world,
					DiffuseColour: material.DiffuseColour,
				},
			}
			for i := range material.Maps {
				r.textures.PrepareTexture(&cmd.Constants.TextureIndices[i], material.Maps[i])
			}
			r.commands = append(r.commands, cmd)
		}
	}

	group, err := r.textures.FinalizeTextureSet()
	if err != nil {
		return err
	}
	if r.textures.Mode() == metadata.TextureModeLargeArray {
		group = r.textures.GlobalGroup()
	}

	if err := r.backend.Draw(frameIndex, packet, r.commands, group); err != nil {
		return err
	}

	// End the frame. If this fails, it is likely unrecoverable.
	if err := r.backend.EndFrame(frameIndex, packet.DeltaTime); err != nil {
		err := fmt.Errorf("backend func EndFrame failed: %w", err)
		core.LogError(err.Error())
		return err
	}
	r.frameNumber++
	return nil
}

func (r *RendererSystem) Shutdown() error {
	r.commands = nil
	return nil
}
