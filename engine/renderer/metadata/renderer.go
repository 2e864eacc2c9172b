package metadata

import "github.com/go-gl/mathgl/mgl32"

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName  string
	Width            uint32
	Height           uint32
	FramesInFlight   uint32
	EnableValidation bool
}

/** @brief Device limits the engine adapts to. */
type DeviceLimits struct {
	/** @brief Maximum number of sampled images a single shader stage can access. */
	MaxPerStageTextures uint32
}

/** @brief Per-draw push constant data. */
type DrawConstants struct {
	Model          mgl32.Mat4
	DiffuseColour  mgl32.Vec4
	TextureIndices [MaterialMapCount]uint32
}

/** @brief One sub-mesh draw, built on the main thread at render time. */
type DrawCommand struct {
	Mesh      *Mesh
	SubMesh   *SubMesh
	Constants DrawConstants
}

/** @brief Everything a state hands to the renderer for one frame. */
type RenderPacket struct {
	DeltaTime    float64
	View         mgl32.Mat4
	Projection   mgl32.Mat4
	ViewPosition mgl32.Vec3
	Models       []*Model
}
