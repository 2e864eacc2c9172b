package renderer

import "github.com/spaghettifunk/playground/engine/renderer/metadata"

// TextureBackend is the part of a GPU backend the texture system depends on. Backends
// that support it may be called from worker goroutines; the others must only be used
// from the main thread.
type TextureBackend interface {
	Limits() metadata.DeviceLimits
	ImageCreate(pixels []uint8, image *metadata.Image) error
	ImageDestroy(image *metadata.Image) error
	DescriptorGroupCreate(capacity uint32) (*metadata.DescriptorGroup, error)
	DescriptorGroupWrite(group *metadata.DescriptorGroup, slot uint32, image *metadata.Image) error
	DescriptorGroupDestroy(group *metadata.DescriptorGroup) error
}

// RendererBackend is a complete GPU backend.
type RendererBackend interface {
	TextureBackend
	Initialize(config metadata.RendererBackendConfig) error
	Shutdown() error
	Resized(width, height uint32) error
	// BeginFrame blocks until the GPU retired the previous use of the frame-in-flight slot.
	BeginFrame(frameIndex uint32, deltaTime float64) error
	Draw(frameIndex uint32, packet *metadata.RenderPacket, commands []*metadata.DrawCommand, group *metadata.DescriptorGroup) error
	EndFrame(frameIndex uint32, deltaTime float64) error
	MeshUpload(mesh *metadata.Mesh) error
	MeshDestroy(mesh *metadata.Mesh) error
	IsMultithreaded() bool
}
