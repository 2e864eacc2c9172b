// Package headless implements an in-memory renderer backend. It keeps track of every
// object it hands out so callers can check for leaks and inspect what was drawn.
package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

type image struct {
	pixels []uint8
}

type descriptorSet struct {
	id    uint64
	slots []*metadata.Image
}

// Frame is what the backend recorded between BeginFrame and EndFrame.
type Frame struct {
	Index    uint32
	Commands []*metadata.DrawCommand
	Group    *metadata.DescriptorGroup
}

type Backend struct {
	mu              sync.Mutex
	textureCapacity uint32
	framesInFlight  uint32
	nextSetID       uint64
	images          map[*metadata.Image]*image
	groups          map[uint64]*metadata.DescriptorGroup
	meshes          map[*metadata.Mesh]struct{}
	frames          []Frame
	inFrame         bool
	currentFrame    uint32
}

// New creates a backend reporting textureCapacity sampled images per shader stage.
func New(textureCapacity uint32) *Backend {
	return &Backend{
		textureCapacity: textureCapacity,
		images:          make(map[*metadata.Image]*image),
		groups:          make(map[uint64]*metadata.DescriptorGroup),
		meshes:          make(map[*metadata.Mesh]struct{}),
	}
}

func (b *Backend) Initialize(config metadata.RendererBackendConfig) error {
	b.framesInFlight = max(config.FramesInFlight, 1)
	core.LogInfo("headless renderer initialized (%d textures per stage, %d frames in flight)", b.textureCapacity, b.framesInFlight)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.groups) + len(b.images) + len(b.meshes); n > 0 {
		core.LogWarn("headless renderer shut down with %d live objects", n)
	}
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	return nil
}

func (b *Backend) IsMultithreaded() bool {
	return true
}

func (b *Backend) Limits() metadata.DeviceLimits {
	return metadata.DeviceLimits{MaxPerStageTextures: b.textureCapacity}
}

func (b *Backend) ImageCreate(pixels []uint8, img *metadata.Image) error {
	if want := int(img.Width * img.Height * 4); len(pixels) != want {
		return fmt.Errorf("image %s: got %d bytes, want %d: %w", img.Name, len(pixels), want, core.ErrInvalidOperation)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	core.Assertf(img.Handle == nil, core.ErrInvalidOperation, "image %s created twice", img.Name)

	data := make([]uint8, len(pixels))
	copy(data, pixels)
	h := &image{pixels: data}
	b.images[img] = h
	img.Handle = h
	img.Generation++
	return nil
}

func (b *Backend) ImageDestroy(img *metadata.Image) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.images[img]; !ok {
		return fmt.Errorf("image %s: %w", img.Name, core.ErrNotInitialized)
	}
	delete(b.images, img)
	img.Handle = nil
	return nil
}

func (b *Backend) DescriptorGroupCreate(capacity uint32) (*metadata.DescriptorGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if capacity == 0 || capacity > b.textureCapacity {
		return nil, fmt.Errorf("descriptor group of %d slots, device allows %d: %w", capacity, b.textureCapacity, core.ErrResourceExhausted)
	}
	b.nextSetID++
	group := &metadata.DescriptorGroup{
		Capacity: capacity,
		Set: &descriptorSet{
			id:    b.nextSetID,
			slots: make([]*metadata.Image, capacity),
		},
	}
	b.groups[b.nextSetID] = group
	return group, nil
}

func (b *Backend) DescriptorGroupWrite(group *metadata.DescriptorGroup, slot uint32, img *metadata.Image) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := group.Set.(*descriptorSet)
	if !ok || b.groups[set.id] != group {
		return fmt.Errorf("descriptor group is not live: %w", core.ErrInvalidOperation)
	}
	if slot >= group.Capacity {
		return fmt.Errorf("slot %d of %d: %w", slot, group.Capacity, core.ErrResourceExhausted)
	}
	if _, ok := b.images[img]; !ok {
		return fmt.Errorf("image %s has no backend object: %w", img.Name, core.ErrNotInitialized)
	}
	set.slots[slot] = img
	return nil
}

func (b *Backend) DescriptorGroupDestroy(group *metadata.DescriptorGroup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := group.Set.(*descriptorSet)
	if !ok || b.groups[set.id] != group {
		return fmt.Errorf("descriptor group is not live: %w", core.ErrInvalidOperation)
	}
	delete(b.groups, set.id)
	group.Set = nil
	return nil
}

func (b *Backend) MeshUpload(mesh *metadata.Mesh) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meshes[mesh] = struct{}{}
	return nil
}

func (b *Backend) MeshDestroy(mesh *metadata.Mesh) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.meshes, mesh)
	return nil
}

func (b *Backend) BeginFrame(frameIndex uint32, deltaTime float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	core.Assertf(!b.inFrame, core.ErrInvalidOperation, "frame %d begun twice", frameIndex)
	b.inFrame = true
	b.currentFrame = frameIndex
	b.frames = append(b.frames, Frame{Index: frameIndex})
	return nil
}

func (b *Backend) Draw(frameIndex uint32, packet *metadata.RenderPacket, commands []*metadata.DrawCommand, group *metadata.DescriptorGroup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	core.Assertf(b.inFrame && b.currentFrame == frameIndex, core.ErrInvalidOperation, "draw outside of frame %d", frameIndex)
	f := &b.frames[len(b.frames)-1]
	f.Commands = append(f.Commands, commands...)
	f.Group = group
	return nil
}

func (b *Backend) EndFrame(frameIndex uint32, deltaTime float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	core.Assertf(b.inFrame && b.currentFrame == frameIndex, core.ErrInvalidOperation, "ending frame %d", frameIndex)
	b.inFrame = false
	return nil
}

// LiveGroups returns the number of descriptor groups not yet destroyed.
func (b *Backend) LiveGroups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups)
}

// LiveImages returns the number of images not yet destroyed.
func (b *Backend) LiveImages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.images)
}

// SlotImage returns the image written to a slot of a live group, or nil.
func (b *Backend) SlotImage(group *metadata.DescriptorGroup, slot uint32) *metadata.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := group.Set.(*descriptorSet)
	if !ok || slot >= uint32(len(set.slots)) {
		return nil
	}
	return set.slots[slot]
}

// Frames returns the frames recorded so far.
func (b *Backend) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Frame, len(b.frames))
	copy(out, b.frames)
	return out
}
