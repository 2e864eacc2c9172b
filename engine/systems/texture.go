package systems

import (
	"fmt"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

const fallbackTextureDimension uint32 = 16

type TextureSystemConfig struct {
	/** @brief Per-stage capacity above which the large-array mode is used. Zero means metadata.LargeArrayThreshold. */
	LargeArrayThreshold uint32
	/** @brief Number of frame-in-flight slots per-draw groups are scoped to. */
	FramesInFlight uint32
}

// TextureSystem hands out descriptor slots for images at draw time. Depending on the
// device it either keeps every image in one large descriptor array, or builds a small
// descriptor group per finalize call holding just the images requested since the last
// one. All methods must be called from the main thread.
type TextureSystem struct {
	config   TextureSystemConfig
	backend  renderer.TextureBackend
	mode     metadata.TextureMode
	capacity uint32
	fallback *metadata.Image

	// large-array mode
	global    *metadata.DescriptorGroup
	nextIndex uint32

	// per-draw mode
	frameIndex  uint32
	frameGroups [][]*metadata.DescriptorGroup

	pending     []metadata.TextureRequest
	initialized bool
}

func NewTextureSystem(config TextureSystemConfig, backend renderer.TextureBackend) *TextureSystem {
	if config.LargeArrayThreshold == 0 {
		config.LargeArrayThreshold = metadata.LargeArrayThreshold
	}
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 1
	}
	return &TextureSystem{
		config:  config,
		backend: backend,
	}
}

// Initialize queries the device limits, picks the texture mode and creates the fallback
// texture.
func (ts *TextureSystem) Initialize() error {
	limits := ts.backend.Limits()
	if limits.MaxPerStageTextures == 0 {
		return fmt.Errorf("device reports no sampled image slots: %w", core.ErrResourceExhausted)
	}
	ts.capacity = limits.MaxPerStageTextures
	ts.mode = metadata.TextureModePerDraw
	if ts.capacity > ts.config.LargeArrayThreshold {
		ts.mode = metadata.TextureModeLargeArray
	}
	ts.frameGroups = make([][]*metadata.DescriptorGroup, ts.config.FramesInFlight)

	ts.fallback = metadata.NewImage(metadata.DEFAULT_TEXTURE_NAME)
	ts.fallback.Width = fallbackTextureDimension
	ts.fallback.Height = fallbackTextureDimension
	ts.fallback.ChannelCount = 4
	pixels := make([]uint8, fallbackTextureDimension*fallbackTextureDimension*4)
	for i := range pixels {
		pixels[i] = 255
	}
	if err := ts.backend.ImageCreate(pixels, ts.fallback); err != nil {
		return fmt.Errorf("failed to create the fallback texture: %w", err)
	}
	ts.fallback.MarkLoaded()

	if ts.mode == metadata.TextureModeLargeArray {
		group, err := ts.backend.DescriptorGroupCreate(ts.capacity)
		if err != nil {
			return fmt.Errorf("failed to create the global texture array: %w", err)
		}
		group.Global = true
		ts.global = group
		if err := ts.RegisterImage(ts.fallback); err != nil {
			return err
		}
	}

	ts.initialized = true
	core.LogInfo("texture system initialized in %s mode (%d textures per stage)", ts.mode, ts.capacity)
	return nil
}

func (ts *TextureSystem) Mode() metadata.TextureMode {
	return ts.mode
}

func (ts *TextureSystem) Capacity() uint32 {
	return ts.capacity
}

// FallbackImage returns the white texture used for missing or unloaded images.
func (ts *TextureSystem) FallbackImage() *metadata.Image {
	return ts.fallback
}

// GlobalGroup returns the large-array descriptor group, or nil in per-draw mode.
func (ts *TextureSystem) GlobalGroup() *metadata.DescriptorGroup {
	return ts.global
}

// RegisterImage gives a freshly created image its permanent slot in the global array.
// It is a no-op in per-draw mode. Running out of slots is fatal.
func (ts *TextureSystem) RegisterImage(img *metadata.Image) error {
	if ts.mode != metadata.TextureModeLargeArray || img.TextureIndex != metadata.InvalidTextureIndex {
		return nil
	}
	if ts.nextIndex >= ts.global.Capacity {
		err := fmt.Errorf("global texture array full (%d slots) registering %s: %w", ts.global.Capacity, img.Name, core.ErrResourceExhausted)
		core.LogError(err.Error())
		panic(err)
	}
	if err := ts.backend.DescriptorGroupWrite(ts.global, ts.nextIndex, img); err != nil {
		return fmt.Errorf("failed to register %s: %w", img.Name, err)
	}
	img.TextureIndex = ts.nextIndex
	ts.nextIndex++
	ts.global.Occupancy++
	return nil
}

// PrepareTexture records that out must receive the slot of img once the texture set is
// finalized. img may be nil or not loaded yet; out then receives the fallback slot.
func (ts *TextureSystem) PrepareTexture(out *uint32, img *metadata.Image) {
	core.Assertf(out != nil, core.ErrInvalidOperation, "PrepareTexture without an output slot")
	ts.pending = append(ts.pending, metadata.TextureRequest{Out: out, Image: img})
}

// FinalizeTextureSet resolves every pending request. In large-array mode the requests
// receive the permanent indices and nil is returned. In per-draw mode a new group is
// allocated for the current frame-in-flight slot, holding the fallback in slot 0 and
// the requested images in request order; images that do not fit resolve to the
// fallback.
func (ts *TextureSystem) FinalizeTextureSet() (*metadata.DescriptorGroup, error) {
	core.Assert(ts.initialized, core.ErrNotInitialized)
	requests := ts.pending
	ts.pending = nil

	if ts.mode == metadata.TextureModeLargeArray {
		for _, r := range requests {
			*r.Out = metadata.FallbackTextureSlot
			if r.Image.HasLoaded() && r.Image.TextureIndex != metadata.InvalidTextureIndex {
				*r.Out = r.Image.TextureIndex
			}
		}
		return nil, nil
	}

	slots := make(map[*metadata.Image]uint32)
	var unique []*metadata.Image
	for _, r := range requests {
		// the fallback always sits in slot 0
		if !r.Image.HasLoaded() || r.Image == ts.fallback {
			continue
		}
		if _, ok := slots[r.Image]; !ok {
			slots[r.Image] = metadata.FallbackTextureSlot
			unique = append(unique, r.Image)
		}
	}

	size := min(uint32(len(unique))+1, ts.capacity)
	group, err := ts.backend.DescriptorGroupCreate(size)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate a %d slot texture group: %w", size, err)
	}
	group.FrameIndex = ts.frameIndex
	ts.frameGroups[ts.frameIndex] = append(ts.frameGroups[ts.frameIndex], group)

	if err := ts.backend.DescriptorGroupWrite(group, metadata.FallbackTextureSlot, ts.fallback); err != nil {
		return nil, err
	}
	group.Occupancy = 1

	overflow := 0
	for _, img := range unique {
		if group.Occupancy == group.Capacity {
			overflow++
			continue
		}
		if err := ts.backend.DescriptorGroupWrite(group, group.Occupancy, img); err != nil {
			return nil, err
		}
		slots[img] = group.Occupancy
		group.Occupancy++
	}
	if overflow > 0 {
		core.LogWarn("%d textures did not fit a %d slot group and use the fallback texture", overflow, group.Capacity)
	}

	for _, r := range requests {
		*r.Out = metadata.FallbackTextureSlot
		if slot, ok := slots[r.Image]; ok {
			*r.Out = slot
		}
	}
	return group, nil
}

// NewFrame makes frameIndex the current frame-in-flight slot and frees the per-draw
// groups created the last time this slot was in use. The caller must have waited for
// the GPU to retire that frame.
func (ts *TextureSystem) NewFrame(frameIndex uint32) error {
	core.Assertf(frameIndex < uint32(len(ts.frameGroups)), core.ErrInvalidOperation, "frame index %d of %d", frameIndex, len(ts.frameGroups))
	if n := len(ts.pending); n > 0 {
		core.LogWarn("dropping %d texture requests that were never finalized", n)
		ts.pending = nil
	}
	ts.frameIndex = frameIndex
	return ts.releaseFrame(frameIndex)
}

func (ts *TextureSystem) releaseFrame(frameIndex uint32) error {
	groups := ts.frameGroups[frameIndex]
	ts.frameGroups[frameIndex] = nil
	for _, g := range groups {
		if err := ts.backend.DescriptorGroupDestroy(g); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown frees every descriptor group and the fallback texture.
func (ts *TextureSystem) Shutdown() error {
	if !ts.initialized {
		return nil
	}
	for i := range ts.frameGroups {
		if err := ts.releaseFrame(uint32(i)); err != nil {
			return err
		}
	}
	if ts.global != nil {
		if err := ts.backend.DescriptorGroupDestroy(ts.global); err != nil {
			return err
		}
		ts.global = nil
	}
	if err := ts.backend.ImageDestroy(ts.fallback); err != nil {
		return err
	}
	ts.initialized = false
	return nil
}
