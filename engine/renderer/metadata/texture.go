package metadata

const (
	/** @brief The fallback texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The default diffuse texture name. */
	DEFAULT_DIFFUSE_TEXTURE_NAME string = "default_DIFF"
)

/** @brief Per-stage texture capacity above which the large-array mode is selected. */
const LargeArrayThreshold uint32 = 10000

/** @brief The descriptor slot holding the fallback texture, in both modes. */
const FallbackTextureSlot uint32 = 0

/** @brief How sampled textures are exposed to shaders. Chosen once at initialization. */
type TextureMode int

const (
	/** @brief One process-wide descriptor group, every image gets a permanent slot. */
	TextureModeLargeArray TextureMode = iota
	/** @brief A transient descriptor group per finalize call, reclaimed per frame-in-flight. */
	TextureModePerDraw
)

func (m TextureMode) String() string {
	if m == TextureModeLargeArray {
		return "large-array"
	}
	return "per-draw"
}

/**
 * @brief A descriptor set of combined image samplers.
 */
type DescriptorGroup struct {
	/** @brief Number of slots. */
	Capacity uint32
	/** @brief Number of slots written so far. Never exceeds Capacity. */
	Occupancy uint32
	/** @brief The frame-in-flight slot owning the group. Unused for the global group. */
	FrameIndex uint32
	/** @brief True for the large-array group. */
	Global bool
	/** @brief The backend descriptor set. */
	Set interface{}
}

/** @brief A pending request for the slot of an image, resolved by the texture finalize step. */
type TextureRequest struct {
	Out   *uint32
	Image *Image
}
