package metadata

import (
	"sync/atomic"

	"github.com/google/uuid"
)

/** @brief Marks an image without a slot in the global texture array. */
const InvalidTextureIndex uint32 = ^uint32(0)

type ImageFormat int

const (
	/** @brief 8 bits per channel RGBA, unsigned normalized. */
	ImageFormatRGBA8 ImageFormat = iota
)

/**
 * @brief A structure to hold image resource data.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image, tightly packed RGBA. */
	Pixels []uint8
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

/**
 * @brief A GPU image. The backend handle is created once and never resized in place;
 * a reload destroys the image and creates a new one.
 */
type Image struct {
	/** @brief The unique image identifier. */
	ID uuid.UUID
	/** @brief The name the image was acquired with. */
	Name string
	Width  uint32
	Height uint32
	/** @brief The number of channels in the source data. */
	ChannelCount uint8
	Format       ImageFormat
	/** @brief Incremented by the backend every time the image is (re)created. */
	Generation uint32
	/** @brief Slot in the global descriptor group when the large-array texture mode is active. */
	TextureIndex uint32
	/** @brief The backend object. */
	Handle interface{}

	loaded atomic.Bool
}

func NewImage(name string) *Image {
	return &Image{
		ID:           uuid.New(),
		Name:         name,
		Format:       ImageFormatRGBA8,
		TextureIndex: InvalidTextureIndex,
	}
}

/** @brief True once the main-thread phase of the image load has completed. */
func (i *Image) HasLoaded() bool {
	return i != nil && i.loaded.Load()
}

func (i *Image) MarkLoaded() {
	i.loaded.Store(true)
}

func (i *Image) MarkUnloaded() {
	i.loaded.Store(false)
}
