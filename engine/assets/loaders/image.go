package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// ImageLoader decodes png, jpeg, bmp, tiff and webp files into tightly packed RGBA8 pixels.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var flipY bool
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flipY = p.FlipY
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := DecodeImage(f, flipY)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &metadata.Resource{
		Name:     "image",
		FullPath: path,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// DecodeImage reads any registered image format and converts it to RGBA8.
func DecodeImage(r io.Reader, flipY bool) (*metadata.ImageResourceData, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrUnsupportedFormat)
	}

	bounds := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}
	core.LogDebug("decoded %s image %dx%d", format, bounds.Dx(), bounds.Dy())

	pixels := rgba.Pix
	if flipY {
		pixels = flipRows(pixels, bounds.Dx()*4, bounds.Dy())
	}

	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       pixels,
	}, nil
}

func flipRows(pixels []uint8, stride int, rows int) []uint8 {
	out := make([]uint8, len(pixels))
	for y := 0; y < rows; y++ {
		copy(out[y*stride:(y+1)*stride], pixels[(rows-1-y)*stride:(rows-y)*stride])
	}
	return out
}
