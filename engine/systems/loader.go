package systems

import (
	"fmt"

	"github.com/spaghettifunk/playground/engine/assets"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// Loader produces the job that populates one asset. The job system knows nothing about
// the formats involved.
type Loader interface {
	GetWork() metadata.Work
}

// ImageSource hands out images by name, loading them on first use.
type ImageSource interface {
	AcquireImage(name string) *metadata.Image
}

// ImageLoadAdapter decodes an image on a worker and creates the GPU image on the main
// thread, where it also receives its texture slot.
type ImageLoadAdapter struct {
	assets   *assets.AssetManager
	backend  renderer.TextureBackend
	textures *TextureSystem
	image    *metadata.Image
	params   metadata.ImageResourceParams
	resource *metadata.Resource
}

func NewImageLoadAdapter(am *assets.AssetManager, backend renderer.TextureBackend, textures *TextureSystem, image *metadata.Image, params metadata.ImageResourceParams) *ImageLoadAdapter {
	return &ImageLoadAdapter{
		assets:   am,
		backend:  backend,
		textures: textures,
		image:    image,
		params:   params,
	}
}

func (a *ImageLoadAdapter) Image() *metadata.Image {
	return a.image
}

func (a *ImageLoadAdapter) GetWork() metadata.Work {
	return metadata.Work{
		Name:       fmt.Sprintf("image:%s", a.image.Name),
		Background: imageLoadJobStart,
		MainThread: imageLoadJobSuccess,
		OnFailure:  imageLoadJobFail,
		Payload:    a,
	}
}

/**
 * @brief Called on a worker. Reads and decodes the image file.
 */
func imageLoadJobStart(params interface{}) error {
	a := params.(*ImageLoadAdapter)
	res, err := a.assets.LoadAsset(a.image.Name, metadata.ResourceTypeImage, &a.params)
	if err != nil {
		return err
	}
	a.resource = res
	return nil
}

/**
 * @brief Called on the main thread once the image is decoded. Creates the GPU
 * image and registers it with the texture system.
 */
func imageLoadJobSuccess(params interface{}) {
	a := params.(*ImageLoadAdapter)
	data := a.resource.Data.(*metadata.ImageResourceData)
	defer a.release()

	a.image.Width = data.Width
	a.image.Height = data.Height
	a.image.ChannelCount = data.ChannelCount
	if err := a.backend.ImageCreate(data.Pixels, a.image); err != nil {
		core.LogError("failed to create image '%s': %s", a.image.Name, err.Error())
		return
	}
	if err := a.textures.RegisterImage(a.image); err != nil {
		core.LogError("failed to register image '%s': %s", a.image.Name, err.Error())
		if err := a.backend.ImageDestroy(a.image); err != nil {
			core.LogError(err.Error())
		}
		return
	}
	a.image.MarkLoaded()
	core.LogDebug("Successfully loaded image '%s'.", a.image.Name)
}

func imageLoadJobFail(params interface{}, err error) {
	a := params.(*ImageLoadAdapter)
	core.LogError("Failed to load image '%s': %s", a.image.Name, err.Error())
}

func (a *ImageLoadAdapter) release() {
	if err := a.assets.UnloadAsset(a.resource, metadata.ResourceTypeImage); err != nil {
		core.LogError(err.Error())
	}
	a.resource = nil
}

// MeshLoadAdapter parses a mesh on a worker. On the main thread it uploads the geometry
// and resolves the sub-mesh materials, which in turn queues their texture loads.
type MeshLoadAdapter struct {
	assets    *assets.AssetManager
	backend   renderer.RendererBackend
	materials *MaterialSystem
	mesh      *metadata.Mesh
	resource  *metadata.Resource
}

func NewMeshLoadAdapter(am *assets.AssetManager, backend renderer.RendererBackend, materials *MaterialSystem, mesh *metadata.Mesh) *MeshLoadAdapter {
	return &MeshLoadAdapter{
		assets:    am,
		backend:   backend,
		materials: materials,
		mesh:      mesh,
	}
}

func (a *MeshLoadAdapter) Mesh() *metadata.Mesh {
	return a.mesh
}

func (a *MeshLoadAdapter) GetWork() metadata.Work {
	return metadata.Work{
		Name:       fmt.Sprintf("mesh:%s", a.mesh.Name),
		Background: meshLoadJobStart,
		MainThread: meshLoadJobSuccess,
		OnFailure:  meshLoadJobFail,
		Payload:    a,
	}
}

/**
 * @brief Called when a mesh loading job begins.
 *
 * @param params The MeshLoadAdapter.
 * @return nil on success; otherwise the load error.
 */
func meshLoadJobStart(params interface{}) error {
	a, ok := params.(*MeshLoadAdapter)
	if !ok {
		return fmt.Errorf("failed to cast params to `*MeshLoadAdapter`: %w", core.ErrInvalidOperation)
	}
	res, err := a.assets.LoadAsset(a.mesh.Name, metadata.ResourceTypeMesh, nil)
	if err != nil {
		return err
	}
	a.resource = res
	return nil
}

/**
 * @brief Called when the job completes successfully.
 *
 * @param params The parameters passed from the job after completion.
 */
func meshLoadJobSuccess(params interface{}) {
	a := params.(*MeshLoadAdapter)
	data := a.resource.Data.(*metadata.MeshResourceData)
	a.resource = nil

	a.mesh.SubMeshes = data.SubMeshes
	// This also handles the GPU upload.
	if err := a.backend.MeshUpload(a.mesh); err != nil {
		core.LogError("failed to upload mesh '%s': %s", a.mesh.Name, err.Error())
		a.mesh.SubMeshes = nil
		return
	}
	for _, sm := range a.mesh.SubMeshes {
		sm.Material = a.materials.Acquire(sm.MaterialData)
	}
	a.mesh.MarkLoaded()
	core.LogDebug("Successfully loaded mesh '%s' (%d sub-meshes).", a.mesh.Name, len(a.mesh.SubMeshes))
}

/**
 * @brief Called when the job fails.
 *
 * @param params Parameters passed when a job fails.
 */
func meshLoadJobFail(params interface{}, err error) {
	a := params.(*MeshLoadAdapter)
	core.LogError("Failed to load mesh '%s': %s", a.mesh.Name, err.Error())
}

// FontLoadAdapter imports a bitmap font descriptor on a worker and acquires its atlas
// pages on the main thread. The font reports loaded once every page image has.
type FontLoadAdapter struct {
	assets   *assets.AssetManager
	images   ImageSource
	font     *metadata.BitmapFont
	resource *metadata.Resource
}

func NewFontLoadAdapter(am *assets.AssetManager, images ImageSource, font *metadata.BitmapFont) *FontLoadAdapter {
	return &FontLoadAdapter{
		assets: am,
		images: images,
		font:   font,
	}
}

func (a *FontLoadAdapter) GetWork() metadata.Work {
	return metadata.Work{
		Name:       fmt.Sprintf("font:%s", a.font.Name),
		Background: fontLoadJobStart,
		MainThread: fontLoadJobSuccess,
		OnFailure:  fontLoadJobFail,
		Payload:    a,
	}
}

func fontLoadJobStart(params interface{}) error {
	a := params.(*FontLoadAdapter)
	res, err := a.assets.LoadAsset(a.font.Name, metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		return err
	}
	a.resource = res
	return nil
}

func fontLoadJobSuccess(params interface{}) {
	a := params.(*FontLoadAdapter)
	data := a.resource.Data.(*metadata.BitmapFontResourceData)
	a.resource = nil

	for _, page := range data.Pages {
		page.Image = a.images.AcquireImage(page.File)
	}
	a.font.Data = data
	a.font.MarkLoaded()
}

func fontLoadJobFail(params interface{}, err error) {
	a := params.(*FontLoadAdapter)
	core.LogError("Failed to load bitmap font '%s': %s", a.font.Name, err.Error())
}
