package systems

import (
	"github.com/spaghettifunk/playground/engine/assets"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief Flip images vertically when decoding them. */
	FlipImagesY bool
}

// ResourceSystem hands out images, meshes and fonts by name. The first acquisition of a
// name creates the object and queues its load; the object reports HasLoaded once the
// job's main-thread phase ran. A failed load leaves the object unloaded for good.
// Main thread only.
type ResourceSystem struct {
	config    ResourceSystemConfig
	jobs      *JobSystem
	assets    *assets.AssetManager
	backend   renderer.RendererBackend
	textures  *TextureSystem
	materials *MaterialSystem

	images map[string]*metadata.Image
	meshes map[string]*metadata.Mesh
	fonts  map[string]*metadata.BitmapFont
}

func NewResourceSystem(config ResourceSystemConfig, jobs *JobSystem, am *assets.AssetManager, backend renderer.RendererBackend, textures *TextureSystem) *ResourceSystem {
	rs := &ResourceSystem{
		config:   config,
		jobs:     jobs,
		assets:   am,
		backend:  backend,
		textures: textures,
		images:   make(map[string]*metadata.Image),
		meshes:   make(map[string]*metadata.Mesh),
		fonts:    make(map[string]*metadata.BitmapFont),
	}
	rs.materials = NewMaterialSystem(rs)
	core.LogInfo("Resource system initialized with base path '%s'.", am.Root())
	return rs
}

func (rs *ResourceSystem) Materials() *MaterialSystem {
	return rs.materials
}

// AcquireImage returns the image with the given name, queueing its load the first time.
// The empty name and the default texture name yield the fallback image.
func (rs *ResourceSystem) AcquireImage(name string) *metadata.Image {
	if name == "" || name == metadata.DEFAULT_TEXTURE_NAME {
		return rs.textures.FallbackImage()
	}
	if img, ok := rs.images[name]; ok {
		return img
	}
	img := metadata.NewImage(name)
	rs.images[name] = img
	rs.queue(NewImageLoadAdapter(rs.assets, rs.backend, rs.textures, img, metadata.ImageResourceParams{FlipY: rs.config.FlipImagesY}))
	return img
}

// AcquireMesh returns the mesh with the given name, queueing its load the first time.
func (rs *ResourceSystem) AcquireMesh(name string) *metadata.Mesh {
	if mesh, ok := rs.meshes[name]; ok {
		return mesh
	}
	mesh := metadata.NewMesh(name)
	rs.meshes[name] = mesh
	rs.queue(NewMeshLoadAdapter(rs.assets, rs.backend, rs.materials, mesh))
	return mesh
}

// AcquireFont returns the bitmap font with the given name, queueing its load the first
// time.
func (rs *ResourceSystem) AcquireFont(name string) *metadata.BitmapFont {
	if font, ok := rs.fonts[name]; ok {
		return font
	}
	font := metadata.NewBitmapFont(name)
	rs.fonts[name] = font
	rs.queue(NewFontLoadAdapter(rs.assets, rs, font))
	return font
}

func (rs *ResourceSystem) queue(loader Loader) {
	work := loader.GetWork()
	if rs.jobs.QueueWork(work) == metadata.InvalidJobHandle {
		core.LogWarn("could not queue %s, it will never load", work.Name)
	}
}

// Shutdown destroys the GPU objects of every loaded image and mesh. The job system must
// be shut down first.
func (rs *ResourceSystem) Shutdown() error {
	for name, mesh := range rs.meshes {
		if mesh.HasLoaded() {
			if err := rs.backend.MeshDestroy(mesh); err != nil {
				core.LogError("destroying mesh '%s': %s", name, err.Error())
			}
		}
	}
	for name, img := range rs.images {
		if img.HasLoaded() {
			if err := rs.backend.ImageDestroy(img); err != nil {
				core.LogError("destroying image '%s': %s", name, err.Error())
			}
			img.MarkUnloaded()
		}
	}
	rs.meshes = make(map[string]*metadata.Mesh)
	rs.images = make(map[string]*metadata.Image)
	rs.fonts = make(map[string]*metadata.BitmapFont)
	return rs.materials.Shutdown()
}
