package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// MaterialSystem owns every material by name. Texture maps are acquired through an
// ImageSource; a map without a name, or whose image has not loaded yet, is drawn with
// the fallback texture. Main thread only.
type MaterialSystem struct {
	images          ImageSource
	materials       map[string]*metadata.Material
	defaultMaterial *metadata.Material
}

func NewMaterialSystem(images ImageSource) *MaterialSystem {
	return &MaterialSystem{
		images:    images,
		materials: make(map[string]*metadata.Material),
		defaultMaterial: &metadata.Material{
			ID:            uuid.New(),
			Name:          metadata.DefaultMaterialName,
			DiffuseColour: mgl32.Vec4{1, 1, 1, 1},
		},
	}
}

// Default returns the untextured white material.
func (ms *MaterialSystem) Default() *metadata.Material {
	return ms.defaultMaterial
}

// Acquire returns the material described by data, creating it on first use. nil data
// yields the default material.
func (ms *MaterialSystem) Acquire(data *metadata.MeshMaterialData) *metadata.Material {
	if data == nil {
		return ms.defaultMaterial
	}
	return ms.AcquireFromConfig(metadata.MaterialConfig{
		Name:            data.Name,
		DiffuseColour:   data.DiffuseColour,
		Shininess:       data.Shininess,
		DiffuseMapName:  data.DiffuseMapName,
		SpecularMapName: data.SpecularMapName,
		NormalMapName:   data.NormalMapName,
	})
}

// AcquireFromConfig returns the material with the config's name, creating it from the
// config if it does not exist yet.
func (ms *MaterialSystem) AcquireFromConfig(config metadata.MaterialConfig) *metadata.Material {
	if config.Name == "" || config.Name == metadata.DefaultMaterialName {
		return ms.defaultMaterial
	}
	if m, ok := ms.materials[config.Name]; ok {
		return m
	}

	m := &metadata.Material{
		ID:            uuid.New(),
		Name:          config.Name,
		DiffuseColour: config.DiffuseColour,
		Shininess:     config.Shininess,
	}
	m.Maps[metadata.MaterialMapDiffuse] = ms.acquireMap(config.DiffuseMapName)
	m.Maps[metadata.MaterialMapNormal] = ms.acquireMap(config.NormalMapName)
	m.Maps[metadata.MaterialMapSpecular] = ms.acquireMap(config.SpecularMapName)
	ms.materials[config.Name] = m
	core.LogDebug("created material '%s'", config.Name)
	return m
}

func (ms *MaterialSystem) acquireMap(name string) *metadata.Image {
	if name == "" {
		return nil
	}
	return ms.images.AcquireImage(name)
}

// Get returns a material created earlier.
func (ms *MaterialSystem) Get(name string) (*metadata.Material, bool) {
	if name == metadata.DefaultMaterialName {
		return ms.defaultMaterial, true
	}
	m, ok := ms.materials[name]
	return m, ok
}

func (ms *MaterialSystem) Len() int {
	return len(ms.materials)
}

func (ms *MaterialSystem) Shutdown() error {
	ms.materials = make(map[string]*metadata.Material)
	return nil
}
