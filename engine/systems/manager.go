package systems

import (
	"github.com/spaghettifunk/playground/engine/assets"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/scene"
)

type SystemManagerConfig struct {
	Renderer       RendererSystemConfig
	Textures       TextureSystemConfig
	Resources      ResourceSystemConfig
	MaxCameraCount uint16
}

// SystemManager constructs the systems layered on top of a renderer backend and shuts
// them down in reverse order. The job system is created here but started by the owner,
// after the rest of the engine is up.
type SystemManager struct {
	jobSystem      *JobSystem
	cameraSystem   *CameraSystem
	textureSystem  *TextureSystem
	resourceSystem *ResourceSystem
	rendererSystem *RendererSystem
}

func NewSystemManager(config SystemManagerConfig, backend renderer.RendererBackend, am *assets.AssetManager, graph *scene.Graph) (*SystemManager, error) {
	js := NewJobSystem()

	if config.MaxCameraCount == 0 {
		config.MaxCameraCount = 100
	}
	cs, err := NewCameraSystem(CameraSystemConfig{
		MaxCameraCount: config.MaxCameraCount,
	})
	if err != nil {
		return nil, err
	}

	if config.Textures.FramesInFlight == 0 {
		config.Textures.FramesInFlight = config.Renderer.FramesInFlight
	}
	ts := NewTextureSystem(config.Textures, backend)
	if err := ts.Initialize(); err != nil {
		return nil, err
	}

	rs := NewResourceSystem(config.Resources, js, am, backend, ts)
	rds := NewRendererSystem(config.Renderer, backend, ts, rs.Materials(), graph)

	return &SystemManager{
		jobSystem:      js,
		cameraSystem:   cs,
		textureSystem:  ts,
		resourceSystem: rs,
		rendererSystem: rds,
	}, nil
}

func (sm *SystemManager) Jobs() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) Cameras() *CameraSystem {
	return sm.cameraSystem
}

func (sm *SystemManager) Textures() *TextureSystem {
	return sm.textureSystem
}

func (sm *SystemManager) Resources() *ResourceSystem {
	return sm.resourceSystem
}

func (sm *SystemManager) Materials() *MaterialSystem {
	return sm.resourceSystem.Materials()
}

func (sm *SystemManager) Renderer() *RendererSystem {
	return sm.rendererSystem
}

// Shutdown stops every system, the job system first so no load completes against a
// system that is already gone.
func (sm *SystemManager) Shutdown() error {
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.rendererSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.resourceSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.cameraSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
