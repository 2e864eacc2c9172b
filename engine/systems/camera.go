package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/components"
)

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/**
	 * @brief NOTE: The maximum number of cameras that can be managed by
	 * the system.
	 */
	MaxCameraCount uint16
}

type cameraLookup struct {
	camera         components.Camera
	referenceCount uint16
}

// CameraSystem keeps named, reference counted cameras and a default free camera that
// always exists as a fallback.
type CameraSystem struct {
	config  CameraSystemConfig
	cameras map[string]*cameraLookup
	// A default, non-registered camera that always exists as a fallback.
	defaultCamera *components.FreeCamera
	active        components.Camera
}

func NewCameraSystem(config CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0: %w", core.ErrInvalidOperation)
		core.LogError(err.Error())
		return nil, err
	}
	cs := &CameraSystem{
		config:        config,
		cameras:       make(map[string]*cameraLookup, config.MaxCameraCount),
		defaultCamera: components.NewFreeCamera(mgl32.Vec3{0, 0, 10}),
	}
	cs.active = cs.defaultCamera
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	cs.cameras = make(map[string]*cameraLookup)
	cs.active = cs.defaultCamera
	return nil
}

/**
 * @brief Acquires a camera by name. If one is not found, a new free
 * camera is created and returned. Internal reference counter is incremented.
 */
func (cs *CameraSystem) Acquire(name string) (components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.defaultCamera, nil
	}
	if l, ok := cs.cameras[name]; ok {
		l.referenceCount++
		return l.camera, nil
	}
	return cs.Register(name, components.NewFreeCamera(mgl32.Vec3{}))
}

// Register adds a camera with a custom control scheme under name, holding one
// reference.
func (cs *CameraSystem) Register(name string, camera components.Camera) (components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return nil, fmt.Errorf("the default camera cannot be replaced: %w", core.ErrInvalidOperation)
	}
	if _, ok := cs.cameras[name]; ok {
		return nil, fmt.Errorf("camera '%s' already exists: %w", name, core.ErrInvalidOperation)
	}
	if len(cs.cameras) >= int(cs.config.MaxCameraCount) {
		err := fmt.Errorf("cannot create camera '%s', adjust camera system config to allow more than %d: %w", name, cs.config.MaxCameraCount, core.ErrResourceExhausted)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("Creating new camera named '%s'...", name)
	cs.cameras[name] = &cameraLookup{camera: camera, referenceCount: 1}
	return camera, nil
}

/**
 * @brief Releases a camera with the given name. Internal reference
 * counter is decremented. If this reaches 0, the camera is dropped.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	l, ok := cs.cameras[name]
	if !ok {
		core.LogWarn("CameraSystem.Release failed lookup for '%s'. Nothing was done.", name)
		return
	}
	l.referenceCount--
	if l.referenceCount < 1 {
		if cs.active == l.camera {
			cs.active = cs.defaultCamera
		}
		delete(cs.cameras, name)
	}
}

func (cs *CameraSystem) GetDefault() *components.FreeCamera {
	return cs.defaultCamera
}

// Active returns the camera the frame is rendered from.
func (cs *CameraSystem) Active() components.Camera {
	return cs.active
}

func (cs *CameraSystem) SetActive(name string) error {
	if name == components.DEFAULT_CAMERA_NAME {
		cs.active = cs.defaultCamera
		return nil
	}
	l, ok := cs.cameras[name]
	if !ok {
		return fmt.Errorf("camera '%s' does not exist: %w", name, core.ErrInvalidOperation)
	}
	cs.active = l.camera
	return nil
}

// Update applies per-frame control to the active camera.
func (cs *CameraSystem) Update(deltaTime float64) {
	cs.active.Update(deltaTime)
}

// SetAspect updates the projection of every camera after a resize.
func (cs *CameraSystem) SetAspect(aspect float32) {
	cs.defaultCamera.SetAspect(aspect)
	for _, l := range cs.cameras {
		l.camera.SetAspect(aspect)
	}
}

func (cs *CameraSystem) Len() int {
	return len(cs.cameras)
}
