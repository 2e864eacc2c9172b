package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/assets"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/physics"
	"github.com/spaghettifunk/playground/engine/platform"
	"github.com/spaghettifunk/playground/engine/renderer"
	"github.com/spaghettifunk/playground/engine/renderer/headless"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
	"github.com/spaghettifunk/playground/engine/renderer/vulkan"
	"github.com/spaghettifunk/playground/engine/scene"
	"github.com/spaghettifunk/playground/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine shut down and released its instance
	EngineStageShutDown
)

// Set while an engine exists in the process.
var instanceLive atomic.Bool

// Engine owns every subsystem of a running application. Only one may exist at a time.
type Engine struct {
	config *EngineConfig
	stage  Stage

	events   *core.EventBus
	input    *core.Input
	platform *platform.Platform
	backend  renderer.RendererBackend
	assets   *assets.AssetManager
	graph    *scene.Graph
	systems  *systems.SystemManager
	physics  *physics.System
	states   *StateMachine
	clock    *core.Clock
	metrics  *core.Metrics

	rendererType renderer.RendererType
	width        uint32
	height       uint32
	isRunning    atomic.Bool
	isSuspended  bool
	lastTime     float64
}

/**
 * @brief Creates the engine. Panics with core.ErrEngineExists when another engine has
 * not been shut down yet.
 * @param config The engine configuration. nil uses DefaultConfig.
 * @param initial The state entered on the first frame.
 */
func New(config *EngineConfig, initial State) (*Engine, error) {
	core.Assertf(instanceLive.CompareAndSwap(false, true), core.ErrEngineExists, "func engine.New")
	if config == nil {
		config = DefaultConfig()
	}
	rt, err := renderer.ParseRendererType(config.Renderer.Backend)
	if err != nil {
		instanceLive.Store(false)
		return nil, err
	}
	if config.Application.Headless {
		rt = renderer.Headless
	}
	if err := core.SetLogLevel(config.Log.Level); err != nil {
		core.LogWarn("invalid log level %q, keeping the current one", config.Log.Level)
	}

	return &Engine{
		config:       config,
		stage:        EngineStageUninitialized,
		events:       core.NewEventBus(),
		states:       NewStateMachine(initial),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		rendererType: rt,
		width:        config.Application.StartWidth,
		height:       config.Application.StartHeight,
	}, nil
}

func (e *Engine) Config() *EngineConfig {
	return e.config
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Input() *core.Input {
	return e.input
}

func (e *Engine) Backend() renderer.RendererBackend {
	return e.backend
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assets
}

func (e *Engine) Graph() *scene.Graph {
	return e.graph
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systems
}

func (e *Engine) Physics() *physics.System {
	return e.physics
}

func (e *Engine) States() *StateMachine {
	return e.states
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Stage() Stage {
	return e.stage
}

// Jobs is shorthand for the job system. Its workers start last in Initialize.
func (e *Engine) Jobs() *systems.JobSystem {
	return e.systems.Jobs()
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

/**
 * @brief Brings every subsystem up, in order: engine core (events, assets, scene
 * graph), graphics, input, physics and finally the job workers. Work queued before
 * this call starts running once the workers are up.
 */
func (e *Engine) Initialize() error {
	core.Assertf(e.stage == EngineStageUninitialized, core.ErrInvalidOperation, "initializing engine at stage %d", e.stage)
	e.stage = EngineStageInitializing

	// Engine
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	e.assets = assets.NewAssetManager(e.config.Assets.Path)
	if err := e.assets.Initialize(e.config.Assets.Watch); err != nil {
		return err
	}
	e.graph = scene.NewGraph()

	// Graphics
	backend, err := e.createBackend()
	if err != nil {
		return err
	}
	e.backend = backend
	if err := e.backend.Initialize(metadata.RendererBackendConfig{
		ApplicationName:  e.config.Application.Name,
		Width:            e.width,
		Height:           e.height,
		FramesInFlight:   e.config.Renderer.FramesInFlight,
		EnableValidation: e.config.Renderer.EnableValidation,
	}); err != nil {
		return fmt.Errorf("renderer backend %s: %w", e.rendererType, err)
	}
	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		Renderer: systems.RendererSystemConfig{
			ApplicationName:  e.config.Application.Name,
			Width:            e.width,
			Height:           e.height,
			FramesInFlight:   e.config.Renderer.FramesInFlight,
			EnableValidation: e.config.Renderer.EnableValidation,
		},
		Textures: systems.TextureSystemConfig{
			LargeArrayThreshold: e.config.Renderer.LargeArrayThreshold,
		},
	}, e.backend, e.assets, e.graph)
	if err != nil {
		return err
	}
	e.systems = sm
	if e.height > 0 {
		e.systems.Cameras().SetAspect(float32(e.width) / float32(e.height))
	}

	// Input
	e.input = core.NewInput(e.events)
	if e.platform != nil {
		e.platform.SetInput(e.input)
	}
	e.systems.Cameras().GetDefault().AttachInput(e.input)

	// Physics
	g := e.config.Physics.Gravity
	worldConfig := physics.DefaultWorldConfig()
	worldConfig.Gravity = mgl32.Vec3{g[0], g[1], g[2]}
	worldConfig.GroundPlane = e.config.Physics.GroundPlane
	worldConfig.GroundY = e.config.Physics.GroundY
	e.physics = physics.NewSystem(physics.NewSimpleWorld(worldConfig))

	// Job queue
	if err := e.systems.Jobs().Startup(e.config.WorkerCount()); err != nil {
		return err
	}

	e.stage = EngineStageInitialized
	core.LogInfo("Engine initialized with the %s renderer.", e.rendererType)
	return nil
}

func (e *Engine) createBackend() (renderer.RendererBackend, error) {
	switch e.rendererType {
	case renderer.Headless:
		return headless.New(e.config.Renderer.HeadlessTextureCapacity), nil
	case renderer.Vulkan:
		e.platform = platform.New(e.events)
		if err := e.platform.Startup(platform.WindowConfig{
			Title:  e.config.Application.Name,
			X:      e.config.Application.StartPosX,
			Y:      e.config.Application.StartPosY,
			Width:  e.width,
			Height: e.height,
		}); err != nil {
			e.platform = nil
			return nil, err
		}
		e.width, e.height = e.platform.FramebufferSize()
		return vulkan.New(e.platform), nil
	}
	return nil, fmt.Errorf("renderer %s: %w", e.rendererType, core.ErrUnsupportedFormat)
}

/**
 * @brief Runs one frame: main-thread job completions, the pending state transition,
 * the state update, cameras, physics, rendering and finally the input state swap.
 */
func (e *Engine) Frame(deltaTime float64) error {
	core.Assertf(e.stage == EngineStageInitialized || e.stage == EngineStageRunning, core.ErrNotInitialized, "frame at stage %d", e.stage)
	frameStart := time.Now()

	e.systems.Jobs().ProcessMainThreadWork()

	if err := e.states.apply(e); err != nil {
		return err
	}
	state := e.states.Current()
	if state == nil {
		return fmt.Errorf("no state to run: %w", core.ErrInvalidOperation)
	}

	if err := state.Update(e, deltaTime); err != nil {
		return fmt.Errorf("state %s update: %w", state.Name(), err)
	}
	e.systems.Cameras().Update(deltaTime)
	e.physics.Step(deltaTime)

	camera := e.systems.Cameras().Active()
	packet := &metadata.RenderPacket{
		DeltaTime:    deltaTime,
		View:         camera.View(),
		Projection:   camera.Projection(),
		ViewPosition: camera.Position(),
	}
	if err := state.Render(e, packet); err != nil {
		return fmt.Errorf("state %s render: %w", state.Name(), err)
	}
	if err := e.systems.Renderer().DrawFrame(packet); err != nil {
		return err
	}

	// NOTE: Input update/state copying should always be handled
	// after any input should be recorded; I.E. before this line.
	e.input.Update(deltaTime)
	e.metrics.Update(time.Since(frameStart).Seconds())
	return nil
}

// Run drives frames until the application quits or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	core.Assertf(e.stage == EngineStageInitialized, core.ErrNotInitialized, "running engine at stage %d", e.stage)
	e.stage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("Context cancelled, shutting down.")
			e.isRunning.Store(false)
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			continue
		}
		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		if err := e.Frame(delta); err != nil {
			core.LogError("Frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}
		e.lastTime = currentTime
	}
	return nil
}

// Quit stops Run after the current frame. Safe to call from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

// Shutdown tears the subsystems down in reverse initialization order and releases the
// process-wide instance.
func (e *Engine) Shutdown() error {
	if e.stage == EngineStageShutDown {
		return nil
	}
	e.stage = EngineStageShuttingDown
	defer func() {
		e.stage = EngineStageShutDown
		instanceLive.Store(false)
	}()

	var errs []error
	keep := func(err error) {
		if err != nil {
			core.LogError(err.Error())
			errs = append(errs, err)
		}
	}

	if e.systems != nil {
		keep(e.states.shutdown(e))
		// Job queue, then everything layered on the backend.
		keep(e.systems.Shutdown())
	}
	if e.physics != nil {
		keep(e.physics.Shutdown())
	}
	if e.input != nil && e.platform != nil {
		e.platform.SetInput(nil)
	}
	if e.backend != nil {
		keep(e.backend.Shutdown())
	}
	if e.platform != nil {
		keep(e.platform.Shutdown())
	}
	if e.assets != nil {
		keep(e.assets.Shutdown())
	}
	e.events.Shutdown()

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (e *Engine) onQuit(context core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning.Store(false)
	return true
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.systems != nil {
		e.systems.Cameras().SetAspect(float32(width) / float32(height))
		e.systems.Renderer().OnResize(width, height)
	}
	return false
}
