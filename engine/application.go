package engine

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height"`
	// Run without a window. The renderer falls back to the headless backend.
	Headless bool `toml:"headless"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type JobsConfig struct {
	// Number of background workers. Zero or less means one per logical CPU minus the main thread.
	Workers int `toml:"workers"`
}

type RendererConfig struct {
	// "vulkan" or "headless"
	Backend        string `toml:"backend"`
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Per-stage texture capacity above which the large-array descriptor mode is used.
	LargeArrayThreshold uint32 `toml:"large_array_threshold"`
	// Simulated per-stage texture capacity of the headless backend.
	HeadlessTextureCapacity uint32 `toml:"headless_texture_capacity"`
	EnableValidation        bool   `toml:"enable_validation"`
}

type PhysicsConfig struct {
	Gravity     [3]float32 `toml:"gravity"`
	GroundPlane bool       `toml:"ground_plane"`
	GroundY     float32    `toml:"ground_y"`
}

type AssetsConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// EngineConfig is the on-disk configuration of an engine instance.
type EngineConfig struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Jobs        JobsConfig        `toml:"jobs"`
	Renderer    RendererConfig    `toml:"renderer"`
	Physics     PhysicsConfig     `toml:"physics"`
	Assets      AssetsConfig      `toml:"assets"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Application: ApplicationConfig{
			Name:        "Playground",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Log: LogConfig{Level: "info"},
		Jobs: JobsConfig{
			Workers: 0,
		},
		Renderer: RendererConfig{
			Backend:                 "vulkan",
			FramesInFlight:          2,
			LargeArrayThreshold:     10000,
			HeadlessTextureCapacity: 16,
		},
		Physics: PhysicsConfig{
			Gravity:     [3]float32{0, -9.81, 0},
			GroundPlane: true,
		},
		Assets: AssetsConfig{
			Path:  "assets",
			Watch: true,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*EngineConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// WorkerCount resolves the configured number of job workers.
func (c *EngineConfig) WorkerCount() int {
	if c.Jobs.Workers > 0 {
		return c.Jobs.Workers
	}
	return max(runtime.NumCPU()-1, 1)
}
