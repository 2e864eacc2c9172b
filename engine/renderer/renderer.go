package renderer

import (
	"fmt"

	"github.com/spaghettifunk/playground/engine/core"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func ParseRendererType(name string) (RendererType, error) {
	switch name {
	case "vulkan", "":
		return Vulkan, nil
	case "headless":
		return Headless, nil
	}
	return 0, fmt.Errorf("renderer backend %q: %w", name, core.ErrUnsupportedFormat)
}

func (t RendererType) String() string {
	if t == Headless {
		return "headless"
	}
	return "vulkan"
}
