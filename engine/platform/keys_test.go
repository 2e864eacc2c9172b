package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/playground/engine/core"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.KeyCode{
		glfw.KeyA:         core.KEY_A,
		glfw.KeyW:         core.KEY_W,
		glfw.KeyZ:         core.KEY_Z,
		glfw.Key7:         core.KeyCode('7'),
		glfw.KeyKP3:       core.KEY_NUMPAD3,
		glfw.KeyF12:       core.KEY_F12,
		glfw.KeyEscape:    core.KEY_ESCAPE,
		glfw.KeyLeftShift: core.KEY_LSHIFT,
		glfw.KeyUp:        core.KEY_UP,
	}
	for key, want := range cases {
		got, ok := TranslateKey(key)
		assert.True(t, ok, "key %d", key)
		assert.Equal(t, want, got, "key %d", key)
	}

	_, ok := TranslateKey(glfw.KeyUnknown)
	assert.False(t, ok)
}

func TestClampCoordinate(t *testing.T) {
	assert.Equal(t, uint16(0), clampCoordinate(-12))
	assert.Equal(t, uint16(320), clampCoordinate(320.7))
	assert.Equal(t, uint16(65535), clampCoordinate(1e9))
}
