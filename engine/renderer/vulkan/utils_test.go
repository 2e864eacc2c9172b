package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "VK_KHR_surface\x00", VulkanSafeString("VK_KHR_surface"))
	assert.Equal(t, "done\x00", VulkanSafeString("done\x00"))

	list := VulkanSafeStrings([]string{"a", "b\x00"})
	assert.Equal(t, []string{"a\x00", "b\x00"}, list)
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_TIMEOUT", VulkanResultString(vk.Timeout, false))
	assert.Contains(t, VulkanResultString(vk.ErrorDeviceLost, true), "has been lost")
}
