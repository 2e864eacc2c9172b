package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
)

// VulkanContext holds every Vulkan object shared by the backend's components.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice
	Locks  *VulkanLockPool

	// One command buffer and fence per frame in flight.
	GraphicsCommandBuffers []*VulkanCommandBuffer
	InFlightFences         []*VulkanFence
	FramesInFlight         uint32

	// Shared by every texture.
	Sampler vk.Sampler
}

/**
 * @brief Finds the index of a memory type matching the filter and the property flags.
 * @returns the index, or -1 if none matches.
 */
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	memory := vc.Device.Memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocate backs requirements with device memory of the given properties.
func (vc *VulkanContext) allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index := vc.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if index < 0 {
		return vk.NullDeviceMemory, fmt.Errorf("no memory type for properties %#x: %w", properties, core.ErrResourceExhausted)
	}
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(vc.Device.LogicalDevice, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}, vc.Allocator, &memory)
	if res != vk.Success {
		return vk.NullDeviceMemory, fmt.Errorf("vkAllocateMemory failed: %s", VulkanResultString(res, true))
	}
	return memory, nil
}
