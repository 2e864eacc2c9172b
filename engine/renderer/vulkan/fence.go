package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
)

// VulkanFence tracks whether the GPU finished the work of one frame in flight.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

// NewFence creates a fence. A signaled fence lets the first wait on it return
// immediately.
func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("vkCreateFence failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled or the timeout expires.
func (vf *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	res := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	if res == vk.Success {
		vf.IsSignaled = true
		return nil
	}
	err := fmt.Errorf("fence wait: %s", VulkanResultString(res, true))
	if res == vk.Timeout {
		core.LogWarn(err.Error())
	} else {
		core.LogError(err.Error())
	}
	return err
}

func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		err := fmt.Errorf("vkResetFences failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
