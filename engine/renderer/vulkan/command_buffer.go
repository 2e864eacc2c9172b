package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	handles := make([]vk.CommandBuffer, 1)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	err := context.Locks.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return fmt.Errorf("vkAllocateCommandBuffers failed: %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	_ = context.Locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := fmt.Errorf("vkBeginCommandBuffer failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := fmt.Errorf("vkEndCommandBuffer failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset returns the buffer to the initial state. The pool must allow per-buffer resets.
func (v *VulkanCommandBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return fmt.Errorf("vkResetCommandBuffer failed: %s", VulkanResultString(res, true))
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

/**
 * Allocates a command buffer and begins recording to it for a one-off submission.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for the queue and frees the command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, queueFamily uint32) error {
	defer v.Free(context, pool)
	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	return context.Locks.SafeQueueCall(queueFamily, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return fmt.Errorf("vkQueueSubmit failed: %s", VulkanResultString(res, true))
		}
		v.UpdateSubmitted()
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			return fmt.Errorf("vkQueueWaitIdle failed: %s", VulkanResultString(res, true))
		}
		return nil
	})
}

// SubmitSingleUse records into a one-off command buffer from the upload pool, submits
// it to the graphics queue and waits for it. Uploads are serialized, so it may be
// called from any goroutine.
func SubmitSingleUse(context *VulkanContext, record func(cmd vk.CommandBuffer)) error {
	return context.Locks.SafeCall(UploadManagement, func() error {
		device := context.Device
		cb, err := AllocateAndBeginSingleUse(context, device.UploadCommandPool)
		if err != nil {
			return err
		}
		record(cb.Handle)
		return cb.EndSingleUse(context, device.UploadCommandPool, device.GraphicsQueue, uint32(device.GraphicsQueueIndex))
	})
}
