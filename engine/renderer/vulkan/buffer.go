package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a buffer and the device memory bound to it.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

func NewBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	b := &VulkanBuffer{Size: size}
	device := context.Device.LogicalDevice
	err := context.Locks.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(device, &vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        size,
			Usage:       usage,
			SharingMode: vk.SharingModeExclusive,
		}, context.Allocator, &b.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateBuffer failed: %s", VulkanResultString(res, true))
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, b.Handle, &requirements)
		requirements.Deref()
		memory, err := context.allocate(requirements, properties)
		if err != nil {
			return err
		}
		b.Memory = memory
		if res := vk.BindBufferMemory(device, b.Handle, b.Memory, 0); res != vk.Success {
			return fmt.Errorf("vkBindBufferMemory failed: %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		b.Destroy(context)
		return nil, err
	}
	return b, nil
}

// NewStagingBuffer creates a host visible buffer holding a copy of data.
func NewStagingBuffer(context *VulkanContext, data []byte) (*VulkanBuffer, error) {
	b, err := NewBuffer(context, vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := b.Load(context, data); err != nil {
		b.Destroy(context)
		return nil, err
	}
	return b, nil
}

// Load copies data into host visible memory.
func (b *VulkanBuffer) Load(context *VulkanContext, data []byte) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(len(data)), 0, &ptr); res != vk.Success {
		return fmt.Errorf("vkMapMemory failed: %s", VulkanResultString(res, true))
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

// NewDeviceBuffer creates a device local buffer and fills it through a staging buffer.
func NewDeviceBuffer(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	staging, err := NewStagingBuffer(context, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	b, err := NewBuffer(context, vk.DeviceSize(len(data)),
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	err = SubmitSingleUse(context, func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Handle, b.Handle, 1, []vk.BufferCopy{{Size: vk.DeviceSize(len(data))}})
	})
	if err != nil {
		b.Destroy(context)
		return nil, err
	}
	return b, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = context.Locks.SafeCall(BufferManagement, func() error {
		if b.Handle != vk.NullBuffer {
			vk.DestroyBuffer(device, b.Handle, context.Allocator)
			b.Handle = vk.NullBuffer
		}
		if b.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(device, b.Memory, context.Allocator)
			b.Memory = vk.NullDeviceMemory
		}
		return nil
	})
}
