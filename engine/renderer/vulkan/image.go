package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

const textureFormat = vk.FormatR8g8b8a8Unorm

// VulkanImage is a sampled 2D texture in the shader read-only layout.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

/**
 * @brief Creates a device local RGBA image and uploads pixels to it through a
 * staging buffer. The image is left in the shader read-only layout.
 */
func NewTextureImage(context *VulkanContext, width, height uint32, pixels []uint8) (*VulkanImage, error) {
	staging, err := NewStagingBuffer(context, pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	img := &VulkanImage{Width: width, Height: height}
	device := context.Device.LogicalDevice
	err = context.Locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(device, &vk.ImageCreateInfo{
			SType:     vk.StructureTypeImageCreateInfo,
			ImageType: vk.ImageType2d,
			Format:    textureFormat,
			Extent: vk.Extent3D{
				Width:  width,
				Height: height,
				Depth:  1,
			},
			MipLevels:     1,
			ArrayLayers:   1,
			Samples:       vk.SampleCount1Bit,
			Tiling:        vk.ImageTilingOptimal,
			Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}, context.Allocator, &img.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateImage failed: %s", VulkanResultString(res, true))
		}

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(device, img.Handle, &requirements)
		requirements.Deref()
		memory, err := context.allocate(requirements, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			return err
		}
		img.Memory = memory
		if res := vk.BindImageMemory(device, img.Handle, img.Memory, 0); res != vk.Success {
			return fmt.Errorf("vkBindImageMemory failed: %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		img.Destroy(context)
		return nil, err
	}

	err = SubmitSingleUse(context, func(cmd vk.CommandBuffer) {
		transitionLayout(cmd, img.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		vk.CmdCopyBufferToImage(cmd, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})
		transitionLayout(cmd, img.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		img.Destroy(context)
		return nil, err
	}

	if res := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   textureFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, context.Allocator, &img.View); res != vk.Success {
		img.Destroy(context)
		return nil, fmt.Errorf("vkCreateImageView failed: %s", VulkanResultString(res, true))
	}
	return img, nil
}

// transitionLayout records a layout transition for the upload path.
func transitionLayout(cmd vk.CommandBuffer, image vk.Image, from, to vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case from == vk.ImageLayoutTransferDstOptimal && to == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		panic(fmt.Sprintf("vulkan: unsupported layout transition %d -> %d", from, to))
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (img *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = context.Locks.SafeCall(ImageManagement, func() error {
		if img.View != vk.NullImageView {
			vk.DestroyImageView(device, img.View, context.Allocator)
			img.View = vk.NullImageView
		}
		if img.Handle != vk.NullImage {
			vk.DestroyImage(device, img.Handle, context.Allocator)
			img.Handle = vk.NullImage
		}
		if img.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(device, img.Memory, context.Allocator)
			img.Memory = vk.NullDeviceMemory
		}
		return nil
	})
}

// NewSampler creates the linear, repeating sampler shared by every texture.
func NewSampler(context *VulkanContext) (vk.Sampler, error) {
	info := &vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: context.Device.Features.SamplerAnisotropy,
		MaxAnisotropy:    context.Device.Properties.Limits.MaxSamplerAnisotropy,
		CompareOp:        vk.CompareOpAlways,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}
	var sampler vk.Sampler
	err := context.Locks.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(context.Device.LogicalDevice, info, context.Allocator, &sampler); res != vk.Success {
			return fmt.Errorf("vkCreateSampler failed: %s", VulkanResultString(res, true))
		}
		return nil
	})
	return sampler, err
}
