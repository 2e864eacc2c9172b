package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
)

// Binding of the texture array in the texture descriptor set.
const TextureBinding uint32 = 0

/**
 * @brief A descriptor set holding an array of combined image samplers, and the
 * pool it was allocated from. Destroying the group destroys the pool.
 */
type VulkanDescriptorGroup struct {
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet
	Layout vk.DescriptorSetLayout
}

// descriptorLayouts caches one set layout per texture array size.
type descriptorLayouts struct {
	layouts map[uint32]vk.DescriptorSetLayout
}

// get returns the layout of a texture array of the given size, creating it once.
// Callers must hold the DescriptorManagement lock.
func (d *descriptorLayouts) get(context *VulkanContext, capacity uint32) (vk.DescriptorSetLayout, error) {
	if layout, ok := d.layouts[capacity]; ok {
		return layout, nil
	}
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         TextureBinding,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: capacity,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}, context.Allocator, &layout); res != vk.Success {
		return layout, fmt.Errorf("vkCreateDescriptorSetLayout(%d) failed: %s", capacity, VulkanResultString(res, true))
	}
	if d.layouts == nil {
		d.layouts = make(map[uint32]vk.DescriptorSetLayout)
	}
	d.layouts[capacity] = layout
	return layout, nil
}

func (d *descriptorLayouts) destroy(context *VulkanContext) {
	for capacity, layout := range d.layouts {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		delete(d.layouts, capacity)
	}
}

// newDescriptorGroup allocates a set of capacity texture slots from a pool of its own.
func newDescriptorGroup(context *VulkanContext, layouts *descriptorLayouts, capacity uint32) (*VulkanDescriptorGroup, error) {
	group := &VulkanDescriptorGroup{}
	device := context.Device.LogicalDevice
	err := context.Locks.SafeCall(DescriptorManagement, func() error {
		layout, err := layouts.get(context, capacity)
		if err != nil {
			return err
		}
		group.Layout = layout

		if res := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       1,
			PoolSizeCount: 1,
			PPoolSizes: []vk.DescriptorPoolSize{{
				Type:            vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: capacity,
			}},
		}, context.Allocator, &group.Pool); res != vk.Success {
			return fmt.Errorf("vkCreateDescriptorPool(%d) failed: %s: %w", capacity, VulkanResultString(res, true), core.ErrResourceExhausted)
		}

		if res := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     group.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}, &group.Set); res != vk.Success {
			return fmt.Errorf("vkAllocateDescriptorSets failed: %s: %w", VulkanResultString(res, true), core.ErrResourceExhausted)
		}
		return nil
	})
	if err != nil {
		group.destroy(context)
		return nil, err
	}
	return group, nil
}

// write points slot at the image view.
func (g *VulkanDescriptorGroup) write(context *VulkanContext, slot uint32, image *VulkanImage) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          g.Set,
		DstBinding:      TextureBinding,
		DstArrayElement: slot,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     context.Sampler,
			ImageView:   image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}

// destroy releases the pool, which frees the set with it.
func (g *VulkanDescriptorGroup) destroy(context *VulkanContext) {
	if g.Pool == vk.NullDescriptorPool {
		return
	}
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, g.Pool, context.Allocator)
		return nil
	})
	g.Pool = vk.NullDescriptorPool
	g.Set = vk.NullDescriptorSet
}
