package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool
	// Used by uploads, which may run on worker goroutines.
	UploadCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics          bool
	Transfer          bool
	SamplerAnisotropy bool
	DiscreteGPU       bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	TransferFamilyIndex int32
}

// MaxPerStageTextures is the number of sampled images one shader stage can access.
func (d *VulkanDevice) MaxPerStageTextures() uint32 {
	return d.Properties.Limits.MaxPerStageDescriptorSampledImages
}

/**
 * @brief Selects a physical device, creates the logical device, fetches the
 * queues and creates the graphics command pool. No presentation support is
 * required; the draw recorder owns its render targets.
 */
func DeviceCreate(context *VulkanContext, requirements VulkanPhysicalDeviceRequirements) error {
	context.Device = &VulkanDevice{GraphicsQueueIndex: -1, TransferQueueIndex: -1}
	if err := selectPhysicalDevice(context, requirements); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if device.TransferQueueIndex != device.GraphicsQueueIndex {
		indices = append(indices, uint32(device.TransferQueueIndex))
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	var extensionNames []string
	if hasDeviceExtension(device.PhysicalDevice, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy:                      device.Features.SamplerAnisotropy,
			ShaderSampledImageArrayDynamicIndexing: vk.True,
		}},
	}
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("vkCreateDevice failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.TransferQueueIndex), 0, &device.TransferQueue)
	context.Locks.SetQueueFamily(uint32(device.GraphicsQueueIndex))
	context.Locks.SetQueueFamily(uint32(device.TransferQueueIndex))
	core.LogInfo("Queues obtained.")

	// Create command pools for the graphics queue.
	for _, pool := range []*vk.CommandPool{&device.GraphicsCommandPool, &device.UploadCommandPool} {
		poolCreateInfo := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		}
		if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, pool); res != vk.Success {
			err := fmt.Errorf("vkCreateCommandPool failed: %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
	}
	core.LogInfo("Graphics command pool created.")
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	for _, pool := range []*vk.CommandPool{&device.GraphicsCommandPool, &device.UploadCommandPool} {
		if *pool != vk.NullCommandPool {
			vk.DestroyCommandPool(device.LogicalDevice, *pool, context.Allocator)
			*pool = vk.NullCommandPool
		}
	}

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.GraphicsQueueIndex = -1
	device.TransferQueueIndex = -1
}

func selectPhysicalDevice(context *VulkanContext, requirements VulkanPhysicalDeviceRequirements) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed: %s", VulkanResultString(res, true))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNotInitialized)
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed: %s", VulkanResultString(res, true))
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()
		properties.Limits.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		queueInfo, ok := physicalDeviceMeetsRequirements(candidate, &properties, &features, requirements)
		if !ok {
			continue
		}

		name := vk.ToString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo("GPU Driver version: %d.%d.%d",
			vk.Version(properties.DriverVersion).Major(),
			vk.Version(properties.DriverVersion).Minor(),
			vk.Version(properties.DriverVersion).Patch())
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())
		core.LogInfo("Sampled images per stage: %d", properties.Limits.MaxPerStageDescriptorSampledImages)

		for j := uint32(0); j < memory.MemoryHeapCount; j++ {
			memory.MemoryHeaps[j].Deref()
			memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
			}
		}

		context.Device.PhysicalDevice = candidate
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		core.LogInfo("Physical device selected.")
		return nil
	}

	err := fmt.Errorf("no physical device meets the requirements: %w", core.ErrNotInitialized)
	core.LogError(err.Error())
	return err
}

func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, TransferFamilyIndex: -1}
	name := vk.ToString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return info, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Prefer a transfer queue that does as little else as possible, it is more
	// likely to be a dedicated one.
	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags
		score := 0
		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if info.GraphicsFamilyIndex < 0 {
				info.GraphicsFamilyIndex = int32(i)
			}
			score++
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			score++
		}
		if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 && score <= minTransferScore {
			minTransferScore = score
			info.TransferFamilyIndex = int32(i)
		}
	}
	// Graphics queues implicitly support transfers.
	if info.TransferFamilyIndex < 0 {
		info.TransferFamilyIndex = info.GraphicsFamilyIndex
	}

	core.LogDebug("Device '%s': graphics family %d, transfer family %d", name, info.GraphicsFamilyIndex, info.TransferFamilyIndex)
	if requirements.Graphics && info.GraphicsFamilyIndex < 0 {
		core.LogInfo("Device '%s' has no graphics queue, skipping.", name)
		return info, false
	}
	if requirements.Transfer && info.TransferFamilyIndex < 0 {
		core.LogInfo("Device '%s' has no transfer queue, skipping.", name)
		return info, false
	}
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device '%s' does not support samplerAnisotropy, skipping.", name)
		return info, false
	}
	if properties.Limits.MaxPerStageDescriptorSampledImages == 0 {
		core.LogInfo("Device '%s' reports no sampled image slots, skipping.", name)
		return info, false
	}
	return info, true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		if vk.ToString(extensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
