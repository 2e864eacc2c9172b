package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// InstanceProvider supplies what instance creation needs from the windowing layer.
type InstanceProvider interface {
	VulkanProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
}

/**
 * @brief Records the render pass around the backend's draw calls. The backend owns
 * the command buffers, textures and geometry; the recorder owns render targets,
 * pipelines and the pipeline layout whose set 0 is a texture array of the group's
 * capacity and whose push constant range holds metadata.DrawConstants.
 */
type DrawRecorder interface {
	Resized(width, height uint32) error
	// Begin starts the render pass and binds the pipeline.
	Begin(cmd vk.CommandBuffer, frameIndex uint32, packet *metadata.RenderPacket) (vk.PipelineLayout, error)
	End(cmd vk.CommandBuffer, frameIndex uint32) error
}

// geometry holds the device buffers of one sub-mesh.
type geometry struct {
	vertices   *VulkanBuffer
	indices    *VulkanBuffer
	indexCount uint32
}

type VulkanRenderer struct {
	provider InstanceProvider
	recorder DrawRecorder
	context  *VulkanContext
	layouts  descriptorLayouts

	FrameNumber uint64
}

func New(provider InstanceProvider) *VulkanRenderer {
	return &VulkanRenderer{
		provider: provider,
		context:  &VulkanContext{},
	}
}

// SetRecorder installs the recorder used by Draw. Without one, frames are submitted empty.
func (vr *VulkanRenderer) SetRecorder(recorder DrawRecorder) {
	vr.recorder = recorder
}

func (vr *VulkanRenderer) Initialize(config metadata.RendererBackendConfig) error {
	procAddr := vr.provider.VulkanProcAddr()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrNotInitialized)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.context.FramebufferWidth = config.Width
	vr.context.FramebufferHeight = config.Height
	vr.context.FramesInFlight = max(config.FramesInFlight, 1)
	vr.context.Locks = NewVulkanLockPool()

	if err := vr.createInstance(config); err != nil {
		return err
	}

	if err := DeviceCreate(vr.context, VulkanPhysicalDeviceRequirements{
		Graphics:          true,
		Transfer:          true,
		SamplerAnisotropy: true,
	}); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	sampler, err := NewSampler(vr.context)
	if err != nil {
		return err
	}
	vr.context.Sampler = sampler

	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.FramesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, vr.context.FramesInFlight)
	for i := range vr.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb

		// Signaled so the first BeginFrame on each slot does not block.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = fence
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(config metadata.RendererBackendConfig) error {
	createInfo := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   VulkanSafeString(config.ApplicationName),
			PEngineName:        VulkanSafeString("Playground Engine"),
		},
	}

	extensions := vr.provider.RequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	var layers []string
	if config.EnableValidation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if !hasInstanceLayer(validationLayer) {
			return fmt.Errorf("required validation layer is missing: %s: %w", validationLayer, core.ErrNotInitialized)
		}
		layers = append(layers, validationLayer)
		core.LogInfo("Validation layers enabled.")
	}
	for _, ext := range extensions {
		core.LogDebug("Required extension: %s", ext)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if config.EnableValidation {
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) Shutdown() error {
	context := vr.context
	if context.Device == nil {
		return nil
	}
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	for i := range context.InFlightFences {
		if context.InFlightFences[i] != nil {
			context.InFlightFences[i].Destroy(context)
		}
		if context.GraphicsCommandBuffers[i] != nil {
			context.GraphicsCommandBuffers[i].Free(context, context.Device.GraphicsCommandPool)
		}
	}
	context.InFlightFences = nil
	context.GraphicsCommandBuffers = nil

	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vr.layouts.destroy(context)
		return nil
	})
	if context.Sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, context.Sampler, context.Allocator)
		context.Sampler = vk.NullSampler
	}

	DeviceDestroy(context)
	context.Device = nil

	if context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, nil)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(context.Instance, context.Allocator)
	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	if vr.recorder == nil {
		return nil
	}
	if err := vr.recorder.Resized(width, height); err != nil {
		return err
	}
	core.LogInfo("Vulkan renderer resized: w/h: %d/%d", width, height)
	return nil
}

func (vr *VulkanRenderer) IsMultithreaded() bool {
	return true
}

func (vr *VulkanRenderer) Limits() metadata.DeviceLimits {
	return metadata.DeviceLimits{MaxPerStageTextures: vr.context.Device.MaxPerStageTextures()}
}

// DescriptorSetLayout returns the set layout of a texture array of the given size, for
// building pipeline layouts compatible with the descriptor groups.
func (vr *VulkanRenderer) DescriptorSetLayout(capacity uint32) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	err := vr.context.Locks.SafeCall(DescriptorManagement, func() error {
		var err error
		layout, err = vr.layouts.get(vr.context, capacity)
		return err
	})
	return layout, err
}

func (vr *VulkanRenderer) ImageCreate(pixels []uint8, image *metadata.Image) error {
	if want := int(image.Width * image.Height * 4); len(pixels) != want {
		return fmt.Errorf("image %s: got %d bytes, want %d: %w", image.Name, len(pixels), want, core.ErrInvalidOperation)
	}
	img, err := NewTextureImage(vr.context, image.Width, image.Height, pixels)
	if err != nil {
		return err
	}
	image.Handle = img
	image.Generation++
	return nil
}

func (vr *VulkanRenderer) ImageDestroy(image *metadata.Image) error {
	img, ok := image.Handle.(*VulkanImage)
	if !ok {
		return fmt.Errorf("image %s: %w", image.Name, core.ErrNotInitialized)
	}
	img.Destroy(vr.context)
	image.Handle = nil
	return nil
}

func (vr *VulkanRenderer) DescriptorGroupCreate(capacity uint32) (*metadata.DescriptorGroup, error) {
	if limit := vr.context.Device.MaxPerStageTextures(); capacity == 0 || capacity > limit {
		return nil, fmt.Errorf("descriptor group of %d slots, device allows %d: %w", capacity, limit, core.ErrResourceExhausted)
	}
	group, err := newDescriptorGroup(vr.context, &vr.layouts, capacity)
	if err != nil {
		return nil, err
	}
	return &metadata.DescriptorGroup{Capacity: capacity, Set: group}, nil
}

func (vr *VulkanRenderer) DescriptorGroupWrite(group *metadata.DescriptorGroup, slot uint32, image *metadata.Image) error {
	set, ok := group.Set.(*VulkanDescriptorGroup)
	if !ok {
		return fmt.Errorf("descriptor group is not live: %w", core.ErrInvalidOperation)
	}
	if slot >= group.Capacity {
		return fmt.Errorf("slot %d of %d: %w", slot, group.Capacity, core.ErrResourceExhausted)
	}
	img, ok := image.Handle.(*VulkanImage)
	if !ok {
		return fmt.Errorf("image %s has no backend object: %w", image.Name, core.ErrNotInitialized)
	}
	set.write(vr.context, slot, img)
	return nil
}

func (vr *VulkanRenderer) DescriptorGroupDestroy(group *metadata.DescriptorGroup) error {
	set, ok := group.Set.(*VulkanDescriptorGroup)
	if !ok {
		return fmt.Errorf("descriptor group is not live: %w", core.ErrInvalidOperation)
	}
	set.destroy(vr.context)
	group.Set = nil
	return nil
}

func (vr *VulkanRenderer) MeshUpload(mesh *metadata.Mesh) error {
	for _, sm := range mesh.SubMeshes {
		if len(sm.Vertices) == 0 || len(sm.Indices) == 0 {
			continue
		}
		vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&sm.Vertices[0])), len(sm.Vertices)*int(unsafe.Sizeof(metadata.Vertex3D{})))
		vertices, err := NewDeviceBuffer(vr.context, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
		if err != nil {
			return fmt.Errorf("mesh %s: %w", mesh.Name, err)
		}
		indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&sm.Indices[0])), len(sm.Indices)*4)
		indices, err := NewDeviceBuffer(vr.context, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
		if err != nil {
			vertices.Destroy(vr.context)
			return fmt.Errorf("mesh %s: %w", mesh.Name, err)
		}
		sm.Handle = &geometry{
			vertices:   vertices,
			indices:    indices,
			indexCount: uint32(len(sm.Indices)),
		}
	}
	return nil
}

func (vr *VulkanRenderer) MeshDestroy(mesh *metadata.Mesh) error {
	for _, sm := range mesh.SubMeshes {
		g, ok := sm.Handle.(*geometry)
		if !ok {
			continue
		}
		g.vertices.Destroy(vr.context)
		g.indices.Destroy(vr.context)
		sm.Handle = nil
	}
	return nil
}

func (vr *VulkanRenderer) BeginFrame(frameIndex uint32, deltaTime float64) error {
	context := vr.context
	fence := context.InFlightFences[frameIndex]
	if err := fence.Wait(context, math.MaxUint64); err != nil {
		return err
	}
	if err := fence.Reset(context); err != nil {
		return err
	}
	cb := context.GraphicsCommandBuffers[frameIndex]
	if err := cb.Reset(); err != nil {
		return err
	}
	return cb.Begin(false)
}

func (vr *VulkanRenderer) Draw(frameIndex uint32, packet *metadata.RenderPacket, commands []*metadata.DrawCommand, group *metadata.DescriptorGroup) error {
	if vr.recorder == nil {
		return nil
	}
	cmd := vr.context.GraphicsCommandBuffers[frameIndex].Handle
	layout, err := vr.recorder.Begin(cmd, frameIndex, packet)
	if err != nil {
		return err
	}

	if set, ok := group.Set.(*VulkanDescriptorGroup); ok {
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{set.Set}, 0, nil)
	}
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	for _, c := range commands {
		g, ok := c.SubMesh.Handle.(*geometry)
		if !ok {
			continue
		}
		constants := c.Constants
		vk.CmdPushConstants(cmd, layout, stages, 0, uint32(unsafe.Sizeof(constants)), unsafe.Pointer(&constants))
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{g.vertices.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd, g.indices.Handle, 0, vk.IndexTypeUint32)
		vk.CmdDrawIndexed(cmd, g.indexCount, 1, 0, 0, 0)
	}
	return vr.recorder.End(cmd, frameIndex)
}

func (vr *VulkanRenderer) EndFrame(frameIndex uint32, deltaTime float64) error {
	context := vr.context
	cb := context.GraphicsCommandBuffers[frameIndex]
	if err := cb.End(); err != nil {
		return err
	}
	fence := context.InFlightFences[frameIndex]
	err := context.Locks.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		}}, fence.Handle)
		if res != vk.Success {
			return fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	cb.UpdateSubmitted()
	vr.FrameNumber++
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
