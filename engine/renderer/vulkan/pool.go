package vulkan

import "sync"

// LockGroup names a class of Vulkan objects whose creation and destruction must be
// externally synchronized.
type LockGroup string

const (
	SamplerManagement       LockGroup = "sampler_management"
	CommandBufferManagement LockGroup = "command_buffer_management"
	BufferManagement        LockGroup = "buffer_management"
	ImageManagement         LockGroup = "image_management"
	DescriptorManagement    LockGroup = "descriptor_management"
	UploadManagement        LockGroup = "upload_management"
)

// VulkanLockPool serializes access to Vulkan objects that may be touched from worker
// goroutines: one mutex per lock group and one per queue family.
type VulkanLockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lockFor(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	l, ok := vs.locks[group]
	if !ok {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

// SafeCall runs fn while holding the mutex of group.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lockFor(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// SetQueueFamily registers the mutex guarding submissions to a queue family.
func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall runs fn while holding the mutex of the queue family. The family must
// have been registered with SetQueueFamily.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	vs.mu.Unlock()
	if !ok {
		panic("vulkan: queue family not registered with the lock pool")
	}
	l.Lock()
	defer l.Unlock()
	return fn()
}
