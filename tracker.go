package vkt

import (
	"log"

	vk "github.com/goki/vulkan"
)

// CleanupFunc is an arbitrary cleanup action registered with a
// ResourceTracker. It runs at the tracked resource's position in the
// reverse-order flush, so it can tear down things the tracker has no
// variant for.
type CleanupFunc func()

// ResourceTracker is an append-only LIFO registry of destroyable GPU
// handles. Push a resource immediately after creating it and the tracker
// guarantees it is destroyed exactly once, in reverse creation order, at
// the next Flush. Because construction order is also dependency order when
// that rule is followed, a dependent object (an image view, a buffer bound
// to pool memory) is always destroyed before the object it depends on.
//
// The tracker knows nothing about fences; callers must only Flush when the
// GPU is provably done with the tracked work. The FrameScheduler flushes
// each slot's tracker right after that slot's fence wait, which is exactly
// that proof.
//
// Trackable kinds: CleanupFunc, vk.Pipeline, vk.PipelineLayout,
// vk.DescriptorPool, vk.DescriptorSetLayout, vk.ImageView, vk.Sampler,
// vk.CommandPool, vk.Fence, vk.Semaphore, vk.Buffer, vk.Image,
// vk.DeviceMemory,
// *MemoryPool, *Buffer, *Image, *ShaderModule. Anything else is a
// programming error and panics at flush.
type ResourceTracker struct {
	drv       Driver
	resources []interface{}
}

// NewResourceTracker returns an empty tracker whose destructor dispatch
// runs against drv.
func NewResourceTracker(drv Driver) *ResourceTracker {
	return &ResourceTracker{drv: drv}
}

// Push appends one resource. O(1) amortized, never fails; the backing
// store growing is the only way this can go wrong and that is fatal to the
// process anyway.
func (t *ResourceTracker) Push(r interface{}) {
	t.resources = append(t.resources, r)
}

// Len reports how many resources are currently tracked.
func (t *ResourceTracker) Len() int {
	return len(t.resources)
}

// Flush destroys every tracked resource in strict reverse push order, then
// empties the tracker for reuse. Flushing an empty tracker is a no-op.
//
// Only call when the GPU has retired all work referencing the tracked
// resources; the tracker cannot verify that itself.
func (t *ResourceTracker) Flush() {
	for i := len(t.resources) - 1; i >= 0; i-- {
		t.destroy(t.resources[i])
		t.resources[i] = nil
	}
	t.resources = t.resources[:0]
}

// Destroy flushes and releases the backing storage. It must be the last
// operation on the tracker.
func (t *ResourceTracker) Destroy() {
	t.Flush()
	t.resources = nil
}

// destroy dispatches to the driver destructor for the resource's concrete
// type. The switch is intentionally total over every trackable kind: a
// kind this switch does not know means the registry and the dispatch have
// drifted apart, which is not recoverable.
func (t *ResourceTracker) destroy(r interface{}) {
	switch v := r.(type) {
	case CleanupFunc:
		v()
	case vk.Pipeline:
		t.drv.DestroyPipeline(v)
	case vk.PipelineLayout:
		t.drv.DestroyPipelineLayout(v)
	case vk.DescriptorPool:
		t.drv.DestroyDescriptorPool(v)
	case vk.DescriptorSetLayout:
		t.drv.DestroyDescriptorSetLayout(v)
	case vk.ImageView:
		t.drv.DestroyImageView(v)
	case vk.Sampler:
		t.drv.DestroySampler(v)
	case vk.CommandPool:
		t.drv.DestroyCommandPool(v)
	case vk.Fence:
		t.drv.DestroyFence(v)
	case vk.Semaphore:
		t.drv.DestroySemaphore(v)
	case vk.Buffer:
		t.drv.DestroyBuffer(v)
	case vk.Image:
		t.drv.DestroyImage(v)
	case vk.DeviceMemory:
		t.drv.FreeMemory(v)
	case *MemoryPool:
		v.Destroy()
	case *Buffer:
		v.Destroy()
	case *Image:
		v.Destroy()
	case *ShaderModule:
		v.Destroy()
	default:
		log.Panicf("vkt: resource tracker cannot destroy %T", r)
	}
}
