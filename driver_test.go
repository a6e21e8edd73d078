package vkt

import (
	"fmt"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// fakeDriver drives the frame protocol without a GPU. Handles are minted
// from a counter; submitted work completes instantly, so a fence is
// signaled the moment Submit names it. Acquire and present outcomes can
// be scripted per call to exercise the failure paths.
type fakeDriver struct {
	next uint64

	fences     map[vk.Fence]bool // value is the signaled state
	semaphores map[vk.Semaphore]bool
	cmdbufs    map[vk.CommandBuffer]bool
	views      map[vk.ImageView]bool
	swapchains map[vk.Swapchain][]vk.Image

	numImages int
	nextImage uint32

	// Scripted outcomes, consumed one per call. A nil entry or an empty
	// queue means success.
	acquireErrs []error
	presentErrs []error

	createSwapchainErr error
	// viewErrCountdown fails CreateImageView when it counts down to zero.
	// Zero value means never fail.
	viewErrCountdown int

	events []string
}

func newFakeDriver(numImages int) *fakeDriver {
	return &fakeDriver{
		fences:     map[vk.Fence]bool{},
		semaphores: map[vk.Semaphore]bool{},
		cmdbufs:    map[vk.CommandBuffer]bool{},
		views:      map[vk.ImageView]bool{},
		swapchains: map[vk.Swapchain][]vk.Image{},
		numImages:  numImages,
	}
}

// mint reinterprets a fresh counter value as a handle. The handles are
// never dereferenced, only compared, so any 8 byte handle type works.
func mint[T any](d *fakeDriver) T {
	d.next++
	n := d.next
	return *(*T)(unsafe.Pointer(&n))
}

func (d *fakeDriver) record(format string, args ...interface{}) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) CreateFence(signaled bool) (vk.Fence, error) {
	f := mint[vk.Fence](d)
	d.fences[f] = signaled
	return f, nil
}

func (d *fakeDriver) DestroyFence(f vk.Fence) {
	delete(d.fences, f)
	d.record("destroy fence")
}

func (d *fakeDriver) WaitForFence(f vk.Fence, timeout time.Duration) error {
	if !d.fences[f] {
		return fmt.Errorf("fence wait timed out after %v", timeout)
	}
	return nil
}

func (d *fakeDriver) ResetFence(f vk.Fence) error {
	d.fences[f] = false
	return nil
}

func (d *fakeDriver) CreateSemaphore() (vk.Semaphore, error) {
	s := mint[vk.Semaphore](d)
	d.semaphores[s] = true
	return s, nil
}

func (d *fakeDriver) DestroySemaphore(s vk.Semaphore) {
	delete(d.semaphores, s)
	d.record("destroy semaphore")
}

func (d *fakeDriver) AllocateCommandBuffers(count int) ([]vk.CommandBuffer, error) {
	cbs := make([]vk.CommandBuffer, count)
	for i := range cbs {
		cbs[i] = mint[vk.CommandBuffer](d)
		d.cmdbufs[cbs[i]] = true
	}
	return cbs, nil
}

func (d *fakeDriver) FreeCommandBuffers(cbs []vk.CommandBuffer) {
	for _, cb := range cbs {
		delete(d.cmdbufs, cb)
	}
	d.record("free %d command buffers", len(cbs))
}

func (d *fakeDriver) ResetCommandBuffer(cb vk.CommandBuffer) error {
	d.record("reset cb")
	return nil
}

func (d *fakeDriver) BeginCommandBuffer(cb vk.CommandBuffer) error {
	d.record("begin cb")
	return nil
}

func (d *fakeDriver) EndCommandBuffer(cb vk.CommandBuffer) error {
	d.record("end cb")
	return nil
}

func (d *fakeDriver) PipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags,
	mem []vk.MemoryBarrier, buf []vk.BufferMemoryBarrier, img []vk.ImageMemoryBarrier) {
	d.record("barrier src=%#x dst=%#x mem=%d buf=%d img=%d", srcStage, dstStage, len(mem), len(buf), len(img))
}

func (d *fakeDriver) CreateSwapchain(opts *CreateSwapchainOptions) (vk.Swapchain, vk.Format, vk.Extent2D, error) {
	if d.createSwapchainErr != nil {
		err := d.createSwapchainErr
		d.createSwapchainErr = nil
		return vk.NullSwapchain, vk.FormatUndefined, vk.Extent2D{}, err
	}
	sc := mint[vk.Swapchain](d)
	images := make([]vk.Image, d.numImages)
	for i := range images {
		images[i] = mint[vk.Image](d)
	}
	d.swapchains[sc] = images

	extent := vk.Extent2D{Width: 800, Height: 600}
	if opts != nil && opts.ActualSize.Width != 0 {
		extent = opts.ActualSize
	}
	d.record("create swapchain")
	return sc, vk.FormatB8g8r8a8Unorm, extent, nil
}

func (d *fakeDriver) SwapchainImages(sc vk.Swapchain) ([]vk.Image, error) {
	images, ok := d.swapchains[sc]
	if !ok {
		return nil, fmt.Errorf("unknown swapchain")
	}
	return images, nil
}

func (d *fakeDriver) DestroySwapchain(sc vk.Swapchain) {
	delete(d.swapchains, sc)
	d.record("destroy swapchain")
}

func (d *fakeDriver) CreateImageView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	if d.viewErrCountdown > 0 {
		d.viewErrCountdown--
		if d.viewErrCountdown == 0 {
			return vk.NullImageView, fmt.Errorf("image view creation failed")
		}
	}
	v := mint[vk.ImageView](d)
	d.views[v] = true
	return v, nil
}

func (d *fakeDriver) DestroyImageView(view vk.ImageView) {
	delete(d.views, view)
	d.record("destroy image view")
}

func (d *fakeDriver) AcquireNextImage(sc vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, error) {
	if len(d.acquireErrs) > 0 {
		err := d.acquireErrs[0]
		d.acquireErrs = d.acquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(d.numImages)
	d.record("acquire image %d", idx)
	return idx, nil
}

func (d *fakeDriver) Submit(cb vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error {
	if fence != vk.NullFence {
		// Work completes instantly.
		d.fences[fence] = true
	}
	d.record("submit")
	return nil
}

func (d *fakeDriver) Present(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) error {
	if len(d.presentErrs) > 0 {
		err := d.presentErrs[0]
		d.presentErrs = d.presentErrs[1:]
		if err != nil {
			return err
		}
	}
	d.record("present image %d", imageIndex)
	return nil
}

func (d *fakeDriver) DestroyPipeline(p vk.Pipeline) {
	d.record("destroy pipeline")
}

func (d *fakeDriver) DestroyPipelineLayout(l vk.PipelineLayout) {
	d.record("destroy pipeline layout")
}

func (d *fakeDriver) DestroyDescriptorPool(p vk.DescriptorPool) {
	d.record("destroy descriptor pool")
}

func (d *fakeDriver) DestroyDescriptorSetLayout(l vk.DescriptorSetLayout) {
	d.record("destroy descriptor set layout")
}

func (d *fakeDriver) DestroySampler(s vk.Sampler) {
	d.record("destroy sampler")
}

func (d *fakeDriver) DestroyCommandPool(p vk.CommandPool) {
	d.record("destroy command pool")
}

func (d *fakeDriver) DestroyBuffer(b vk.Buffer) {
	d.record("destroy buffer")
}

func (d *fakeDriver) DestroyImage(i vk.Image) {
	d.record("destroy image")
}

func (d *fakeDriver) FreeMemory(m vk.DeviceMemory) {
	d.record("free memory")
}

func (d *fakeDriver) WaitIdle() error {
	d.record("wait idle")
	return nil
}
