package vkt

import (
	"errors"
	"time"

	vk "github.com/goki/vulkan"
)

// ErrOutOfDate reports that the presentation surface no longer matches the
// swapchain (typically after a window resize). It is the one recoverable
// driver failure: the caller rebuilds the swapchain and skips the frame.
var ErrOutOfDate = errors.New("vkt: swapchain out of date with surface")

// ErrNotReady reports that no swapchain image was available within the
// acquire timeout. The frame is skipped; pacing comes from the fence wait,
// not from the acquire call.
var ErrNotReady = errors.New("vkt: no swapchain image ready")

// Driver is the subset of GPU driver calls the frame protocol, the
// swapchain manager, and the resource tracker depend on. Every method maps
// onto one or two Vulkan calls; *Context is the production implementation.
// Keeping the core against this surface lets tests drive the whole frame
// protocol with an in-memory fake.
type Driver interface {
	// Fences (GPU to CPU completion signals).
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(f vk.Fence)
	// WaitForFence blocks until f signals. A wait that exceeds timeout
	// returns an error; the scheduler treats that as fatal.
	WaitForFence(f vk.Fence, timeout time.Duration) error
	ResetFence(f vk.Fence) error

	// Semaphores (GPU internal ordering signals).
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(s vk.Semaphore)

	// Command recording surfaces, allocated from the context's pool.
	AllocateCommandBuffers(count int) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(cbs []vk.CommandBuffer)
	ResetCommandBuffer(cb vk.CommandBuffer) error
	BeginCommandBuffer(cb vk.CommandBuffer) error
	EndCommandBuffer(cb vk.CommandBuffer) error

	// PipelineBarrier issues one batched dependency command carrying every
	// pending barrier at once.
	PipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags,
		mem []vk.MemoryBarrier, buf []vk.BufferMemoryBarrier, img []vk.ImageMemoryBarrier)

	// Swapchain construction and presentation.
	CreateSwapchain(opts *CreateSwapchainOptions) (vk.Swapchain, vk.Format, vk.Extent2D, error)
	SwapchainImages(sc vk.Swapchain) ([]vk.Image, error)
	DestroySwapchain(sc vk.Swapchain)
	CreateImageView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)

	// AcquireNextImage returns the index of the next presentable image,
	// signaling sem once the image is actually available. Returns
	// ErrOutOfDate for a stale surface and ErrNotReady on timeout.
	AcquireNextImage(sc vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, error)
	// Submit hands cb to the graphics queue: the GPU waits on wait at
	// waitStage, then signals signal and fence on completion.
	Submit(cb vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error
	// Present queues image imageIndex for presentation once wait signals.
	// Returns ErrOutOfDate for a stale surface.
	Present(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) error

	// Handle destructors used by the resource tracker's flush dispatch.
	DestroyPipeline(p vk.Pipeline)
	DestroyPipelineLayout(l vk.PipelineLayout)
	DestroyDescriptorPool(p vk.DescriptorPool)
	DestroyDescriptorSetLayout(l vk.DescriptorSetLayout)
	DestroySampler(s vk.Sampler)
	DestroyCommandPool(p vk.CommandPool)
	DestroyBuffer(b vk.Buffer)
	DestroyImage(i vk.Image)
	FreeMemory(m vk.DeviceMemory)

	// WaitIdle blocks until the device has retired all submitted work.
	// Used only on rare paths (swapchain rebuild, teardown).
	WaitIdle() error
}
