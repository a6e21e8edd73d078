package vkt

import (
	"errors"
	"fmt"
	"log"
	"time"

	vk "github.com/goki/vulkan"
)

// FrameLag is the default frame overlap count: how many frames of GPU work
// may be unretired at once. It bounds CPU/GPU parallelism and, through the
// per-slot trackers, the transient resource footprint (at most FrameLag
// frames' worth exists at any instant).
var FrameLag = 2

// DefaultFenceTimeout bounds the per-frame fence wait. A frame taking this
// long means the GPU is wedged or lost, which has no recovery path.
const DefaultFenceTimeout = time.Second

// acquireTimeout is deliberately short: frame pacing comes from the slot
// fence wait, not from blocking in acquire.
const acquireTimeout = 100 * time.Millisecond

// FrameSlot is the per-in-flight-frame bundle: a recording surface, the
// fence that proves this slot's previous GPU work retired, the semaphore
// the swapchain signals when the acquired image is actually available, and
// a ResourceTracker scoped to this slot's occupancy.
//
// Resources pushed onto Resources while recording are destroyed on this
// slot's next reuse, once its fence has been observed, so they are safe to
// create and forget even though the GPU reads them asynchronously.
type FrameSlot struct {
	Index         int
	Cmd           vk.CommandBuffer
	Fence         vk.Fence
	ImageAcquired vk.Semaphore
	ImageIndex    uint32
	Resources     *ResourceTracker

	// pending is true while a submission signaling Fence is outstanding.
	// The fence wait is skipped when nothing was submitted, since a fence
	// that will never signal would otherwise deadlock the frame loop
	// (e.g. after a skipped frame).
	pending bool
}

// FrameScheduler drives the per-frame protocol over FrameLag slots cycled
// round-robin: wait for the slot's fence, flush the slot's tracker, acquire
// a swapchain image, hand the slot to the application for recording, then
// submit and present. The fence wait is the only CPU blocking point and the
// only backpressure bounding how far the CPU may run ahead of the GPU.
//
// The scheduler is single-threaded by design. Each slot keeps its own
// command buffer so that multi-threaded recording stays structurally
// possible, but the current protocol drives them serially.
type FrameScheduler struct {
	// FenceTimeout bounds the StartFrame fence wait. Exceeding it is
	// fatal. Defaults to DefaultFenceTimeout.
	FenceTimeout time.Duration

	drv       Driver
	swapchain *SwapchainManager
	slots     []*FrameSlot
	frame     uint64
}

// NewFrameScheduler creates lag frame slots (FrameLag if lag <= 0) against
// the given swapchain. Partially created slots are torn down if any GPU
// call fails.
func NewFrameScheduler(drv Driver, swapchain *SwapchainManager, lag int) (*FrameScheduler, error) {
	if lag <= 0 {
		lag = FrameLag
	}
	s := &FrameScheduler{
		FenceTimeout: DefaultFenceTimeout,
		drv:          drv,
		swapchain:    swapchain,
	}

	cbs, err := drv.AllocateCommandBuffers(lag)
	if err != nil {
		return nil, fmt.Errorf("frame command buffers: %w", err)
	}
	for i := 0; i < lag; i++ {
		slot := &FrameSlot{
			Index:     i,
			Cmd:       cbs[i],
			Resources: NewResourceTracker(drv),
		}
		slot.Fence, err = drv.CreateFence(false)
		if err == nil {
			slot.ImageAcquired, err = drv.CreateSemaphore()
		}
		if err != nil {
			if slot.Fence != vk.NullFence {
				drv.DestroyFence(slot.Fence)
			}
			s.destroySlots()
			drv.FreeCommandBuffers(cbs)
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		s.slots = append(s.slots, slot)
	}
	return s, nil
}

// Swapchain returns the manager whose images the scheduler presents into.
func (s *FrameScheduler) Swapchain() *SwapchainManager {
	return s.swapchain
}

// FrameCount reports how many frames have been presented.
func (s *FrameScheduler) FrameCount() uint64 {
	return s.frame
}

// StartFrame opens the next frame and returns its slot with recording
// begun. A nil slot with a nil error means no frame happens this tick (the
// surface was stale and has been rebuilt, or no image was ready); the
// caller skips rendering and retries next loop iteration.
//
// Protocol, in order: select slot frame mod N; block until the slot's fence
// signals, proving the GPU retired the slot's previous occupancy; reset the
// fence; flush the slot's tracker, now provably safe; acquire the next
// swapchain image with the slot's semaphore; reset and begin the slot's
// command buffer.
func (s *FrameScheduler) StartFrame() (*FrameSlot, error) {
	slot := s.slots[s.frame%uint64(len(s.slots))]

	if slot.pending {
		if err := s.drv.WaitForFence(slot.Fence, s.FenceTimeout); err != nil {
			log.Panicf("vkt: frame slot %d fence wait failed (GPU wedged or lost): %v", slot.Index, err)
		}
		if err := s.drv.ResetFence(slot.Fence); err != nil {
			return nil, fmt.Errorf("frame slot %d fence reset: %w", slot.Index, err)
		}
		slot.pending = false
	}

	slot.Resources.Flush()

	idx, err := s.drv.AcquireNextImage(s.swapchain.VKSwapchain(), acquireTimeout, slot.ImageAcquired)
	switch {
	case errors.Is(err, ErrOutOfDate):
		if err := s.swapchain.Rebuild(s.swapchain.Extent); err != nil {
			return nil, err
		}
		return nil, nil
	case errors.Is(err, ErrNotReady):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("acquire image: %w", err)
	}
	slot.ImageIndex = idx

	if err := s.drv.ResetCommandBuffer(slot.Cmd); err != nil {
		return nil, fmt.Errorf("frame slot %d reset: %w", slot.Index, err)
	}
	if err := s.drv.BeginCommandBuffer(slot.Cmd); err != nil {
		return nil, fmt.Errorf("frame slot %d begin: %w", slot.Index, err)
	}
	return slot, nil
}

// PresentFrame ends recording on slot, submits it, and queues the acquired
// image for presentation. The caller must already have transitioned the
// image into a presentable layout (a BarrierBatch flush is the mechanism
// for that).
//
// The submission waits on the slot's acquire semaphore at the color output
// stage, so rendering cannot touch the image before the display engine
// releases it, and signals both the image's present semaphore and the
// slot's fence. A stale surface reported by present rebuilds the swapchain
// and is not an error; the next acquire simply retries against fresh
// dimensions.
func (s *FrameScheduler) PresentFrame(slot *FrameSlot) error {
	if err := s.drv.EndCommandBuffer(slot.Cmd); err != nil {
		return fmt.Errorf("frame slot %d end: %w", slot.Index, err)
	}

	err := s.drv.Submit(slot.Cmd,
		slot.ImageAcquired,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		s.swapchain.PresentSemaphore(slot.ImageIndex),
		slot.Fence)
	if err != nil {
		return fmt.Errorf("frame slot %d submit: %w", slot.Index, err)
	}
	slot.pending = true

	err = s.drv.Present(s.swapchain.VKSwapchain(), slot.ImageIndex, s.swapchain.PresentSemaphore(slot.ImageIndex))
	s.frame++
	if errors.Is(err, ErrOutOfDate) {
		return s.swapchain.Rebuild(s.swapchain.Extent)
	}
	if err != nil {
		return fmt.Errorf("present image %d: %w", slot.ImageIndex, err)
	}
	return nil
}

// Destroy waits out every in-flight frame, flushes all slot trackers, and
// releases the slots' GPU objects. The swapchain manager is not destroyed;
// it belongs to the enclosing context and outlives the scheduler.
func (s *FrameScheduler) Destroy() {
	for _, slot := range s.slots {
		if slot.pending {
			if err := s.drv.WaitForFence(slot.Fence, s.FenceTimeout); err != nil {
				log.Printf("vkt: frame slot %d fence wait during teardown: %v", slot.Index, err)
			}
			slot.pending = false
		}
	}
	cbs := make([]vk.CommandBuffer, len(s.slots))
	for i, slot := range s.slots {
		cbs[i] = slot.Cmd
	}
	s.destroySlots()
	if len(cbs) > 0 {
		s.drv.FreeCommandBuffers(cbs)
	}
}

func (s *FrameScheduler) destroySlots() {
	for _, slot := range s.slots {
		slot.Resources.Destroy()
		if slot.ImageAcquired != vk.NullSemaphore {
			s.drv.DestroySemaphore(slot.ImageAcquired)
		}
		if slot.Fence != vk.NullFence {
			s.drv.DestroyFence(slot.Fence)
		}
	}
	s.slots = nil
}
