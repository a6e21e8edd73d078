package vkt

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// Submit hands one command buffer to the queue with the full semaphore and
// fence choreography the frame protocol needs: the GPU waits on wait at
// waitStage before executing, and signals signal plus fence on completion.
// Any of wait, signal, and fence may be null.
func (q *Queue) Submit(cb vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	if wait != vk.NullSemaphore {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{wait}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{waitStage}
	}
	if signal != vk.NullSemaphore {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{signal}
	}
	return vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

// SubmitWaitIdle submits the command buffers with no synchronization
// objects at all and blocks until the queue drains. For one-shot setup
// work only; per-frame work goes through the FrameScheduler.
func (q *Queue) SubmitWaitIdle(buffers ...vk.CommandBuffer) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    buffers,
	}
	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence))
	if err != nil {
		return err
	}
	return q.WaitIdle()
}

// Present queues image imageIndex of sc for presentation once wait
// signals. A stale surface maps to ErrOutOfDate; suboptimal results are
// folded into it as well, since both mean the swapchain should be rebuilt.
func (q *Queue) Present(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) error {
	res := vk.QueuePresent(q.VKQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{imageIndex},
	})
	switch res {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrOutOfDate
	}
	return vk.Error(res)
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
