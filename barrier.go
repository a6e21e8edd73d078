package vkt

import (
	"log"

	vk "github.com/goki/vulkan"
)

// MaxBatchBarriers bounds how many barriers of each kind a BarrierBatch
// holds. Batch sizes come from a fixed number of call sites per frame, not
// from data, so overflowing is a programming error rather than a runtime
// condition.
const MaxBatchBarriers = 32

// BarrierBatch accumulates memory, buffer, and image barriers and issues
// them as a single dependency command. Driver barrier commands carry a
// fixed per-call cost, so call sites declare every transition they need and
// pay for the submission once at Flush.
//
// Source and destination stage masks are accumulated across every Add call
// and applied to the whole batch, which is how vkCmdPipelineBarrier scopes
// them anyway.
type BarrierBatch struct {
	memory []vk.MemoryBarrier
	buffer []vk.BufferMemoryBarrier
	image  []vk.ImageMemoryBarrier

	srcStages vk.PipelineStageFlags
	dstStages vk.PipelineStageFlags

	// Queue family ownership transfer applied to buffer/image barriers
	// added after SetQueueFamilyTransfer.
	srcQueueFamily uint32
	dstQueueFamily uint32
}

// NewBarrierBatch returns an empty batch with no queue family transfer.
func NewBarrierBatch() *BarrierBatch {
	return &BarrierBatch{
		memory:         make([]vk.MemoryBarrier, 0, MaxBatchBarriers),
		buffer:         make([]vk.BufferMemoryBarrier, 0, MaxBatchBarriers),
		image:          make([]vk.ImageMemoryBarrier, 0, MaxBatchBarriers),
		srcQueueFamily: uint32(vk.QueueFamilyIgnored),
		dstQueueFamily: uint32(vk.QueueFamilyIgnored),
	}
}

// SetQueueFamilyTransfer tags subsequently added buffer and image barriers
// with a cross-queue-family ownership transfer. Reset clears it.
func (b *BarrierBatch) SetQueueFamilyTransfer(src, dst uint32) {
	b.srcQueueFamily = src
	b.dstQueueFamily = dst
}

// AddMemoryBarrier appends one global memory barrier describing a
// produce/consume relationship between srcStage/srcAccess and
// dstStage/dstAccess.
func (b *BarrierBatch) AddMemoryBarrier(srcStage, dstStage vk.PipelineStageFlags, srcAccess, dstAccess vk.AccessFlags) {
	if len(b.memory) == MaxBatchBarriers {
		log.Panicf("vkt: barrier batch memory barrier overflow (max %d)", MaxBatchBarriers)
	}
	b.memory = append(b.memory, vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: srcAccess,
		DstAccessMask: dstAccess,
	})
	b.srcStages |= srcStage
	b.dstStages |= dstStage
}

// AddBufferBarrier appends a barrier covering size bytes of buf starting at
// offset. Pass vk.WholeSize to cover the remainder of the buffer.
func (b *BarrierBatch) AddBufferBarrier(buf vk.Buffer, offset, size vk.DeviceSize,
	srcStage, dstStage vk.PipelineStageFlags, srcAccess, dstAccess vk.AccessFlags) {
	if len(b.buffer) == MaxBatchBarriers {
		log.Panicf("vkt: barrier batch buffer barrier overflow (max %d)", MaxBatchBarriers)
	}
	b.buffer = append(b.buffer, vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: b.srcQueueFamily,
		DstQueueFamilyIndex: b.dstQueueFamily,
		Buffer:              buf,
		Offset:              offset,
		Size:                size,
	})
	b.srcStages |= srcStage
	b.dstStages |= dstStage
}

// AddImageBarrier appends a layout transition for the full subresource
// range of img under the given aspect.
func (b *BarrierBatch) AddImageBarrier(img vk.Image, aspect vk.ImageAspectFlags,
	oldLayout, newLayout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlags, srcAccess, dstAccess vk.AccessFlags) {
	if len(b.image) == MaxBatchBarriers {
		log.Panicf("vkt: barrier batch image barrier overflow (max %d)", MaxBatchBarriers)
	}
	b.image = append(b.image, vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: b.srcQueueFamily,
		DstQueueFamilyIndex: b.dstQueueFamily,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	})
	b.srcStages |= srcStage
	b.dstStages |= dstStage
}

// Count reports how many barriers of all kinds are pending.
func (b *BarrierBatch) Count() int {
	return len(b.memory) + len(b.buffer) + len(b.image)
}

// Flush issues every pending barrier as one dependency command on cb, then
// resets the batch. Flushing an empty batch issues nothing.
func (b *BarrierBatch) Flush(drv Driver, cb vk.CommandBuffer) {
	b.flush(drv, cb)
	b.Reset()
}

// FlushPreserve issues the pending barriers but keeps them in the batch,
// for call sites that replay the same transitions every frame.
func (b *BarrierBatch) FlushPreserve(drv Driver, cb vk.CommandBuffer) {
	b.flush(drv, cb)
}

func (b *BarrierBatch) flush(drv Driver, cb vk.CommandBuffer) {
	if b.Count() == 0 {
		return
	}
	src := b.srcStages
	dst := b.dstStages
	if src == 0 {
		src = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if dst == 0 {
		dst = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	drv.PipelineBarrier(cb, src, dst, b.memory, b.buffer, b.image)
}

// Reset clears the batch, including any queue family transfer tag.
func (b *BarrierBatch) Reset() {
	b.memory = b.memory[:0]
	b.buffer = b.buffer[:0]
	b.image = b.image[:0]
	b.srcStages = 0
	b.dstStages = 0
	b.srcQueueFamily = uint32(vk.QueueFamilyIgnored)
	b.dstQueueFamily = uint32(vk.QueueFamilyIgnored)
}
