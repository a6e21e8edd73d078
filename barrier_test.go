package vkt

import (
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCmdBuffer(t *testing.T, drv *fakeDriver) vk.CommandBuffer {
	t.Helper()
	cbs, err := drv.AllocateCommandBuffers(1)
	require.NoError(t, err)
	return cbs[0]
}

func TestBarrierBatchFlushIssuesOneCommand(t *testing.T) {
	drv := newFakeDriver(3)
	cb := testCmdBuffer(t, drv)
	b := NewBarrierBatch()

	b.AddMemoryBarrier(
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.AccessFlags(vk.AccessVertexAttributeReadBit))
	b.AddImageBarrier(mint[vk.Image](drv),
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		vk.AccessFlags(vk.AccessTransferWriteBit))

	require.Equal(t, 2, b.Count())
	drv.events = nil
	b.Flush(drv, cb)

	require.Len(t, drv.events, 1, "all pending barriers go out in one command")
	assert.Contains(t, drv.events[0], "mem=1")
	assert.Contains(t, drv.events[0], "img=1")
	assert.Equal(t, 0, b.Count(), "flush resets the batch")
}

func TestBarrierBatchAccumulatesStageMasks(t *testing.T) {
	drv := newFakeDriver(3)
	cb := testCmdBuffer(t, drv)
	b := NewBarrierBatch()

	src1 := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	src2 := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	dst := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

	b.AddMemoryBarrier(src1, dst, 0, 0)
	b.AddMemoryBarrier(src2, dst, 0, 0)

	drv.events = nil
	b.Flush(drv, cb)
	require.Len(t, drv.events, 1)
	assert.Contains(t, drv.events[0], fmt.Sprintf("src=%#x", src1|src2))
	assert.Contains(t, drv.events[0], fmt.Sprintf("dst=%#x", dst))
}

func TestBarrierBatchEmptyFlushIssuesNothing(t *testing.T) {
	drv := newFakeDriver(3)
	cb := testCmdBuffer(t, drv)
	b := NewBarrierBatch()

	drv.events = nil
	b.Flush(drv, cb)
	assert.Empty(t, drv.events)
}

func TestBarrierBatchFlushPreserveKeepsBarriers(t *testing.T) {
	drv := newFakeDriver(3)
	cb := testCmdBuffer(t, drv)
	b := NewBarrierBatch()

	b.AddBufferBarrier(mint[vk.Buffer](drv), 0, vk.DeviceSize(vk.WholeSize),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.AccessFlags(vk.AccessVertexAttributeReadBit))

	drv.events = nil
	b.FlushPreserve(drv, cb)
	b.FlushPreserve(drv, cb)

	assert.Len(t, drv.events, 2)
	assert.Equal(t, 1, b.Count(), "preserve keeps the batch intact for replay")

	b.Reset()
	assert.Equal(t, 0, b.Count())
}

func TestBarrierBatchOverflowPanics(t *testing.T) {
	b := NewBarrierBatch()
	for i := 0; i < MaxBatchBarriers; i++ {
		b.AddMemoryBarrier(0, 0, 0, 0)
	}
	assert.Panics(t, func() {
		b.AddMemoryBarrier(0, 0, 0, 0)
	})

	b = NewBarrierBatch()
	drv := newFakeDriver(3)
	img := mint[vk.Image](drv)
	for i := 0; i < MaxBatchBarriers; i++ {
		b.AddImageBarrier(img, vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutUndefined, vk.ImageLayoutGeneral, 0, 0, 0, 0)
	}
	assert.Panics(t, func() {
		b.AddImageBarrier(img, vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutUndefined, vk.ImageLayoutGeneral, 0, 0, 0, 0)
	})
}

func TestBarrierBatchQueueFamilyTransfer(t *testing.T) {
	drv := newFakeDriver(3)
	b := NewBarrierBatch()

	b.SetQueueFamilyTransfer(0, 1)
	b.AddBufferBarrier(mint[vk.Buffer](drv), 0, 128,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		0, 0)

	require.Len(t, b.buffer, 1)
	assert.Equal(t, uint32(0), b.buffer[0].SrcQueueFamilyIndex)
	assert.Equal(t, uint32(1), b.buffer[0].DstQueueFamilyIndex)

	// Reset clears the transfer tag back to ignored.
	b.Reset()
	b.AddBufferBarrier(mint[vk.Buffer](drv), 0, 128, 0, 0, 0, 0)
	assert.Equal(t, uint32(vk.QueueFamilyIgnored), b.buffer[0].SrcQueueFamilyIndex)
}
