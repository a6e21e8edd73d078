package vkt

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// UploadToBuffer copies data into dst through a transient host visible
// staging buffer and a one-shot transfer submission. dst must have been
// created with transfer destination usage.
func (c *Context) UploadToBuffer(dst *Buffer, data []byte) error {
	if uint64(len(data)) > dst.Size {
		return fmt.Errorf("upload of %d bytes exceeds buffer size %d", len(data), dst.Size)
	}

	src, err := c.Device.CreateBuffer(uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer src.Destroy()
	if err := src.BindDedicated(vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)); err != nil {
		return err
	}
	if err := src.Memory.MapCopyUnmap(data); err != nil {
		return err
	}

	return c.RunOnce(func(cb vk.CommandBuffer) error {
		vk.CmdCopyBuffer(cb, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
			Size: vk.DeviceSize(len(data)),
		}})
		return nil
	})
}

// UploadToImage copies tightly packed pixel data into dst, transitioning
// it from undefined through transfer destination into shader read only.
// dst must have been created with transfer destination usage.
func (c *Context) UploadToImage(dst *Image, data []byte) error {
	src, err := c.Device.CreateBuffer(uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer src.Destroy()
	if err := src.BindDedicated(vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)); err != nil {
		return err
	}
	if err := src.Memory.MapCopyUnmap(data); err != nil {
		return err
	}

	barriers := NewBarrierBatch()
	return c.RunOnce(func(cb vk.CommandBuffer) error {
		barriers.AddImageBarrier(dst.VKImage,
			vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			0,
			vk.AccessFlags(vk.AccessTransferWriteBit))
		barriers.Flush(c, cb)

		vk.CmdCopyBufferToImage(cb, src.VKBuffer, dst.VKImage,
			vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					LayerCount: 1,
				},
				ImageExtent: vk.Extent3D{
					Width:  dst.Extent.Width,
					Height: dst.Extent.Height,
					Depth:  1,
				},
			}})

		barriers.AddImageBarrier(dst.VKImage,
			vk.ImageAspectFlags(vk.ImageAspectColorBit),
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.AccessFlags(vk.AccessShaderReadBit))
		barriers.Flush(c, cb)
		return nil
	})
}
