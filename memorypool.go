package vkt

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// MemoryPool carves buffer and image allocations out of a single device
// memory block. The memory type is chosen by probing a throwaway resource
// created with the pool's usage flags, since type bits are only known per
// resource.
type MemoryPool struct {
	Device           *Device
	Name             string
	Size             uint64
	Memory           *DeviceMemory
	Allocator        IAllocator
	MemoryProperties vk.MemoryPropertyFlags
}

// CreateBufferPool allocates a pool suitable for buffers with the given
// usage. Host visible pools are mapped for their whole lifetime.
func (d *Device) CreateBufferPool(name string, size uint64, usage vk.BufferUsageFlags, mprops vk.MemoryPropertyFlags) (*MemoryPool, error) {
	probe, err := d.CreateBuffer(16, usage)
	if err != nil {
		return nil, fmt.Errorf("probing memory type for pool %s: %w", name, err)
	}
	mr := probe.VKMemoryRequirements()
	mr.Deref()
	probe.Destroy()

	return d.createPool(name, size, mr.MemoryTypeBits, mprops)
}

// CreateImagePool allocates a pool suitable for optimally tiled images
// with the given usage.
func (d *Device) CreateImagePool(name string, size uint64, usage vk.ImageUsageFlags, mprops vk.MemoryPropertyFlags) (*MemoryPool, error) {
	probe, err := d.CreateImage(vk.Extent2D{Width: 16, Height: 16}, vk.FormatR8g8b8a8Unorm, vk.ImageTilingOptimal, usage)
	if err != nil {
		return nil, fmt.Errorf("probing memory type for pool %s: %w", name, err)
	}
	mr := probe.VKMemoryRequirements()
	mr.Deref()
	probe.Destroy()

	return d.createPool(name, size, mr.MemoryTypeBits, mprops)
}

func (d *Device) createPool(name string, size uint64, memoryTypeBits uint32, mprops vk.MemoryPropertyFlags) (*MemoryPool, error) {
	memory, err := d.Allocate(int(size), memoryTypeBits, mprops)
	if err != nil {
		return nil, err
	}

	p := &MemoryPool{
		Device:           d,
		Name:             name,
		Size:             size,
		Memory:           memory,
		Allocator:        &LinearAllocator{Size: size},
		MemoryProperties: mprops,
	}

	if mprops&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		if _, err := memory.Map(); err != nil {
			memory.Destroy()
			return nil, err
		}
	}

	return p, nil
}

// HostVisible reports whether the pool's block is mapped on the host.
func (p *MemoryPool) HostVisible() bool {
	return p.Memory.Ptr != nil
}

// AllocateBuffer creates a buffer backed by the pool's memory.
func (p *MemoryPool) AllocateBuffer(size uint64, usage vk.BufferUsageFlags) (*Buffer, error) {
	b, err := p.Device.CreateBuffer(size, usage)
	if err != nil {
		return nil, err
	}

	mr := b.VKMemoryRequirements()
	mr.Deref()

	a := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if a == nil {
		b.Destroy()
		return nil, fmt.Errorf("pool %s: no space for %d byte buffer", p.Name, size)
	}

	if err := b.Bind(p.Memory, a.Offset); err != nil {
		p.Allocator.Free(a)
		b.Destroy()
		return nil, err
	}

	b.Allocation = a
	b.Pool = p
	return b, nil
}

// AllocateImage creates an optimally tiled 2D image backed by the pool's
// memory.
func (p *MemoryPool) AllocateImage(extent vk.Extent2D, format vk.Format, usage vk.ImageUsageFlags) (*Image, error) {
	img, err := p.Device.CreateImage(extent, format, vk.ImageTilingOptimal, usage)
	if err != nil {
		return nil, err
	}

	mr := img.VKMemoryRequirements()
	mr.Deref()

	a := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if a == nil {
		img.Destroy()
		return nil, fmt.Errorf("pool %s: no space for %dx%d image", p.Name, extent.Width, extent.Height)
	}

	if err := img.Bind(p.Memory, a.Offset); err != nil {
		p.Allocator.Free(a)
		img.Destroy()
		return nil, err
	}

	img.Allocation = a
	img.Pool = p
	return img, nil
}

// Destroy unmaps and frees the pool's memory block. Resources allocated
// from the pool must be destroyed first.
func (p *MemoryPool) Destroy() {
	if p.Memory == nil {
		return
	}
	if p.Memory.IsMapped() {
		p.Memory.Unmap()
	}
	p.Memory.Destroy()
	p.Memory = nil
	p.Allocator = nil
}
