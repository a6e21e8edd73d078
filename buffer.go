package vkt

import (
	vk "github.com/goki/vulkan"
)

// Buffer wraps a Vulkan buffer together with its backing allocation.
// Buffers created from a MemoryPool return their suballocation to the
// pool on Destroy; buffers bound to dedicated memory free that memory.
type Buffer struct {
	Device     *Device
	VKBuffer   vk.Buffer
	Size       uint64
	Usage      vk.BufferUsageFlags
	Allocation *Allocation
	Pool       *MemoryPool
	Memory     *DeviceMemory
}

func (d *Device) CreateBuffer(sizeInBytes uint64, usage vk.BufferUsageFlags) (*Buffer, error) {
	return d.CreateBufferWithOptions(sizeInBytes, usage, vk.SharingModeExclusive)
}

func (d *Device) CreateBufferWithOptions(sizeInBytes uint64, usage vk.BufferUsageFlags, sharing vk.SharingMode) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       usage,
		SharingMode: sharing,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return nil, err
	}

	return &Buffer{
		Device:   d,
		VKBuffer: buffer,
		Size:     sizeInBytes,
		Usage:    usage,
	}, nil
}

func (b *Buffer) VKMemoryRequirements() vk.MemoryRequirements {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.Device.VKDevice, b.VKBuffer, &memoryRequirements)
	return memoryRequirements
}

// Bind attaches the buffer to memory at offset.
func (b *Buffer) Bind(memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindBufferMemory(b.Device.VKDevice, b.VKBuffer, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

// BindDedicated allocates memory sized for the buffer, binds it and
// takes ownership so Destroy frees it along with the buffer.
func (b *Buffer) BindDedicated(memoryProperties vk.MemoryPropertyFlags) error {
	mem, err := b.Device.AllocateForBuffer(b.VKBuffer, memoryProperties)
	if err != nil {
		return err
	}
	if err := b.Bind(mem, 0); err != nil {
		mem.Destroy()
		return err
	}
	b.Memory = mem
	return nil
}

// Bytes returns the buffer's mapped range. The pool's memory block must
// be mapped, which is the case for host visible pools.
func (b *Buffer) Bytes() []byte {
	if b.Pool == nil || b.Pool.Memory.Ptr == nil {
		return nil
	}
	base := b.Pool.Memory.Ptr
	return ToBytes(base, int(b.Pool.Memory.Size))[b.Allocation.Offset : b.Allocation.Offset+b.Size]
}

func (b *Buffer) DSInfo(offset uint64) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(b.Size),
	}
}

func (b *Buffer) Destroy() {
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	if b.Pool != nil && b.Allocation != nil {
		b.Pool.Allocator.Free(b.Allocation)
		b.Allocation = nil
	}
	if b.Memory != nil {
		b.Memory.Destroy()
		b.Memory = nil
	}
}
