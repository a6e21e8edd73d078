package vkt

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
)

// Device wraps a Vulkan logical device. Most of the package reaches the
// driver through Context, which composes a Device with its queues and
// command pool; Device itself carries the calls that need nothing but the
// device handle.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device
}

func (d *Device) Destroy() {
	vk.DestroyDevice(d.VKDevice, nil)
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.VKDevice))
}

func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue
	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)

	return &Queue{
		Device:      d,
		QueueFamily: qf,
		VKQueue:     vkq,
	}
}

// VKCreateFence creates a native fence, optionally pre-signaled.
func (d *Device) VKCreateFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

func (d *Device) VKDestroyFence(f vk.Fence) {
	vk.DestroyFence(d.VKDevice, f, nil)
}

// VKWaitForFence blocks until f signals or the timeout elapses; the
// timeout surfaces as an error.
func (d *Device) VKWaitForFence(f vk.Fence, timeout time.Duration) error {
	res := vk.WaitForFences(d.VKDevice, 1, []vk.Fence{f}, vk.True, uint64(timeout.Nanoseconds()))
	if res == vk.Timeout {
		return fmt.Errorf("fence wait exceeded %v", timeout)
	}
	return vk.Error(res)
}

func (d *Device) VKResetFence(f vk.Fence) error {
	return vk.Error(vk.ResetFences(d.VKDevice, 1, []vk.Fence{f}))
}

// VKCreateSemaphore creates a native semaphore, never signaled at creation.
func (d *Device) VKCreateSemaphore() (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sema vk.Semaphore
	err := vk.Error(vk.CreateSemaphore(d.VKDevice, &semaphoreCreateInfo, nil, &sema))
	if err != nil {
		return vk.NullSemaphore, err
	}
	return sema, nil
}

func (d *Device) VKDestroySemaphore(s vk.Semaphore) {
	vk.DestroySemaphore(d.VKDevice, s, nil)
}

// Allocate allocates raw device memory of a type satisfying both the
// driver's memoryTypeBits and the requested properties. Failure here is
// per-call and leaves nothing behind; callers register the returned memory
// with a tracker only once whatever it backs is fully built.
func (d *Device) Allocate(sizeInBytes int, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:          vk.StructureTypeMemoryAllocateInfo,
		AllocationSize: vk.DeviceSize(sizeInBytes),
	}

	var err error
	allocateInfo.MemoryTypeIndex, err = d.PhysicalDevice.FindMemoryType(
		memoryTypeBits, vk.MemoryPropertyFlagBits(memoryProperties))
	if err != nil {
		return nil, err
	}

	var deviceMemory vk.DeviceMemory
	err = vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, err
	}

	return &DeviceMemory{
		Device:         d,
		VKDeviceMemory: deviceMemory,
		Size:           uint64(sizeInBytes),
	}, nil
}

// AllocateForBuffer allocates memory sized and typed for b.
func (d *Device) AllocateForBuffer(b vk.Buffer, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, b, &memoryRequirements)
	mr := &memoryRequirements
	mr.Deref()
	return d.Allocate(int(mr.Size), mr.MemoryTypeBits, memoryProperties)
}

// AllocateForImage allocates memory sized and typed for img.
func (d *Device) AllocateForImage(img vk.Image, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.VKDevice, img, &memoryRequirements)
	mr := &memoryRequirements
	mr.Deref()
	return d.Allocate(int(mr.Size), mr.MemoryTypeBits, memoryProperties)
}
