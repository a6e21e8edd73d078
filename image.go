package vkt

import (
	vk "github.com/goki/vulkan"
)

// Image wraps a Vulkan image together with its backing allocation.
type Image struct {
	Device     *Device
	VKImage    vk.Image
	VKFormat   vk.Format
	Extent     vk.Extent2D
	Allocation *Allocation
	Pool       *MemoryPool
	Memory     *DeviceMemory
}

func (d *Device) CreateImage(extent vk.Extent2D, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags) (*Image, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	imageInfo.Extent.Width = extent.Width
	imageInfo.Extent.Height = extent.Height
	imageInfo.Extent.Depth = 1

	var image vk.Image
	err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image))
	if err != nil {
		return nil, err
	}

	return &Image{
		Device:   d,
		VKImage:  image,
		VKFormat: format,
		Extent:   extent,
	}, nil
}

func (i *Image) VKMemoryRequirements() vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(i.Device.VKDevice, i.VKImage, &memRequirements)
	return memRequirements
}

func (i *Image) Bind(memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindImageMemory(i.Device.VKDevice, i.VKImage, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

// BindDedicated allocates memory sized for the image, binds it and takes
// ownership so Destroy frees it along with the image.
func (i *Image) BindDedicated(memoryProperties vk.MemoryPropertyFlags) error {
	mem, err := i.Device.AllocateForImage(i.VKImage, memoryProperties)
	if err != nil {
		return err
	}
	if err := i.Bind(mem, 0); err != nil {
		mem.Destroy()
		return err
	}
	i.Memory = mem
	return nil
}

// CreateView creates a 2D view of the image for the given aspect.
func (i *Image) CreateView(aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	return i.Device.VKCreateImageView(i.VKImage, i.VKFormat, aspect)
}

func (i *Image) Destroy() {
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
	if i.Pool != nil && i.Allocation != nil {
		i.Pool.Allocator.Free(i.Allocation)
		i.Allocation = nil
	}
	if i.Memory != nil {
		i.Memory.Destroy()
		i.Memory = nil
	}
}
