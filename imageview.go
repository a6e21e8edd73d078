package vkt

import (
	vk "github.com/goki/vulkan"
)

// VKCreateImageView creates a 2D view with identity swizzles over the
// image's first mip and layer.
func (d *Device) VKCreateImageView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(d.VKDevice, createInfo, nil, &view))
	if err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (d *Device) VKDestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.VKDevice, view, nil)
}
