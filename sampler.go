package vkt

import (
	vk "github.com/goki/vulkan"
)

// VKCreateSampler creates a linear-filtered repeat sampler, the common
// case for sampled textures.
func (d *Device) VKCreateSampler() (vk.Sampler, error) {
	createInfo := &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MaxLod:       1,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}

	var sampler vk.Sampler
	err := vk.Error(vk.CreateSampler(d.VKDevice, createInfo, nil, &sampler))
	if err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

func (d *Device) VKDestroySampler(s vk.Sampler) {
	vk.DestroySampler(d.VKDevice, s, nil)
}
