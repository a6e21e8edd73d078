package vkt

import (
	vk "github.com/goki/vulkan"
)

func (d *Device) VKCreatePipelineLayout(setLayouts ...vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	return d.VKCreatePipelineLayoutWithPushConstants(setLayouts, nil)
}

func (d *Device) VKCreatePipelineLayoutWithPushConstants(setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange) (vk.PipelineLayout, error) {
	createInfo := &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}

	var layout vk.PipelineLayout
	err := vk.Error(vk.CreatePipelineLayout(d.VKDevice, createInfo, nil, &layout))
	if err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (d *Device) VKDestroyPipelineLayout(l vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.VKDevice, l, nil)
}

func (d *Device) VKDestroyPipeline(p vk.Pipeline) {
	vk.DestroyPipeline(d.VKDevice, p, nil)
}
