package vkt

import (
	vk "github.com/goki/vulkan"
)

// Plain helpers over command buffer state transitions. The frame protocol
// drives these through the Driver interface; they are also usable directly
// for one-shot setup work.

// BeginCommandBuffer opens cb for recording with no usage restrictions.
func BeginCommandBuffer(cb vk.CommandBuffer) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return vk.Error(vk.BeginCommandBuffer(cb, &beginInfo))
}

// BeginOneTimeCommandBuffer opens cb for a single submission, letting the
// driver discard the recording afterwards.
func BeginOneTimeCommandBuffer(cb vk.CommandBuffer) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return vk.Error(vk.BeginCommandBuffer(cb, &beginInfo))
}

// EndCommandBuffer closes recording on cb.
func EndCommandBuffer(cb vk.CommandBuffer) error {
	return vk.Error(vk.EndCommandBuffer(cb))
}

// ResetCommandBuffer returns cb to the initial state for re-recording.
func ResetCommandBuffer(cb vk.CommandBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(cb, 0))
}
