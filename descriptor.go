package vkt

import (
	vk "github.com/goki/vulkan"
)

// DescriptorSetLayoutBuilder accumulates bindings before creating the
// layout in one call.
type DescriptorSetLayoutBuilder struct {
	Device   *Device
	Bindings []vk.DescriptorSetLayoutBinding
}

func (d *Device) NewDescriptorSetLayoutBuilder() *DescriptorSetLayoutBuilder {
	return &DescriptorSetLayoutBuilder{Device: d}
}

func (b *DescriptorSetLayoutBuilder) AddBinding(binding uint32, dtype vk.DescriptorType, stages vk.ShaderStageFlags) *DescriptorSetLayoutBuilder {
	b.Bindings = append(b.Bindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  dtype,
		DescriptorCount: 1,
		StageFlags:      stages,
	})
	return b
}

func (b *DescriptorSetLayoutBuilder) Build() (vk.DescriptorSetLayout, error) {
	createInfo := &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(b.Bindings)),
		PBindings:    b.Bindings,
	}

	var layout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(b.Device.VKDevice, createInfo, nil, &layout))
	if err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

func (d *Device) VKDestroyDescriptorSetLayout(l vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.VKDevice, l, nil)
}

// VKCreateDescriptorPool creates a pool with the given sizes. Sets
// allocated from it can be freed individually.
func (d *Device) VKCreateDescriptorPool(maxSets int, sizes ...vk.DescriptorPoolSize) (vk.DescriptorPool, error) {
	createInfo := &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}

	var pool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, createInfo, nil, &pool))
	if err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func (d *Device) VKDestroyDescriptorPool(p vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.VKDevice, p, nil)
}

// VKAllocateDescriptorSets allocates one set per layout from pool.
func (d *Device) VKAllocateDescriptorSets(pool vk.DescriptorPool, layouts ...vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	if len(layouts) == 0 {
		return nil, nil
	}
	allocateInfo := &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, len(layouts))
	err := vk.Error(vk.AllocateDescriptorSets(d.VKDevice, allocateInfo, &sets[0]))
	if err != nil {
		return nil, err
	}
	return sets, nil
}
