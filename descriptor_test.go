package vkt

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDescriptorSetsNoLayouts(t *testing.T) {
	var d Device
	var pool vk.DescriptorPool
	sets, err := d.VKAllocateDescriptorSets(pool)
	require.NoError(t, err)
	assert.Empty(t, sets)
}
