package vkt

import (
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, drv *fakeDriver, lag int) *FrameScheduler {
	t.Helper()
	m, err := NewSwapchainManager(drv, nil)
	require.NoError(t, err)
	s, err := NewFrameScheduler(drv, m, lag)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Destroy()
		m.Destroy()
	})
	return s
}

func TestFrameLoop(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	// Run enough frames to cycle every slot and every image several
	// times over.
	for frame := 0; frame < 6; frame++ {
		slot, err := s.StartFrame()
		require.NoError(t, err)
		require.NotNil(t, slot, "frame %d skipped unexpectedly", frame)

		assert.Equal(t, frame%2, slot.Index)
		assert.Equal(t, uint32(frame%3), slot.ImageIndex)

		require.NoError(t, s.PresentFrame(slot))
	}
	assert.Equal(t, uint64(6), s.FrameCount())
}

func TestFrameSlotRoundRobin(t *testing.T) {
	drv := newFakeDriver(4)
	s := newTestScheduler(t, drv, 3)

	seen := map[int]int{}
	for frame := 0; frame < 9; frame++ {
		slot, err := s.StartFrame()
		require.NoError(t, err)
		require.NotNil(t, slot)
		seen[slot.Index]++
		require.NoError(t, s.PresentFrame(slot))
	}
	assert.Equal(t, map[int]int{0: 3, 1: 3, 2: 3}, seen)
}

func TestStartFrameWaitsOnlyWhenPending(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	// First occupancy of each slot has no outstanding submission, so an
	// unsignaled fence must not be waited on (it would time out).
	slot, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.False(t, drv.fences[slot.Fence], "fence must start unsignaled")
	require.NoError(t, s.PresentFrame(slot))

	// Submission marked the slot pending and the fake signaled the fence.
	assert.True(t, drv.fences[slot.Fence])

	// Run the other slot's frame, then reoccupy the first slot: its next
	// StartFrame waits on the signaled fence and resets it.
	next, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, next)
	require.NoError(t, s.PresentFrame(next))

	reused, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, reused)
	require.Equal(t, slot.Index, reused.Index)
	assert.False(t, drv.fences[reused.Fence], "reused slot's fence must have been reset")
	require.NoError(t, s.PresentFrame(reused))
}

func TestFrameSkipAfterAcquireTimeout(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	drv.acquireErrs = []error{ErrNotReady}
	slot, err := s.StartFrame()
	require.NoError(t, err)
	assert.Nil(t, slot, "no image ready must skip the frame, not fail")
	assert.Equal(t, uint64(0), s.FrameCount())

	// The skipped slot must stay usable: no submission happened, so the
	// next occupancy must not wait on its fence.
	slot, err = s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)
	require.NoError(t, s.PresentFrame(slot))
}

func TestStaleAcquireRebuildsAndSkips(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	oldSwapchain := s.Swapchain().VKSwapchain()
	drv.acquireErrs = []error{ErrOutOfDate}

	slot, err := s.StartFrame()
	require.NoError(t, err)
	assert.Nil(t, slot)
	assert.NotSame(t, oldSwapchain, s.Swapchain().VKSwapchain(), "stale surface must trigger a rebuild")

	// The loop resumes against the fresh swapchain.
	slot, err = s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)
	require.NoError(t, s.PresentFrame(slot))
}

func TestStalePresentRebuilds(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	slot, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)

	oldSwapchain := s.Swapchain().VKSwapchain()
	drv.presentErrs = []error{ErrOutOfDate}
	require.NoError(t, s.PresentFrame(slot), "stale surface at present is recoverable")
	assert.NotSame(t, oldSwapchain, s.Swapchain().VKSwapchain())
	assert.Equal(t, uint64(1), s.FrameCount(), "the frame still counts; only presentation went stale")
}

func TestSlotTrackerFlushedOnReuse(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	var destroyed []int
	slot, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)
	firstIndex := slot.Index
	for i := 0; i < 3; i++ {
		i := i
		slot.Resources.Push(CleanupFunc(func() { destroyed = append(destroyed, i) }))
	}
	require.NoError(t, s.PresentFrame(slot))

	// The other slot's frame must not flush this slot's resources.
	slot, err = s.StartFrame()
	require.NoError(t, err)
	require.NoError(t, s.PresentFrame(slot))
	assert.Empty(t, destroyed)

	// Reusing the first slot flushes its tracker in reverse order, after
	// the fence wait proved the GPU is done with it.
	slot, err = s.StartFrame()
	require.NoError(t, err)
	require.Equal(t, firstIndex, slot.Index)
	assert.Equal(t, []int{2, 1, 0}, destroyed)
	require.NoError(t, s.PresentFrame(slot))
}

func TestSlotTrackerOccupancyBounded(t *testing.T) {
	const lag = 2
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, lag)

	// One transient resource per frame. At most lag frames' worth may be
	// alive at once; older ones die when their slot comes back around.
	pushed, destroyed := 0, 0
	for frame := 0; frame < 2*lag; frame++ {
		slot, err := s.StartFrame()
		require.NoError(t, err)
		require.NotNil(t, slot)

		slot.Resources.Push(CleanupFunc(func() { destroyed++ }))
		pushed++
		require.NoError(t, s.PresentFrame(slot))

		occupied := 0
		for _, sl := range s.slots {
			if sl.Resources.Len() > 0 {
				occupied++
			}
		}
		want := frame + 1
		if want > lag {
			want = lag
		}
		assert.Equal(t, want, occupied, "frame %d", frame)
		assert.LessOrEqual(t, pushed-destroyed, lag, "frame %d", frame)
	}
	assert.Equal(t, lag, pushed-destroyed)
}

func TestSchedulerDestroyReleasesSlots(t *testing.T) {
	drv := newFakeDriver(3)
	m, err := NewSwapchainManager(drv, nil)
	require.NoError(t, err)
	s, err := NewFrameScheduler(drv, m, 2)
	require.NoError(t, err)

	slot, err := s.StartFrame()
	require.NoError(t, err)
	require.NotNil(t, slot)
	flushed := false
	slot.Resources.Push(CleanupFunc(func() { flushed = true }))
	require.NoError(t, s.PresentFrame(slot))

	s.Destroy()
	assert.True(t, flushed, "teardown must flush slot trackers")
	assert.Empty(t, drv.fences)
	assert.Empty(t, drv.cmdbufs)

	m.Destroy()
	assert.Empty(t, drv.semaphores)
	assert.Empty(t, drv.swapchains)
	assert.Empty(t, drv.views)
}

func TestMoreImagesThanSlots(t *testing.T) {
	// Fewer slots than images is the configuration that races when the
	// present semaphore lives on the slot instead of the image: slot K
	// comes back around while image K+2 is still queued. The protocol
	// must key present semaphores by image index.
	drv := newFakeDriver(4)
	s := newTestScheduler(t, drv, 2)

	used := map[vk.Semaphore]uint32{}
	for frame := 0; frame < 8; frame++ {
		slot, err := s.StartFrame()
		require.NoError(t, err)
		require.NotNil(t, slot)

		sem := s.Swapchain().PresentSemaphore(slot.ImageIndex)
		if prev, ok := used[sem]; ok {
			assert.Equal(t, prev, slot.ImageIndex, "present semaphore reused across images")
		}
		used[sem] = slot.ImageIndex

		require.NoError(t, s.PresentFrame(slot))
	}
	assert.Len(t, used, 4)
}

func TestStartFrameAcquireHardFailure(t *testing.T) {
	drv := newFakeDriver(3)
	s := newTestScheduler(t, drv, 2)

	drv.acquireErrs = []error{fmt.Errorf("device lost")}
	slot, err := s.StartFrame()
	assert.Nil(t, slot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
}
