package vkt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerFlushReverseOrder(t *testing.T) {
	drv := newFakeDriver(3)
	tracker := NewResourceTracker(drv)

	var order []int
	for i := 0; i < 4; i++ {
		i := i
		tracker.Push(CleanupFunc(func() {
			order = append(order, i)
		}))
	}

	require.Equal(t, 4, tracker.Len())
	tracker.Flush()

	assert.Equal(t, []int{3, 2, 1, 0}, order)
	assert.Equal(t, 0, tracker.Len())
}

func TestTrackerFlushEmptyIsNoop(t *testing.T) {
	drv := newFakeDriver(3)
	tracker := NewResourceTracker(drv)

	tracker.Flush()
	tracker.Flush()
	assert.Empty(t, drv.events)
}

func TestTrackerReusableAfterFlush(t *testing.T) {
	drv := newFakeDriver(3)
	tracker := NewResourceTracker(drv)

	f, err := drv.CreateFence(false)
	require.NoError(t, err)
	tracker.Push(f)
	tracker.Flush()
	require.Equal(t, []string{"destroy fence"}, drv.events)

	s, err := drv.CreateSemaphore()
	require.NoError(t, err)
	tracker.Push(s)
	tracker.Flush()
	assert.Equal(t, []string{"destroy fence", "destroy semaphore"}, drv.events)
}

func TestTrackerDispatchesHandleKinds(t *testing.T) {
	drv := newFakeDriver(3)
	tracker := NewResourceTracker(drv)

	f, _ := drv.CreateFence(false)
	s, _ := drv.CreateSemaphore()
	tracker.Push(f)
	tracker.Push(s)
	tracker.Push(CleanupFunc(func() {}))
	tracker.Destroy()

	// Reverse push order: the cleanup func runs first, then the
	// semaphore, then the fence.
	assert.Equal(t, []string{"destroy semaphore", "destroy fence"}, drv.events)
	assert.Empty(t, drv.fences)
	assert.Empty(t, drv.semaphores)
}

func TestTrackerUnknownKindPanics(t *testing.T) {
	drv := newFakeDriver(3)
	tracker := NewResourceTracker(drv)

	tracker.Push(struct{ x int }{})
	assert.Panics(t, func() {
		tracker.Flush()
	})
}
