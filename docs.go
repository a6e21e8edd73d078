/*
Package vkt is a Vulkan rendering-engine scaffold. It initializes a GPU
device and swapchain, manages per-frame GPU resources, and sequences the
draw/compute work an application records each frame.

Vulkan hands the application full responsibility for object lifetimes and
for CPU/GPU synchronization. The two pieces of this package that carry that
responsibility are the ResourceTracker and the FrameScheduler, and they are
designed as a pair.

The ResourceTracker is an append-only stack of destroyable GPU handles.
Resources are pushed immediately after creation, in dependency order, and a
Flush destroys them in exact reverse order, so a dependent object (an image
view, a pool's descriptor sets) always dies before the object it depends on.
The tracker makes no attempt to model the dependency graph; construction
order stands in for it, and callers must uphold that.

The FrameScheduler cycles a small fixed number of FrameSlots, one per frame
that may be in flight on the GPU. Each slot bundles a command buffer, a
fence, an image-acquired semaphore, and its own ResourceTracker. The
scheduler's fence wait at the top of StartFrame is the single CPU blocking
point in the design: once a slot's fence has signaled, every piece of GPU
work from that slot's previous occupancy has retired, which is exactly the
proof needed to flush that slot's tracker and reuse its transient resources.
Anything pushed onto a slot's tracker during recording (staging buffers,
one-off descriptor pools) is therefore destroyed automatically N frames
later, with no bookkeeping at the call site.

A typical frame:

	slot, err := sched.StartFrame()
	if err != nil {
		// device error, not recoverable
	}
	if slot == nil {
		// surface was stale; the swapchain was rebuilt, skip this tick
		continue
	}
	// record into slot.Cmd, push transients onto slot.Resources,
	// transition the swapchain image to a presentable layout with a
	// BarrierBatch, then:
	err = sched.PresentFrame(slot)

The SwapchainManager owns the presentable images, their views, and one
present semaphore per image. It rebuilds the whole set whenever acquire or
present reports the surface out of date, passing the old swapchain into the
new one's creation and destroying it only once the new one exists.

The BarrierBatch accumulates memory, buffer, and image barriers and issues
them as one vkCmdPipelineBarrier, amortizing the fixed per-call cost of
barrier submission.

All GPU driver calls the core depends on go through the Driver interface.
*Context implements it over Vulkan; tests substitute an in-memory fake, so
the frame protocol and the tracker are verifiable without a GPU.
*/
package vkt
