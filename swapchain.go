package vkt

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// CreateSwapchainOptions selects how a swapchain is built. The zero value
// asks for the surface's current extent and FrameLag+1 images.
type CreateSwapchainOptions struct {
	// OldSwapchain, when not null, is handed to the driver so it can carry
	// presentable state over from the swapchain being replaced.
	OldSwapchain vk.Swapchain
	// ActualSize is the drawable size to use when the surface does not
	// dictate one (some platforms report an undefined current extent).
	ActualSize vk.Extent2D
	// DesiredNumSwapchainImages requests an image count; zero means "one
	// more than the frame overlap count", so there is always a free image
	// to acquire while the in-flight frames are rendering or presenting.
	DesiredNumSwapchainImages int
}

// SwapchainManager owns the presentable images negotiated with the display:
// the swapchain handle, one view per image, and one present-ready semaphore
// per image. Tying the present semaphore to the image rather than the frame
// slot avoids a presentation race when fewer slots than images exist: the
// display engine may still be presenting image K when the frame counter
// comes back around.
//
// The whole set is rebuilt on demand whenever the surface goes stale.
type SwapchainManager struct {
	Extent vk.Extent2D
	Format vk.Format

	drv         Driver
	swapchain   vk.Swapchain
	images      []vk.Image
	views       []vk.ImageView
	presentSems []vk.Semaphore
}

// NewSwapchainManager builds the initial swapchain for the surface behind
// drv.
func NewSwapchainManager(drv Driver, opts *CreateSwapchainOptions) (*SwapchainManager, error) {
	m := &SwapchainManager{drv: drv}
	var size vk.Extent2D
	var desired int
	if opts != nil {
		size = opts.ActualSize
		desired = opts.DesiredNumSwapchainImages
	}
	if err := m.build(size, desired); err != nil {
		return nil, err
	}
	return m, nil
}

// VKSwapchain returns the native swapchain handle.
func (m *SwapchainManager) VKSwapchain() vk.Swapchain {
	return m.swapchain
}

// NumImages reports how many presentable images the swapchain ended up
// with, which may exceed the requested count.
func (m *SwapchainManager) NumImages() int {
	return len(m.images)
}

// Image returns the presentable image at index i.
func (m *SwapchainManager) Image(i uint32) vk.Image {
	return m.images[i]
}

// View returns the color view of the presentable image at index i.
func (m *SwapchainManager) View(i uint32) vk.ImageView {
	return m.views[i]
}

// PresentSemaphore returns the present-ready semaphore of image i. The
// frame protocol signals it on submit completion and presentation waits on
// it.
func (m *SwapchainManager) PresentSemaphore(i uint32) vk.Semaphore {
	return m.presentSems[i]
}

// Rebuild waits for the device to go idle, then replaces the swapchain and
// everything derived from it. Coarse, but rebuilds are rare resize-driven
// events, not a hot path.
func (m *SwapchainManager) Rebuild(size vk.Extent2D) error {
	if err := m.drv.WaitIdle(); err != nil {
		return fmt.Errorf("swapchain rebuild: %w", err)
	}
	return m.build(size, len(m.images))
}

// build creates the new swapchain (referencing the old one for a smooth
// transition) and only tears the old one down once the new one fully
// exists. A failure partway rolls back everything created in this attempt
// and leaves the manager empty rather than half built; the next rebuild
// attempt starts clean.
func (m *SwapchainManager) build(size vk.Extent2D, desired int) error {
	oldSwapchain := m.swapchain
	oldViews := m.views
	oldSems := m.presentSems

	opts := &CreateSwapchainOptions{
		OldSwapchain:              oldSwapchain,
		ActualSize:                size,
		DesiredNumSwapchainImages: desired,
	}
	if opts.DesiredNumSwapchainImages == 0 {
		opts.DesiredNumSwapchainImages = FrameLag + 1
	}

	// Once CreateSwapchain has consumed the old swapchain it is retired
	// either way, so from here on the old set is destroyed regardless of
	// how this attempt ends.
	destroyOld := func() {
		for _, v := range oldViews {
			m.drv.DestroyImageView(v)
		}
		for _, s := range oldSems {
			m.drv.DestroySemaphore(s)
		}
		if oldSwapchain != vk.NullSwapchain {
			m.drv.DestroySwapchain(oldSwapchain)
		}
	}
	reset := func() {
		m.swapchain = vk.NullSwapchain
		m.images = nil
		m.views = nil
		m.presentSems = nil
	}

	sc, format, extent, err := m.drv.CreateSwapchain(opts)
	if err != nil {
		destroyOld()
		reset()
		return fmt.Errorf("swapchain create: %w", err)
	}

	images, err := m.drv.SwapchainImages(sc)
	if err != nil {
		m.drv.DestroySwapchain(sc)
		destroyOld()
		reset()
		return fmt.Errorf("swapchain images: %w", err)
	}

	views := make([]vk.ImageView, 0, len(images))
	sems := make([]vk.Semaphore, 0, len(images))
	rollback := func() {
		for _, v := range views {
			m.drv.DestroyImageView(v)
		}
		for _, s := range sems {
			m.drv.DestroySemaphore(s)
		}
		m.drv.DestroySwapchain(sc)
		destroyOld()
		reset()
	}

	for _, img := range images {
		view, err := m.drv.CreateImageView(img, format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			rollback()
			return fmt.Errorf("swapchain image view: %w", err)
		}
		views = append(views, view)
	}
	for range images {
		sem, err := m.drv.CreateSemaphore()
		if err != nil {
			rollback()
			return fmt.Errorf("swapchain present semaphore: %w", err)
		}
		sems = append(sems, sem)
	}

	destroyOld()
	m.swapchain = sc
	m.Format = format
	m.Extent = extent
	m.images = images
	m.views = views
	m.presentSems = sems
	return nil
}

// Destroy tears down the swapchain, views, and semaphores. The caller must
// ensure the device is idle first.
func (m *SwapchainManager) Destroy() {
	for _, v := range m.views {
		m.drv.DestroyImageView(v)
	}
	for _, s := range m.presentSems {
		m.drv.DestroySemaphore(s)
	}
	if m.swapchain != vk.NullSwapchain {
		m.drv.DestroySwapchain(m.swapchain)
	}
	m.swapchain = vk.NullSwapchain
	m.images = nil
	m.views = nil
	m.presentSems = nil
}
