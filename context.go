package vkt

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
)

// CreateContextOptions configures NewContext.
type CreateContextOptions struct {
	Name    string
	Version Version

	// CreateSurface is called once the instance exists. Leave nil for a
	// headless context; the swapchain and present paths then stay unused.
	CreateSurface func(i *Instance) (vk.Surface, error)

	// InstanceExtensions are enabled on top of what debugging requires.
	// Window systems report theirs via RequiredInstanceExtensions.
	InstanceExtensions []string
	EnableValidation   bool
}

// Context owns the device chain a rendering application needs: instance,
// chosen physical device, logical device, graphics and present queues, a
// graphics command pool and a tracker for process-lifetime resources. It
// is the production Driver implementation the scheduler, swapchain
// manager and tracker run against.
type Context struct {
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	Device         *Device
	GraphicsQueue  *Queue
	PresentQueue   *Queue
	Surface        vk.Surface
	CommandPool    *CommandPool

	// Resources tracks objects that live until the context is destroyed.
	// Frame-transient objects belong on the frame slot's tracker instead.
	Resources *ResourceTracker

	debugCallback vk.DebugReportCallback
}

// NewContext builds the full device chain. The first physical device
// with a queue family doing both graphics and present wins. Init or
// InitWindowing must have run first.
func NewContext(opts *CreateContextOptions) (*Context, error) {
	app := &App{
		Name:       opts.Name,
		EngineName: "vkt",
		Version:    opts.Version,
		APIVersion: Version{1, 0, 0},
	}
	for _, ext := range opts.InstanceExtensions {
		app.EnableExtension(ext)
	}
	if opts.EnableValidation {
		app.EnableDebugging()
	}

	instance, err := app.CreateInstance()
	if err != nil {
		return nil, err
	}

	c := &Context{Instance: instance}
	if opts.EnableValidation {
		c.debugCallback, err = instance.UseDefaultDebugCallback()
		if err != nil {
			c.Destroy()
			return nil, err
		}
	}

	if opts.CreateSurface != nil {
		c.Surface, err = opts.CreateSurface(instance)
		if err != nil {
			c.Destroy()
			return nil, err
		}
	}

	if err := c.initDevice(); err != nil {
		c.Destroy()
		return nil, err
	}

	return c, nil
}

func (c *Context) initDevice() error {
	physicalDevices, err := c.Instance.PhysicalDevices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(physicalDevices) == 0 {
		return fmt.Errorf("no Vulkan devices found")
	}

	var pdevice *PhysicalDevice
	var gqueues QueueFamilySlice
	for _, pd := range physicalDevices {
		queues, err := pd.QueueFamilies()
		if err != nil {
			return fmt.Errorf("loading queue families: %w", err)
		}
		if c.Surface == vk.NullSurface {
			queues = queues.FilterGraphics()
		} else {
			queues = queues.FilterGraphicsAndPresent(c.Surface)
		}
		if len(queues) > 0 {
			pdevice = pd
			gqueues = queues
			break
		}
	}
	if pdevice == nil {
		return fmt.Errorf("no device has a graphics queue for the surface")
	}

	var deviceExtensions []string
	if c.Surface != vk.NullSurface {
		deviceExtensions = []string{"VK_KHR_swapchain"}
	}

	device, err := pdevice.CreateLogicalDeviceWithOptions(gqueues, &CreateDeviceOptions{
		EnabledExtensions: deviceExtensions,
	})
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}

	c.PhysicalDevice = pdevice
	c.Device = device

	queue := device.GetQueue(gqueues[0])
	c.GraphicsQueue = queue
	c.PresentQueue = queue

	c.CommandPool, err = device.CreateCommandPool(queue.QueueFamily)
	if err != nil {
		return err
	}

	c.Resources = NewResourceTracker(c)
	return nil
}

// Destroy tears the context down in reverse construction order. Call
// only after the frame scheduler and swapchain manager are gone.
func (c *Context) Destroy() {
	if c.Device != nil {
		c.Device.WaitIdle()
	}
	if c.Resources != nil {
		c.Resources.Destroy()
		c.Resources = nil
	}
	if c.CommandPool != nil {
		c.CommandPool.Destroy()
		c.CommandPool = nil
	}
	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance.VKInstance, c.Surface, nil)
		c.Surface = vk.NullSurface
	}
	if c.Instance != nil {
		c.Instance.DestroyDebugCallback(c.debugCallback)
		c.debugCallback = vk.NullDebugReportCallback
		c.Instance.Destroy()
		c.Instance = nil
	}
}

// RunOnce records fn into a one-shot command buffer, submits it and
// blocks until the queue drains. Meant for setup work like staging
// copies and initial layout transitions.
func (c *Context) RunOnce(fn func(cb vk.CommandBuffer) error) error {
	cb, err := c.CommandPool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer c.CommandPool.FreeBuffer(cb)

	if err := BeginOneTimeCommandBuffer(cb); err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		return err
	}
	if err := EndCommandBuffer(cb); err != nil {
		return err
	}
	return c.GraphicsQueue.SubmitWaitIdle(cb)
}

// Driver implementation.

func (c *Context) CreateFence(signaled bool) (vk.Fence, error) {
	return c.Device.VKCreateFence(signaled)
}

func (c *Context) DestroyFence(f vk.Fence) {
	c.Device.VKDestroyFence(f)
}

func (c *Context) WaitForFence(f vk.Fence, timeout time.Duration) error {
	return c.Device.VKWaitForFence(f, timeout)
}

func (c *Context) ResetFence(f vk.Fence) error {
	return c.Device.VKResetFence(f)
}

func (c *Context) CreateSemaphore() (vk.Semaphore, error) {
	return c.Device.VKCreateSemaphore()
}

func (c *Context) DestroySemaphore(s vk.Semaphore) {
	c.Device.VKDestroySemaphore(s)
}

func (c *Context) AllocateCommandBuffers(count int) ([]vk.CommandBuffer, error) {
	return c.CommandPool.AllocateBuffers(count)
}

func (c *Context) FreeCommandBuffers(cbs []vk.CommandBuffer) {
	c.CommandPool.FreeBuffers(cbs)
}

func (c *Context) ResetCommandBuffer(cb vk.CommandBuffer) error {
	return ResetCommandBuffer(cb)
}

func (c *Context) BeginCommandBuffer(cb vk.CommandBuffer) error {
	return BeginCommandBuffer(cb)
}

func (c *Context) EndCommandBuffer(cb vk.CommandBuffer) error {
	return EndCommandBuffer(cb)
}

func (c *Context) PipelineBarrier(cb vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags,
	mem []vk.MemoryBarrier, buf []vk.BufferMemoryBarrier, img []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, srcStage, dstStage, 0,
		uint32(len(mem)), mem,
		uint32(len(buf)), buf,
		uint32(len(img)), img)
}

// CreateSwapchain negotiates a swapchain against the context's surface,
// preferring B8G8R8A8 unorm and mailbox presentation with a FIFO
// fallback.
func (c *Context) CreateSwapchain(opts *CreateSwapchainOptions) (vk.Swapchain, vk.Format, vk.Extent2D, error) {
	fail := func(err error) (vk.Swapchain, vk.Format, vk.Extent2D, error) {
		return vk.NullSwapchain, vk.FormatUndefined, vk.Extent2D{}, err
	}
	if c.Surface == vk.NullSurface {
		return fail(fmt.Errorf("context has no surface"))
	}

	modes, err := c.PhysicalDevice.GetSurfacePresentModes(c.Surface)
	if err != nil {
		return fail(err)
	}
	presentMode := vk.PresentModeFifo
	if m := modes.Filter(vk.PresentModeMailbox); len(m) > 0 {
		presentMode = m[0]
	}

	formats, err := c.PhysicalDevice.GetSurfaceFormats(c.Surface)
	if err != nil {
		return fail(err)
	}
	if len(formats) == 0 {
		return fail(fmt.Errorf("surface reports no formats"))
	}
	format := formats[0]
	format.Deref()
	formats.Filter(func(f vk.SurfaceFormat) bool {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Unorm {
			format = f
			return true
		}
		return false
	})

	caps, err := c.PhysicalDevice.GetSurfaceCapabilities(c.Surface)
	if err != nil {
		return fail(err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()

	var extent vk.Extent2D
	if caps.CurrentExtent.Width == vk.MaxUint32 {
		// Surface leaves the choice to us.
		if opts != nil && opts.ActualSize.Width != 0 {
			extent = opts.ActualSize
		} else {
			extent = caps.MinImageExtent
		}
	} else {
		extent = caps.CurrentExtent
	}

	desired := 0
	oldSwapchain := vk.NullSwapchain
	if opts != nil {
		desired = opts.DesiredNumSwapchainImages
		oldSwapchain = opts.OldSwapchain
	}
	if desired == 0 {
		desired = int(caps.MinImageCount) + 1
	}
	if caps.MaxImageCount > 0 && desired > int(caps.MaxImageCount) {
		desired = int(caps.MaxImageCount)
	}

	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.Surface,
		MinImageCount:    uint32(desired),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	if c.GraphicsQueue.QueueFamily.Index != c.PresentQueue.QueueFamily.Index {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(c.GraphicsQueue.QueueFamily.Index),
			uint32(c.PresentQueue.QueueFamily.Index),
		}
	}

	var swapchain vk.Swapchain
	err = vk.Error(vk.CreateSwapchain(c.Device.VKDevice, createInfo, nil, &swapchain))
	if err != nil {
		return fail(fmt.Errorf("creating swapchain: %w", err))
	}
	return swapchain, format.Format, extent, nil
}

func (c *Context) SwapchainImages(sc vk.Swapchain) ([]vk.Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(c.Device.VKDevice, sc, &imageCount, nil))
	if err != nil {
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(c.Device.VKDevice, sc, &imageCount, images))
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Context) DestroySwapchain(sc vk.Swapchain) {
	vk.DestroySwapchain(c.Device.VKDevice, sc, nil)
}

func (c *Context) CreateImageView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	return c.Device.VKCreateImageView(img, format, aspect)
}

func (c *Context) DestroyImageView(view vk.ImageView) {
	c.Device.VKDestroyImageView(view)
}

func (c *Context) AcquireNextImage(sc vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(c.Device.VKDevice, sc, uint64(timeout.Nanoseconds()), sem, vk.NullFence, &imageIndex)
	if err := acquireError(res); err != nil {
		return 0, err
	}
	return imageIndex, nil
}

// acquireError maps an acquire result onto the package sentinels. A
// suboptimal acquire forces a rebuild just like an out-of-date one; the
// image is still acquired, but presenting it would keep feeding a surface
// whose dimensions no longer match the window.
func acquireError(res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return ErrNotReady
	default:
		return vk.Error(res)
	}
}

func (c *Context) Submit(cb vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error {
	return c.GraphicsQueue.Submit(cb, wait, waitStage, signal, fence)
}

func (c *Context) Present(sc vk.Swapchain, imageIndex uint32, wait vk.Semaphore) error {
	return c.PresentQueue.Present(sc, imageIndex, wait)
}

func (c *Context) DestroyPipeline(p vk.Pipeline) {
	c.Device.VKDestroyPipeline(p)
}

func (c *Context) DestroyPipelineLayout(l vk.PipelineLayout) {
	c.Device.VKDestroyPipelineLayout(l)
}

func (c *Context) DestroyDescriptorPool(p vk.DescriptorPool) {
	c.Device.VKDestroyDescriptorPool(p)
}

func (c *Context) DestroyDescriptorSetLayout(l vk.DescriptorSetLayout) {
	c.Device.VKDestroyDescriptorSetLayout(l)
}

func (c *Context) DestroySampler(s vk.Sampler) {
	c.Device.VKDestroySampler(s)
}

func (c *Context) DestroyCommandPool(p vk.CommandPool) {
	vk.DestroyCommandPool(c.Device.VKDevice, p, nil)
}

func (c *Context) DestroyBuffer(b vk.Buffer) {
	vk.DestroyBuffer(c.Device.VKDevice, b, nil)
}

func (c *Context) DestroyImage(i vk.Image) {
	vk.DestroyImage(c.Device.VKDevice, i, nil)
}

func (c *Context) FreeMemory(m vk.DeviceMemory) {
	vk.FreeMemory(c.Device.VKDevice, m, nil)
}

func (c *Context) WaitIdle() error {
	return c.Device.WaitIdle()
}
