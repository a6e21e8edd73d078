package vkt

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// InitWindowing initializes glfw and the Vulkan loader through glfw's
// proc address, which is required for surface support. Must be called on
// the main thread before NewContext. Headless programs call Init instead.
func InitWindowing() error {
	if err := glfw.Init(); err != nil {
		return err
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return vk.Init()
}

// Terminate shuts glfw down. Call last, after the context is destroyed.
func Terminate() {
	glfw.Terminate()
}

// CreateWindow opens a fixed-size window without an OpenGL context, which
// is what a Vulkan swapchain needs.
func CreateWindow(width, height int, title string) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	return glfw.CreateWindow(width, height, title, nil, nil)
}

// WindowSurface returns a CreateSurface callback for
// CreateContextOptions that targets w.
func WindowSurface(w *glfw.Window) func(i *Instance) (vk.Surface, error) {
	return func(i *Instance) (vk.Surface, error) {
		surface, err := w.CreateWindowSurface(i.VKInstance, nil)
		if err != nil {
			return vk.NullSurface, fmt.Errorf("creating window surface: %w", err)
		}
		return vk.SurfaceFromPointer(surface), nil
	}
}

// WindowExtensions reports the instance extensions the window system
// needs, for CreateContextOptions.InstanceExtensions.
func WindowExtensions(w *glfw.Window) []string {
	return w.GetRequiredInstanceExtensions()
}

// DrawableExtent reports the window's framebuffer size as a Vulkan
// extent, for CreateSwapchainOptions.ActualSize.
func DrawableExtent(w *glfw.Window) vk.Extent2D {
	fw, fh := w.GetFramebufferSize()
	return vk.Extent2D{Width: uint32(fw), Height: uint32(fh)}
}
