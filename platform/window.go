package platform

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
)

// Window owns the SDL video subsystem and a single Vulkan-capable window.
// The renderer consumes it for three things only: the native handle to
// create a presentation surface from, the drawable size in pixels, and a
// polled close signal.
type Window struct {
	window         *sdl.Window
	closeRequested bool
}

// NewWindow initializes SDL video and opens a fixed-size window. Resizing
// is deliberately not enabled; the renderer has no swapchain recreation
// path.
func NewWindow(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initializing SDL")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "creating SDL window")
	}

	return &Window{window: window}, nil
}

// SDLWindow exposes the underlying handle for surface creation.
func (w *Window) SDLWindow() *sdl.Window {
	return w.window
}

// InstanceProcAddr returns the vkGetInstanceProcAddr pointer the Vulkan
// loader is built from.
func (w *Window) InstanceProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// InstanceExtensions lists the instance extensions the windowing system
// requires for presentation.
func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// DrawableSize returns the current framebuffer size in pixels, which may
// differ from the window size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// CloseRequested drains pending events and reports whether the user has
// asked the window to close. Once true it stays true.
func (w *Window) CloseRequested() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			w.closeRequested = true
		}
	}
	return w.closeRequested
}

// Destroy closes the window and shuts SDL down. Safe to call on a
// partially constructed Window.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
