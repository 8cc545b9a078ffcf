package renderer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// swapchainSupport is the surface's capability report for one candidate
// device, queried once during selection and once again at creation.
type swapchainSupport struct {
	capabilities *khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

// swapchainState owns the presentable images and everything negotiated
// about them. It is created after the device and destroyed before it;
// framebuffers and command buffers index into images and are invalid the
// moment this is torn down.
type swapchainState struct {
	handle      khr_swapchain.Swapchain
	images      []core1_0.Image
	imageViews  []core1_0.ImageView
	format      core1_0.Format
	colorSpace  khr_surface.ColorSpace
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D
}

func (s *swapchainState) destroy() {
	for _, imageView := range s.imageViews {
		imageView.Destroy(nil)
	}
	s.imageViews = nil

	if s.handle != nil {
		s.handle.Destroy(nil)
		s.handle = nil
	}
}

// chooseSurfaceFormat prefers 8-bit BGRA with nonlinear sRGB encoding and
// otherwise takes whatever the surface reports first.
func chooseSurfaceFormat(available []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range available {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return available[0]
}

// choosePresentMode prefers mailbox, which replaces the queued frame
// instead of blocking, and falls back to FIFO, the only mode every
// implementation guarantees.
func choosePresentMode(available []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range available {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// chooseExtent uses the surface's fixed current extent when one is
// reported, and otherwise clamps the drawable size into the surface's
// supported range per dimension.
func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width := drawableWidth
	height := drawableHeight

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for one image over the surface minimum and clamps
// to the maximum when one is reported (zero means unbounded).
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func (r *Renderer) querySwapchainSupport(device core1_0.PhysicalDevice) (swapchainSupport, error) {
	var support swapchainSupport
	var err error

	support.capabilities, _, err = r.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return support, err
	}

	support.formats, _, err = r.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return support, err
	}

	support.presentModes, _, err = r.surface.PhysicalDeviceSurfacePresentModes(device)
	return support, err
}

func (r *Renderer) createSwapchain() error {
	r.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(r.device)

	support, err := r.querySwapchainSupport(r.physicalDevice)
	if err != nil {
		return initErr(err, "querying surface support")
	}

	surfaceFormat := chooseSurfaceFormat(support.formats)
	presentMode := choosePresentMode(support.presentModes)
	drawableWidth, drawableHeight := r.window.DrawableSize()
	extent := chooseExtent(support.capabilities, drawableWidth, drawableHeight)
	imageCount := chooseImageCount(support.capabilities)

	// When the graphics and presentation families differ, the images are
	// shared between both so no explicit ownership transfer is needed.
	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if *r.queueIndices.GraphicsFamily != *r.queueIndices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *r.queueIndices.GraphicsFamily, *r.queueIndices.PresentFamily)
	}

	swapchain, _, err := r.swapchainExtension.CreateSwapchain(r.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: r.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return initErr(err, "creating swapchain")
	}

	r.swapchain = &swapchainState{
		handle:      swapchain,
		format:      surfaceFormat.Format,
		colorSpace:  surfaceFormat.ColorSpace,
		presentMode: presentMode,
		extent:      extent,
	}

	r.log.Info("swapchain negotiated",
		"minImageCount", imageCount,
		"format", surfaceFormat.Format.String(),
		"presentMode", presentMode.String(),
		"width", extent.Width,
		"height", extent.Height)

	return nil
}

// createImageViews fetches the image list the device actually created
// (which may exceed the requested minimum) and derives one 2D full-color
// view per image.
func (r *Renderer) createImageViews() error {
	images, _, err := r.swapchain.handle.SwapchainImages()
	if err != nil {
		return initErr(err, "fetching swapchain images")
	}
	r.swapchain.images = images

	for _, image := range images {
		view, _, err := r.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			ViewType: core1_0.ImageViewType2D,
			Image:    image,
			Format:   r.swapchain.format,
			Components: core1_0.ComponentMapping{
				R: core1_0.ComponentSwizzleIdentity,
				G: core1_0.ComponentSwizzleIdentity,
				B: core1_0.ComponentSwizzleIdentity,
				A: core1_0.ComponentSwizzleIdentity,
			},
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return initErr(err, "creating swapchain image view")
		}

		r.swapchain.imageViews = append(r.swapchain.imageViews, view)
	}

	return nil
}
