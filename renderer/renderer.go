package renderer

import (
	"log/slog"
	"time"

	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v2"

	"vulkan-triangle/platform"
)

// Renderer is the single owner of every Vulkan object in the process.
// Construction happens in a fixed order inside Run; cleanup releases
// everything in strictly reverse order and tolerates any prefix of that
// order having been built, so error paths leak nothing.
type Renderer struct {
	config Config
	log    *slog.Logger

	window *platform.Window
	loader core.Loader

	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	queueIndices   QueueFamilyIndices

	device        core1_0.Device
	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension khr_swapchain.Extension
	swapchain          *swapchainState

	renderPass       core1_0.RenderPass
	pipelineLayout   core1_0.PipelineLayout
	graphicsPipeline core1_0.Pipeline
	framebuffers     []core1_0.Framebuffer

	commandPool    core1_0.CommandPool
	commandBuffers []core1_0.CommandBuffer

	frames *frameSet
}

// New builds an unstarted renderer. Nothing is created until Run.
func New(config Config, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		config: config,
		log:    log,
	}
}

// Run opens the window, brings up the full Vulkan stack, and drives the
// render loop until the window asks to close or a submission fails. All
// constructed objects are released on every exit path.
func (r *Renderer) Run() error {
	defer r.cleanup()

	if err := r.initWindow(); err != nil {
		return err
	}
	if err := r.initVulkan(); err != nil {
		return err
	}

	return r.renderLoop()
}

func (r *Renderer) initWindow() error {
	window, err := platform.NewWindow(r.config.Title, r.config.Width, r.config.Height)
	if err != nil {
		return initErr(err, "opening window")
	}
	r.window = window

	r.loader, err = core.CreateLoaderFromProcAddr(window.InstanceProcAddr())
	if err != nil {
		return initErr(err, "creating Vulkan loader")
	}

	return nil
}

func (r *Renderer) initVulkan() error {
	if err := r.createInstance(); err != nil {
		return err
	}
	if err := r.setupDebugMessenger(); err != nil {
		return err
	}
	if err := r.createSurface(); err != nil {
		return err
	}
	if err := r.pickPhysicalDevice(); err != nil {
		return err
	}
	if err := r.createLogicalDevice(); err != nil {
		return err
	}
	if err := r.createSwapchain(); err != nil {
		return err
	}
	if err := r.createImageViews(); err != nil {
		return err
	}
	if err := r.createRenderPass(); err != nil {
		return err
	}
	if err := r.createGraphicsPipeline(); err != nil {
		return err
	}
	if err := r.createFramebuffers(); err != nil {
		return err
	}
	if err := r.createCommandPool(); err != nil {
		return err
	}
	if err := r.createCommandBuffers(); err != nil {
		return err
	}
	return r.createSyncObjects()
}

func (r *Renderer) createSurface() error {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(r.instance)

	surface, err := vkng_sdl2.CreateSurface(r.instance, surfaceLoader, r.window.SDLWindow())
	if err != nil {
		return initErr(err, "creating window surface")
	}

	r.surface = surface
	return nil
}

func (r *Renderer) createSyncObjects() error {
	frames, err := newFrameSet(r.device, r.config.FramesInFlight, len(r.swapchain.images))
	// Partially built slots still need releasing on failure.
	r.frames = frames
	return err
}

// renderLoop polls the close signal once per iteration and otherwise
// pipelines frames through the synchronizer. No mid-frame cancellation:
// a frame that starts is carried through submit and present.
func (r *Renderer) renderLoop() error {
	start := hrtime.Now()
	frames := 0

	for !r.window.CloseRequested() {
		if err := r.frames.drawFrame(r); err != nil {
			return err
		}
		frames++
	}

	if frames > 0 {
		elapsed := hrtime.Since(start)
		r.log.Info("render loop finished",
			"frames", frames,
			"elapsed", elapsed.Round(time.Millisecond),
			"avgFrameTime", elapsed/time.Duration(frames))
	}

	return nil
}

// AcquireImage asks the presentation engine for the next image index.
// The index comes back immediately; imageAvailable signals when the image
// is actually safe to write.
func (r *Renderer) AcquireImage(imageAvailable core1_0.Semaphore) (int, error) {
	imageIndex, _, err := r.swapchain.handle.AcquireNextImage(common.NoTimeout, imageAvailable, nil)
	if err != nil {
		// A stale swapchain surfaces here too; without a recreation
		// path it is as fatal as any other failure.
		return 0, submitErr(err, "acquiring swapchain image")
	}
	return imageIndex, nil
}

// SubmitDraw submits the pre-recorded commands for imageIndex. Earlier
// pipeline stages run immediately; only the color-output stage waits for
// the image.
func (r *Renderer) SubmitDraw(imageIndex int, slot *frameSlot) error {
	_, err := r.graphicsQueue.Submit(slot.inFlight, []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{slot.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{r.commandBuffers[imageIndex]},
			SignalSemaphores: []core1_0.Semaphore{slot.renderFinished},
		},
	})
	if err != nil {
		return submitErr(err, "submitting draw commands")
	}
	return nil
}

// PresentImage queues the image for presentation once renderFinished
// signals.
func (r *Renderer) PresentImage(imageIndex int, renderFinished core1_0.Semaphore) error {
	_, err := r.swapchainExtension.QueuePresent(r.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{r.swapchain.handle},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil {
		return submitErr(err, "presenting image")
	}
	return nil
}

// cleanup tears everything down in reverse construction order. The
// frame set's own teardown waits for the device to go idle first, so no
// synchronization object is destroyed under outstanding GPU work.
func (r *Renderer) cleanup() {
	if r.frames != nil {
		if err := r.frames.destroy(r.device); err != nil {
			r.log.Warn("device idle-wait failed during teardown", "error", err)
		}
		r.frames = nil
	}

	if len(r.commandBuffers) > 0 {
		r.device.FreeCommandBuffers(r.commandBuffers)
		r.commandBuffers = nil
	}

	if r.commandPool != nil {
		r.commandPool.Destroy(nil)
		r.commandPool = nil
	}

	for _, framebuffer := range r.framebuffers {
		framebuffer.Destroy(nil)
	}
	r.framebuffers = nil

	if r.graphicsPipeline != nil {
		r.graphicsPipeline.Destroy(nil)
		r.graphicsPipeline = nil
	}

	if r.pipelineLayout != nil {
		r.pipelineLayout.Destroy(nil)
		r.pipelineLayout = nil
	}

	if r.renderPass != nil {
		r.renderPass.Destroy(nil)
		r.renderPass = nil
	}

	if r.swapchain != nil {
		r.swapchain.destroy()
		r.swapchain = nil
	}

	if r.device != nil {
		r.device.Destroy(nil)
		r.device = nil
	}

	if r.debugMessenger != nil {
		r.debugMessenger.Destroy(nil)
		r.debugMessenger = nil
	}

	if r.surface != nil {
		r.surface.Destroy(nil)
		r.surface = nil
	}

	if r.instance != nil {
		r.instance.Destroy(nil)
		r.instance = nil
	}

	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
}
