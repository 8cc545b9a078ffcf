package renderer

import (
	"time"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// fenceWaiter is the slice of core1_0.Device the frame synchronizer
// needs for CPU-side fence operations.
type fenceWaiter interface {
	WaitForFences(waitForAll bool, timeout time.Duration, fences []core1_0.Fence) (common.VkResult, error)
	ResetFences(fences []core1_0.Fence) (common.VkResult, error)
}

// deviceIdler blocks until the GPU has drained all submitted work.
type deviceIdler interface {
	WaitIdle() (common.VkResult, error)
}

// presenter is the GPU-facing half of a frame: acquire an image, submit
// the pre-recorded commands for it, hand it to the presentation engine.
// The renderer implements it against the real swapchain and queues; tests
// drive the synchronizer with a scripted one.
type presenter interface {
	AcquireImage(imageAvailable core1_0.Semaphore) (int, error)
	SubmitDraw(imageIndex int, slot *frameSlot) error
	PresentImage(imageIndex int, renderFinished core1_0.Semaphore) error
}

// frameSlot bundles the synchronization primitives for one of the
// concurrently outstanding frames. The fence starts signaled so the first
// pass through a slot never blocks on a phantom prior use.
type frameSlot struct {
	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore
	inFlight       core1_0.Fence
}

// frameSet drives the per-frame acquire/submit/present protocol. It owns
// the K rotating frame slots, the image-to-fence binding, and the cursor.
//
// The slot count K and the swapchain image count N are independent, so a
// slot index never identifies an image. imagesInFlight is the explicit
// binding between the two: imagesInFlight[i] is the fence of the slot
// whose submission last wrote image i, or nil. Guarding only by slot
// would let two overlapping submissions target one image whenever K < N
// or acquisition returns indices out of rotation order.
type frameSet struct {
	device fenceWaiter

	slots          []frameSlot
	imagesInFlight []core1_0.Fence
	cursor         int
}

// newFrameSet creates slotCount frame slots against imageCount swapchain
// images. Every fence is created pre-signaled.
func newFrameSet(device core1_0.Device, slotCount, imageCount int) (*frameSet, error) {
	frames := &frameSet{
		device:         device,
		imagesInFlight: make([]core1_0.Fence, imageCount),
	}

	for i := 0; i < slotCount; i++ {
		imageAvailable, _, err := device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return frames, initErr(err, "creating image-available semaphore")
		}

		renderFinished, _, err := device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			imageAvailable.Destroy(nil)
			return frames, initErr(err, "creating render-finished semaphore")
		}

		inFlight, _, err := device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			renderFinished.Destroy(nil)
			imageAvailable.Destroy(nil)
			return frames, initErr(err, "creating in-flight fence")
		}

		frames.slots = append(frames.slots, frameSlot{
			imageAvailable: imageAvailable,
			renderFinished: renderFinished,
			inFlight:       inFlight,
		})
	}

	return frames, nil
}

// drawFrame runs one iteration of the frame protocol. The two fence waits
// together bound outstanding GPU work to the slot count and keep any
// image from being written by two overlapping submissions.
func (fs *frameSet) drawFrame(p presenter) error {
	slot := &fs.slots[fs.cursor]
	slotFence := []core1_0.Fence{slot.inFlight}

	// The GPU must be done with this slot's previous frame before its
	// semaphores and fence are reused.
	if _, err := fs.device.WaitForFences(true, common.NoTimeout, slotFence); err != nil {
		return submitErr(err, "waiting for frame slot fence")
	}

	imageIndex, err := p.AcquireImage(slot.imageAvailable)
	if err != nil {
		return err
	}

	// A different slot may still be rendering to this image; its fence,
	// not ours, proves the image is free.
	if bound := fs.imagesInFlight[imageIndex]; bound != nil {
		if _, err := bound.Wait(common.NoTimeout); err != nil {
			return submitErr(err, "waiting for bound image fence")
		}
	}
	fs.imagesInFlight[imageIndex] = slot.inFlight

	// Fences never self-clear; unsignal before the submission that will
	// signal it again.
	if _, err := fs.device.ResetFences(slotFence); err != nil {
		return submitErr(err, "resetting frame slot fence")
	}

	if err := p.SubmitDraw(imageIndex, slot); err != nil {
		return err
	}

	if err := p.PresentImage(imageIndex, slot.renderFinished); err != nil {
		return err
	}

	fs.cursor = (fs.cursor + 1) % len(fs.slots)
	return nil
}

// destroy blocks until the device is fully idle and then releases every
// slot's primitives. Destroying a fence or semaphore the GPU may still
// signal is undefined behavior, so the idle-wait is not optional.
func (fs *frameSet) destroy(device deviceIdler) error {
	var idleErr error
	if device != nil {
		_, idleErr = device.WaitIdle()
	}

	for _, slot := range fs.slots {
		if slot.inFlight != nil {
			slot.inFlight.Destroy(nil)
		}
		if slot.renderFinished != nil {
			slot.renderFinished.Destroy(nil)
		}
		if slot.imageAvailable != nil {
			slot.imageAvailable.Destroy(nil)
		}
	}
	fs.slots = nil

	return idleErr
}
