package renderer

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
)

// The fakes model the GPU's half of the protocol: a fence is "in flight"
// from the moment a submission would signal it until the CPU observes it
// through a wait. Embedding the core interfaces keeps the fakes small;
// any method the synchronizer is not supposed to touch panics.

type fakeFence struct {
	core1_0.Fence

	name      string
	signaled  bool
	destroyed bool
	harness   *frameHarness
}

func (f *fakeFence) Wait(timeout time.Duration) (common.VkResult, error) {
	f.signaled = true
	delete(f.harness.inFlight, f)
	return core1_0.VKSuccess, nil
}

func (f *fakeFence) Destroy(callbacks *driver.AllocationCallbacks) {
	f.destroyed = true
	f.harness.events = append(f.harness.events, "destroy "+f.name)
}

type fakeSemaphore struct {
	core1_0.Semaphore

	name      string
	destroyed bool
	harness   *frameHarness
}

func (s *fakeSemaphore) Destroy(callbacks *driver.AllocationCallbacks) {
	s.destroyed = true
	s.harness.events = append(s.harness.events, "destroy "+s.name)
}

type fakeDevice struct {
	harness *frameHarness
	waitErr error
	idled   bool
}

func (d *fakeDevice) WaitForFences(waitForAll bool, timeout time.Duration, fences []core1_0.Fence) (common.VkResult, error) {
	if d.waitErr != nil {
		return core1_0.VKErrorDeviceLost, d.waitErr
	}
	for _, fence := range fences {
		fence.(*fakeFence).signaled = true
		delete(d.harness.inFlight, fence.(*fakeFence))
	}
	return core1_0.VKSuccess, nil
}

func (d *fakeDevice) ResetFences(fences []core1_0.Fence) (common.VkResult, error) {
	for _, fence := range fences {
		fence.(*fakeFence).signaled = false
	}
	return core1_0.VKSuccess, nil
}

func (d *fakeDevice) WaitIdle() (common.VkResult, error) {
	d.idled = true
	d.harness.events = append(d.harness.events, "wait-idle")
	return core1_0.VKSuccess, nil
}

// frameHarness owns the shared bookkeeping the fakes report into.
type frameHarness struct {
	t *testing.T

	inFlight    map[*fakeFence]bool
	maxInFlight int
	events      []string
}

func newFrameHarness(t *testing.T) *frameHarness {
	return &frameHarness{t: t, inFlight: map[*fakeFence]bool{}}
}

func (h *frameHarness) newFrameSet(slotCount, imageCount int) (*frameSet, *fakeDevice) {
	device := &fakeDevice{harness: h}
	frames := &frameSet{
		device:         device,
		imagesInFlight: make([]core1_0.Fence, imageCount),
	}
	for i := 0; i < slotCount; i++ {
		frames.slots = append(frames.slots, frameSlot{
			imageAvailable: &fakeSemaphore{name: fmt.Sprintf("slot%d.imageAvailable", i), harness: h},
			renderFinished: &fakeSemaphore{name: fmt.Sprintf("slot%d.renderFinished", i), harness: h},
			// Slots start Idle with a pre-signaled fence.
			inFlight: &fakeFence{name: fmt.Sprintf("slot%d.fence", i), signaled: true, harness: h},
		})
	}
	return frames, device
}

// scriptedPresenter feeds a fixed sequence of acquired image indices to
// the synchronizer and checks the image-binding safety property at every
// submission.
type scriptedPresenter struct {
	harness *frameHarness

	acquires []int
	next     int

	submitted  []int
	presented  []int
	lastSubmit map[int]*fakeFence

	acquireErr error
	submitErr  error
	presentErr error
}

func newScriptedPresenter(h *frameHarness, acquires []int) *scriptedPresenter {
	return &scriptedPresenter{
		harness:    h,
		acquires:   acquires,
		lastSubmit: map[int]*fakeFence{},
	}
}

func (p *scriptedPresenter) AcquireImage(imageAvailable core1_0.Semaphore) (int, error) {
	if p.acquireErr != nil {
		return 0, p.acquireErr
	}
	if p.next >= len(p.acquires) {
		p.harness.t.Fatal("acquire called past the end of the script")
	}
	index := p.acquires[p.next]
	p.next++
	return index, nil
}

func (p *scriptedPresenter) SubmitDraw(imageIndex int, slot *frameSlot) error {
	if p.submitErr != nil {
		return p.submitErr
	}

	// No submission may target an image whose previously bound fence the
	// CPU has not yet observed signaled.
	if prev := p.lastSubmit[imageIndex]; prev != nil && p.harness.inFlight[prev] {
		p.harness.t.Errorf("image %d submitted while fence %s from a prior use is still in flight", imageIndex, prev.name)
	}

	fence := slot.inFlight.(*fakeFence)
	if fence.signaled {
		p.harness.t.Errorf("image %d submitted with an unreset slot fence %s", imageIndex, fence.name)
	}

	p.lastSubmit[imageIndex] = fence
	p.harness.inFlight[fence] = true
	if len(p.harness.inFlight) > p.harness.maxInFlight {
		p.harness.maxInFlight = len(p.harness.inFlight)
	}

	p.submitted = append(p.submitted, imageIndex)
	return nil
}

func (p *scriptedPresenter) PresentImage(imageIndex int, renderFinished core1_0.Semaphore) error {
	if p.presentErr != nil {
		return p.presentErr
	}
	if len(p.submitted) == 0 || p.submitted[len(p.submitted)-1] != imageIndex {
		p.harness.t.Errorf("present of image %d does not follow its submission", imageIndex)
	}
	p.presented = append(p.presented, imageIndex)
	return nil
}

func runFrames(t *testing.T, frames *frameSet, p *scriptedPresenter, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if err := frames.drawFrame(p); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestDrawFrameBindingScenario(t *testing.T) {
	// Two slots, three images, acquisition order [0 1 2 0 1]: the cursor
	// alternates 0,1,0,1,0 and the final binding must map each image to
	// the fence of the slot that last wrote it.
	h := newFrameHarness(t)
	frames, _ := h.newFrameSet(2, 3)
	p := newScriptedPresenter(h, []int{0, 1, 2, 0, 1})

	runFrames(t, frames, p, 5)

	wantBindings := []core1_0.Fence{
		frames.slots[1].inFlight,
		frames.slots[0].inFlight,
		frames.slots[0].inFlight,
	}
	for image, want := range wantBindings {
		if frames.imagesInFlight[image] != want {
			t.Errorf("image %d bound to %v, want %v", image, frames.imagesInFlight[image], want)
		}
	}

	if frames.cursor != 1 {
		t.Errorf("cursor = %d after 5 frames, want 1", frames.cursor)
	}
}

func TestDrawFrameBoundedInFlight(t *testing.T) {
	h := newFrameHarness(t)
	frames, _ := h.newFrameSet(2, 4)

	// Repeats and out-of-order indices included deliberately.
	acquires := []int{0, 1, 2, 3, 0, 0, 2, 1, 3, 2, 0, 1}
	p := newScriptedPresenter(h, acquires)

	runFrames(t, frames, p, len(acquires))

	if h.maxInFlight > 2 {
		t.Errorf("observed %d frames in flight, want at most 2", h.maxInFlight)
	}

	for i, image := range p.submitted {
		if image != acquires[i] {
			t.Fatalf("submission %d targeted image %d, want %d", i, image, acquires[i])
		}
	}
	if len(p.presented) != len(acquires) {
		t.Errorf("presented %d frames, want %d", len(p.presented), len(acquires))
	}
}

func TestDrawFrameSlotCountIndependentOfImageCount(t *testing.T) {
	// More slots than images forces immediate image reuse across slots;
	// the binding map is what keeps it safe. The safety assertions live
	// in the presenter.
	h := newFrameHarness(t)
	frames, _ := h.newFrameSet(3, 2)
	p := newScriptedPresenter(h, []int{0, 1, 0, 1, 0, 1, 0})

	runFrames(t, frames, p, 7)

	if h.maxInFlight > 3 {
		t.Errorf("observed %d frames in flight, want at most 3", h.maxInFlight)
	}
}

func TestDrawFrameErrorsAbortTheFrame(t *testing.T) {
	acquireErr := errors.New("acquire rejected")
	presentErr := errors.New("present rejected")

	t.Run("acquire", func(t *testing.T) {
		h := newFrameHarness(t)
		frames, _ := h.newFrameSet(2, 3)
		p := newScriptedPresenter(h, nil)
		p.acquireErr = acquireErr

		err := frames.drawFrame(p)
		if !errors.Is(err, acquireErr) {
			t.Fatalf("drawFrame returned %v, want the acquire error", err)
		}
		if frames.cursor != 0 {
			t.Errorf("cursor advanced to %d on a failed frame", frames.cursor)
		}
	})

	t.Run("present", func(t *testing.T) {
		h := newFrameHarness(t)
		frames, _ := h.newFrameSet(2, 3)
		p := newScriptedPresenter(h, []int{0})
		p.presentErr = presentErr

		err := frames.drawFrame(p)
		if !errors.Is(err, presentErr) {
			t.Fatalf("drawFrame returned %v, want the present error", err)
		}
		if frames.cursor != 0 {
			t.Errorf("cursor advanced to %d on a failed frame", frames.cursor)
		}
	})

	t.Run("fence wait", func(t *testing.T) {
		h := newFrameHarness(t)
		frames, device := h.newFrameSet(2, 3)
		device.waitErr = errors.New("device lost")

		err := frames.drawFrame(newScriptedPresenter(h, nil))
		if !errors.Is(err, ErrSubmission) {
			t.Fatalf("drawFrame returned %v, want an ErrSubmission mark", err)
		}
	})
}

func TestFrameSetDestroyWaitsForIdleFirst(t *testing.T) {
	h := newFrameHarness(t)
	frames, device := h.newFrameSet(2, 3)

	if err := frames.destroy(device); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	if !device.idled {
		t.Fatal("destroy never waited for the device to go idle")
	}
	if len(h.events) == 0 || h.events[0] != "wait-idle" {
		t.Fatalf("event order %v, want wait-idle before any destruction", h.events)
	}
	// 2 slots, 3 primitives each, plus the idle-wait.
	if len(h.events) != 7 {
		t.Fatalf("got %d teardown events, want 7: %v", len(h.events), h.events)
	}
}
