package renderer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// deviceExtensions lists the device extensions every candidate must
// advertise to qualify.
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// QueueFamilyIndices is the queue family assignment for a candidate
// device. Both indices must be present for the assignment to be usable;
// they may refer to the same family.
type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// findQueueFamilies scans the family table in index order and keeps the
// first graphics-capable index and, independently, the first
// present-capable index. The scan stops as soon as both are set. This is
// a greedy first-fit, not an optimal assignment; the resulting selection
// is part of the observable behavior and must stay this way.
func findQueueFamilies(families []core1_0.QueueFamilyProperties, supportsPresent func(familyIndex int) (bool, error)) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}

	for familyIdx, family := range families {
		if indices.GraphicsFamily == nil && (family.QueueFlags&core1_0.QueueGraphics) != 0 {
			index := familyIdx
			indices.GraphicsFamily = &index
		}

		if indices.PresentFamily == nil {
			supported, err := supportsPresent(familyIdx)
			if err != nil {
				return indices, err
			}
			if supported {
				index := familyIdx
				indices.PresentFamily = &index
			}
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

// missingExtensions returns the required names absent from the advertised
// set, in the order they were required.
func missingExtensions[T any](required []string, available map[string]T) []string {
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// suitableCandidate is the selection predicate: a valid queue family
// assignment, no missing device extensions, and at least one surface
// format and one present mode.
func suitableCandidate(indices QueueFamilyIndices, missing []string, support swapchainSupport) bool {
	return indices.IsComplete() &&
		len(missing) == 0 &&
		len(support.formats) > 0 &&
		len(support.presentModes) > 0
}

func (r *Renderer) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	familyPtrs := device.QueueFamilyProperties()
	families := make([]core1_0.QueueFamilyProperties, len(familyPtrs))
	for i, family := range familyPtrs {
		families[i] = *family
	}
	return findQueueFamilies(families, func(familyIndex int) (bool, error) {
		supported, _, err := r.surface.PhysicalDeviceSurfaceSupport(device, familyIndex)
		return supported, err
	})
}

// pickPhysicalDevice selects the first candidate in enumeration order
// that satisfies the predicate. No scoring; ties go to enumeration
// order.
func (r *Renderer) pickPhysicalDevice() error {
	physicalDevices, _, err := r.instance.EnumeratePhysicalDevices()
	if err != nil {
		return initErr(err, "enumerating physical devices")
	}

	for _, device := range physicalDevices {
		indices, err := r.findQueueFamilies(device)
		if err != nil {
			return initErr(err, "querying queue families")
		}

		extensions, _, err := device.EnumerateDeviceExtensionProperties()
		if err != nil {
			return initErr(err, "enumerating device extensions")
		}
		missing := missingExtensions(deviceExtensions, extensions)

		var support swapchainSupport
		if len(missing) == 0 {
			support, err = r.querySwapchainSupport(device)
			if err != nil {
				return initErr(err, "querying surface support")
			}
		}

		if suitableCandidate(indices, missing, support) {
			r.physicalDevice = device
			r.queueIndices = indices
			r.log.Info("physical device selected",
				"graphicsFamily", *indices.GraphicsFamily,
				"presentFamily", *indices.PresentFamily)
			return nil
		}
	}

	return ErrNoSuitableDevice
}
