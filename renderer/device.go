package renderer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
)

// createLogicalDevice builds the logical device over the selected
// candidate's queue family assignment and fetches the graphics and
// presentation queues. When both roles land on the same family only one
// queue is created and both handles refer to it.
func (r *Renderer) createLogicalDevice() error {
	indices := r.queueIndices

	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Keeps the device compatible with Vulkan portability, necessary on
	// mobile and mac.
	extensions, _, err := r.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return initErr(err, "enumerating device extensions")
	}

	if _, supported := extensions[khr_portability_subset.ExtensionName]; supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	r.device, _, err = r.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return initErr(err, "creating logical device")
	}

	r.graphicsQueue = r.device.GetQueue(*indices.GraphicsFamily, 0)
	r.presentQueue = r.device.GetQueue(*indices.PresentFamily, 0)
	return nil
}
