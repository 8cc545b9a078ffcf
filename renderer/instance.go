package renderer

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

func (r *Renderer) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    "Triangle",
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_0,
	}

	// The windowing system dictates the surface extensions.
	windowExtensions := r.window.InstanceExtensions()
	extensions, _, err := r.loader.AvailableExtensions()
	if err != nil {
		return initErr(err, "enumerating instance extensions")
	}

	for _, ext := range windowExtensions {
		if _, hasExt := extensions[ext]; !hasExt {
			return initErr(errors.Newf("required window-system extension %s is not available", ext), "creating instance")
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if enableValidationLayers {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	if _, supported := extensions[khr_portability_enumeration.ExtensionName]; supported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	layers, _, err := r.loader.AvailableLayers()
	if err != nil {
		return initErr(err, "enumerating instance layers")
	}

	if enableValidationLayers {
		for _, layer := range validationLayers {
			if _, hasValidation := layers[layer]; !hasValidation {
				return initErr(errors.Newf("validation layer %s is not available, install the LunarG Vulkan SDK", layer), "creating instance")
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Chain a messenger create info so instance creation and
		// destruction are covered too.
		instanceOptions.Next = r.debugMessengerOptions()
	}

	r.instance, _, err = r.loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return initErr(err, "creating instance")
	}

	return nil
}

func (r *Renderer) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityVerbose | ext_debug_utils.SeverityInfo | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityError,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    r.logDebug,
	}
}

func (r *Renderer) setupDebugMessenger() error {
	if !enableValidationLayers {
		return nil
	}

	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(r.instance)
	r.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(r.instance, nil, r.debugMessengerOptions())
	if err != nil {
		return initErr(err, "creating debug messenger")
	}

	return nil
}

// logDebug forwards every diagnostic message to the structured logger.
// It always returns false: the triggering Vulkan call is never aborted.
func (r *Renderer) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelDebug
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		level = slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		level = slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		level = slog.LevelInfo
	}

	r.log.Log(context.Background(), level, data.Message, "source", "vulkan", "type", msgType.String())
	return false
}
