//go:build release

package renderer

const enableValidationLayers = false
