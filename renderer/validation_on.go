//go:build !release

package renderer

// Validation layers and the debug messenger ride along in development
// builds. Build with -tags release to strip them.
const enableValidationLayers = true
