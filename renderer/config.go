package renderer

import "github.com/go-gl/mathgl/mgl32"

// Config carries the startup parameters of the renderer. It is read once
// during initialization and never consulted again.
type Config struct {
	// Title and size of the window to open.
	Title  string
	Width  int
	Height int

	// ShaderDir is the directory containing the compiled SPIR-V blobs
	// for the two shader stages (triangle.vert.spv, triangle.frag.spv).
	ShaderDir string

	// ClearColor is the RGBA color the color attachment is cleared to at
	// the start of every frame.
	ClearColor mgl32.Vec4

	// FramesInFlight is the number of frame slots the synchronizer
	// rotates through, bounding the CPU's lead over the GPU.
	FramesInFlight int
}

// DefaultConfig returns the configuration the binary starts from.
func DefaultConfig() Config {
	return Config{
		Title:          "Vulkan",
		Width:          800,
		Height:         600,
		ShaderDir:      "shaders",
		ClearColor:     mgl32.Vec4{0, 0, 0, 1},
		FramesInFlight: 2,
	}
}
