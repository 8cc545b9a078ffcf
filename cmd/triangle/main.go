package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/google/uuid"

	"vulkan-triangle/renderer"
)

func init() {
	// SDL and the Vulkan loader must stay on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	config := renderer.DefaultConfig()

	flag.StringVar(&config.Title, "title", config.Title, "window title")
	flag.IntVar(&config.Width, "width", config.Width, "window width in pixels")
	flag.IntVar(&config.Height, "height", config.Height, "window height in pixels")
	flag.StringVar(&config.ShaderDir, "shaders", config.ShaderDir, "directory containing compiled SPIR-V shaders")
	flag.IntVar(&config.FramesInFlight, "frames-in-flight", config.FramesInFlight, "number of frames the CPU may run ahead of the GPU")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("session", uuid.NewString())

	if err := renderer.New(config, log).Run(); err != nil {
		log.Error("renderer failed", "error", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
