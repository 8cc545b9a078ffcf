package renderer

import "github.com/cockroachdb/errors"

// The renderer distinguishes two failure classes and treats both as
// fatal: there is no retry or degraded mode, a session either fully
// succeeds or the process exits.
var (
	// ErrInitialization marks every failure before the render loop has
	// started: missing extensions or layers, device selection, and
	// creation of any Vulkan object.
	ErrInitialization = errors.New("renderer initialization failed")

	// ErrSubmission marks queue submission or presentation failures
	// after the loop has started.
	ErrSubmission = errors.New("queue submission failed")

	// ErrNoSuitableDevice reports that no enumerated GPU satisfied the
	// graphics, presentation, and extension requirements.
	ErrNoSuitableDevice = errors.Mark(errors.New("no suitable GPU found"), ErrInitialization)
)

func initErr(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrInitialization)
}

func submitErr(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrSubmission)
}
