// Package detect holds the error taxonomy shared by the Hark detectors
// (pkg/detect/wake and pkg/detect/vad).
//
// All detector errors are synchronous, local, and non-corrupting: a rejected
// ProcessFrame leaves the detector's internal buffers exactly as they were.
// Construction errors ([ConfigError], [inference.ModelLoadError]) are fatal;
// [FrameSizeError] is a programmer error; [ErrReleased] flags use after Close.
package detect

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a detector is used after Close.
var ErrReleased = errors.New("detect: released")

// ConfigError indicates an invalid configuration value at construction.
// Construction fails before any inference session is loaded.
type ConfigError struct {
	// Field names the offending configuration field.
	Field string

	// Reason describes the constraint that was violated.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("detect: config %s: %s", e.Field, e.Reason)
}

// FrameSizeError indicates a frame of the wrong length was passed to
// ProcessFrame. Detector state is unaffected.
type FrameSizeError struct {
	// Want is the detector's required frame length in samples.
	Want int

	// Got is the length of the rejected frame.
	Got int
}

func (e *FrameSizeError) Error() string {
	return fmt.Sprintf("detect: frame must be %d samples, got %d", e.Want, e.Got)
}
