// Package inference defines the opaque model-session contract consumed by the
// Hark detectors.
//
// A [Session] is a pure tensor-in/tensor-out function: the detectors produce
// correctly shaped float32 inputs and slice the outputs; everything between is
// a black box fixed by the model file. The [Loader] factory hides which
// runtime backs the session, so detectors can be driven by the ONNX Runtime
// implementation in the ort subpackage or by scripted fakes from the mock
// subpackage.
package inference

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by Run after a session has been closed.
var ErrSessionClosed = errors.New("inference: session closed")

// ModelLoadError indicates that a model file is missing or could not be
// parsed. It is a hard construction failure, never a degraded mode.
type ModelLoadError struct {
	// Path is the model file that failed to load.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("inference: load model %q: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Spec describes the model a [Loader] should load and the tensor layout the
// caller will use. Shapes are fixed by the model file; the spec only states
// what the caller produces and expects back.
type Spec struct {
	// Path is the model file location.
	Path string

	// InputName and OutputName are the graph tensor names. Both default to the
	// conventional "input"/"output" when empty.
	InputName  string
	OutputName string

	// InputShape is the full input tensor shape including the batch dimension,
	// e.g. [1, 1280]. Run flattens its input in row-major order to this shape.
	InputShape []int64
}

// Session is a loaded model ready for repeated inference calls.
//
// A Session is not safe for concurrent use; each detector owns its sessions
// exclusively and runs them from a single goroutine.
type Session interface {
	// Run executes one inference call. The input is the row-major flattening
	// of the spec's input shape; the output is the row-major flattening of the
	// model's output tensor. Returns [ErrSessionClosed] after Close.
	Run(input []float32) ([]float32, error)

	// Close releases the session's native resources. Idempotent.
	Close() error
}

// StatefulSession is a [Session] that carries recurrent state between Run
// calls (e.g. a streaming VAD model). Reset clears that state without
// reloading the model.
type StatefulSession interface {
	Session
	Reset()
}

// Loader creates sessions from model files.
//
// Implementations must be safe for concurrent use; detectors may be
// constructed in parallel.
type Loader interface {
	// Load opens the model described by spec. Returns a [*ModelLoadError] if
	// the file is missing or corrupt.
	Load(spec Spec) (Session, error)
}
