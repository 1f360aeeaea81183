// Package ort backs the inference interfaces with ONNX Runtime via the
// github.com/yalue/onnxruntime_go binding.
//
// A [Runtime] owns the process-wide ONNX Runtime environment and acts as the
// [inference.Loader] for the stateless wake-word cascade stages. The streaming
// Silero VAD model, which carries recurrent state between calls, is exposed
// separately as [VADSession].
package ort

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/harkaudio/hark/pkg/inference"
)

// Runtime wraps the ONNX Runtime environment. Create one per process with
// [NewRuntime] and release it with Close after all sessions are closed.
//
// Runtime is safe for concurrent use.
type Runtime struct {
	mu     sync.Mutex
	closed bool
}

// Ensure Runtime implements inference.Loader at compile time.
var _ inference.Loader = (*Runtime)(nil)

// NewRuntime initialises the ONNX Runtime environment. libraryPath points at
// the onnxruntime shared library; leave it empty to use the platform default
// search path.
func NewRuntime(libraryPath string) (*Runtime, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("ort: initialise environment: %w", err)
		}
	}
	return &Runtime{}, nil
}

// Load opens the model described by spec as a stateless session.
func (r *Runtime) Load(spec inference.Spec) (inference.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, inference.ErrSessionClosed
	}
	if _, err := os.Stat(spec.Path); err != nil {
		return nil, &inference.ModelLoadError{Path: spec.Path, Err: err}
	}

	inName, outName := tensorNames(spec)
	sess, err := ort.NewDynamicAdvancedSession(spec.Path,
		[]string{inName}, []string{outName}, nil)
	if err != nil {
		return nil, &inference.ModelLoadError{Path: spec.Path, Err: err}
	}

	return &session{
		sess:  sess,
		shape: ort.NewShape(spec.InputShape...),
	}, nil
}

// Close destroys the ONNX Runtime environment. Idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return ort.DestroyEnvironment()
}

func tensorNames(spec inference.Spec) (in, out string) {
	in, out = spec.InputName, spec.OutputName
	if in == "" {
		in = "input"
	}
	if out == "" {
		out = "output"
	}
	return in, out
}

// session is a stateless ONNX session implementing [inference.Session].
type session struct {
	sess   *ort.DynamicAdvancedSession
	shape  ort.Shape
	closed bool
}

func (s *session) Run(input []float32) ([]float32, error) {
	if s.closed {
		return nil, inference.ErrSessionClosed
	}

	in, err := ort.NewTensor(s.shape, input)
	if err != nil {
		return nil, fmt.Errorf("ort: build input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.sess.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("ort: run session: %w", err)
	}
	outT := outputs[0].(*ort.Tensor[float32])
	defer outT.Destroy()

	data := outT.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sess.Destroy()
}
