// Package mock provides test doubles for the inference package interfaces.
//
// Use [Loader] to verify which model specs a detector loads and to hand out
// scripted sessions. Use [Session] to inject per-call outputs and inspect the
// inputs that were submitted.
//
// Example:
//
//	sess := &mock.Session{Outputs: [][]float32{{0.9}}}
//	loader := &mock.Loader{Sessions: map[string]inference.Session{
//	    "melspectrogram.onnx": sess,
//	}}
package mock

import (
	"path/filepath"
	"sync"

	"github.com/harkaudio/hark/pkg/inference"
)

// Loader is a mock implementation of [inference.Loader].
type Loader struct {
	mu sync.Mutex

	// Sessions maps a model file base name to the session returned for it.
	// When no entry matches, a fresh default Session is returned.
	Sessions map[string]inference.Session

	// LoadErr, if non-nil, is returned by every Load call.
	LoadErr error

	// FailPaths lists base names for which Load returns a ModelLoadError.
	FailPaths []string

	// LoadCalls records every spec passed to Load, in order.
	LoadCalls []inference.Spec
}

// Load records the call and returns the configured session for the spec's
// base name.
func (l *Loader) Load(spec inference.Spec) (inference.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.LoadCalls = append(l.LoadCalls, spec)
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	base := filepath.Base(spec.Path)
	for _, p := range l.FailPaths {
		if p == base {
			return nil, &inference.ModelLoadError{Path: spec.Path, Err: inference.ErrSessionClosed}
		}
	}
	if s, ok := l.Sessions[base]; ok {
		return s, nil
	}
	return &Session{}, nil
}

// Ensure Loader implements inference.Loader at compile time.
var _ inference.Loader = (*Loader)(nil)

// Session is a mock implementation of [inference.Session] and
// [inference.StatefulSession].
type Session struct {
	mu sync.Mutex

	// Outputs is the sequence of outputs returned by successive Run calls.
	// When exhausted (or empty), Fallback is returned instead.
	Outputs [][]float32

	// Fallback is returned once Outputs is exhausted. Defaults to []float32{0}.
	Fallback []float32

	// RunFunc, when set, overrides Outputs/Fallback entirely.
	RunFunc func(input []float32) ([]float32, error)

	// RunErr, if non-nil, is returned by every Run call.
	RunErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// RunInputs records a copy of every input passed to Run.
	RunInputs [][]float32

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	next int
}

// Run records the input and returns the next scripted output.
func (s *Session) Run(input []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]float32, len(input))
	copy(cp, input)
	s.RunInputs = append(s.RunInputs, cp)
	if s.RunErr != nil {
		return nil, s.RunErr
	}
	if s.RunFunc != nil {
		return s.RunFunc(input)
	}
	if s.next < len(s.Outputs) {
		out := s.Outputs[s.next]
		s.next++
		return out, nil
	}
	if s.Fallback != nil {
		return s.Fallback, nil
	}
	return []float32{0}, nil
}

// Reset records the call and rewinds the scripted output sequence.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
	s.next = 0
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Ensure Session implements the inference interfaces at compile time.
var (
	_ inference.Session         = (*Session)(nil)
	_ inference.StatefulSession = (*Session)(nil)
)
