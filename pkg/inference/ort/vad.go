package ort

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/harkaudio/hark/pkg/inference"
)

// LoadVAD loads the streaming Silero VAD model at path with the segmenter's
// native window (512 samples at 16 kHz). It satisfies the segmenter's
// ModelLoader interface.
func (r *Runtime) LoadVAD(path string) (inference.StatefulSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, inference.ErrSessionClosed
	}
	return NewVADSession(path, 16000, 512)
}

// Silero VAD graph constants. The model takes a 512-sample window at 16 kHz
// plus its recurrent state and returns a speech probability and the next state.
const (
	vadStateLen = 2 * 1 * 128
)

// VADSession is a streaming Silero VAD session. It holds the model's recurrent
// state internally, so callers only see one probability per audio window; Reset
// clears the state between utterances.
//
// VADSession implements [inference.StatefulSession]. Not safe for concurrent use.
type VADSession struct {
	sess       *ort.DynamicAdvancedSession
	state      []float32
	sampleRate int64
	windowSize int
	closed     bool
}

// Ensure VADSession implements the stateful session interface at compile time.
var _ inference.StatefulSession = (*VADSession)(nil)

// NewVADSession loads the Silero VAD model at path, expecting windowSize-sample
// input at sampleRate. Returns [*inference.ModelLoadError] on a missing or
// corrupt file.
func NewVADSession(path string, sampleRate, windowSize int) (*VADSession, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &inference.ModelLoadError{Path: path, Err: err}
	}
	sess, err := ort.NewDynamicAdvancedSession(path,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"}, nil)
	if err != nil {
		return nil, &inference.ModelLoadError{Path: path, Err: err}
	}
	return &VADSession{
		sess:       sess,
		state:      make([]float32, vadStateLen),
		sampleRate: int64(sampleRate),
		windowSize: windowSize,
	}, nil
}

// Run feeds one normalized audio window through the model and returns a
// single-element slice holding the speech probability.
func (v *VADSession) Run(input []float32) ([]float32, error) {
	if v.closed {
		return nil, inference.ErrSessionClosed
	}
	if len(input) != v.windowSize {
		return nil, fmt.Errorf("ort: vad window must be %d samples, got %d", v.windowSize, len(input))
	}

	inT, err := ort.NewTensor(ort.NewShape(1, int64(v.windowSize)), input)
	if err != nil {
		return nil, fmt.Errorf("ort: build vad input tensor: %w", err)
	}
	defer inT.Destroy()

	stateT, err := ort.NewTensor(ort.NewShape(2, 1, 128), v.state)
	if err != nil {
		return nil, fmt.Errorf("ort: build vad state tensor: %w", err)
	}
	defer stateT.Destroy()

	srT, err := ort.NewTensor(ort.NewShape(1), []int64{v.sampleRate})
	if err != nil {
		return nil, fmt.Errorf("ort: build vad rate tensor: %w", err)
	}
	defer srT.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := v.sess.Run([]ort.Value{inT, stateT, srT}, outputs); err != nil {
		return nil, fmt.Errorf("ort: run vad session: %w", err)
	}
	probT := outputs[0].(*ort.Tensor[float32])
	defer probT.Destroy()
	nextT := outputs[1].(*ort.Tensor[float32])
	defer nextT.Destroy()

	copy(v.state, nextT.GetData())
	return []float32{probT.GetData()[0]}, nil
}

// Reset clears the recurrent state without reloading the model.
func (v *VADSession) Reset() {
	for i := range v.state {
		v.state[i] = 0
	}
}

// Close destroys the underlying session. Idempotent.
func (v *VADSession) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	return v.sess.Destroy()
}
