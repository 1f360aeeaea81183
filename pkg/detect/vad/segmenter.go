// Package vad implements the streaming speech-boundary segmenter.
//
// Every frame is appended to the utterance buffer and scored by a streaming
// VAD model. A hysteresis state machine with distinct onset and offset
// thresholds decides where the utterance ends: the silence clock only starts
// once speech has occurred and the probability has fallen below the offset
// threshold, so chatter around the decision boundary cannot cut a command
// short. A hard maximum recording duration bounds every capture.
//
// Time is derived from frame counts, not the wall clock, so scripted replays
// are fully deterministic.
package vad

import (
	"errors"
	"fmt"
	"time"

	"github.com/harkaudio/hark/pkg/audio"
	"github.com/harkaudio/hark/pkg/detect"
	"github.com/harkaudio/hark/pkg/inference"
)

const (
	// SampleRate is the audio rate the VAD model was trained on.
	SampleRate = 16000

	// FrameLength is the samples per ProcessFrame call (32 ms at 16 kHz).
	FrameLength = 512
)

// ErrNeedsReset is returned by ProcessFrame after a terminal event until the
// caller acknowledges it with Reset.
var ErrNeedsReset = errors.New("vad: terminal event pending, Reset before further frames")

// Status classifies the outcome of one ProcessFrame call.
type Status int

const (
	// StatusContinue means the capture is still in progress.
	StatusContinue Status = iota

	// StatusEnd means end-of-speech was detected; the result carries the
	// captured utterance.
	StatusEnd

	// StatusTimeout means the maximum recording duration elapsed; the result
	// carries whatever was buffered.
	StatusTimeout
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusEnd:
		return "end"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of processing one frame.
type Result struct {
	// Status reports whether the capture continues or how it terminated.
	Status Status

	// Probability is the model's speech probability for this frame.
	Probability float64

	// IsSpeech reports whether the probability cleared the onset threshold.
	IsSpeech bool

	// Audio holds the captured utterance on StatusEnd and StatusTimeout,
	// nil otherwise. Ownership transfers to the caller.
	Audio *audio.Buffer
}

// Config holds the parameters for a [Segmenter].
type Config struct {
	// ModelPath is the streaming VAD model file.
	ModelPath string

	// OnsetThreshold is the probability above which a frame counts as speech.
	// Range [0, 1].
	OnsetThreshold float64

	// OffsetThreshold is the probability below which a frame counts as
	// silence once speech has occurred. Must not exceed OnsetThreshold; the
	// gap between the two is the hysteresis band.
	OffsetThreshold float64

	// SilenceDuration is how long silence must persist after speech before
	// the utterance ends.
	SilenceDuration time.Duration

	// MinSpeechDuration guards against ending on a blip: the utterance only
	// ends once this much time has passed since speech began.
	MinSpeechDuration time.Duration

	// MaxRecordingDuration is the hard safety bound on a single capture.
	MaxRecordingDuration time.Duration
}

// DefaultConfig returns the segmenter defaults.
func DefaultConfig() Config {
	return Config{
		ModelPath:            "models/silero_vad.onnx",
		OnsetThreshold:       0.5,
		OffsetThreshold:      0.35,
		SilenceDuration:      700 * time.Millisecond,
		MinSpeechDuration:    200 * time.Millisecond,
		MaxRecordingDuration: 15 * time.Second,
	}
}

func (c Config) validate() error {
	switch {
	case c.OnsetThreshold < 0 || c.OnsetThreshold > 1:
		return &detect.ConfigError{Field: "onset_threshold",
			Reason: fmt.Sprintf("%v is outside [0, 1]", c.OnsetThreshold)}
	case c.OffsetThreshold < 0 || c.OffsetThreshold > 1:
		return &detect.ConfigError{Field: "offset_threshold",
			Reason: fmt.Sprintf("%v is outside [0, 1]", c.OffsetThreshold)}
	case c.OffsetThreshold > c.OnsetThreshold:
		return &detect.ConfigError{Field: "offset_threshold",
			Reason: "must not exceed onset_threshold"}
	case c.SilenceDuration < 0:
		return &detect.ConfigError{Field: "silence_duration", Reason: "must not be negative"}
	case c.MinSpeechDuration < 0:
		return &detect.ConfigError{Field: "min_speech_duration", Reason: "must not be negative"}
	case c.MaxRecordingDuration < 0:
		return &detect.ConfigError{Field: "max_recording_duration", Reason: "must not be negative"}
	}
	return nil
}

// ModelLoader creates the streaming VAD session for a [Segmenter]. The ort
// package's Runtime satisfies it; tests supply scripted sessions.
type ModelLoader interface {
	LoadVAD(path string) (inference.StatefulSession, error)
}

// Segmenter detects the boundaries of a command utterance. Construct with
// [NewSegmenter], feed frames with [Segmenter.ProcessFrame], and call
// [Segmenter.Reset] after every terminal event.
//
// A Segmenter owns its buffer and session exclusively and is not safe for
// concurrent use.
type Segmenter struct {
	cfg      Config
	sess     inference.StatefulSession
	frameDur time.Duration

	buf     *audio.Buffer
	scratch []float32

	elapsed           time.Duration
	hasSpeech         bool
	speechStart       time.Duration
	speechStartSample int
	silenceActive     bool
	silenceStart      time.Duration

	pendingReset bool
	released     bool
}

// NewSegmenter validates cfg and loads the VAD model through loader. Config
// validation happens before the model loads.
func NewSegmenter(cfg Config, loader ModelLoader) (*Segmenter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sess, err := loader.LoadVAD(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	return &Segmenter{
		cfg:      cfg,
		sess:     sess,
		frameDur: time.Duration(FrameLength) * time.Second / time.Duration(SampleRate),
		buf:      audio.NewBuffer(SampleRate),
		scratch:  make([]float32, FrameLength),
	}, nil
}

// FrameLength returns the required samples per frame.
func (s *Segmenter) FrameLength() int { return FrameLength }

// SampleRate returns the required sample rate in Hz.
func (s *Segmenter) SampleRate() int { return SampleRate }

// HasSpeech reports whether speech has been observed since the last Reset.
func (s *Segmenter) HasSpeech() bool { return s.hasSpeech }

// RecordingDuration returns how much audio has been consumed since the last
// Reset, derived from frame counts.
func (s *Segmenter) RecordingDuration() time.Duration { return s.elapsed }

// ProcessFrame appends the frame to the utterance buffer, scores it, and
// advances the boundary state machine. On [StatusEnd] and [StatusTimeout] the
// result carries the captured audio and the caller must Reset before feeding
// further frames.
func (s *Segmenter) ProcessFrame(frame []int16) (Result, error) {
	if s.released {
		return Result{}, detect.ErrReleased
	}
	if s.pendingReset {
		return Result{}, ErrNeedsReset
	}
	if len(frame) != FrameLength {
		return Result{}, &detect.FrameSizeError{Want: FrameLength, Got: len(frame)}
	}

	out, err := s.sess.Run(audio.Normalize(frame, s.scratch))
	if err != nil {
		return Result{}, fmt.Errorf("vad: inference: %w", err)
	}
	prob := float64(out[0])

	frameStart := s.elapsed
	startSample := s.buf.Len()
	s.buf.Append(frame)
	s.elapsed += s.frameDur

	isSpeech := prob > s.cfg.OnsetThreshold
	res := Result{Status: StatusContinue, Probability: prob, IsSpeech: isSpeech}

	if isSpeech {
		if !s.hasSpeech {
			s.hasSpeech = true
			s.speechStart = frameStart
			s.speechStartSample = startSample
		}
		s.silenceActive = false
	} else if s.hasSpeech && !s.silenceActive && prob < s.cfg.OffsetThreshold {
		// Silence before any speech never starts the clock, and a dip into
		// the hysteresis band (between offset and onset) neither starts nor
		// clears it.
		s.silenceActive = true
		s.silenceStart = frameStart
	}

	if s.elapsed >= s.cfg.MaxRecordingDuration {
		res.Status = StatusTimeout
		res.Audio = s.terminate(0)
		return res, nil
	}

	if s.silenceActive &&
		s.elapsed-s.silenceStart > s.cfg.SilenceDuration &&
		s.elapsed-s.speechStart >= s.cfg.MinSpeechDuration {
		res.Status = StatusEnd
		// End-of-speech captures trim the pre-speech prefix; timeouts hand
		// over everything buffered.
		res.Audio = s.terminate(s.speechStartSample)
	}
	return res, nil
}

// terminate hands the buffer from the given sample offset to the caller and
// arms the reset latch.
func (s *Segmenter) terminate(fromSample int) *audio.Buffer {
	s.pendingReset = true
	s.hasSpeech = false
	s.silenceActive = false
	taken := s.buf.Take()
	if fromSample <= 0 {
		return taken
	}
	return audio.NewBufferFromSamples(taken.Samples()[fromSample:], taken.SampleRate())
}

// Reset clears all transient state — buffer, timers, and the model's
// recurrent state — without reloading the session.
func (s *Segmenter) Reset() {
	s.buf.Clear()
	s.elapsed = 0
	s.hasSpeech = false
	s.speechStart = 0
	s.silenceActive = false
	s.silenceStart = 0
	s.pendingReset = false
	s.sess.Reset()
}

// Close releases the inference session. Idempotent and safe to call
// unconditionally from shutdown code; after Close the segmenter is terminal.
func (s *Segmenter) Close() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.sess.Close()
}
