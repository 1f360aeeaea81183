// Package source defines the audio-source contract for the Hark pipeline and
// provides its two implementations:
//
//   - [Live] — captures frames from the default hardware input device.
//   - [Scripted] — replays a pre-loaded sample buffer, either paced in real
//     time or emitted as fast as the consumer accepts, for deterministic tests.
//
// A source delivers fixed-length [audio.Frame] values to a single registered
// callback, one at a time, from a dedicated emission goroutine. Frame delivery
// is back-pressured: the next frame is not produced until the callback returns.
//
// This package lives under pkg/ because external code (alternative capture
// backends) is expected to implement [Source].
package source

import (
	"errors"

	"github.com/harkaudio/hark/pkg/audio"
)

// ErrNoData is returned by Start when a scripted source has no samples buffered.
var ErrNoData = errors.New("source: no audio data buffered")

// ErrReleased is returned when a source is used after Close.
var ErrReleased = errors.New("source: released")

// ErrRunning is returned by OnFrame while the source is running. The frame
// callback cannot be swapped mid-stream; stop the source, register the new
// callback, and start again.
var ErrRunning = errors.New("source: running, stop before changing the frame callback")

// Source produces a sequential, back-pressured stream of fixed-size audio
// frames.
//
// A Source is not safe for concurrent configuration, but Stop and Close may be
// called from any goroutine — including from within the frame callback — and
// never deadlock. Once Stop returns, no new callback invocation begins; an
// invocation already in flight may still complete (this mirrors a hardware
// read returning after stop was requested).
type Source interface {
	// Start begins frame delivery. Starting an already running source is a
	// no-op returning nil. Returns [ErrReleased] after Close, and [ErrNoData]
	// when there is nothing to play (scripted sources only).
	Start() error

	// Stop halts frame delivery. Safe to call from any goroutine and
	// idempotent; it never fails.
	Stop()

	// OnFrame registers cb as the single frame callback. Registering while the
	// source is running returns [ErrRunning]; registering after Close returns
	// [ErrReleased]. A nil cb clears the registration.
	OnFrame(cb func(audio.Frame)) error

	// SampleRate returns the sample rate of emitted frames in Hz.
	SampleRate() int

	// FrameLength returns the number of samples per emitted frame.
	FrameLength() int

	// IsRunning reports whether the emission loop is active.
	IsRunning() bool

	// Close stops the source and releases its resources. Idempotent; shutdown
	// code may call it unconditionally.
	Close() error
}
