package source

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/harkaudio/hark/pkg/audio"
)

// Pacing selects how a [Scripted] source spaces its frames.
type Pacing int

const (
	// PacingRealtime sleeps for one frame duration between frames, matching
	// the timing of a live microphone.
	PacingRealtime Pacing = iota

	// PacingFast emits frames as fast as the callback accepts them. Replays
	// are then fully deterministic: tests assert on frame counts, not time.
	PacingFast
)

// ScriptedConfig configures a [Scripted] source. The zero value is not valid;
// use [DefaultScriptedConfig] as a starting point.
type ScriptedConfig struct {
	// SampleRate of the buffered samples in Hz.
	SampleRate int

	// FrameLength is the number of samples per emitted frame.
	FrameLength int

	// Pacing selects real-time or fast emission.
	Pacing Pacing
}

// DefaultScriptedConfig returns the scripted-source defaults: 16 kHz,
// 1280-sample frames (the wake-word detector's native chunk), fast pacing.
func DefaultScriptedConfig() ScriptedConfig {
	return ScriptedConfig{
		SampleRate:  16000,
		FrameLength: 1280,
		Pacing:      PacingFast,
	}
}

// Scripted replays an in-memory sample buffer as a stream of fixed-length
// frames. The final short chunk is zero-padded to exactly FrameLength, so a
// buffer of n samples always yields ceil(n/FrameLength) frames.
//
// Scripted implements [Source].
type Scripted struct {
	rate     int
	frameLen int
	pacing   Pacing

	mu       sync.Mutex
	samples  []int16
	cursor   int
	cb       func(audio.Frame)
	running  bool
	released bool
	stopCh   chan struct{} // closed to interrupt the pacing sleep
	done     chan struct{} // closed when the emission loop exits

	// emitDepth is non-zero while a callback invocation is in flight. Stop
	// joins the emission loop only when no callback is running, so that Stop
	// called from inside the callback cannot deadlock.
	emitDepth atomic.Int32
}

var _ Source = (*Scripted)(nil)

// NewScripted creates a scripted source replaying buf. The buffer may be nil;
// supply one later via [Scripted.SetBuffer].
func NewScripted(cfg ScriptedConfig, buf *audio.Buffer) *Scripted {
	s := &Scripted{
		rate:     cfg.SampleRate,
		frameLen: cfg.FrameLength,
		pacing:   cfg.Pacing,
	}
	if buf != nil {
		s.samples = buf.Samples()
	}
	return s
}

// SampleRate returns the configured sample rate in Hz.
func (s *Scripted) SampleRate() int { return s.rate }

// FrameLength returns the configured samples per frame.
func (s *Scripted) FrameLength() int { return s.frameLen }

// IsRunning reports whether the emission loop is active.
func (s *Scripted) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OnFrame registers the frame callback. See [Source.OnFrame].
func (s *Scripted) OnFrame(cb func(audio.Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	if s.running {
		return ErrRunning
	}
	s.cb = cb
	return nil
}

// SetBuffer replaces the pending samples and resets the cursor to zero.
func (s *Scripted) SetBuffer(buf *audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = buf.Samples()
	s.cursor = 0
}

// PrependAudio inserts samples before the unplayed remainder of the buffer.
func (s *Scripted) PrependAudio(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rest := s.samples[s.cursor:]
	merged := make([]int16, 0, len(samples)+len(rest))
	merged = append(merged, samples...)
	merged = append(merged, rest...)
	s.samples = merged
	s.cursor = 0
}

// AppendAudio extends the pending buffer. May be called while running; the
// emission loop picks up the new samples.
func (s *Scripted) AppendAudio(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
}

// Start begins replaying the buffer. No-op when already running. Returns
// [ErrNoData] if no unplayed samples remain and [ErrReleased] after Close.
func (s *Scripted) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	if s.running {
		return nil
	}
	if s.cursor >= len(s.samples) {
		return ErrNoData
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.emitLoop(s.stopCh, s.done)
	return nil
}

// Stop halts emission. Idempotent and safe from any goroutine, including the
// frame callback itself.
func (s *Scripted) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	// Join the loop so no new callback begins after Stop returns. Skipped when
	// a callback is in flight: either the caller is that callback (joining
	// would deadlock) or the invocation predates this Stop and is tolerated.
	if s.emitDepth.Load() == 0 {
		<-done
	}
}

// Close stops the source and marks it released. Idempotent.
func (s *Scripted) Close() error {
	s.Stop()
	s.mu.Lock()
	s.released = true
	s.samples = nil
	s.cursor = 0
	s.mu.Unlock()
	return nil
}

// emitLoop slices frame-length chunks from the buffer and delivers them until
// the samples run out or Stop is called. Runs on its own goroutine.
func (s *Scripted) emitLoop(stopCh, done chan struct{}) {
	defer close(done)

	frameDur := time.Duration(s.frameLen) * time.Second / time.Duration(s.rate)
	var elapsed time.Duration

	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		if s.cursor >= len(s.samples) {
			// Buffer exhausted: the source stops itself.
			s.running = false
			close(s.stopCh)
			s.mu.Unlock()
			return
		}
		chunk := make([]int16, s.frameLen)
		n := copy(chunk, s.samples[s.cursor:])
		s.cursor += n
		cb := s.cb
		s.mu.Unlock()

		if cb != nil {
			s.emitDepth.Add(1)
			cb(audio.Frame{Samples: chunk, SampleRate: s.rate, Timestamp: elapsed})
			s.emitDepth.Add(-1)
		}
		elapsed += frameDur

		if s.pacing == PacingRealtime {
			select {
			case <-time.After(frameDur):
			case <-stopCh:
				return
			}
		}
	}
}
