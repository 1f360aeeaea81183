package source

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/harkaudio/hark/pkg/audio"
)

// LiveConfig configures a [Live] source.
type LiveConfig struct {
	// SampleRate of the capture stream in Hz.
	SampleRate int

	// FrameLength is the number of samples pulled per blocking read.
	FrameLength int
}

// DefaultLiveConfig returns the live-capture defaults: 16 kHz mono,
// 1280-sample frames.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{SampleRate: 16000, FrameLength: 1280}
}

// Live captures audio frames from the default input device via PortAudio.
//
// NewLive initialises the PortAudio host API and Close terminates it, so at
// most one Live source should exist per process at a time.
//
// Live implements [Source].
type Live struct {
	rate     int
	frameLen int

	mu       sync.Mutex
	stream   *portaudio.Stream
	readBuf  []int16
	cb       func(audio.Frame)
	running  bool
	released bool
	done     chan struct{}

	// emitDepth mirrors the Scripted source: non-zero while the callback is in
	// flight, letting Stop skip the join instead of deadlocking.
	emitDepth atomic.Int32
}

var _ Source = (*Live)(nil)

// NewLive opens the default capture device. The stream is created immediately
// so that device errors surface at construction rather than at Start.
func NewLive(cfg LiveConfig) (*Live, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("source: initialise portaudio: %w", err)
	}
	l := &Live{
		rate:     cfg.SampleRate,
		frameLen: cfg.FrameLength,
		readBuf:  make([]int16, cfg.FrameLength),
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), cfg.FrameLength, l.readBuf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("source: open default input stream: %w", err)
	}
	l.stream = stream
	return l, nil
}

// SampleRate returns the capture sample rate in Hz.
func (l *Live) SampleRate() int { return l.rate }

// FrameLength returns the samples per frame.
func (l *Live) FrameLength() int { return l.frameLen }

// IsRunning reports whether the capture loop is active.
func (l *Live) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// OnFrame registers the frame callback. See [Source.OnFrame].
func (l *Live) OnFrame(cb func(audio.Frame)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	if l.running {
		return ErrRunning
	}
	l.cb = cb
	return nil
}

// Start begins the capture loop. No-op when already running; [ErrReleased]
// after Close.
func (l *Live) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	if l.running {
		return nil
	}
	if err := l.stream.Start(); err != nil {
		return fmt.Errorf("source: start capture stream: %w", err)
	}
	l.running = true
	l.done = make(chan struct{})
	go l.captureLoop(l.done)
	return nil
}

// Stop halts capture. Idempotent and safe from any goroutine, including the
// frame callback. An in-flight hardware read may complete after Stop was
// requested; its frame is discarded.
func (l *Live) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	// Aborting the stream unblocks a captureLoop goroutine stuck in Read.
	_ = l.stream.Abort()
	l.mu.Unlock()

	if l.emitDepth.Load() == 0 {
		<-done
	}
}

// Close stops capture, closes the stream, and terminates PortAudio. Idempotent.
func (l *Live) Close() error {
	l.Stop()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true
	_ = l.stream.Close()
	_ = portaudio.Terminate()
	return nil
}

// captureLoop pulls one frame per blocking read and delivers it to the
// callback. Runs on its own goroutine until Stop aborts the stream.
func (l *Live) captureLoop(done chan struct{}) {
	defer close(done)

	frameDur := time.Duration(l.frameLen) * time.Second / time.Duration(l.rate)
	var elapsed time.Duration

	for {
		l.mu.Lock()
		if !l.running {
			l.mu.Unlock()
			return
		}
		stream := l.stream
		cb := l.cb
		l.mu.Unlock()

		if err := stream.Read(); err != nil {
			// Aborted by Stop, or the device went away. Either way the loop is done.
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
			return
		}

		// Re-check: the read may have completed after Stop was requested.
		l.mu.Lock()
		running := l.running
		l.mu.Unlock()
		if !running {
			return
		}

		if cb != nil {
			chunk := make([]int16, l.frameLen)
			copy(chunk, l.readBuf)
			l.emitDepth.Add(1)
			cb(audio.Frame{Samples: chunk, SampleRate: l.rate, Timestamp: elapsed})
			l.emitDepth.Add(-1)
		}
		elapsed += frameDur
	}
}
