// Package pipeline wires an audio source to the trigger spotter and the
// speech segmenter and drives the listen/capture state machine between them.
//
// All detection work happens synchronously inside the source's frame
// callback; the source's back-pressure keeps the detectors single-threaded.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harkaudio/hark/internal/observe"
	"github.com/harkaudio/hark/pkg/assistant"
	"github.com/harkaudio/hark/pkg/audio"
	"github.com/harkaudio/hark/pkg/audio/source"
	"github.com/harkaudio/hark/pkg/detect/vad"
	"github.com/harkaudio/hark/pkg/detect/wake"
)

// watchPeriod is how often Run checks whether the source has stopped on its
// own (scripted exhaustion, device failure).
const watchPeriod = 20 * time.Millisecond

type state int

const (
	stateListening state = iota
	stateCapturing
)

// Handlers receives pipeline events. Both callbacks run on the source's
// emission goroutine; keep them short or hand off.
type Handlers struct {
	// OnTrigger fires when the trigger phrase is detected, before capture
	// begins. Optional.
	OnTrigger func()

	// OnUtterance receives ownership of each captured utterance together
	// with the reason capture ended. Optional.
	OnUtterance func(buf *audio.Buffer, reason assistant.Reason)
}

// Option configures a [Controller].
type Option func(*Controller)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the perception loop: source frames are re-chunked per
// detector, fed to the spotter while listening, and to the segmenter while
// capturing an utterance.
//
// A Controller is single-use: construct, Run, discard. It does not close the
// source or the detectors; their lifecycle belongs to the caller.
type Controller struct {
	src      source.Source
	spotter  *wake.Spotter
	seg      *vad.Segmenter
	handlers Handlers
	metrics  *observe.Metrics
	log      *slog.Logger

	spotChunks *sampleChunker
	segChunks  *sampleChunker

	// state is only touched from the frame callback.
	state state

	mu       sync.Mutex
	frameErr error
}

// New builds a controller around an already constructed source and detector
// pair.
func New(src source.Source, spotter *wake.Spotter, seg *vad.Segmenter, h Handlers, opts ...Option) *Controller {
	c := &Controller{
		src:        src,
		spotter:    spotter,
		seg:        seg,
		handlers:   h,
		log:        slog.Default(),
		spotChunks: newSampleChunker(spotter.FrameLength()),
		segChunks:  newSampleChunker(seg.FrameLength()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run registers the frame callback, starts the source, and blocks until the
// context is cancelled or the source stops. A scripted source running out of
// audio is a clean stop; a detector failure stops the source and is returned.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.src.OnFrame(c.handleFrame); err != nil {
		return err
	}
	if err := c.src.Start(); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ActivePipelines.Add(ctx, 1)
		defer c.metrics.ActivePipelines.Add(ctx, -1)
	}
	c.log.Info("pipeline started",
		"sample_rate", c.src.SampleRate(),
		"frame_length", c.src.FrameLength(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(watchPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.src.Stop()
				return ctx.Err()
			case <-ticker.C:
				if !c.src.IsRunning() {
					return c.takeErr()
				}
			}
		}
	})
	err := g.Wait()
	c.log.Info("pipeline stopped", "err", err)
	return err
}

func (c *Controller) takeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameErr
}

// fail records the first detector error and stops the source. Later frames
// already in flight are dropped by the source's stop semantics.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.frameErr == nil {
		c.frameErr = err
	}
	c.mu.Unlock()
	c.src.Stop()
}

// handleFrame runs on the source's emission goroutine.
func (c *Controller) handleFrame(f audio.Frame) {
	start := time.Now()
	switch c.state {
	case stateListening:
		c.listen(f)
	case stateCapturing:
		c.capture(f)
	}
	if c.metrics != nil {
		c.metrics.FrameProcessDuration.Record(context.Background(), time.Since(start).Seconds())
	}
}

func (c *Controller) listen(f audio.Frame) {
	c.spotChunks.push(f.Samples)
	for {
		chunk, ok := c.spotChunks.next()
		if !ok {
			return
		}
		hit, err := c.spotter.ProcessFrame(chunk)
		if err != nil {
			c.fail(err)
			return
		}
		if hit {
			c.onTrigger()
			return
		}
	}
}

func (c *Controller) capture(f audio.Frame) {
	c.segChunks.push(f.Samples)
	for {
		chunk, ok := c.segChunks.next()
		if !ok {
			return
		}
		res, err := c.seg.ProcessFrame(chunk)
		if err != nil {
			c.fail(err)
			return
		}
		if res.Status != vad.StatusContinue {
			c.onUtterance(res)
			return
		}
	}
}

// onTrigger switches to capturing. Samples still queued for the spotter
// predate the trigger and are discarded; capture starts clean.
func (c *Controller) onTrigger() {
	c.log.Info("trigger detected")
	if c.metrics != nil {
		c.metrics.TriggerDetections.Add(context.Background(), 1)
	}
	if c.handlers.OnTrigger != nil {
		c.handlers.OnTrigger()
	}
	c.seg.Reset()
	c.spotChunks.reset()
	c.segChunks.reset()
	c.state = stateCapturing
}

// onUtterance hands the capture downstream and returns to listening.
func (c *Controller) onUtterance(res vad.Result) {
	reason := assistant.ReasonEnd
	if res.Status == vad.StatusTimeout {
		reason = assistant.ReasonTimeout
	}
	c.log.Info("utterance captured",
		"reason", reason,
		"duration", res.Audio.Duration(),
	)
	if c.metrics != nil {
		c.metrics.RecordUtterance(context.Background(), string(reason), res.Audio.Duration().Seconds())
	}
	if c.handlers.OnUtterance != nil {
		c.handlers.OnUtterance(res.Audio, reason)
	}
	c.spotter.Reset()
	c.spotChunks.reset()
	c.segChunks.reset()
	c.state = stateListening
}
