package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harkaudio/hark/internal/pipeline"
	"github.com/harkaudio/hark/pkg/assistant"
	"github.com/harkaudio/hark/pkg/audio"
	"github.com/harkaudio/hark/pkg/audio/source"
	"github.com/harkaudio/hark/pkg/detect/vad"
	"github.com/harkaudio/hark/pkg/detect/wake"
	"github.com/harkaudio/hark/pkg/inference"
	infmock "github.com/harkaudio/hark/pkg/inference/mock"
)

// The wake cascade classifies for the first time on its 40th 1280-sample
// chunk, so an always-firing classifier triggers exactly there; the frame
// math in these tests builds on that.
type stubVADLoader struct {
	sess inference.StatefulSession
}

func (l *stubVADLoader) LoadVAD(string) (inference.StatefulSession, error) {
	return l.sess, nil
}

// newSpotter builds a spotter whose classifier session is under test control.
func newSpotter(t *testing.T, cls *infmock.Session) *wake.Spotter {
	t.Helper()
	loader := &infmock.Loader{Sessions: map[string]inference.Session{
		"melspectrogram.onnx":  &infmock.Session{Fallback: make([]float32, 5*32)},
		"embedding_model.onnx": &infmock.Session{Fallback: make([]float32, 96)},
		"hey_jarvis.onnx":      cls,
	}}
	sp, err := wake.NewSpotter(wake.Config{ModelDir: "models", Phrase: "hey_jarvis", Sensitivity: 0.5}, loader)
	if err != nil {
		t.Fatalf("NewSpotter: %v", err)
	}
	t.Cleanup(func() { _ = sp.Close() })
	return sp
}

func newSegmenter(t *testing.T, cfg vad.Config, sess *infmock.Session) *vad.Segmenter {
	t.Helper()
	seg, err := vad.NewSegmenter(cfg, &stubVADLoader{sess: sess})
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	t.Cleanup(func() { _ = seg.Close() })
	return seg
}

// recorder collects pipeline events under a lock; handlers run on the
// source's emission goroutine.
type recorder struct {
	mu         sync.Mutex
	triggers   int
	utterances []utterance
}

type utterance struct {
	samples int
	reason  assistant.Reason
}

func (r *recorder) handlers() pipeline.Handlers {
	return pipeline.Handlers{
		OnTrigger: func() {
			r.mu.Lock()
			r.triggers++
			r.mu.Unlock()
		},
		OnUtterance: func(buf *audio.Buffer, reason assistant.Reason) {
			r.mu.Lock()
			r.utterances = append(r.utterances, utterance{samples: buf.Len(), reason: reason})
			r.mu.Unlock()
		},
	}
}

func fastSource(samples int, frameLen int) *source.Scripted {
	cfg := source.DefaultScriptedConfig()
	cfg.FrameLength = frameLen
	return source.NewScripted(cfg, audio.NewBufferFromSamples(make([]int16, samples), 16000))
}

func TestRun_TriggerThenEndOfSpeech(t *testing.T) {
	t.Parallel()
	sp := newSpotter(t, &infmock.Session{Fallback: []float32{1}})

	// Three speech chunks, then silence. Silence window 64 ms (two 32 ms
	// chunks) plus the strict comparison puts end-of-speech on chunk 6.
	vadSess := &infmock.Session{
		Outputs:  [][]float32{{0.9}, {0.9}, {0.9}},
		Fallback: []float32{0.1},
	}
	cfg := vad.DefaultConfig()
	cfg.SilenceDuration = 64 * time.Millisecond
	cfg.MinSpeechDuration = 32 * time.Millisecond
	seg := newSegmenter(t, cfg, vadSess)

	// 40 source frames to the trigger, then 6 VAD chunks (3072 samples)
	// spread over 3 more frames.
	src := fastSource(43*1280, 1280)
	t.Cleanup(func() { _ = src.Close() })

	rec := &recorder{}
	ctl := pipeline.New(src, sp, seg, rec.handlers())
	if err := ctl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.triggers != 1 {
		t.Errorf("triggers = %d, want 1", rec.triggers)
	}
	if len(rec.utterances) != 1 {
		t.Fatalf("utterances = %d, want 1", len(rec.utterances))
	}
	got := rec.utterances[0]
	if got.reason != assistant.ReasonEnd {
		t.Errorf("reason = %q, want %q", got.reason, assistant.ReasonEnd)
	}
	if got.samples != 6*512 {
		t.Errorf("captured samples = %d, want %d", got.samples, 6*512)
	}
}

func TestRun_TimeoutAndRetrigger(t *testing.T) {
	t.Parallel()
	sp := newSpotter(t, &infmock.Session{Fallback: []float32{1}})

	// All silence: capture always times out after 10 VAD chunks (320 ms).
	cfg := vad.DefaultConfig()
	cfg.MaxRecordingDuration = 320 * time.Millisecond
	seg := newSegmenter(t, cfg, &infmock.Session{Fallback: []float32{0.1}})

	// One cycle is 40 trigger frames + 4 capture frames (5120 samples).
	// Two full cycles back to back.
	src := fastSource(2*44*1280, 1280)
	t.Cleanup(func() { _ = src.Close() })

	rec := &recorder{}
	ctl := pipeline.New(src, sp, seg, rec.handlers())
	if err := ctl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.triggers != 2 {
		t.Errorf("triggers = %d, want 2", rec.triggers)
	}
	if len(rec.utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(rec.utterances))
	}
	for i, u := range rec.utterances {
		if u.reason != assistant.ReasonTimeout {
			t.Errorf("utterance %d reason = %q, want %q", i, u.reason, assistant.ReasonTimeout)
		}
		if u.samples != 10*512 {
			t.Errorf("utterance %d samples = %d, want %d", i, u.samples, 10*512)
		}
	}
}

func TestRun_RechunksMisalignedSourceFrames(t *testing.T) {
	t.Parallel()
	sp := newSpotter(t, &infmock.Session{Fallback: []float32{1}})

	cfg := vad.DefaultConfig()
	cfg.MaxRecordingDuration = 320 * time.Millisecond
	seg := newSegmenter(t, cfg, &infmock.Session{Fallback: []float32{0.1}})

	// 300-sample frames divide into neither detector's chunk size, so both
	// chunkers have to carry remainders across frames.
	src := fastSource(60000, 300)
	t.Cleanup(func() { _ = src.Close() })

	rec := &recorder{}
	ctl := pipeline.New(src, sp, seg, rec.handlers())
	if err := ctl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.triggers != 1 {
		t.Errorf("triggers = %d, want 1", rec.triggers)
	}
	if len(rec.utterances) != 1 {
		t.Fatalf("utterances = %d, want 1", len(rec.utterances))
	}
	if got := rec.utterances[0].samples; got != 10*512 {
		t.Errorf("captured samples = %d, want %d", got, 10*512)
	}
}

func TestRun_DetectorErrorStopsPipeline(t *testing.T) {
	t.Parallel()
	sp := newSpotter(t, &infmock.Session{Fallback: []float32{1}})

	sentinel := errors.New("onnx session gone")
	seg := newSegmenter(t, vad.DefaultConfig(), &infmock.Session{RunErr: sentinel})

	src := fastSource(42*1280, 1280)
	t.Cleanup(func() { _ = src.Close() })

	rec := &recorder{}
	ctl := pipeline.New(src, sp, seg, rec.handlers())
	err := ctl.Run(context.Background())
	if !errors.Is(err, sentinel) {
		t.Fatalf("Run err = %v, want wrapped sentinel", err)
	}
	if len(rec.utterances) != 0 {
		t.Errorf("utterances after failure = %d, want 0", len(rec.utterances))
	}
}

func TestRun_ContextCancelStopsSource(t *testing.T) {
	t.Parallel()
	sp := newSpotter(t, &infmock.Session{Fallback: []float32{0}})
	seg := newSegmenter(t, vad.DefaultConfig(), &infmock.Session{Fallback: []float32{0.1}})

	cfg := source.DefaultScriptedConfig()
	cfg.Pacing = source.PacingRealtime
	src := source.NewScripted(cfg, audio.NewBufferFromSamples(make([]int16, 16000*5), 16000))
	t.Cleanup(func() { _ = src.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	ctl := pipeline.New(src, sp, seg, pipeline.Handlers{})
	err := ctl.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if src.IsRunning() {
		t.Error("source still running after cancelled Run returned")
	}
}
