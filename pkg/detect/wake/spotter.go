// Package wake implements the streaming trigger-phrase spotter.
//
// The spotter cascades three inference stages at three window/stride
// granularities, following the openWakeWord model family:
//
//  1. Feature extraction — each 1280-sample chunk becomes a handful of
//     log-mel feature rows, appended to a sliding feature window.
//  2. Embedding extraction — whenever the feature window holds a full 76
//     rows, one 96-dimensional embedding is computed and the window slides
//     forward by 8 rows (not the whole window), so embeddings are produced
//     more often than once per window.
//  3. Classification — whenever 16 embeddings have accumulated, the
//     classifier scores the trigger phrase and the embedding window slides
//     by one.
//
// A score above the configured sensitivity reports a trigger and clears both
// windows, preventing a re-trigger on the same utterance.
package wake

import (
	"fmt"
	"path/filepath"

	"github.com/harkaudio/hark/pkg/audio"
	"github.com/harkaudio/hark/pkg/detect"
	"github.com/harkaudio/hark/pkg/inference"
)

const (
	// SampleRate is the audio rate the models were trained on.
	SampleRate = 16000

	// FrameLength is the samples per ProcessFrame call (80 ms at 16 kHz).
	FrameLength = 1280

	melBands            = 32
	melFramesPerChunk   = 5
	featureWindowSize   = 76
	featureStride       = 8
	embeddingDim        = 96
	embeddingWindowSize = 16
)

// Model file names within the configured model directory. The trigger phrase
// selects the classifier file.
const (
	melModelFile       = "melspectrogram.onnx"
	embeddingModelFile = "embedding_model.onnx"
)

// Config holds the parameters for a [Spotter].
type Config struct {
	// ModelDir is the directory holding the three stage model files.
	ModelDir string

	// Phrase identifies the trigger phrase; "<Phrase>.onnx" in ModelDir is the
	// stage-3 classifier.
	Phrase string

	// Sensitivity is the detection threshold in [0, 1]. Higher values require
	// stronger model confidence before declaring a trigger.
	Sensitivity float64
}

// DefaultConfig returns the spotter defaults.
func DefaultConfig() Config {
	return Config{
		ModelDir:    "models",
		Phrase:      "hey_jarvis",
		Sensitivity: 0.5,
	}
}

// Spotter is a streaming trigger-phrase detector. Construct with [NewSpotter],
// feed frames with [Spotter.ProcessFrame], and release with [Spotter.Close].
//
// A Spotter owns its windows and sessions exclusively and is not safe for
// concurrent use.
type Spotter struct {
	sensitivity float64

	mel inference.Session
	emb inference.Session
	cls inference.Session

	// features can briefly exceed featureWindowSize between slides, since each
	// chunk appends melFramesPerChunk rows at once.
	features   *ringWindow
	embeddings *ringWindow

	sampleScratch []float32
	melRowScratch []float32
	featScratch   []float32
	embScratch    []float32

	released bool
}

// NewSpotter validates cfg, loads the three stage models through loader, and
// returns a ready detector. Config validation happens before any session
// loads; a [*detect.ConfigError] therefore never leaks a loaded model.
func NewSpotter(cfg Config, loader inference.Loader) (*Spotter, error) {
	if cfg.Sensitivity < 0 || cfg.Sensitivity > 1 {
		return nil, &detect.ConfigError{
			Field:  "sensitivity",
			Reason: fmt.Sprintf("%v is outside [0, 1]", cfg.Sensitivity),
		}
	}
	if cfg.Phrase == "" {
		return nil, &detect.ConfigError{Field: "phrase", Reason: "must not be empty"}
	}

	mel, err := loader.Load(inference.Spec{
		Path:       filepath.Join(cfg.ModelDir, melModelFile),
		InputShape: []int64{1, FrameLength},
	})
	if err != nil {
		return nil, err
	}
	emb, err := loader.Load(inference.Spec{
		Path:       filepath.Join(cfg.ModelDir, embeddingModelFile),
		InputShape: []int64{1, featureWindowSize, melBands, 1},
	})
	if err != nil {
		_ = mel.Close()
		return nil, err
	}
	cls, err := loader.Load(inference.Spec{
		Path:       filepath.Join(cfg.ModelDir, cfg.Phrase+".onnx"),
		InputShape: []int64{1, embeddingWindowSize, embeddingDim},
	})
	if err != nil {
		_ = mel.Close()
		_ = emb.Close()
		return nil, err
	}

	return &Spotter{
		sensitivity:   cfg.Sensitivity,
		mel:           mel,
		emb:           emb,
		cls:           cls,
		features:      newRingWindow(featureWindowSize+melFramesPerChunk-1, melBands),
		embeddings:    newRingWindow(embeddingWindowSize, embeddingDim),
		sampleScratch: make([]float32, FrameLength),
		melRowScratch: make([]float32, melBands),
		featScratch:   make([]float32, featureWindowSize*melBands),
		embScratch:    make([]float32, embeddingWindowSize*embeddingDim),
	}, nil
}

// FrameLength returns the required samples per frame.
func (s *Spotter) FrameLength() int { return FrameLength }

// SampleRate returns the required sample rate in Hz.
func (s *Spotter) SampleRate() int { return SampleRate }

// ProcessFrame runs one frame through the cascade and reports whether the
// trigger phrase was detected. Returns a [*detect.FrameSizeError] for a frame
// of the wrong length and [detect.ErrReleased] after Close; neither disturbs
// the window state.
func (s *Spotter) ProcessFrame(frame []int16) (bool, error) {
	if s.released {
		return false, detect.ErrReleased
	}
	if len(frame) != FrameLength {
		return false, &detect.FrameSizeError{Want: FrameLength, Got: len(frame)}
	}

	melOut, err := s.mel.Run(audio.Normalize(frame, s.sampleScratch))
	if err != nil {
		return false, fmt.Errorf("wake: feature extraction: %w", err)
	}

	// The feature model emits log-mel values scaled by 10; rescale to the
	// range the embedding model expects.
	for row := 0; row+melBands <= len(melOut); row += melBands {
		for i, v := range melOut[row : row+melBands] {
			s.melRowScratch[i] = v/10 + 2
		}
		s.features.push(s.melRowScratch)
	}

	for s.features.len() >= featureWindowSize {
		embOut, err := s.emb.Run(s.features.copyOldest(s.featScratch, featureWindowSize))
		if err != nil {
			return false, fmt.Errorf("wake: embedding extraction: %w", err)
		}
		s.features.slide(featureStride)
		s.embeddings.push(embOut)

		if s.embeddings.len() < embeddingWindowSize {
			continue
		}
		clsOut, err := s.cls.Run(s.embeddings.copyOldest(s.embScratch, embeddingWindowSize))
		if err != nil {
			return false, fmt.Errorf("wake: classification: %w", err)
		}
		s.embeddings.slide(1)

		if len(clsOut) > 0 && float64(clsOut[0]) > s.sensitivity {
			s.Reset()
			return true, nil
		}
	}
	return false, nil
}

// Reset clears both sliding windows without reloading the models.
func (s *Spotter) Reset() {
	s.features.reset()
	s.embeddings.reset()
}

// Close releases the inference sessions. Idempotent and safe to call
// unconditionally from shutdown code; after Close the spotter is terminal.
func (s *Spotter) Close() error {
	if s.released {
		return nil
	}
	s.released = true
	_ = s.mel.Close()
	_ = s.emb.Close()
	return s.cls.Close()
}
