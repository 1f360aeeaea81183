// Package config provides the configuration schema and loader for the Hark
// perception service.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the Hark service.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l onto the corresponding slog level.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SourceKind selects where audio frames come from.
type SourceKind string

const (
	// SourceLive captures from the default hardware input device.
	SourceLive SourceKind = "live"

	// SourceScripted replays a WAV file.
	SourceScripted SourceKind = "scripted"
)

// IsValid reports whether k is a recognised source kind.
func (k SourceKind) IsValid() bool {
	return k == SourceLive || k == SourceScripted
}

// Pacing selects how a scripted source spaces its frames.
type Pacing string

const (
	PacingRealtime Pacing = "realtime"
	PacingFast     Pacing = "fast"
)

// IsValid reports whether p is a recognised pacing mode.
func (p Pacing) IsValid() bool {
	return p == PacingRealtime || p == PacingFast
}

// Config is the root configuration structure for Hark.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Inference InferenceConfig `yaml:"inference"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Source    SourceConfig    `yaml:"source"`
	Capture   CaptureConfig   `yaml:"capture"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address serving Prometheus metrics on /metrics.
	// Empty disables the metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// InferenceConfig configures the ONNX Runtime backing all models.
type InferenceConfig struct {
	// LibraryPath is the onnxruntime shared library to load. Empty uses the
	// binding's platform default.
	LibraryPath string `yaml:"library_path"`
}

// TriggerConfig configures the wake-phrase spotter.
type TriggerConfig struct {
	// ModelDir holds melspectrogram.onnx, embedding_model.onnx, and the
	// phrase classifier. Default: "models".
	ModelDir string `yaml:"model_dir"`

	// Phrase is the classifier model base name without extension
	// (e.g. "hey_jarvis"). Default: "hey_jarvis".
	Phrase string `yaml:"phrase"`

	// Sensitivity is the detection threshold in [0, 1]. Default: 0.5.
	Sensitivity *float64 `yaml:"sensitivity"`
}

// SegmenterConfig configures utterance boundary detection. All durations are
// in milliseconds.
type SegmenterConfig struct {
	// ModelPath is the streaming VAD model. Default: "models/silero_vad.onnx".
	ModelPath string `yaml:"model_path"`

	// OnsetThreshold is the speech-start probability threshold. Default: 0.5.
	OnsetThreshold *float64 `yaml:"onset_threshold"`

	// OffsetThreshold is the speech-end probability threshold. Must not
	// exceed OnsetThreshold. Default: 0.35.
	OffsetThreshold *float64 `yaml:"offset_threshold"`

	// SilenceMS is how long silence must persist before the utterance ends.
	// Default: 700.
	SilenceMS *int `yaml:"silence_ms"`

	// MinSpeechMS is the minimum utterance length. Default: 200.
	MinSpeechMS *int `yaml:"min_speech_ms"`

	// MaxRecordingMS caps a single capture. Default: 15000.
	MaxRecordingMS *int `yaml:"max_recording_ms"`
}

// Silence returns the silence window as a duration.
func (c SegmenterConfig) Silence() time.Duration { return msDuration(c.SilenceMS) }

// MinSpeech returns the minimum speech length as a duration.
func (c SegmenterConfig) MinSpeech() time.Duration { return msDuration(c.MinSpeechMS) }

// MaxRecording returns the capture cap as a duration.
func (c SegmenterConfig) MaxRecording() time.Duration { return msDuration(c.MaxRecordingMS) }

func msDuration(ms *int) time.Duration {
	if ms == nil {
		return 0
	}
	return time.Duration(*ms) * time.Millisecond
}

// SourceConfig selects and configures the audio source.
type SourceConfig struct {
	// Kind selects live capture or scripted replay. Default: live.
	Kind SourceKind `yaml:"kind"`

	// WAVPath is the file replayed by a scripted source. Required when kind
	// is scripted.
	WAVPath string `yaml:"wav_path"`

	// Pacing applies to scripted sources only. Default: realtime.
	Pacing Pacing `yaml:"pacing"`

	// FrameLength overrides the samples per emitted frame. Default: 1280.
	FrameLength int `yaml:"frame_length"`
}

// CaptureConfig controls utterance persistence.
type CaptureConfig struct {
	// OutputDir, when set, makes the service write each captured utterance
	// as a WAV file into this directory.
	OutputDir string `yaml:"output_dir"`
}
