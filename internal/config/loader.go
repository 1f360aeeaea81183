package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Unknown fields are rejected. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their documented defaults. Pointer
// fields distinguish "absent" from an explicit zero.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Trigger.ModelDir == "" {
		cfg.Trigger.ModelDir = "models"
	}
	if cfg.Trigger.Phrase == "" {
		cfg.Trigger.Phrase = "hey_jarvis"
	}
	if cfg.Trigger.Sensitivity == nil {
		cfg.Trigger.Sensitivity = ptr(0.5)
	}
	if cfg.Segmenter.ModelPath == "" {
		cfg.Segmenter.ModelPath = "models/silero_vad.onnx"
	}
	if cfg.Segmenter.OnsetThreshold == nil {
		cfg.Segmenter.OnsetThreshold = ptr(0.5)
	}
	if cfg.Segmenter.OffsetThreshold == nil {
		cfg.Segmenter.OffsetThreshold = ptr(0.35)
	}
	if cfg.Segmenter.SilenceMS == nil {
		cfg.Segmenter.SilenceMS = ptr(700)
	}
	if cfg.Segmenter.MinSpeechMS == nil {
		cfg.Segmenter.MinSpeechMS = ptr(200)
	}
	if cfg.Segmenter.MaxRecordingMS == nil {
		cfg.Segmenter.MaxRecordingMS = ptr(15000)
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceLive
	}
	if cfg.Source.Pacing == "" {
		cfg.Source.Pacing = PacingRealtime
	}
	if cfg.Source.FrameLength == 0 {
		cfg.Source.FrameLength = 1280
	}
}

func ptr[T any](v T) *T { return &v }

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if s := *cfg.Trigger.Sensitivity; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("trigger.sensitivity %.2f is out of range [0, 1]", s))
	}

	onset, offset := *cfg.Segmenter.OnsetThreshold, *cfg.Segmenter.OffsetThreshold
	if onset < 0 || onset > 1 {
		errs = append(errs, fmt.Errorf("segmenter.onset_threshold %.2f is out of range [0, 1]", onset))
	}
	if offset < 0 || offset > 1 {
		errs = append(errs, fmt.Errorf("segmenter.offset_threshold %.2f is out of range [0, 1]", offset))
	}
	if offset > onset {
		errs = append(errs, fmt.Errorf("segmenter.offset_threshold %.2f exceeds onset_threshold %.2f", offset, onset))
	}
	if ms := *cfg.Segmenter.SilenceMS; ms < 0 {
		errs = append(errs, fmt.Errorf("segmenter.silence_ms %d must not be negative", ms))
	}
	if ms := *cfg.Segmenter.MinSpeechMS; ms < 0 {
		errs = append(errs, fmt.Errorf("segmenter.min_speech_ms %d must not be negative", ms))
	}
	if ms := *cfg.Segmenter.MaxRecordingMS; ms <= 0 {
		errs = append(errs, fmt.Errorf("segmenter.max_recording_ms %d must be positive", ms))
	}

	if !cfg.Source.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("source.kind %q is invalid; valid values: live, scripted", cfg.Source.Kind))
	}
	if cfg.Source.Kind == SourceScripted && cfg.Source.WAVPath == "" {
		errs = append(errs, errors.New("source.wav_path is required when source.kind is scripted"))
	}
	if !cfg.Source.Pacing.IsValid() {
		errs = append(errs, fmt.Errorf("source.pacing %q is invalid; valid values: realtime, fast", cfg.Source.Pacing))
	}
	if cfg.Source.FrameLength <= 0 {
		errs = append(errs, fmt.Errorf("source.frame_length %d must be positive", cfg.Source.FrameLength))
	}

	return errors.Join(errs...)
}
