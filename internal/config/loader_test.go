package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/harkaudio/hark/internal/config"
)

func TestLoadFromReader_DefaultsOnEmptyInput(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Trigger.ModelDir != "models" || cfg.Trigger.Phrase != "hey_jarvis" {
		t.Errorf("trigger defaults = %q/%q", cfg.Trigger.ModelDir, cfg.Trigger.Phrase)
	}
	if *cfg.Trigger.Sensitivity != 0.5 {
		t.Errorf("sensitivity = %v, want 0.5", *cfg.Trigger.Sensitivity)
	}
	if *cfg.Segmenter.OnsetThreshold != 0.5 || *cfg.Segmenter.OffsetThreshold != 0.35 {
		t.Errorf("thresholds = %v/%v, want 0.5/0.35",
			*cfg.Segmenter.OnsetThreshold, *cfg.Segmenter.OffsetThreshold)
	}
	if cfg.Segmenter.Silence() != 700*time.Millisecond {
		t.Errorf("silence = %v, want 700ms", cfg.Segmenter.Silence())
	}
	if cfg.Segmenter.MinSpeech() != 200*time.Millisecond {
		t.Errorf("min speech = %v, want 200ms", cfg.Segmenter.MinSpeech())
	}
	if cfg.Segmenter.MaxRecording() != 15*time.Second {
		t.Errorf("max recording = %v, want 15s", cfg.Segmenter.MaxRecording())
	}
	if cfg.Source.Kind != config.SourceLive || cfg.Source.Pacing != config.PacingRealtime {
		t.Errorf("source defaults = %q/%q", cfg.Source.Kind, cfg.Source.Pacing)
	}
	if cfg.Source.FrameLength != 1280 {
		t.Errorf("frame length = %d, want 1280", cfg.Source.FrameLength)
	}
}

func TestLoadFromReader_ExplicitZeroSurvivesDefaulting(t *testing.T) {
	t.Parallel()
	// An explicit 0 must not be mistaken for "unset" and bumped to the
	// default.
	cfg, err := config.LoadFromReader(strings.NewReader(`
trigger:
  sensitivity: 0
segmenter:
  min_speech_ms: 0
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if *cfg.Trigger.Sensitivity != 0 {
		t.Errorf("sensitivity = %v, want explicit 0", *cfg.Trigger.Sensitivity)
	}
	if cfg.Segmenter.MinSpeech() != 0 {
		t.Errorf("min speech = %v, want explicit 0", cfg.Segmenter.MinSpeech())
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`
trigger:
  sensitivty: 0.7
`))
	if err == nil {
		t.Fatal("want decode error for misspelled field, got nil")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: verbose
trigger:
  sensitivity: 1.5
segmenter:
  onset_threshold: 0.3
  offset_threshold: 0.6
  max_recording_ms: 0
source:
  kind: scripted
`))
	if err == nil {
		t.Fatal("want validation error, got nil")
	}
	if cfg != nil {
		t.Error("want nil config on validation failure")
	}

	for _, want := range []string{
		"server.log_level",
		"trigger.sensitivity",
		"offset_threshold 0.60 exceeds",
		"max_recording_ms",
		"source.wav_path is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadFromReader_ScriptedSource(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(`
source:
  kind: scripted
  wav_path: testdata/session.wav
  pacing: fast
  frame_length: 512
capture:
  output_dir: /tmp/captures
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Source.Kind != config.SourceScripted || cfg.Source.WAVPath != "testdata/session.wav" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.Pacing != config.PacingFast || cfg.Source.FrameLength != 512 {
		t.Errorf("pacing/frame = %q/%d", cfg.Source.Pacing, cfg.Source.FrameLength)
	}
	if cfg.Capture.OutputDir != "/tmp/captures" {
		t.Errorf("capture dir = %q", cfg.Capture.OutputDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("does/not/exist.yml")
	if err == nil {
		t.Fatal("want error for missing file")
	}
	if !strings.Contains(err.Error(), "does/not/exist.yml") {
		t.Errorf("error %q does not name the path", err)
	}
}
