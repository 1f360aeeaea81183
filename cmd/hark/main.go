// Command hark runs the voice perception service: it listens for the trigger
// phrase, captures the command utterance that follows, and hands it to the
// configured consumer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/observe"
	"github.com/harkaudio/hark/internal/pipeline"
	"github.com/harkaudio/hark/pkg/assistant"
	"github.com/harkaudio/hark/pkg/assistant/recorder"
	"github.com/harkaudio/hark/pkg/audio"
	"github.com/harkaudio/hark/pkg/audio/source"
	"github.com/harkaudio/hark/pkg/detect/vad"
	"github.com/harkaudio/hark/pkg/detect/wake"
	"github.com/harkaudio/hark/pkg/inference/ort"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hark: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hark: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("hark starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"trigger_phrase", cfg.Trigger.Phrase,
		"source", cfg.Source.Kind,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "hark"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Inference runtime and detectors ───────────────────────────────────────
	runtime, err := ort.NewRuntime(cfg.Inference.LibraryPath)
	if err != nil {
		slog.Error("failed to initialise onnx runtime", "err", err)
		return 1
	}
	defer runtime.Close()

	spotter, err := wake.NewSpotter(wake.Config{
		ModelDir:    cfg.Trigger.ModelDir,
		Phrase:      cfg.Trigger.Phrase,
		Sensitivity: *cfg.Trigger.Sensitivity,
	}, runtime)
	if err != nil {
		slog.Error("failed to create trigger spotter", "err", err)
		return 1
	}
	defer spotter.Close()

	segmenter, err := vad.NewSegmenter(vad.Config{
		ModelPath:            cfg.Segmenter.ModelPath,
		OnsetThreshold:       *cfg.Segmenter.OnsetThreshold,
		OffsetThreshold:      *cfg.Segmenter.OffsetThreshold,
		SilenceDuration:      cfg.Segmenter.Silence(),
		MinSpeechDuration:    cfg.Segmenter.MinSpeech(),
		MaxRecordingDuration: cfg.Segmenter.MaxRecording(),
	}, runtime)
	if err != nil {
		slog.Error("failed to create speech segmenter", "err", err)
		return 1
	}
	defer segmenter.Close()

	// ── Audio source ──────────────────────────────────────────────────────────
	src, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to create audio source", "err", err)
		return 1
	}
	defer src.Close()

	// ── Utterance consumer ────────────────────────────────────────────────────
	handlers, err := buildHandlers(ctx, cfg)
	if err != nil {
		slog.Error("failed to create utterance consumer", "err", err)
		return 1
	}

	ctl := pipeline.New(src, spotter, segmenter, handlers,
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger),
	)

	slog.Info("service ready — press Ctrl+C to shut down")

	// ── Run ───────────────────────────────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctl.Run(ctx)
	})
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Server.MetricsAddr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildSource constructs the configured audio source. Scripted WAV input is
// resampled to the detectors' 16 kHz rate when it arrives at another rate.
func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceLive:
		liveCfg := source.DefaultLiveConfig()
		liveCfg.FrameLength = cfg.Source.FrameLength
		return source.NewLive(liveCfg)

	case config.SourceScripted:
		buf, err := audio.ReadWAVFile(cfg.Source.WAVPath)
		if err != nil {
			return nil, err
		}
		samples := buf.Samples()
		if buf.SampleRate() != wake.SampleRate {
			slog.Info("resampling scripted input",
				"from", buf.SampleRate(),
				"to", wake.SampleRate,
			)
			samples = audio.ResampleMono16(samples, buf.SampleRate(), wake.SampleRate)
		}
		srcCfg := source.DefaultScriptedConfig()
		srcCfg.FrameLength = cfg.Source.FrameLength
		if cfg.Source.Pacing == config.PacingRealtime {
			srcCfg.Pacing = source.PacingRealtime
		}
		return source.NewScripted(srcCfg, audio.NewBufferFromSamples(samples, wake.SampleRate)), nil

	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.Source.Kind)
	}
}

// buildHandlers wires pipeline events to logging and, when a capture
// directory is configured, to WAV persistence.
func buildHandlers(ctx context.Context, cfg *config.Config) (pipeline.Handlers, error) {
	var consumer assistant.Client
	if cfg.Capture.OutputDir != "" {
		rec, err := recorder.New(cfg.Capture.OutputDir)
		if err != nil {
			return pipeline.Handlers{}, err
		}
		consumer = rec
	}

	return pipeline.Handlers{
		OnTrigger: func() {
			slog.Info("trigger phrase heard, capturing command")
		},
		OnUtterance: func(buf *audio.Buffer, reason assistant.Reason) {
			if consumer == nil {
				return
			}
			if err := consumer.HandleUtterance(ctx, buf, reason); err != nil {
				slog.Error("utterance consumer failed", "err", err)
			}
		},
	}, nil
}

// serveMetrics exposes the Prometheus bridge on /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("metrics endpoint up", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
