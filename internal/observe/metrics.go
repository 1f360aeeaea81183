// Package observe provides application-wide observability primitives for
// Hark: OpenTelemetry metrics and the Prometheus exporter bridge that makes
// them scrapeable via the standard /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. Tests should
// use [NewMetrics] with a private [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Hark metrics.
const meterName = "github.com/harkaudio/hark"

// Metrics holds all OpenTelemetry metric instruments for the perception
// pipeline. All fields are safe for concurrent use — the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// TriggerDetections counts detected trigger phrases.
	TriggerDetections metric.Int64Counter

	// UtterancesCaptured counts completed captures. Use with attribute:
	//   attribute.String("reason", "end"|"timeout")
	UtterancesCaptured metric.Int64Counter

	// CaptureDuration tracks the audio length of captured utterances.
	CaptureDuration metric.Float64Histogram

	// FrameProcessDuration tracks per-frame processing latency through the
	// active detector.
	FrameProcessDuration metric.Float64Histogram

	// ActivePipelines tracks the number of running pipeline controllers.
	ActivePipelines metric.Int64UpDownCounter
}

// captureBuckets defines histogram bucket boundaries (in seconds) for
// utterance lengths, bounded by typical command durations.
var captureBuckets = []float64{
	0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// frameBuckets defines histogram bucket boundaries (in seconds) for per-frame
// processing latency. A frame carries 32–80 ms of audio; processing must stay
// well under that to keep real time.
var frameBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TriggerDetections, err = m.Int64Counter("hark.trigger.detections",
		metric.WithDescription("Number of detected trigger phrases."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesCaptured, err = m.Int64Counter("hark.capture.utterances",
		metric.WithDescription("Number of completed utterance captures."),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("hark.capture.duration",
		metric.WithDescription("Audio length of captured utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(captureBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FrameProcessDuration, err = m.Float64Histogram("hark.frame.duration",
		metric.WithDescription("Per-frame processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActivePipelines, err = m.Int64UpDownCounter("hark.pipelines.active",
		metric.WithDescription("Number of running pipeline controllers."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordUtterance records one completed capture with its termination reason
// and audio length.
func (m *Metrics) RecordUtterance(ctx context.Context, reason string, seconds float64) {
	m.UtterancesCaptured.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.CaptureDuration.Record(ctx, seconds)
}
