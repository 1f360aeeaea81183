// Package audio defines the frame and buffer types that flow through the Hark
// perception pipeline, together with sample-format conversion utilities.
//
// The two primary types are:
//
//   - [Frame] — a fixed-length block of mono int16 samples, the atomic unit of
//     streaming processing. Frames are produced by an audio source and consumed
//     exactly once by a detector.
//   - [Buffer] — a growable sample sequence with single-owner discipline, used
//     to accumulate an utterance while speech is in progress.
//
// This package lives under pkg/ because external code (custom audio sources,
// downstream utterance consumers) works directly with these types.
package audio

import "time"

// Frame represents a single fixed-length block of audio samples flowing
// through the pipeline. Frames are mono, 16-bit signed, at the sample rate
// recorded in the frame itself.
type Frame struct {
	// Samples holds the raw PCM samples. The length is fixed per producer and
	// must match the consuming detector's required frame length.
	Samples []int16

	// SampleRate in Hz (e.g., 16000 for the wake-word and VAD models).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the nominal playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Buffer is a growable sequence of mono int16 samples at a known rate.
//
// A Buffer has exactly one owner at a time: the segmenter that accumulates it
// during an utterance, or the caller it was handed to via [Buffer.Take]. It is
// not safe for concurrent use.
type Buffer struct {
	samples []int16
	rate    int
}

// NewBuffer creates an empty buffer for samples at the given rate.
func NewBuffer(sampleRate int) *Buffer {
	return &Buffer{rate: sampleRate}
}

// NewBufferFromSamples creates a buffer that takes ownership of samples.
// The caller must not use the slice afterwards.
func NewBufferFromSamples(samples []int16, sampleRate int) *Buffer {
	return &Buffer{samples: samples, rate: sampleRate}
}

// Append adds samples to the end of the buffer. The input slice is copied.
func (b *Buffer) Append(samples []int16) {
	b.samples = append(b.samples, samples...)
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int { return len(b.samples) }

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.rate }

// Duration returns the playback duration of the buffered samples.
func (b *Buffer) Duration() time.Duration {
	if b.rate <= 0 {
		return 0
	}
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.rate)
}

// Samples returns the underlying sample slice without copying. The returned
// slice is invalidated by the next Append, Take, or Clear.
func (b *Buffer) Samples() []int16 { return b.samples }

// Take transfers ownership of the accumulated samples to the caller and
// leaves the buffer empty. The buffer remains usable for further appends,
// backed by a fresh slice.
func (b *Buffer) Take() *Buffer {
	out := &Buffer{samples: b.samples, rate: b.rate}
	b.samples = nil
	return out
}

// Clear discards all accumulated samples, retaining the backing array for reuse.
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
}
