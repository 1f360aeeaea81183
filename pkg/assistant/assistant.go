// Package assistant defines the downstream contract consumed by the
// perception pipeline: whoever turns a captured command utterance into a
// response (an LLM client, a speech service, a test recorder) implements
// [Client]. The pipeline itself never looks inside.
package assistant

import (
	"context"

	"github.com/harkaudio/hark/pkg/audio"
)

// Reason states how a capture terminated.
type Reason string

const (
	// ReasonEnd means end-of-speech was detected.
	ReasonEnd Reason = "end"

	// ReasonTimeout means the maximum recording duration elapsed.
	ReasonTimeout Reason = "timeout"
)

// Client consumes captured command utterances.
//
// HandleUtterance receives ownership of buf; the pipeline will not touch it
// again. Implementations must be safe for sequential calls from the pipeline
// goroutine; they need not be safe for concurrent use.
type Client interface {
	// HandleUtterance processes one captured utterance. The buffer holds raw
	// mono samples at the segmenter's rate; any container encoding or
	// transcoding is the implementation's concern.
	HandleUtterance(ctx context.Context, buf *audio.Buffer, reason Reason) error
}
