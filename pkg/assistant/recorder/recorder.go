// Package recorder implements [assistant.Client] by persisting each captured
// utterance as a WAV file. Useful as a stand-in downstream consumer during
// development and for collecting tuning material.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/harkaudio/hark/pkg/assistant"
	"github.com/harkaudio/hark/pkg/audio"
)

// Recorder writes captured utterances to a directory as timestamped WAV
// files. Not safe for concurrent use; the pipeline delivers utterances
// sequentially.
type Recorder struct {
	dir string
	seq int

	// now is swappable for tests.
	now func() time.Time
}

// Ensure Recorder implements assistant.Client at compile time.
var _ assistant.Client = (*Recorder)(nil)

// New creates a recorder writing into dir, creating it if needed.
func New(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create %q: %w", dir, err)
	}
	return &Recorder{dir: dir, now: time.Now}, nil
}

// HandleUtterance writes buf as a WAV file named by capture time, sequence
// number, and termination reason.
func (r *Recorder) HandleUtterance(_ context.Context, buf *audio.Buffer, reason assistant.Reason) error {
	r.seq++
	name := fmt.Sprintf("%s-%03d-%s.wav", r.now().Format("20060102-150405"), r.seq, reason)
	path := filepath.Join(r.dir, name)
	if err := audio.WriteWAVFile(path, buf); err != nil {
		return err
	}
	slog.Info("utterance recorded",
		"path", path,
		"reason", reason,
		"duration", buf.Duration(),
	)
	return nil
}
