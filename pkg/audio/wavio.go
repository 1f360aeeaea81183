package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAVFile loads a mono 16-bit WAV file into a [Buffer]. Stereo files are
// downmixed by dropping all but the first channel; files at a different rate
// are returned at their native rate, and callers needing a specific rate can
// pass the result through [ResampleMono16].
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav %q: %w", path, err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels < 1 {
		return nil, fmt.Errorf("audio: wav %q has no format information", path)
	}

	channels := pcm.Format.NumChannels
	samples := make([]int16, 0, len(pcm.Data)/channels)
	for i := 0; i < len(pcm.Data); i += channels {
		samples = append(samples, int16(pcm.Data[i]))
	}
	return NewBufferFromSamples(samples, pcm.Format.SampleRate), nil
}

// WriteWAVFile writes the buffer to path as a mono 16-bit WAV file.
func WriteWAVFile(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate(), 16, 1, 1)
	data := make([]int, buf.Len())
	for i, s := range buf.Samples() {
		data[i] = int(s)
	}
	pcm := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode wav %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalise wav %q: %w", path, err)
	}
	return f.Close()
}
