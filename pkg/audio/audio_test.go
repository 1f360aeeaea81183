package audio_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harkaudio/hark/pkg/audio"
)

func TestFrame_Duration(t *testing.T) {
	t.Parallel()
	f := audio.Frame{Samples: make([]int16, 1280), SampleRate: 16000}
	if got, want := f.Duration(), 80*time.Millisecond; got != want {
		t.Errorf("Duration: want %v, got %v", want, got)
	}
}

func TestFrame_DurationZeroRate(t *testing.T) {
	t.Parallel()
	f := audio.Frame{Samples: make([]int16, 512)}
	if got := f.Duration(); got != 0 {
		t.Errorf("Duration with zero rate: want 0, got %v", got)
	}
}

func TestBuffer_AppendAndDuration(t *testing.T) {
	t.Parallel()
	b := audio.NewBuffer(16000)
	b.Append(make([]int16, 8000))
	b.Append(make([]int16, 8000))

	if got := b.Len(); got != 16000 {
		t.Errorf("Len: want 16000, got %d", got)
	}
	if got, want := b.Duration(), time.Second; got != want {
		t.Errorf("Duration: want %v, got %v", want, got)
	}
}

func TestBuffer_TakeTransfersOwnership(t *testing.T) {
	t.Parallel()
	b := audio.NewBuffer(16000)
	b.Append([]int16{1, 2, 3})

	taken := b.Take()
	if got := taken.Len(); got != 3 {
		t.Fatalf("taken.Len: want 3, got %d", got)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("buffer after Take: want empty, got %d samples", got)
	}

	// The original buffer must start fresh, not mutate the taken samples.
	b.Append([]int16{9})
	if got := taken.Samples()[0]; got != 1 {
		t.Errorf("taken samples mutated after Append: got %d", got)
	}
}

func TestNormalizeRange(t *testing.T) {
	t.Parallel()
	in := []int16{-32768, 0, 32767}
	out := audio.Normalize(in, make([]float32, len(in)))

	if out[0] != -1.0 {
		t.Errorf("Normalize(-32768): want -1.0, got %f", out[0])
	}
	if out[1] != 0.0 {
		t.Errorf("Normalize(0): want 0.0, got %f", out[1])
	}
	if out[2] >= 1.0 || out[2] < 0.999 {
		t.Errorf("Normalize(32767): want just below 1.0, got %f", out[2])
	}
}

func TestDenormalizeClamps(t *testing.T) {
	t.Parallel()
	out := audio.Denormalize([]float32{-1.5, 0, 1.5})
	if out[0] != -32768 {
		t.Errorf("Denormalize(-1.5): want -32768, got %d", out[0])
	}
	if out[2] != 32767 {
		t.Errorf("Denormalize(1.5): want 32767, got %d", out[2])
	}
}

func TestBytesInt16RoundTrip(t *testing.T) {
	t.Parallel()
	in := []int16{-32768, -1, 0, 1, 257, 32767}
	got := audio.BytesToInt16(audio.Int16ToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("round trip length: want %d, got %d", len(in), len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: want %d, got %d", i, in[i], got[i])
		}
	}
}

func TestResampleMono16_Halves(t *testing.T) {
	t.Parallel()
	in := make([]int16, 320) // 10 ms at 32 kHz
	out := audio.ResampleMono16(in, 32000, 16000)
	if got := len(out); got != 160 {
		t.Errorf("resampled length: want 160, got %d", got)
	}
}

func TestResampleMono16_SameRateUnchanged(t *testing.T) {
	t.Parallel()
	in := []int16{1, 2, 3}
	out := audio.ResampleMono16(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Error("same-rate resample should return the input unchanged")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tone.wav")

	src := audio.NewBuffer(16000)
	src.Append([]int16{0, 1000, -1000, 32767, -32768, 42})

	if err := audio.WriteWAVFile(path, src); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	got, err := audio.ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}

	if got.SampleRate() != 16000 {
		t.Errorf("sample rate: want 16000, got %d", got.SampleRate())
	}
	if got.Len() != src.Len() {
		t.Fatalf("length: want %d, got %d", src.Len(), got.Len())
	}
	for i := range src.Samples() {
		if got.Samples()[i] != src.Samples()[i] {
			t.Errorf("sample %d: want %d, got %d", i, src.Samples()[i], got.Samples()[i])
		}
	}
}

func TestReadWAVFile_Missing(t *testing.T) {
	t.Parallel()
	if _, err := audio.ReadWAVFile(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
