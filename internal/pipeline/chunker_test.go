package pipeline

import "testing"

func TestChunker_EmitsFixedChunksAcrossPushes(t *testing.T) {
	t.Parallel()
	c := newSampleChunker(512)

	samples := make([]int16, 700)
	for i := range samples {
		samples[i] = int16(i)
	}
	c.push(samples)

	chunk, ok := c.next()
	if !ok {
		t.Fatal("want a chunk after pushing 700 samples")
	}
	if len(chunk) != 512 {
		t.Fatalf("chunk len = %d, want 512", len(chunk))
	}
	if chunk[0] != 0 || chunk[511] != 511 {
		t.Errorf("chunk boundaries = %d..%d, want 0..511", chunk[0], chunk[511])
	}
	if _, ok := c.next(); ok {
		t.Fatal("188 pending samples must not yield a chunk")
	}
	if got := c.pending(); got != 188 {
		t.Errorf("pending = %d, want 188", got)
	}

	// 188 + 400 crosses the boundary once more.
	more := make([]int16, 400)
	for i := range more {
		more[i] = int16(700 + i)
	}
	c.push(more)

	chunk, ok = c.next()
	if !ok {
		t.Fatal("want a second chunk after topping up")
	}
	if chunk[0] != 512 || chunk[511] != 1023 {
		t.Errorf("chunk boundaries = %d..%d, want 512..1023", chunk[0], chunk[511])
	}
	if got := c.pending(); got != 76 {
		t.Errorf("pending = %d, want 76", got)
	}
}

func TestChunker_ExactMultipleLeavesNothingPending(t *testing.T) {
	t.Parallel()
	c := newSampleChunker(100)
	c.push(make([]int16, 300))

	for i := 0; i < 3; i++ {
		if _, ok := c.next(); !ok {
			t.Fatalf("chunk %d missing", i)
		}
	}
	if _, ok := c.next(); ok {
		t.Fatal("want no fourth chunk")
	}
	if c.pending() != 0 {
		t.Errorf("pending = %d, want 0", c.pending())
	}
}

func TestChunker_ResetDiscardsPending(t *testing.T) {
	t.Parallel()
	c := newSampleChunker(100)
	c.push(make([]int16, 150))
	if _, ok := c.next(); !ok {
		t.Fatal("want first chunk")
	}

	c.reset()
	if c.pending() != 0 {
		t.Errorf("pending after reset = %d, want 0", c.pending())
	}

	// Samples pushed after reset start a fresh chunk.
	fresh := make([]int16, 100)
	fresh[0] = 42
	c.push(fresh)
	chunk, ok := c.next()
	if !ok {
		t.Fatal("want chunk after reset and refill")
	}
	if chunk[0] != 42 {
		t.Errorf("chunk[0] = %d, want 42", chunk[0])
	}
}
