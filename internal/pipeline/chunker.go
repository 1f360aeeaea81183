package pipeline

// sampleChunker regroups arbitrarily sized sample slices into fixed-size
// chunks. The source's frame length rarely matches a detector's, so each
// detector gets its own chunker in front of it.
type sampleChunker struct {
	size int
	buf  []int16
	out  []int16
}

func newSampleChunker(size int) *sampleChunker {
	return &sampleChunker{size: size, out: make([]int16, size)}
}

// push appends samples to the pending buffer.
func (c *sampleChunker) push(samples []int16) {
	c.buf = append(c.buf, samples...)
}

// next returns the oldest full chunk, or ok=false when fewer than size
// samples are pending. The returned slice is reused by the next call.
func (c *sampleChunker) next() ([]int16, bool) {
	if len(c.buf) < c.size {
		return nil, false
	}
	copy(c.out, c.buf[:c.size])
	c.buf = c.buf[:copy(c.buf, c.buf[c.size:])]
	return c.out, true
}

// pending returns the number of buffered samples not yet emitted.
func (c *sampleChunker) pending() int { return len(c.buf) }

// reset discards all pending samples.
func (c *sampleChunker) reset() { c.buf = c.buf[:0] }
