package wake

// ringWindow is a fixed-capacity sliding window of equal-length float32
// vectors backed by a single preallocated array. Rows are appended at the
// tail and discarded from the head in stride-sized steps; the backing array
// is never reallocated.
type ringWindow struct {
	data   []float32
	rowLen int
	caps   int
	head   int // ring index of the oldest row
	count  int
}

func newRingWindow(capacity, rowLen int) *ringWindow {
	return &ringWindow{
		data:   make([]float32, capacity*rowLen),
		rowLen: rowLen,
		caps:   capacity,
	}
}

// len returns the number of rows currently held.
func (w *ringWindow) len() int { return w.count }

// push appends one row. The caller must keep count below capacity; the
// detectors guarantee this by sliding before the window can overflow.
func (w *ringWindow) push(row []float32) {
	if w.count >= w.caps {
		panic("wake: ring window overflow")
	}
	idx := (w.head + w.count) % w.caps
	copy(w.data[idx*w.rowLen:(idx+1)*w.rowLen], row[:w.rowLen])
	w.count++
}

// slide discards the n oldest rows.
func (w *ringWindow) slide(n int) {
	if n > w.count {
		n = w.count
	}
	w.head = (w.head + n) % w.caps
	w.count -= n
}

// copyOldest flattens the n oldest rows into dst in chronological order.
// dst must be at least n*rowLen long; the written prefix is returned.
func (w *ringWindow) copyOldest(dst []float32, n int) []float32 {
	dst = dst[:n*w.rowLen]
	for i := 0; i < n; i++ {
		idx := (w.head + i) % w.caps
		copy(dst[i*w.rowLen:(i+1)*w.rowLen], w.data[idx*w.rowLen:(idx+1)*w.rowLen])
	}
	return dst
}

// reset discards all rows, keeping the backing array.
func (w *ringWindow) reset() {
	w.head = 0
	w.count = 0
}
