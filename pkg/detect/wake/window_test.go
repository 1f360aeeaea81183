package wake

import "testing"

func row(v float32, n int) []float32 {
	r := make([]float32, n)
	for i := range r {
		r[i] = v
	}
	return r
}

func TestRingWindow_PushAndLen(t *testing.T) {
	t.Parallel()
	w := newRingWindow(4, 2)
	if w.len() != 0 {
		t.Fatalf("empty window len: want 0, got %d", w.len())
	}
	w.push(row(1, 2))
	w.push(row(2, 2))
	if w.len() != 2 {
		t.Errorf("len after two pushes: want 2, got %d", w.len())
	}
}

func TestRingWindow_CopyOldestChronological(t *testing.T) {
	t.Parallel()
	w := newRingWindow(3, 2)
	w.push(row(1, 2))
	w.push(row(2, 2))
	w.push(row(3, 2))

	got := w.copyOldest(make([]float32, 6), 3)
	want := []float32{1, 1, 2, 2, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flattened window: want %v, got %v", want, got)
		}
	}
}

func TestRingWindow_SlideDiscardsOldest(t *testing.T) {
	t.Parallel()
	w := newRingWindow(3, 1)
	w.push(row(1, 1))
	w.push(row(2, 1))
	w.push(row(3, 1))
	w.slide(2)

	if w.len() != 1 {
		t.Fatalf("len after slide(2): want 1, got %d", w.len())
	}
	if got := w.copyOldest(make([]float32, 1), 1); got[0] != 3 {
		t.Errorf("oldest after slide: want 3, got %v", got[0])
	}
}

func TestRingWindow_WrapAround(t *testing.T) {
	t.Parallel()
	w := newRingWindow(3, 1)
	// Fill, slide, refill: pushes must wrap around the backing array without
	// disturbing chronological order.
	w.push(row(1, 1))
	w.push(row(2, 1))
	w.push(row(3, 1))
	w.slide(2)
	w.push(row(4, 1))
	w.push(row(5, 1))

	got := w.copyOldest(make([]float32, 3), 3)
	want := []float32{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wrapped window: want %v, got %v", want, got)
		}
	}
}

func TestRingWindow_PushCopiesRow(t *testing.T) {
	t.Parallel()
	w := newRingWindow(2, 2)
	r := row(7, 2)
	w.push(r)
	r[0] = 99

	if got := w.copyOldest(make([]float32, 2), 1); got[0] != 7 {
		t.Errorf("window row aliased caller slice: got %v", got[0])
	}
}

func TestRingWindow_Reset(t *testing.T) {
	t.Parallel()
	w := newRingWindow(2, 1)
	w.push(row(1, 1))
	w.reset()
	if w.len() != 0 {
		t.Errorf("len after reset: want 0, got %d", w.len())
	}
	w.push(row(2, 1))
	if got := w.copyOldest(make([]float32, 1), 1); got[0] != 2 {
		t.Errorf("push after reset: want 2, got %v", got[0])
	}
}

func TestRingWindow_OverflowPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on overflow push")
		}
	}()
	w := newRingWindow(1, 1)
	w.push(row(1, 1))
	w.push(row(2, 1))
}
