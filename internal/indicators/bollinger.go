package indicators

import "math"

// RollingWindow is a fixed-capacity ring buffer of float64 samples,
// oldest-evicted, used by Bollinger width (and the regime engine's
// BB-width history) without pulling in a generic container package.
type RollingWindow struct {
	data []float64
	head int
	size int
}

// NewRollingWindow builds a window with the given capacity (must be >= 1).
func NewRollingWindow(capacity int) *RollingWindow {
	return &RollingWindow{data: make([]float64, capacity)}
}

// Push appends one sample, evicting the oldest if the window is full.
func (w *RollingWindow) Push(x float64) {
	w.data[w.head] = x
	w.head = (w.head + 1) % len(w.data)
	if w.size < len(w.data) {
		w.size++
	}
}

// Len returns the number of samples currently held.
func (w *RollingWindow) Len() int { return w.size }

// Values returns the samples oldest-first.
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, w.size)
	if w.size < len(w.data) {
		copy(out, w.data[:w.size])
		return out
	}
	n := copy(out, w.data[w.head:])
	copy(out[n:], w.data[:w.head])
	return out
}

// BollingerWidth computes (upper-lower)/mean over the most recent
// min(20, len(closes)) closes, using 2 standard deviations for the
// bands. Returns 0 for an empty window or a zero mean.
func BollingerWidth(closes []float64) float64 {
	n := len(closes)
	if n == 0 {
		return 0
	}
	if n > 20 {
		closes = closes[n-20:]
		n = 20
	}

	mean := 0.0
	for _, c := range closes {
		mean += c
	}
	mean /= float64(n)
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, c := range closes {
		d := c - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev := math.Sqrt(variance)

	upper := mean + 2*stddev
	lower := mean - 2*stddev
	return (upper - lower) / mean
}
