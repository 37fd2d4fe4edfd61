// Package recorder buffers the samples of the active trial and tracks a
// sliding window of raw pointer positions for stationarity detection.
//
// A Recorder does no locking of its own; the owner serialises access.
package recorder

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/verte-zerg/tuireach/internal/geometry"
	"github.com/verte-zerg/tuireach/internal/model"
)

// Recorder holds the sample buffer and the stationarity window.
type Recorder struct {
	samples []model.Sample

	windowX []float64
	windowY []float64
	next    int
	filled  int
}

// New returns a recorder with a stationarity window of windowSize positions.
// capacity pre-sizes the sample buffer.
func New(windowSize, capacity int) *Recorder {
	if windowSize < 1 {
		windowSize = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Recorder{
		samples: make([]model.Sample, 0, capacity),
		windowX: make([]float64, windowSize),
		windowY: make([]float64, windowSize),
	}
}

// Record appends a feedback sample.
func (r *Recorder) Record(s model.Sample) {
	r.samples = append(r.samples, s)
}

// Observe pushes a raw position into the stationarity window.
func (r *Recorder) Observe(p geometry.Point) {
	r.windowX[r.next] = p.X
	r.windowY[r.next] = p.Y
	r.next = (r.next + 1) % len(r.windowX)
	if r.filled < len(r.windowX) {
		r.filled++
	}
}

// Stationary reports whether the window is full and every position in it lies
// within tolPx of every other on both axes.
func (r *Recorder) Stationary(tolPx float64) bool {
	if r.filled < len(r.windowX) {
		return false
	}
	spreadX := floats.Max(r.windowX) - floats.Min(r.windowX)
	spreadY := floats.Max(r.windowY) - floats.Min(r.windowY)
	return math.Max(spreadX, spreadY) <= tolPx
}

// Len returns the number of buffered samples.
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Drain returns the buffered samples and clears the buffer.
func (r *Recorder) Drain() []model.Sample {
	out := r.samples
	r.samples = make([]model.Sample, 0, cap(out))
	return out
}

// Reset clears the sample buffer and the stationarity window.
func (r *Recorder) Reset() {
	r.samples = r.samples[:0]
	r.next = 0
	r.filled = 0
}
