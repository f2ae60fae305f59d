package metrics

import "gonum.org/v1/gonum/floats"

// RollingMean is a fixed-size ring of samples. Unfilled slots count as zero
// until the ring wraps, so the mean ramps up over the first Size samples.
type RollingMean struct {
	buf  []float64
	next int
}

func NewRollingMean(size int) *RollingMean {
	if size < 1 {
		size = 1
	}
	return &RollingMean{buf: make([]float64, size)}
}

func (r *RollingMean) Push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
}

func (r *RollingMean) Mean() float64 {
	return floats.Sum(r.buf) / float64(len(r.buf))
}
