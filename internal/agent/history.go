package agent

import "time"

// Sample is one (timestamp, score) point in the risk history.
type Sample struct {
	Timestamp time.Time
	Score     float64
}

// sampleRing is a fixed-capacity FIFO of samples. Appending past capacity
// evicts the oldest entry, so the history can never grow unbounded.
type sampleRing struct {
	buf   []Sample
	start int
	size  int
}

func newSampleRing(capacity int) *sampleRing {
	if capacity < 1 {
		capacity = 1
	}
	return &sampleRing{buf: make([]Sample, capacity)}
}

func (r *sampleRing) Len() int { return r.size }

// Append adds a sample, evicting the oldest if the ring is full.
func (r *sampleRing) Append(s Sample) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// Tail returns up to the n most recent samples in chronological order.
func (r *sampleRing) Tail(n int) []Sample {
	if n > r.size {
		n = r.size
	}
	out := make([]Sample, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

// Snapshot returns all retained samples in chronological order.
func (r *sampleRing) Snapshot() []Sample {
	return r.Tail(r.size)
}

// Restore replaces the ring contents with the given samples, keeping only
// the most recent entries that fit the capacity.
func (r *sampleRing) Restore(samples []Sample) {
	r.start = 0
	r.size = 0
	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	for _, s := range samples {
		r.Append(s)
	}
}
