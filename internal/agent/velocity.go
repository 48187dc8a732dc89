package agent

import "time"

// riskVelocity estimates the rate of score change in units of score per
// minute, using an ordinary least-squares slope over the most recent samples.
// The regression smooths single-sample noise compared to a two-point delta
// while staying fully deterministic.
//
// Fewer than two samples yield 0. When the whole window spans less than
// epsilon (duplicate timestamps, near-simultaneous observations, clock
// jitter) the elapsed time is treated as epsilon and the estimate becomes the
// window's score delta over epsilon, so a sub-normal time axis can never
// inflate the slope.
func riskVelocity(samples []Sample, epsilon time.Duration) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}

	base := samples[0].Timestamp
	var sumT, sumS, span float64
	times := make([]float64, n)
	for i, s := range samples {
		dt := s.Timestamp.Sub(base).Seconds()
		if dt < 0 {
			dt = 0 // clock went backwards; clamp rather than reorder
		}
		times[i] = dt
		sumT += dt
		sumS += s.Score
		if dt > span {
			span = dt
		}
	}

	if span < epsilon.Seconds() {
		return (samples[n-1].Score - samples[0].Score) / epsilon.Seconds() * 60
	}

	meanT := sumT / float64(n)
	meanS := sumS / float64(n)

	var num, den float64
	for i, s := range samples {
		num += (times[i] - meanT) * (s.Score - meanS)
		den += (times[i] - meanT) * (times[i] - meanT)
	}
	if den == 0 {
		return 0 // collapsed axis with a non-positive epsilon
	}

	return num / den * 60 // per-second slope -> per minute
}
