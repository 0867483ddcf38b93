package chart

import "time"

// DefaultDuration is the length of every chart entry animation.
const DefaultDuration = 500 * time.Millisecond

// Progress maps elapsed time to animation progress in [0,1]. A non-positive
// duration finishes immediately.
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return min(float64(elapsed)/float64(duration), 1)
}

// Frames returns the progress of every frame of an animation sampled every
// interval, always ending with a final frame at 1. A non-positive duration or
// interval yields the final frame only.
func Frames(duration, interval time.Duration) []float64 {
	if duration <= 0 || interval <= 0 {
		return []float64{1}
	}
	var out []float64
	for elapsed := time.Duration(0); ; elapsed += interval {
		p := Progress(elapsed, duration)
		out = append(out, p)
		if p >= 1 {
			return out
		}
	}
}
