package muxvideo

import "time"

// Backoff decides how long to wait after a failed attempt. attempt is
// 1-based and counts the attempt that just failed.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits a fixed interval between attempts. This matches the
// behavior the video host's transcoding pipeline was tuned against.
type ConstantBackoff struct {
	Interval time.Duration
}

func (b ConstantBackoff) Delay(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff doubles the base interval on every failed attempt up to
// Max. Available as an alternative policy for deployments where constant
// polling hammers the host.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
