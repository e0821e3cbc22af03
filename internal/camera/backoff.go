package camera

import "time"

// Backoff produces reconnect delays that double up to a cap and reset to
// the minimum after a successful read.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	next time.Duration
}

// NewBackoff returns a backoff with sane bounds for an unattended deployment:
// quick first retry, never hammering an unreachable camera.
func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = 3 * time.Second
	}
	if max < min {
		max = 60 * time.Second
	}
	return &Backoff{Min: min, Max: max}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule.
func (b *Backoff) Next() time.Duration {
	if b.next <= 0 {
		b.next = b.Min
	}
	d := b.next
	b.next *= 2
	if b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// Reset returns the schedule to its minimum.
func (b *Backoff) Reset() {
	b.next = 0
}
