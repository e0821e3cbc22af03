package camera

import (
	"context"
	"time"
)

// Frame is one captured image, already downscaled and JPEG encoded.
// It lives for a single supervision cycle.
type Frame struct {
	Camera     string
	JPEG       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Reader pulls one decoded frame on demand from a camera stream.
// Implementations own the underlying connection and its reconnect state.
type Reader interface {
	// Read blocks until a frame is available or ctx is done. Stream drops
	// are recovered internally via reconnect with backoff; Read only fails
	// when ctx is cancelled.
	Read(ctx context.Context) (*Frame, error)
	Close() error
}

// Options control how a stream is opened and frames are encoded.
type Options struct {
	Width       int
	Height      int
	MaxWidth    int // downscale frames wider than this; 0 disables
	JPEGQuality int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = 85
	}
	return o
}
