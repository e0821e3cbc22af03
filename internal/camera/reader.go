package camera

import (
	"context"
	"fmt"
	"time"

	"github.com/agui1era/Sentinex/internal/redact"
)

// frameGrabber is one open stream connection. Grab returns the next frame
// or an error, at which point the connection is considered dead.
type frameGrabber interface {
	Grab() (*Frame, error)
	Close() error
}

// openFunc dials a stream address and returns a live connection.
type openFunc func(url string, opts Options) (frameGrabber, error)

// RTSPReader reads frames from one RTSP/IP camera stream and reconnects
// transparently when the stream drops. It is owned by exactly one camera
// supervisor and is not safe for concurrent use.
type RTSPReader struct {
	name    string
	url     string
	opts    Options
	backoff *Backoff

	// OnReconnect, when set, is called once per reconnect attempt.
	OnReconnect func()

	open    openFunc
	grabber frameGrabber
}

// NewRTSPReader creates a reader for one camera stream.
func NewRTSPReader(name, url string, opts Options) *RTSPReader {
	return &RTSPReader{
		name:    name,
		url:     url,
		opts:    opts.withDefaults(),
		backoff: NewBackoff(0, 0),
		open:    openGoCV,
	}
}

// Read blocks until a frame is captured or ctx is done. A failed grab
// drops the connection and retries with capped exponential backoff; there
// is no retry limit, since camera outages can last hours and the system
// must recover unattended.
func (r *RTSPReader) Read(ctx context.Context) (*Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r.grabber == nil {
			g, err := r.open(r.url, r.opts)
			if err != nil {
				redact.Logf("camera %s: open stream: %v", r.name, err)
				if err := r.wait(ctx); err != nil {
					return nil, err
				}
				continue
			}
			r.grabber = g
		}

		frame, err := r.grabber.Grab()
		if err != nil {
			redact.Logf("camera %s: read frame: %v, reconnecting", r.name, err)
			r.dropConnection()
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}

		r.backoff.Reset()
		frame.Camera = r.name
		frame.CapturedAt = time.Now()
		return frame, nil
	}
}

// wait sleeps for the next backoff delay, aborting early on cancellation.
func (r *RTSPReader) wait(ctx context.Context) error {
	if r.OnReconnect != nil {
		r.OnReconnect()
	}
	timer := time.NewTimer(r.backoff.Next())
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RTSPReader) dropConnection() {
	if r.grabber != nil {
		if err := r.grabber.Close(); err != nil {
			redact.Logf("camera %s: close stream: %v", r.name, err)
		}
		r.grabber = nil
	}
}

// Close releases the underlying connection, if any.
func (r *RTSPReader) Close() error {
	if r.grabber == nil {
		return nil
	}
	g := r.grabber
	r.grabber = nil
	if err := g.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
