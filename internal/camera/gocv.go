package camera

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// goCVGrabber wraps a gocv VideoCapture for one stream connection. The two
// mats are reused across grabs to avoid per-frame allocations.
type goCVGrabber struct {
	cap    *gocv.VideoCapture
	raw    gocv.Mat
	scaled gocv.Mat
	opts   Options
}

// openGoCV dials the stream and verifies it delivers frames.
func openGoCV(url string, opts Options) (frameGrabber, error) {
	cap, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	if !cap.IsOpened() {
		_ = cap.Close()
		return nil, errors.New("open capture: stream not opened")
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	// Keep the driver buffer minimal so grabs return the freshest frame
	// instead of stale backlog.
	cap.Set(gocv.VideoCaptureBufferSize, 1)

	return &goCVGrabber{
		cap:    cap,
		raw:    gocv.NewMat(),
		scaled: gocv.NewMat(),
		opts:   opts,
	}, nil
}

func (g *goCVGrabber) Grab() (*Frame, error) {
	if ok := g.cap.Read(&g.raw); !ok || g.raw.Empty() {
		return nil, errors.New("stream returned no frame")
	}

	mat := g.raw
	if g.opts.MaxWidth > 0 && g.raw.Cols() > g.opts.MaxWidth {
		scale := float64(g.opts.MaxWidth) / float64(g.raw.Cols())
		size := image.Pt(g.opts.MaxWidth, int(float64(g.raw.Rows())*scale))
		gocv.Resize(g.raw, &g.scaled, size, 0, 0, gocv.InterpolationArea)
		mat = g.scaled
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, g.opts.JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	return &Frame{
		JPEG:   jpeg,
		Width:  mat.Cols(),
		Height: mat.Rows(),
	}, nil
}

func (g *goCVGrabber) Close() error {
	_ = g.raw.Close()
	_ = g.scaled.Close()
	return g.cap.Close()
}
