package watch

import (
	"context"
	"time"

	"github.com/agui1era/Sentinex/internal/alert"
	"github.com/agui1era/Sentinex/internal/camera"
	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/lastframe"
	"github.com/agui1era/Sentinex/internal/redact"
	"github.com/agui1era/Sentinex/internal/status"
	"github.com/agui1era/Sentinex/internal/telemetry"
	"github.com/agui1era/Sentinex/internal/vision"
)

// Supervisor owns one camera's capture → analyze → evaluate → gate →
// dispatch cycle. Cycles run strictly sequentially on a fixed interval
// measured from cycle start; a slow cycle compresses the next wait but
// never overlaps it. No failure inside a cycle terminates the loop.
type Supervisor struct {
	cam        config.Settings
	reader     camera.Reader
	analyzer   vision.Analyzer
	evaluator  *alert.Evaluator
	registry   *alert.Registry
	dispatcher *alert.Dispatcher
	frames     *lastframe.Store
	reporter   *status.Reporter
	metrics    *telemetry.Provider
}

// NewSupervisor wires one camera's pipeline.
func NewSupervisor(
	cam config.Settings,
	reader camera.Reader,
	analyzer vision.Analyzer,
	evaluator *alert.Evaluator,
	registry *alert.Registry,
	dispatcher *alert.Dispatcher,
	frames *lastframe.Store,
	reporter *status.Reporter,
	metrics *telemetry.Provider,
) *Supervisor {
	return &Supervisor{
		cam:        cam,
		reader:     reader,
		analyzer:   analyzer,
		evaluator:  evaluator,
		registry:   registry,
		dispatcher: dispatcher,
		frames:     frames,
		reporter:   reporter,
		metrics:    metrics,
	}
}

// Run loops until ctx is cancelled. The first cycle starts immediately.
func (s *Supervisor) Run(ctx context.Context) {
	defer func() {
		if err := s.reader.Close(); err != nil {
			redact.Logf("camera %s: close reader: %v", s.cam.Name, err)
		}
	}()

	redact.Logf("camera %s: supervisor started (interval=%s url=%s)", s.cam.Name, s.cam.Interval, s.cam.URL)

	ticker := time.NewTicker(s.cam.Interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			redact.Logf("camera %s: supervisor stopped", s.cam.Name)
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs one capture-analyze-alert pass. Every failure path logs and
// returns; the next tick gets a fresh attempt.
func (s *Supervisor) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	frame, err := s.reader.Read(ctx)
	if err != nil {
		// Read only fails on cancellation; stream errors are recovered
		// inside the reader.
		return
	}

	if err := s.frames.Save(s.cam.Name, frame.JPEG); err != nil {
		redact.Logf("camera %s: save last frame: %v", s.cam.Name, err)
	}

	start := time.Now()
	analysis, err := s.analyzer.Analyze(ctx, frame, s.cam.SystemPrompt)
	inferenceMs := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		if vision.IsParseError(err) {
			redact.Logf("camera %s: %v", s.cam.Name, err)
		} else {
			redact.Logf("camera %s: inference: %v", s.cam.Name, err)
		}
		s.metrics.RecordCycle(s.cam.Name, inferenceMs, true)
		return
	}
	s.metrics.RecordCycle(s.cam.Name, inferenceMs, false)

	redact.Logf("camera %s: score=%.2f | %s", s.cam.Name, analysis.Score, analysis.Description)

	intents := s.evaluator.Evaluate(analysis, s.cam, frame.JPEG)
	for i := range intents {
		in := &intents[i]
		if !s.registry.Admit(in) {
			redact.Logf("camera %s: %s alert suppressed by cooldown", s.cam.Name, in.Kind)
			s.metrics.RecordAlert(s.cam.Name, string(in.Kind), true, 0)
			continue
		}

		dispatchStart := time.Now()
		if err := s.dispatcher.Dispatch(ctx, in); err != nil {
			// The cooldown window is consumed regardless; see Dispatcher.
			redact.Logf("camera %s: dispatch %s alert: %v", s.cam.Name, in.Kind, err)
		}
		dispatchMs := float64(time.Since(dispatchStart)) / float64(time.Millisecond)
		s.metrics.RecordAlert(s.cam.Name, string(in.Kind), false, dispatchMs)
	}

	s.reporter.Publish(&status.Report{
		Source:    s.cam.Name,
		Text:      analysis.Description,
		Score:     analysis.Score,
		Timestamp: frame.CapturedAt,
	})
}
