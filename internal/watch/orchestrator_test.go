package watch

import (
	"context"
	"testing"
	"time"

	"github.com/agui1era/Sentinex/internal/alert"
	"github.com/agui1era/Sentinex/internal/camera"
	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/vision"
)

func TestOrchestratorRunsCamerasIndependently(t *testing.T) {
	cams := []config.Settings{
		testCam("ENTRANCE", time.Hour),
		testCam("YARD", time.Hour),
	}

	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "intruder", Score: 0.9}, nil
	}}
	sink := &collectSink{}

	readers := map[string]*fakeReader{}
	o := NewOrchestrator(cams, Deps{
		Analyzer: analyzer,
		Sinks:    []alert.Sink{sink},
		NewReader: func(cam config.Settings) camera.Reader {
			r := &fakeReader{name: cam.Name}
			readers[cam.Name] = r
			return r
		},
		DispatchTimeout: time.Second,
		ShutdownGrace:   2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Each camera holds its own cooldown window, so both alert once.
	waitFor(t, "one alert per camera", func() bool {
		seen := map[string]bool{}
		for _, ev := range sink.snapshot() {
			seen[ev.Camera] = true
		}
		return seen["ENTRANCE"] && seen["YARD"]
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("orchestrator did not shut down")
	}

	for name, r := range readers {
		if !r.isClosed() {
			t.Fatalf("reader for %s not closed on shutdown", name)
		}
	}
}

func TestOrchestratorShutdownIsBounded(t *testing.T) {
	cams := []config.Settings{testCam("CAM", 0)}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "all quiet", Score: 0.0}, nil
	}}

	o := NewOrchestrator(cams, Deps{
		Analyzer:      analyzer,
		Sinks:         []alert.Sink{&collectSink{}},
		NewReader:     func(cam config.Settings) camera.Reader { return &fakeReader{name: cam.Name} },
		ShutdownGrace: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, "first cycle", func() bool { return analyzer.callCount() >= 1 })

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown exceeded grace period")
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("shutdown took %s", elapsed)
	}
}
