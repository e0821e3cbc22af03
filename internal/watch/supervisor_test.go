package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agui1era/Sentinex/internal/alert"
	"github.com/agui1era/Sentinex/internal/camera"
	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/vision"
)

// fakeReader hands out the same frame on every cycle.
type fakeReader struct {
	mu     sync.Mutex
	name   string
	reads  int
	closed bool
}

func (r *fakeReader) Read(ctx context.Context) (*camera.Frame, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	return &camera.Frame{Camera: r.name, JPEG: []byte{0xff, 0xd8}, CapturedAt: time.Now()}, nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// scriptedAnalyzer runs a per-call script under a lock so supervisor
// goroutines can share it.
type scriptedAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*vision.Analysis, error)
}

func (a *scriptedAnalyzer) Analyze(context.Context, *camera.Frame, string) (*vision.Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.fn(a.calls)
}

func (a *scriptedAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// collectSink accumulates delivered events.
type collectSink struct {
	mu     sync.Mutex
	events []*alert.Event
}

func (s *collectSink) Name() string { return "collect" }

func (s *collectSink) Deliver(_ context.Context, ev *alert.Event, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) Close(context.Context) error { return nil }

func (s *collectSink) snapshot() []*alert.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*alert.Event, len(s.events))
	copy(out, s.events)
	return out
}

func testCam(name string, riskCooldown time.Duration) config.Settings {
	return config.Settings{
		Name:             name,
		URL:              "rtsp://203.0.113.9/" + name,
		Interval:         5 * time.Millisecond,
		ScoreThreshold:   0.8,
		PresenceMinScore: 0.2,
		RiskCooldown:     riskCooldown,
		PresenceCooldown: time.Hour,
	}
}

func runSupervisor(t *testing.T, cam config.Settings, reader camera.Reader, analyzer vision.Analyzer, sink alert.Sink) (cancel func()) {
	t.Helper()
	registry := alert.NewRegistry([]config.Settings{cam})
	dispatcher := alert.NewDispatcher([]alert.Sink{sink}, registry, time.Second)
	s := NewSupervisor(cam, reader, analyzer, alert.NewEvaluator(), registry, dispatcher, nil, nil, nil)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("supervisor did not stop after cancellation")
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSupervisorDispatchesRiskAlert(t *testing.T) {
	reader := &fakeReader{name: "ENTRANCE"}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "forced door", Score: 0.95}, nil
	}}
	sink := &collectSink{}

	stop := runSupervisor(t, testCam("ENTRANCE", time.Hour), reader, analyzer, sink)
	defer stop()

	waitFor(t, "risk alert", func() bool { return len(sink.snapshot()) >= 1 })

	ev := sink.snapshot()[0]
	if ev.Camera != "ENTRANCE" || ev.Kind != alert.KindRisk {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Score != 0.95 || ev.Description != "forced door" {
		t.Fatalf("unexpected event payload %+v", ev)
	}
}

func TestSupervisorSurvivesInferenceFailure(t *testing.T) {
	reader := &fakeReader{name: "CAM"}
	analyzer := &scriptedAnalyzer{fn: func(call int) (*vision.Analysis, error) {
		if call <= 3 {
			return nil, errors.New("inference endpoint: connection refused")
		}
		return &vision.Analysis{Description: "intruder", Score: 0.9}, nil
	}}
	sink := &collectSink{}

	stop := runSupervisor(t, testCam("CAM", time.Hour), reader, analyzer, sink)
	defer stop()

	// The loop must outlive three consecutive transport failures and
	// dispatch once inference recovers.
	waitFor(t, "alert after recovery", func() bool { return len(sink.snapshot()) >= 1 })
	if analyzer.callCount() < 4 {
		t.Fatalf("expected loop to keep cycling through failures, calls=%d", analyzer.callCount())
	}
}

func TestSupervisorParseErrorProducesNoAlerts(t *testing.T) {
	reader := &fakeReader{name: "CAM"}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return nil, &vision.ParseError{Reason: "model returned free text"}
	}}
	sink := &collectSink{}

	stop := runSupervisor(t, testCam("CAM", 0), reader, analyzer, sink)

	waitFor(t, "repeated cycles", func() bool { return analyzer.callCount() >= 3 })
	stop()

	if n := len(sink.snapshot()); n != 0 {
		t.Fatalf("malformed results must never alert, got %d events", n)
	}
}

func TestSupervisorCooldownSuppressesRepeats(t *testing.T) {
	reader := &fakeReader{name: "CAM"}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "intruder", Score: 0.9}, nil
	}}
	sink := &collectSink{}

	stop := runSupervisor(t, testCam("CAM", time.Hour), reader, analyzer, sink)

	waitFor(t, "five cycles", func() bool { return analyzer.callCount() >= 5 })
	stop()

	if n := len(sink.snapshot()); n != 1 {
		t.Fatalf("cooldown must hold repeats to one alert, got %d", n)
	}
}

func TestSupervisorZeroCooldownAlertsEveryCycle(t *testing.T) {
	reader := &fakeReader{name: "CAM"}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "intruder", Score: 0.9}, nil
	}}
	sink := &collectSink{}

	stop := runSupervisor(t, testCam("CAM", 0), reader, analyzer, sink)

	waitFor(t, "three alerts", func() bool { return len(sink.snapshot()) >= 3 })
	stop()
}

func TestSupervisorClosesReaderOnExit(t *testing.T) {
	reader := &fakeReader{name: "CAM"}
	analyzer := &scriptedAnalyzer{fn: func(int) (*vision.Analysis, error) {
		return &vision.Analysis{Description: "all quiet", Score: 0.0}, nil
	}}

	stop := runSupervisor(t, testCam("CAM", 0), reader, analyzer, &collectSink{})
	waitFor(t, "first cycle", func() bool { return analyzer.callCount() >= 1 })
	stop()

	if !reader.isClosed() {
		t.Fatalf("reader must be closed when the supervisor exits")
	}
}
