package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agui1era/Sentinex/internal/alert"
	"github.com/agui1era/Sentinex/internal/camera"
	"github.com/agui1era/Sentinex/internal/config"
	"github.com/agui1era/Sentinex/internal/lastframe"
	"github.com/agui1era/Sentinex/internal/status"
	"github.com/agui1era/Sentinex/internal/telemetry"
	"github.com/agui1era/Sentinex/internal/vision"
)

// Deps are the collaborators shared by every camera pipeline.
type Deps struct {
	Analyzer vision.Analyzer
	Sinks    []alert.Sink
	Frames   *lastframe.Store
	Reporter *status.Reporter
	Metrics  *telemetry.Provider

	// NewReader builds the stream reader for one camera. Tests inject
	// fakes here; production wires camera.NewRTSPReader.
	NewReader func(cam config.Settings) camera.Reader

	// DispatchTimeout bounds one alert dispatch. Zero means the
	// dispatcher default.
	DispatchTimeout time.Duration

	// ShutdownGrace bounds how long Run waits for supervisors to exit
	// after cancellation.
	ShutdownGrace time.Duration
}

// Orchestrator fans out one independent Supervisor per configured camera
// and coordinates graceful shutdown. Cameras share nothing but the
// cooldown registry, which is keyed per (camera, kind).
type Orchestrator struct {
	supervisors []*Supervisor
	dispatcher  *alert.Dispatcher
	grace       time.Duration
}

// NewOrchestrator resolves the camera set and builds each pipeline.
func NewOrchestrator(cams []config.Settings, deps Deps) *Orchestrator {
	registry := alert.NewRegistry(cams)
	dispatcher := alert.NewDispatcher(deps.Sinks, registry, deps.DispatchTimeout)
	evaluator := alert.NewEvaluator()

	grace := deps.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}

	o := &Orchestrator{
		dispatcher: dispatcher,
		grace:      grace,
	}
	for _, cam := range cams {
		o.supervisors = append(o.supervisors, NewSupervisor(
			cam,
			deps.NewReader(cam),
			deps.Analyzer,
			evaluator,
			registry,
			dispatcher,
			deps.Frames,
			deps.Reporter,
			deps.Metrics,
		))
	}
	return o
}

// Run starts all supervisors and blocks until ctx is cancelled and every
// supervisor has exited, or the grace period elapses.
func (o *Orchestrator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, s := range o.supervisors {
		wg.Add(1)
		go func(s *Supervisor) {
			defer wg.Done()
			s.Run(ctx)
		}(s)
	}

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	closeCtx, cancel := context.WithTimeout(context.Background(), o.grace)
	defer cancel()
	defer o.dispatcher.Close(closeCtx)

	select {
	case <-done:
		return nil
	case <-time.After(o.grace):
		return errors.New("shutdown grace period exceeded")
	}
}
