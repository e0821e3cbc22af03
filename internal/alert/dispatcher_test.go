package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agui1era/Sentinex/internal/config"
)

// recordingSink captures delivered events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []*Event
	photos [][]byte
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, ev *Event, photo []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	s.photos = append(s.photos, photo)
	return nil
}

func (s *recordingSink) Close(context.Context) error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatchDeliversEvent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := newTestRegistry(clock, config.Settings{Name: "CAM", RiskCooldown: 60 * time.Second})
	sink := &recordingSink{}
	d := NewDispatcher([]Sink{sink}, r, time.Second)

	in := &Intent{Camera: "CAM", Kind: KindRisk, Score: 0.9, Description: "broken window", At: clock.now(), Photo: []byte{1, 2}}
	if err := d.Dispatch(context.Background(), in); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if sink.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", sink.count())
	}
	ev := sink.events[0]
	if ev.Camera != "CAM" || ev.Kind != KindRisk || ev.Score != 0.9 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.ID == "" {
		t.Fatalf("event must carry an id")
	}
	if len(sink.photos[0]) != 2 {
		t.Fatalf("photo not forwarded")
	}
}

func TestDispatchFailureStillConsumesCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := newTestRegistry(clock, config.Settings{Name: "CAM", RiskCooldown: 60 * time.Second})
	sink := &recordingSink{err: errors.New("channel down")}
	d := NewDispatcher([]Sink{sink}, r, time.Second)

	in := &Intent{Camera: "CAM", Kind: KindRisk, Score: 0.9}
	if err := d.Dispatch(context.Background(), in); err == nil {
		t.Fatalf("expected dispatch error")
	}

	// t=1s: the failed attempt consumed the window, so a fresh trigger is
	// suppressed even though no alert was delivered.
	clock.advance(time.Second)
	if r.Admit(in) {
		t.Fatalf("failed dispatch must still start the cooldown window")
	}
}

func TestDispatchFansOutToAllSinks(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := newTestRegistry(clock, config.Settings{Name: "CAM"})
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("rejected")}
	d := NewDispatcher([]Sink{bad, good}, r, time.Second)

	err := d.Dispatch(context.Background(), &Intent{Camera: "CAM", Kind: KindPresence})
	if err == nil {
		t.Fatalf("expected joined error from failing sink")
	}
	if good.count() != 1 {
		t.Fatalf("healthy sink must still receive the event")
	}
}
