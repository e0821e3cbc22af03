package alert

import (
	"context"
	"time"
)

// Kind distinguishes the two alert classes: risk alerts are critical,
// presence alerts are informational with a lower score bar.
type Kind string

const (
	KindRisk     Kind = "risk"
	KindPresence Kind = "presence"
)

// Intent is a triggered alert that has not yet passed the cooldown gate.
type Intent struct {
	Camera      string
	Kind        Kind
	Score       float64
	Description string
	At          time.Time
	// Photo is the triggering frame as JPEG, attached to photo-capable
	// channels. May be nil.
	Photo []byte
}

// Event is the wire form of a dispatched alert, consumed by sinks.
type Event struct {
	ID          string    `json:"id"`
	Camera      string    `json:"camera"`
	Kind        Kind      `json:"kind"`
	Score       float64   `json:"score"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink delivers alert events to one notification channel. The photo is
// passed separately so text-only sinks never carry image payloads.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev *Event, photo []byte) error
	Close(ctx context.Context) error
}

// SeverityMarker maps a score to the marker prefixed to alert text.
func SeverityMarker(score float64) string {
	switch {
	case score >= 0.8:
		return "🚨"
	case score >= 0.4:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
