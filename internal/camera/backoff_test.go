package camera

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(time.Second, 8*time.Second)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second, // capped
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("attempt %d: got %s, want %s", i, got, w)
		}
	}
}

func TestBackoffResetsToMinimum(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	b.Next()

	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Fatalf("after reset: got %s, want %s", got, time.Second)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Min <= 0 || b.Max < b.Min {
		t.Fatalf("defaults not applied: min=%s max=%s", b.Min, b.Max)
	}
}
