package alert

import (
	"sync"
	"time"

	"github.com/agui1era/Sentinex/internal/config"
)

type cooldownKey struct {
	camera string
	kind   Kind
}

// Registry tracks, per (camera, kind), when the last alert of that kind was
// dispatched, and gates new intents against the configured cooldown window.
//
// Admission does not consume the window; the dispatcher marks the registry
// after a completed (attempted) send, so a failed delivery still counts as
// "we tried" and cannot turn into a retry storm against a degraded channel.
type Registry struct {
	now func() time.Time

	mu        sync.Mutex
	cooldowns map[cooldownKey]time.Duration
	last      map[cooldownKey]time.Time
}

// NewRegistry builds the per-(camera, kind) cooldown table from the
// resolved camera settings.
func NewRegistry(cams []config.Settings) *Registry {
	cooldowns := make(map[cooldownKey]time.Duration, 2*len(cams))
	for _, cam := range cams {
		cooldowns[cooldownKey{cam.Name, KindRisk}] = cam.RiskCooldown
		cooldowns[cooldownKey{cam.Name, KindPresence}] = cam.PresenceCooldown
	}
	return &Registry{
		now:       time.Now,
		cooldowns: cooldowns,
		last:      make(map[cooldownKey]time.Time),
	}
}

// Cooldown returns the window for one (camera, kind) pair.
func (r *Registry) Cooldown(camera string, kind Kind) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cooldowns[cooldownKey{camera, kind}]
}

// Admit reports whether the intent may be dispatched now. The first intent
// for a pair is always admitted; a non-positive cooldown never suppresses.
func (r *Registry) Admit(in *Intent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := cooldownKey{in.Camera, in.Kind}
	cd := r.cooldowns[k]
	if cd <= 0 {
		return true
	}
	last, ok := r.last[k]
	if !ok {
		return true
	}
	return r.now().Sub(last) >= cd
}

// MarkDispatched records the dispatch attempt time for the pair. Called by
// the dispatcher on success and failure alike.
func (r *Registry) MarkDispatched(camera string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[cooldownKey{camera, kind}] = r.now()
}
