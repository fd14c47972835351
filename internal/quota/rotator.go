package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// rotateThreshold is the estimated usage fraction at which a key is
// considered spent and a rotation candidate is sought.
const rotateThreshold = 0.9

// maxRotationEvents caps the in-memory rotation audit log.
const maxRotationEvents = 10

// Rotator selects the active API key from a fixed pool, rotating round-robin
// when the active key's estimated quota crosses the threshold.
type Rotator struct {
	mu         sync.Mutex
	keys       []string
	active     int
	tracker    *Tracker
	autoRotate bool
	events     []models.RotationEvent
	logger     *log.Logger
}

// NewRotator creates a Rotator over the given key pool.
func NewRotator(keys []string, tracker *Tracker, autoRotate bool, logger *log.Logger) *Rotator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Rotator{
		keys:       keys,
		tracker:    tracker,
		autoRotate: autoRotate,
		logger:     logger,
	}
}

// AutoRotate reports whether automatic rotation is enabled. CheckAndRotate
// never consults this flag itself; callers are expected to.
func (r *Rotator) AutoRotate() bool {
	return r.autoRotate
}

// HasKeys reports whether any key is configured.
func (r *Rotator) HasKeys() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys) > 0
}

// ActiveKey returns the currently selected key without rotating.
func (r *Rotator) ActiveKey() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return "", shared.ErrMissingKey
	}
	return r.keys[r.active], nil
}

// CheckAndRotate returns the key to use for the next call. If the active
// key's estimate is below the threshold it is returned unchanged; otherwise
// the first candidate under the threshold, scanning round-robin from the
// current position, becomes active. Every key at or over the threshold
// yields ErrAllKeysExhausted.
func (r *Rotator) CheckAndRotate() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return "", shared.ErrMissingKey
	}

	current := r.keys[r.active]
	if r.tracker.Percentage(current) < rotateThreshold {
		return current, nil
	}

	for i := 1; i < len(r.keys); i++ {
		idx := (r.active + i) % len(r.keys)
		candidate := r.keys[idx]
		if r.tracker.Percentage(candidate) < rotateThreshold {
			r.recordRotation(current, candidate, "estimated quota threshold reached")
			r.active = idx
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %d keys at or above %d%%", shared.ErrAllKeysExhausted, len(r.keys), int(rotateThreshold*100))
}

// Exhausted reports whether every configured key is at or over the threshold.
func (r *Rotator) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return false
	}
	for _, key := range r.keys {
		if r.tracker.Percentage(key) < rotateThreshold {
			return false
		}
	}
	return true
}

// Events returns a copy of the rotation audit log, newest last.
func (r *Rotator) Events() []models.RotationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]models.RotationEvent, len(r.events))
	copy(events, r.events)
	return events
}

func (r *Rotator) recordRotation(from, to, reason string) {
	event := models.RotationEvent{
		Timestamp:     time.Now(),
		FromKeySuffix: shared.KeySuffix(from),
		ToKeySuffix:   shared.KeySuffix(to),
		Reason:        reason,
	}

	r.events = append(r.events, event)
	if len(r.events) > maxRotationEvents {
		r.events = r.events[len(r.events)-maxRotationEvents:]
	}

	r.logger.Warn("rotating API key",
		"from", event.FromKeySuffix,
		"to", event.ToKeySuffix,
		"reason", reason,
	)
}
