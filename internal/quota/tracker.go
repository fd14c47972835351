// package quota tracks estimated API quota consumption per credential and
// decides when to rotate to the next key.
//
// The provider publishes a daily cost cap but no endpoint to read current
// usage, so everything here is bookkeeping against a fixed per-operation
// cost table. A probe call is used only to detect hard quota-exceeded
// responses, which force a key to 100%.
package quota

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// DailyLimit is the provider's published daily quota cap in cost units.
const DailyLimit = 10000

// resetWindow approximates the provider's daily quota window. Usage older
// than this is discarded rather than reconciled against real usage.
const resetWindow = 24 * time.Hour

// Operation identifies a tracked API call type.
type Operation string

const (
	OpSearch        Operation = "search"
	OpPlaylistItems Operation = "playlistItems"
	OpVideos        Operation = "videos"
)

// operationCosts is the provider's published cost per operation.
var operationCosts = map[Operation]int{
	OpSearch:        100,
	OpPlaylistItems: 1,
	OpVideos:        1,
}

// Cost returns the quota cost of an operation. Unknown operations cost 1.
func Cost(op Operation) int {
	if c, ok := operationCosts[op]; ok {
		return c
	}
	return 1
}

// ValidateKeyFormat checks that a credential looks like a YouTube Data API
// key before any network call is made with it.
func ValidateKeyFormat(key string) error {
	if !strings.HasPrefix(key, "AIza") || len(key) != 39 {
		return fmt.Errorf("%w: %q", shared.ErrInvalidKeyFormat, shared.KeySuffix(key))
	}
	return nil
}

type keyUsage struct {
	used      int
	lastReset time.Time
	updated   time.Time
}

// Tracker accumulates estimated quota usage per key. Explicitly constructed
// and injectable; state resets via [Tracker.Reset] or the daily window.
type Tracker struct {
	mu    sync.Mutex
	limit int
	usage map[string]*keyUsage
	now   func() time.Time
}

// NewTracker creates a Tracker with the provider's daily limit.
func NewTracker() *Tracker {
	return &Tracker{
		limit: DailyLimit,
		usage: make(map[string]*keyUsage),
		now:   time.Now,
	}
}

// usageFor returns the usage record for key, creating it on first use and
// applying the daily-window reset heuristic.
func (t *Tracker) usageFor(key string) *keyUsage {
	u, ok := t.usage[key]
	if !ok {
		u = &keyUsage{lastReset: t.now()}
		t.usage[key] = u
	}
	if t.now().Sub(u.lastReset) >= resetWindow {
		u.used = 0
		u.lastReset = t.now()
	}
	return u
}

// Track records one API call against key and returns the updated estimate.
func (t *Tracker) Track(key string, op Operation) models.KeyQuota {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.usageFor(key)
	u.used += Cost(op)
	u.updated = t.now()
	return t.quota(key, u)
}

// Percentage returns the estimated fraction of the daily quota consumed by key.
func (t *Tracker) Percentage(key string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quota(key, t.usageFor(key)).Percentage()
}

// MarkExhausted forces key to 100%, used when a probe call returns a hard
// quota-exceeded error.
func (t *Tracker) MarkExhausted(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.usageFor(key)
	u.used = t.limit
	u.updated = t.now()
}

// Seed restores a persisted usage estimate for key, ignoring estimates
// older than the daily window.
func (t *Tracker) Seed(key string, used int, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.now().Sub(at) >= resetWindow {
		return
	}
	t.usage[key] = &keyUsage{used: used, lastReset: at, updated: at}
}

// Reset clears all tracked usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = make(map[string]*keyUsage)
}

// Quota returns the current estimate for key.
func (t *Tracker) Quota(key string) models.KeyQuota {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quota(key, t.usageFor(key))
}

func (t *Tracker) quota(key string, u *keyUsage) models.KeyQuota {
	return models.KeyQuota{
		KeySuffix:   shared.KeySuffix(key),
		Used:        u.used,
		Limit:       t.limit,
		LastUpdated: u.updated,
	}
}
