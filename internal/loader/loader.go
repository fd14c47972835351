// package loader assembles the default playlist from the configured
// metadata providers.
//
// The primary provider is paged and filtered; repeated failures put a
// playlist on a cooldown during which only the fallback is consulted.
package loader

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/providers"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	defaultPageSize         = 50
	defaultPageCap          = 200
	defaultFailureThreshold = 3
	defaultCooldown         = 5 * time.Minute
)

type playlistHealth struct {
	failures    int
	lastFailure time.Time
}

// Loader pages playlists out of the primary provider and degrades to the
// fallback when credentials or the primary path are unusable.
type Loader struct {
	primary  providers.Provider
	fallback providers.Provider
	keys     *quota.Rotator

	pageSize         int
	pageCap          int
	failureThreshold int
	cooldown         time.Duration

	mu     sync.Mutex
	health map[string]*playlistHealth

	shuffle func([]models.QueueItem)
	now     func() time.Time
	logger  *log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithPaging overrides the page size and the page cap.
func WithPaging(pageSize, pageCap int) Option {
	return func(l *Loader) {
		if pageSize > 0 {
			l.pageSize = pageSize
		}
		if pageCap > 0 {
			l.pageCap = pageCap
		}
	}
}

// WithCooldown overrides the failure threshold and cooldown window.
func WithCooldown(threshold int, cooldown time.Duration) Option {
	return func(l *Loader) {
		if threshold > 0 {
			l.failureThreshold = threshold
		}
		if cooldown > 0 {
			l.cooldown = cooldown
		}
	}
}

// NewLoader creates a Loader over the given providers. The rotator may be
// nil when no primary credentials are configured.
func NewLoader(primary, fallback providers.Provider, keys *quota.Rotator, logger *log.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	l := &Loader{
		primary:          primary,
		fallback:         fallback,
		keys:             keys,
		pageSize:         defaultPageSize,
		pageCap:          defaultPageCap,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultCooldown,
		health:           make(map[string]*playlistHealth),
		shuffle: func(items []models.QueueItem) {
			rand.Shuffle(len(items), func(i, j int) {
				items[i], items[j] = items[j], items[i]
			})
		},
		now:    time.Now,
		logger: logger,
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// usableCredentials reports whether the primary path has a key worth trying.
func (l *Loader) usableCredentials() bool {
	if l.keys == nil || !l.keys.HasKeys() {
		return false
	}
	return !l.keys.Exhausted()
}

// coolingDown reports whether the playlist's primary path is suppressed.
func (l *Loader) coolingDown(playlistID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.health[playlistID]
	if !ok || h.failures < l.failureThreshold {
		return false
	}
	if l.now().Sub(h.lastFailure) >= l.cooldown {
		h.failures = 0
		return false
	}
	return true
}

func (l *Loader) recordFailure(playlistID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.health[playlistID]
	if !ok {
		h = &playlistHealth{}
		l.health[playlistID] = h
	}
	h.failures++
	h.lastFailure = l.now()
	return h.failures
}

func (l *Loader) clearFailures(playlistID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.health, playlistID)
}

// Seed restores a persisted failure counter for a playlist.
func (l *Loader) Seed(playlistID string, failures int, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if failures <= 0 {
		return
	}
	l.health[playlistID] = &playlistHealth{failures: failures, lastFailure: at}
}

// Health returns the current failure count and last failure time for a
// playlist. A zero count means the playlist is healthy.
func (l *Loader) Health(playlistID string) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.health[playlistID]
	if !ok {
		return 0, time.Time{}
	}
	return h.failures, h.lastFailure
}

// Load fetches a playlist, preferring the primary provider and degrading to
// the fallback. Fallback transitions are logged, not surfaced as errors; only
// a fallback failure is returned, as ErrAllProvidersFailed.
func (l *Loader) Load(ctx context.Context, playlistID string) ([]models.QueueItem, error) {
	switch {
	case l.primary == nil:
		l.logger.Warn("no primary provider configured, using fallback", "playlist", playlistID)
	case !l.usableCredentials():
		l.logger.Warn("no usable API credentials, using fallback", "playlist", playlistID)
	case l.coolingDown(playlistID):
		l.logger.Warn("primary provider cooling down, using fallback", "playlist", playlistID)
	default:
		items, err := l.loadPrimary(ctx, playlistID)
		if err == nil {
			l.clearFailures(playlistID)
			l.shuffle(items)
			l.logger.Info("playlist loaded", "playlist", playlistID, "provider", l.primary.Name(), "items", len(items))
			return items, nil
		}

		failures := l.recordFailure(playlistID)
		l.logger.Warn("primary provider failed, using fallback",
			"playlist", playlistID,
			"failures", failures,
			"error", err,
		)
	}

	return l.loadFallback(ctx, playlistID)
}

// Search queries the primary provider with the same degradation policy as
// Load: unusable credentials or a primary failure fall through to the
// fallback, and only a fallback failure surfaces as ErrAllProvidersFailed.
func (l *Loader) Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error) {
	if l.primary != nil && l.usableCredentials() {
		items, err := l.primary.Search(ctx, query, limit)
		if err == nil {
			return items, nil
		}
		l.logger.Warn("primary search failed, using fallback", "query", query, "error", err)
	} else {
		l.logger.Warn("no usable API credentials, searching via fallback", "query", query)
	}

	if l.fallback == nil {
		return nil, shared.ErrAllProvidersFailed
	}
	items, err := l.fallback.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAllProvidersFailed, err)
	}
	return items, nil
}

// loadPrimary pages through the primary provider until the continuation
// token runs out. The page cap only bounds pathological playlists.
func (l *Loader) loadPrimary(ctx context.Context, playlistID string) ([]models.QueueItem, error) {
	var items []models.QueueItem
	pageToken := ""

	for pages := 0; pages < l.pageCap; pages++ {
		page, err := l.primary.PlaylistPage(ctx, playlistID, pageToken, l.pageSize)
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return items, nil
}

func (l *Loader) loadFallback(ctx context.Context, playlistID string) ([]models.QueueItem, error) {
	if l.fallback == nil {
		return nil, shared.ErrAllProvidersFailed
	}

	page, err := l.fallback.PlaylistPage(ctx, playlistID, "", l.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAllProvidersFailed, err)
	}

	l.logger.Info("playlist loaded", "playlist", playlistID, "provider", l.fallback.Name(), "items", len(page.Items))
	return page.Items, nil
}
