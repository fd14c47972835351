// package tasks implements background maintenance for the jukebox.
//
// The core abstraction is MaintenanceEngine, which periodically flushes in-memory quota,
// rotation, and playlist health state to the store so a restart picks up where it left off.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const defaultPersistInterval = time.Minute

// QuotaSource exposes per-key quota estimates for persistence.
type QuotaSource interface {
	Quota(key string) models.KeyQuota
}

// RotationSource exposes the in-memory rotation audit trail.
type RotationSource interface {
	Events() []models.RotationEvent
}

// HealthSource exposes playlist failure counters.
type HealthSource interface {
	Health(playlistID string) (int, time.Time)
}

// KeyStateStore persists per-key quota state.
type KeyStateStore interface {
	Save(quota models.KeyQuota) error
}

// RotationStore persists rotation events.
type RotationStore interface {
	Append(event models.RotationEvent) error
}

// HealthStore persists playlist health.
type HealthStore interface {
	Save(playlistID string, failures int, lastFailure time.Time) error
	Clear(playlistID string) error
}

// MaintenanceDeps wires a MaintenanceEngine to its in-memory sources and stores.
type MaintenanceDeps struct {
	Keys       []string
	PlaylistID string

	Quotas    QuotaSource
	Rotations RotationSource
	Health    HealthSource

	KeyStore      KeyStateStore
	RotationStore RotationStore
	HealthStore   HealthStore

	Interval time.Duration
	Logger   *log.Logger
}

// MaintenanceEngine flushes in-memory state to the store on a fixed interval.
// Rotation events are deduplicated across passes via a timestamp watermark.
type MaintenanceEngine struct {
	deps           MaintenanceDeps
	eventWatermark time.Time
	logger         *log.Logger
}

// NewMaintenanceEngine creates a MaintenanceEngine with the provided dependencies.
func NewMaintenanceEngine(deps MaintenanceDeps) *MaintenanceEngine {
	if deps.Interval <= 0 {
		deps.Interval = defaultPersistInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MaintenanceEngine{deps: deps, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run persists state every interval until the context is cancelled.
func (e *MaintenanceEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) {
	ticker := time.NewTicker(e.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Persist(progress)
		}
	}
}

// Persist runs one flush pass: key states, new rotation events, playlist health.
// Store failures are logged and do not abort the pass.
func (e *MaintenanceEngine) Persist(progress chan<- ProgressUpdate) {
	e.persistKeys(progress)
	e.persistRotations(progress)
	e.persistHealth(progress)
}

func (e *MaintenanceEngine) persistKeys(progress chan<- ProgressUpdate) {
	if e.deps.Quotas == nil || e.deps.KeyStore == nil {
		return
	}
	total := len(e.deps.Keys)
	for i, key := range e.deps.Keys {
		sendProgress(progress, persistKeyUpdate(i+1, total, shared.KeySuffix(key)))
		if err := e.deps.KeyStore.Save(e.deps.Quotas.Quota(key)); err != nil {
			e.logger.Warn("failed to persist key state", "key", shared.KeySuffix(key), "error", err)
		}
	}
}

func (e *MaintenanceEngine) persistRotations(progress chan<- ProgressUpdate) {
	if e.deps.Rotations == nil || e.deps.RotationStore == nil {
		return
	}

	events := e.deps.Rotations.Events()
	fresh := 0
	for _, event := range events {
		if event.Timestamp.After(e.eventWatermark) {
			fresh++
		}
	}
	if fresh == 0 {
		return
	}

	sendProgress(progress, persistRotationsUpdate(fresh))
	for _, event := range events {
		if !event.Timestamp.After(e.eventWatermark) {
			continue
		}
		if err := e.deps.RotationStore.Append(event); err != nil {
			e.logger.Warn("failed to persist rotation event", "error", err)
			continue
		}
		e.eventWatermark = event.Timestamp
	}
}

func (e *MaintenanceEngine) persistHealth(progress chan<- ProgressUpdate) {
	if e.deps.Health == nil || e.deps.HealthStore == nil || e.deps.PlaylistID == "" {
		return
	}

	failures, lastFailure := e.deps.Health.Health(e.deps.PlaylistID)
	if failures > 0 {
		sendProgress(progress, persistHealthUpdate(e.deps.PlaylistID, failures))
		if err := e.deps.HealthStore.Save(e.deps.PlaylistID, failures, lastFailure); err != nil {
			e.logger.Warn("failed to persist playlist health", "error", err)
		}
		return
	}
	if err := e.deps.HealthStore.Clear(e.deps.PlaylistID); err != nil {
		e.logger.Warn("failed to clear playlist health", "error", err)
	}
}
