package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// PlaylistHealth is the persisted failure counter for one playlist.
type PlaylistHealth struct {
	PlaylistID    string
	Failures      int
	LastFailureAt time.Time
}

// PlaylistHealthRepository persists consecutive primary-provider failures so
// a cooldown survives a restart.
type PlaylistHealthRepository struct {
	db *sql.DB
}

// NewPlaylistHealthRepository creates a new PlaylistHealthRepository with the given database connection
func NewPlaylistHealthRepository(db *sql.DB) *PlaylistHealthRepository {
	return &PlaylistHealthRepository{db: db}
}

// Save upserts the failure counter for a playlist.
func (r *PlaylistHealthRepository) Save(playlistID string, failures int, lastFailure time.Time) error {
	query := `
		INSERT INTO playlist_health (playlist_id, failures, last_failure_at)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id) DO UPDATE SET
			failures = excluded.failures,
			last_failure_at = excluded.last_failure_at
	`

	if _, err := r.db.Exec(query, playlistID, failures, lastFailure); err != nil {
		return fmt.Errorf("failed to save playlist health: %w", err)
	}
	return nil
}

// Clear removes the counter for a playlist after a successful load.
func (r *PlaylistHealthRepository) Clear(playlistID string) error {
	if _, err := r.db.Exec("DELETE FROM playlist_health WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist health: %w", err)
	}
	return nil
}

// Get retrieves the counter for a playlist. A missing row means healthy.
func (r *PlaylistHealthRepository) Get(playlistID string) (*PlaylistHealth, error) {
	query := `
		SELECT playlist_id, failures, last_failure_at
		FROM playlist_health
		WHERE playlist_id = ?
	`

	var (
		health        PlaylistHealth
		lastFailureAt sql.NullTime
	)
	err := r.db.QueryRow(query, playlistID).Scan(&health.PlaylistID, &health.Failures, &lastFailureAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist health: %w", err)
	}
	health.LastFailureAt = nullTime(lastFailureAt)
	return &health, nil
}
