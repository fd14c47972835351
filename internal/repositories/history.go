package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/jukebox/internal/models"
)

// PlayHistoryRepository persists every played track for the admin surfaces
// and the CLI history view.
type PlayHistoryRepository struct {
	db *sql.DB
}

// NewPlayHistoryRepository creates a new PlayHistoryRepository with the given database connection
func NewPlayHistoryRepository(db *sql.DB) *PlayHistoryRepository {
	return &PlayHistoryRepository{db: db}
}

// Append records one play.
func (r *PlayHistoryRepository) Append(entry models.PlayLogEntry) error {
	query := `
		INSERT INTO play_history (ts, video_id, title, channel_title, source)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, entry.Timestamp, entry.VideoID, entry.Title, entry.ChannelTitle, entry.Source)
	if err != nil {
		return fmt.Errorf("failed to append play history: %w", err)
	}
	return nil
}

// Recent retrieves the newest plays, newest first.
func (r *PlayHistoryRepository) Recent(limit int) ([]models.PlayLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ts, video_id, title, channel_title, source
		FROM play_history
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var entries []models.PlayLogEntry
	for rows.Next() {
		var entry models.PlayLogEntry
		if err := rows.Scan(&entry.Timestamp, &entry.VideoID, &entry.Title, &entry.ChannelTitle, &entry.Source); err != nil {
			return nil, fmt.Errorf("failed to scan play history: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the total number of persisted plays.
func (r *PlayHistoryRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM play_history").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count play history: %w", err)
	}
	return count, nil
}
