package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/jukebox/internal/models"
)

// RotationEventRepository persists the credential rotation audit trail.
type RotationEventRepository struct {
	db *sql.DB
}

// NewRotationEventRepository creates a new RotationEventRepository with the given database connection
func NewRotationEventRepository(db *sql.DB) *RotationEventRepository {
	return &RotationEventRepository{db: db}
}

// Append records one rotation event.
func (r *RotationEventRepository) Append(event models.RotationEvent) error {
	query := `
		INSERT INTO rotation_events (ts, from_suffix, to_suffix, reason)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, event.Timestamp, event.FromKeySuffix, event.ToKeySuffix, event.Reason); err != nil {
		return fmt.Errorf("failed to append rotation event: %w", err)
	}
	return nil
}

// Recent retrieves the newest events, oldest first.
func (r *RotationEventRepository) Recent(limit int) ([]models.RotationEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ts, from_suffix, to_suffix, reason
		FROM (
			SELECT id, ts, from_suffix, to_suffix, reason
			FROM rotation_events
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation events: %w", err)
	}
	defer rows.Close()

	var events []models.RotationEvent
	for rows.Next() {
		var event models.RotationEvent
		if err := rows.Scan(&event.Timestamp, &event.FromKeySuffix, &event.ToKeySuffix, &event.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan rotation event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
