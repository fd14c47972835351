package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
)

// KeyState is the persisted quota estimate for one API key, identified by
// its suffix so full credentials never touch disk.
type KeyState struct {
	Quota       models.KeyQuota
	ExhaustedAt time.Time
}

// KeyStateRepository persists per-key quota estimates across restarts.
type KeyStateRepository struct {
	db *sql.DB
}

// NewKeyStateRepository creates a new KeyStateRepository with the given database connection
func NewKeyStateRepository(db *sql.DB) *KeyStateRepository {
	return &KeyStateRepository{db: db}
}

// Save upserts the estimate for a key suffix.
func (r *KeyStateRepository) Save(quota models.KeyQuota) error {
	query := `
		INSERT INTO key_state (key_suffix, used, quota_limit, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key_suffix) DO UPDATE SET
			used = excluded.used,
			quota_limit = excluded.quota_limit,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, quota.KeySuffix, quota.Used, quota.Limit, quota.LastUpdated); err != nil {
		return fmt.Errorf("failed to save key state: %w", err)
	}
	return nil
}

// MarkExhausted stamps a key suffix as hard-exhausted.
func (r *KeyStateRepository) MarkExhausted(keySuffix string, at time.Time) error {
	query := `
		INSERT INTO key_state (key_suffix, used, quota_limit, updated_at, exhausted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key_suffix) DO UPDATE SET
			used = quota_limit,
			updated_at = excluded.updated_at,
			exhausted_at = excluded.exhausted_at
	`

	if _, err := r.db.Exec(query, keySuffix, 0, 0, at, at); err != nil {
		return fmt.Errorf("failed to mark key exhausted: %w", err)
	}
	return nil
}

// Get retrieves the persisted state for a key suffix.
func (r *KeyStateRepository) Get(keySuffix string) (*KeyState, error) {
	query := `
		SELECT key_suffix, used, quota_limit, updated_at, exhausted_at
		FROM key_state
		WHERE key_suffix = ?
	`

	return r.scanOne(r.db.QueryRow(query, keySuffix))
}

// All retrieves every persisted key state, ordered by suffix.
func (r *KeyStateRepository) All() ([]*KeyState, error) {
	query := `
		SELECT key_suffix, used, quota_limit, updated_at, exhausted_at
		FROM key_state
		ORDER BY key_suffix
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query key states: %w", err)
	}
	defer rows.Close()

	var states []*KeyState
	for rows.Next() {
		state, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *KeyStateRepository) scanOne(row *sql.Row) (*KeyState, error) {
	state, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return state, err
}

func (r *KeyStateRepository) scanRow(row rowScanner) (*KeyState, error) {
	var (
		state       KeyState
		exhaustedAt sql.NullTime
	)
	err := row.Scan(&state.Quota.KeySuffix, &state.Quota.Used, &state.Quota.Limit, &state.Quota.LastUpdated, &exhaustedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan key state: %w", err)
	}
	state.ExhaustedAt = nullTime(exhaustedAt)
	return &state, nil
}
