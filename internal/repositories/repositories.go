// package repositories persists the jukebox's operational state: per-key
// quota estimates, playlist health counters, rotation events, and the play
// history.
//
// Everything here is best-effort bookkeeping that survives restarts; the
// in-memory structures in quota, loader, and queue stay authoritative while
// the process runs.
package repositories

import (
	"database/sql"
	"time"
)

// nullTime converts a nullable column to a zero-value time.
func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
