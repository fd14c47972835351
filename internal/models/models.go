// package models defines the data model for the jukebox
package models

import "time"

// QueueItem represents one playable track. Owned exclusively by the queue
// engine once enqueued; immutable after creation except for position.
type QueueItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	VideoID      string `json:"videoId"`
}

// Request is a QueueItem in the priority tier, with requester context.
// The priority tier is strictly FIFO and always drained before the default
// playlist.
type Request struct {
	Item        QueueItem `json:"item"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlaySource identifies which tier a played track came from.
type PlaySource string

const (
	SourceRequest  PlaySource = "user_selection"
	SourceAutoplay PlaySource = "autoplay"
)

// PlaybackAction tags a command sent to the playback surface.
type PlaybackAction string

const (
	ActionPlay    PlaybackAction = "play"
	ActionPause   PlaybackAction = "pause"
	ActionResume  PlaybackAction = "resume"
	ActionFadeOut PlaybackAction = "fadeOutAndBlack"
)

// PlaybackCommand is a one-way tagged message to the playback surface.
// A new command supersedes any prior unacknowledged one; both sides use
// Timestamp and Sequence to discard stale messages.
type PlaybackCommand struct {
	Action    PlaybackAction `json:"action"`
	VideoID   string         `json:"videoId,omitempty"`
	Title     string         `json:"title,omitempty"`
	Artist    string         `json:"artist,omitempty"`
	Sequence  uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
}

// PlaybackState tags a status report from the playback surface.
type PlaybackState string

const (
	StatusReady        PlaybackState = "ready"
	StatusPlaying      PlaybackState = "playing"
	StatusEnded        PlaybackState = "ended"
	StatusFadeComplete PlaybackState = "fadeComplete"
	StatusError        PlaybackState = "error"
	StatusUnavailable  PlaybackState = "unavailable"
)

// PlaybackStatus is an asynchronous report from the playback surface.
// Terminal statuses (ended, error, fadeComplete, unavailable) are only
// honored when VideoID matches the currently tracked track.
type PlaybackStatus struct {
	Status    PlaybackState `json:"status"`
	VideoID   string        `json:"id"`
	Title     string        `json:"title,omitempty"`
	Sequence  uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
}

// KeyQuota holds the estimated quota consumption for one API key.
// Estimates only: the provider exposes no quota API, so usage is derived
// from a fixed per-operation cost table.
type KeyQuota struct {
	KeySuffix   string    `json:"keySuffix"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Percentage returns used/limit as a fraction in [0, 1].
func (q KeyQuota) Percentage() float64 {
	if q.Limit <= 0 {
		return 0
	}
	p := float64(q.Used) / float64(q.Limit)
	if p > 1 {
		return 1
	}
	return p
}

// RotationEvent records one credential rotation in the audit log.
type RotationEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	FromKeySuffix string    `json:"fromKeySuffix"`
	ToKeySuffix   string    `json:"toKeySuffix"`
	Reason        string    `json:"reason"`
}

// PlayLogEntry records one played track.
type PlayLogEntry struct {
	Timestamp    time.Time  `json:"timestamp"`
	VideoID      string     `json:"videoId"`
	Title        string     `json:"title"`
	ChannelTitle string     `json:"channelTitle,omitempty"`
	Source       PlaySource `json:"source"`
}

// AuditEntry is a user-visible event recorded in the session log.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
