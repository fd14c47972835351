package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig    = fmt.Errorf("configuration not found")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrMissingKey       = fmt.Errorf("no API key configured")
	ErrInvalidKeyFormat = fmt.Errorf("invalid API key format")

	// Quota and rotation errors
	ErrQuotaExceeded    = fmt.Errorf("API quota exceeded")
	ErrAllKeysExhausted = fmt.Errorf("all API keys exhausted")

	// Provider errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrAllProvidersFailed = fmt.Errorf("all metadata providers failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrRateLimited        = fmt.Errorf("call rate limit reached")

	// Queue and playback errors
	ErrDuplicateTrack    = fmt.Errorf("track already queued")
	ErrNowPlaying        = fmt.Errorf("track is currently playing")
	ErrSkipConfirmation  = fmt.Errorf("skipping a user request requires confirmation")
	ErrPlayerUnavailable = fmt.Errorf("playback surface unavailable")

	// Session errors
	ErrNoCredits = fmt.Errorf("insufficient credits")
)
