// package providers defines interface Provider for video metadata lookups
//
// YouTube Data API (primary), scraper proxy (fallback)
package providers

import (
	"context"

	"github.com/desertthunder/jukebox/internal/models"
)

// Provider defines the interface for video metadata sources that can search
// for tracks and page through playlist contents.
type Provider interface {
	// Search returns up to limit playable tracks matching the query.
	Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error)

	// PlaylistPage returns one page of a playlist's tracks. An empty
	// pageToken requests the first page; an empty NextPageToken in the
	// result means the playlist is fully consumed.
	PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (*PlaylistPage, error)

	// Name returns the name of the provider (e.g., "YouTube Data API")
	Name() string
}

// PlaylistPage is one page of playlist items plus the continuation token.
type PlaylistPage struct {
	Items         []models.QueueItem
	NextPageToken string
}
