// Scraper proxy [Provider] implementation
//
// Talks to the companion Node proxy that scrapes YouTube HTML as a fallback
// metadata source when the Data API is unavailable or out of quota.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const defaultProxyBaseURL = "http://localhost:3001"

// placeholderItems keep the jukebox playable when scraping yields nothing.
var placeholderItems = []models.QueueItem{
	{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", ChannelTitle: "Rick Astley", VideoID: "dQw4w9WgXcQ"},
	{ID: "9bZkp7q19f0", Title: "Gangnam Style", ChannelTitle: "officialpsy", VideoID: "9bZkp7q19f0"},
	{ID: "kJQP7kiw5Fk", Title: "Despacito", ChannelTitle: "Luis Fonsi", VideoID: "kJQP7kiw5Fk"},
}

// ProxyProvider implements the Provider interface via the scraping proxy.
type ProxyProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewProxyProvider creates a new scraper proxy provider instance.
func NewProxyProvider(baseURL string, logger *log.Logger) *ProxyProvider {
	if baseURL == "" {
		baseURL = defaultProxyBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &ProxyProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Name returns the provider name.
func (p *ProxyProvider) Name() string {
	return "scraper proxy"
}

func (p *ProxyProvider) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: proxy status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode proxy response: %w", err)
	}

	return nil
}

// PlaylistPage retrieves a playlist from the proxy. The proxy does not
// paginate, so the whole playlist comes back as a single page.
//
// Calls GET /api/playlist/{id}.
func (p *ProxyProvider) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (*PlaylistPage, error) {
	if pageToken != "" {
		return &PlaylistPage{}, nil
	}

	var proxyPlaylist struct {
		Videos []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			VideoURL string `json:"videoUrl"`
		} `json:"videos"`
	}

	endpoint := fmt.Sprintf("/api/playlist/%s", url.PathEscape(playlistID))
	if err := p.doRequest(ctx, endpoint, &proxyPlaylist); err != nil {
		return nil, err
	}

	page := &PlaylistPage{}
	for _, video := range proxyPlaylist.Videos {
		if video.ID == "" {
			continue
		}
		page.Items = append(page.Items, models.QueueItem{
			ID:      video.ID,
			Title:   video.Title,
			VideoID: video.ID,
		})
	}

	if len(page.Items) == 0 {
		p.logger.Warn("proxy returned no videos, using placeholders", "playlist", playlistID)
		page.Items = placeholders()
	}

	return page, nil
}

// Search queries the proxy's scraped search endpoint.
//
// Calls GET /api/search?q={query}.
func (p *ProxyProvider) Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error) {
	var proxyResults struct {
		Results []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			ThumbnailURL string `json:"thumbnailUrl"`
			VideoURL     string `json:"videoUrl"`
			Duration     string `json:"duration"`
		} `json:"results"`
	}

	endpoint := "/api/search?q=" + url.QueryEscape(query)
	if err := p.doRequest(ctx, endpoint, &proxyResults); err != nil {
		return nil, err
	}

	var items []models.QueueItem
	for _, result := range proxyResults.Results {
		if result.ID == "" {
			continue
		}
		items = append(items, models.QueueItem{
			ID:           result.ID,
			Title:        result.Title,
			ChannelTitle: result.ChannelTitle,
			VideoID:      result.ID,
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	if len(items) == 0 {
		p.logger.Warn("proxy search yielded nothing, using placeholders", "query", query)
		items = placeholders()
	}

	return items, nil
}

// placeholders returns a copy of the fixed placeholder set.
func placeholders() []models.QueueItem {
	items := make([]models.QueueItem, len(placeholderItems))
	copy(items, placeholderItems)
	return items
}
