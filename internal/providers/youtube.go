// YouTube Data API v3 [Provider] implementation
//
// Credentials are API keys passed as query parameters; the active key is
// chosen through the quota rotator on every call.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"

// requestTimeout bounds every provider call.
const requestTimeout = 10 * time.Second

// probeVideoID is a well-known video used by ValidateKey for a cheap list call.
const probeVideoID = "jNQXAC9IVRw"

// unplayableTitles are the titles the API substitutes for items the playlist
// still references but which can no longer be played.
var unplayableTitles = map[string]bool{
	"Private video":   true,
	"Deleted video":   true,
	"[Private video]": true,
	"[Deleted video]": true,
}

// youtubeError is the API's error envelope.
type youtubeError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// YouTubeProvider implements the Provider interface against the YouTube Data API.
type YouTubeProvider struct {
	baseURL    string
	keys       *quota.Rotator
	usage      *quota.Tracker
	httpClient *http.Client
	breaker    *Breaker
	logger     *log.Logger
}

// NewYouTubeProvider creates a new YouTube Data API provider instance.
func NewYouTubeProvider(baseURL string, keys *quota.Rotator, usage *quota.Tracker, breaker *Breaker, logger *log.Logger) *YouTubeProvider {
	if baseURL == "" {
		baseURL = defaultYouTubeBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeProvider{
		baseURL:    baseURL,
		keys:       keys,
		usage:      usage,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// Name returns the provider name.
func (p *YouTubeProvider) Name() string {
	return "YouTube Data API"
}

// activeKey picks the credential for the next call, rotating only when the
// configuration allows it.
func (p *YouTubeProvider) activeKey() (string, error) {
	if p.keys == nil {
		return "", shared.ErrMissingKey
	}
	if p.keys.AutoRotate() {
		return p.keys.CheckAndRotate()
	}
	return p.keys.ActiveKey()
}

func (p *YouTubeProvider) doRequest(ctx context.Context, op quota.Operation, endpoint string, params url.Values, result any) error {
	key, err := p.activeKey()
	if err != nil {
		return err
	}

	if !p.breaker.Allow(endpoint) {
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, endpoint)
	}

	params.Set("key", key)
	apiURL := p.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.apiError(resp, key)
	}

	p.usage.Track(key, op)

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// apiError maps a non-2xx response to the error taxonomy, marking the key
// exhausted on a hard quota rejection.
func (p *YouTubeProvider) apiError(resp *http.Response, key string) error {
	var errResp youtubeError
	reason := ""
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		message = errResp.Error.Message
		if len(errResp.Error.Errors) > 0 {
			reason = errResp.Error.Errors[0].Reason
		}
	}

	if resp.StatusCode == http.StatusForbidden && (reason == "quotaExceeded" || reason == "dailyLimitExceeded") {
		p.usage.MarkExhausted(key)
		p.logger.Warn("API key over quota", "key", shared.KeySuffix(key), "reason", reason)
		return fmt.Errorf("%w: key %s", shared.ErrQuotaExceeded, shared.KeySuffix(key))
	}

	if resp.StatusCode == http.StatusBadRequest && reason == "keyInvalid" {
		return fmt.Errorf("%w: key %s", shared.ErrInvalidKeyFormat, shared.KeySuffix(key))
	}

	if message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

// PlaylistPage retrieves one page of playlist items, filtering out tracks
// flagged private or deleted.
//
// Calls GET /playlistItems (cost 1).
func (p *YouTubeProvider) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (*PlaylistPage, error) {
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(pageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var ytPage struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				ResourceID   struct {
					VideoID string `json:"videoId"`
				} `json:"resourceId"`
			} `json:"snippet"`
		} `json:"items"`
	}

	if err := p.doRequest(ctx, quota.OpPlaylistItems, "/playlistItems", params, &ytPage); err != nil {
		return nil, err
	}

	page := &PlaylistPage{NextPageToken: ytPage.NextPageToken}
	for _, item := range ytPage.Items {
		if item.Snippet.ResourceID.VideoID == "" || unplayableTitles[item.Snippet.Title] {
			continue
		}
		page.Items = append(page.Items, models.QueueItem{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			VideoID:      item.Snippet.ResourceID.VideoID,
		})
	}

	return page, nil
}

// Search returns playable video results for a query.
//
// Calls GET /search (cost 100).
func (p *YouTubeProvider) Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))

	var ytResults struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}

	if err := p.doRequest(ctx, quota.OpSearch, "/search", params, &ytResults); err != nil {
		return nil, err
	}

	var items []models.QueueItem
	for _, result := range ytResults.Items {
		if result.ID.VideoID == "" {
			continue
		}
		items = append(items, models.QueueItem{
			ID:           result.ID.VideoID,
			Title:        result.Snippet.Title,
			ChannelTitle: result.Snippet.ChannelTitle,
			VideoID:      result.ID.VideoID,
		})
	}

	return items, nil
}

// ValidateKey probes a key with a cheap videos list call (cost 1). A hard
// quota rejection marks the key exhausted.
func (p *YouTubeProvider) ValidateKey(ctx context.Context, key string) error {
	if err := quota.ValidateKeyFormat(key); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("part", "id")
	params.Set("id", probeVideoID)
	params.Set("key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/videos?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.apiError(resp, key)
	}

	p.usage.Track(key, quota.OpVideos)
	return nil
}
