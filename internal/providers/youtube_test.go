package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

func newTestProvider(baseURL string, keys []string) (*YouTubeProvider, *quota.Tracker) {
	tracker := quota.NewTracker()
	logger := shared.NewLogger(io.Discard)
	rotator := quota.NewRotator(keys, tracker, true, logger)
	return NewYouTubeProvider(baseURL, rotator, tracker, nil, logger), tracker
}

func TestYouTubeProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("PlaylistPage filters unplayable items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlistItems" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("key") == "" {
				t.Error("expected key query parameter")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"nextPageToken": "tok2",
				"items": [
					{"id": "i1", "snippet": {"title": "First Song", "channelTitle": "Ch1", "resourceId": {"videoId": "v1"}}},
					{"id": "i2", "snippet": {"title": "Private video", "channelTitle": "", "resourceId": {"videoId": "v2"}}},
					{"id": "i3", "snippet": {"title": "[Deleted video]", "channelTitle": "", "resourceId": {"videoId": "v3"}}},
					{"id": "i4", "snippet": {"title": "No ID", "channelTitle": "Ch4", "resourceId": {"videoId": ""}}},
					{"id": "i5", "snippet": {"title": "Second Song", "channelTitle": "Ch5", "resourceId": {"videoId": "v5"}}}
				]
			}`))
		}))
		defer server.Close()

		provider, tracker := newTestProvider(server.URL, []string{"test-key"})
		page, err := provider.PlaylistPage(ctx, "PL123", "", 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected 2 playable items, got %d", len(page.Items))
		}
		if page.Items[0].VideoID != "v1" || page.Items[1].VideoID != "v5" {
			t.Errorf("unexpected items %+v", page.Items)
		}
		if page.NextPageToken != "tok2" {
			t.Errorf("expected continuation token, got %q", page.NextPageToken)
		}
		if used := tracker.Quota("test-key").Used; used != quota.Cost(quota.OpPlaylistItems) {
			t.Errorf("expected usage %d, got %d", quota.Cost(quota.OpPlaylistItems), used)
		}
	})

	t.Run("Search records the full search cost", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("type") != "video" {
				t.Error("expected type=video")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"items": [
				{"id": {"videoId": "abc"}, "snippet": {"title": "Hit Song", "channelTitle": "Artist"}},
				{"id": {"videoId": ""}, "snippet": {"title": "Channel Result", "channelTitle": "Artist"}}
			]}`))
		}))
		defer server.Close()

		provider, tracker := newTestProvider(server.URL, []string{"test-key"})
		items, err := provider.Search(ctx, "hit song", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 1 || items[0].VideoID != "abc" {
			t.Fatalf("unexpected results %+v", items)
		}
		if used := tracker.Quota("test-key").Used; used != quota.Cost(quota.OpSearch) {
			t.Errorf("expected usage %d, got %d", quota.Cost(quota.OpSearch), used)
		}
	})

	t.Run("quota rejection marks the key exhausted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))
		}))
		defer server.Close()

		provider, tracker := newTestProvider(server.URL, []string{"only-key"})
		_, err := provider.Search(ctx, "anything", 10)
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}
		if tracker.Percentage("only-key") < 1 {
			t.Error("expected key marked exhausted")
		}

		// With every key exhausted the next call fails before the network.
		if _, err := provider.Search(ctx, "anything", 10); !errors.Is(err, shared.ErrAllKeysExhausted) {
			t.Errorf("expected ErrAllKeysExhausted, got %v", err)
		}
	})

	t.Run("invalid key is surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"code": 400, "message": "bad key", "errors": [{"reason": "keyInvalid"}]}}`))
		}))
		defer server.Close()

		provider, _ := newTestProvider(server.URL, []string{"bad-key"})
		if _, err := provider.Search(ctx, "q", 10); !errors.Is(err, shared.ErrInvalidKeyFormat) {
			t.Errorf("expected ErrInvalidKeyFormat, got %v", err)
		}
	})

	t.Run("breaker fails fast when tripped", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"items": []}`))
		}))
		defer server.Close()

		tracker := quota.NewTracker()
		logger := shared.NewLogger(io.Discard)
		rotator := quota.NewRotator([]string{"k"}, tracker, true, logger)
		provider := NewYouTubeProvider(server.URL, rotator, tracker, NewBreaker(1), logger)

		if _, err := provider.Search(ctx, "q", 10); err != nil {
			t.Fatalf("first call should pass, got %v", err)
		}
		if _, err := provider.Search(ctx, "q", 10); !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 upstream call, got %d", calls)
		}
	})

	t.Run("ValidateKey rejects malformed keys without a request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for a malformed key")
		}))
		defer server.Close()

		provider, _ := newTestProvider(server.URL, []string{"k"})
		if err := provider.ValidateKey(ctx, "short"); !errors.Is(err, shared.ErrInvalidKeyFormat) {
			t.Errorf("expected ErrInvalidKeyFormat, got %v", err)
		}
	})

	t.Run("ValidateKey probes a well formed key", func(t *testing.T) {
		key := "AIza" + "12345678901234567890123456789012345"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/videos" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("key") != key {
				t.Error("expected probe to carry the key under test")
			}
			w.Write([]byte(`{"items": [{"id": "jNQXAC9IVRw"}]}`))
		}))
		defer server.Close()

		provider, tracker := newTestProvider(server.URL, []string{key})
		if err := provider.ValidateKey(ctx, key); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if used := tracker.Quota(key).Used; used != quota.Cost(quota.OpVideos) {
			t.Errorf("expected probe cost recorded, got %d", used)
		}
	})
}
