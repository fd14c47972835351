package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/jukebox/internal/shared"
)

func TestProxyProvider(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("PlaylistPage returns the scrape as a single page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/playlist/PL123" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"videos": [
				{"id": "v1", "title": "Song One", "videoUrl": "https://youtu.be/v1"},
				{"id": "", "title": "broken row", "videoUrl": ""},
				{"id": "v2", "title": "Song Two", "videoUrl": "https://youtu.be/v2"}
			]}`))
		}))
		defer server.Close()

		provider := NewProxyProvider(server.URL, logger)
		page, err := provider.PlaylistPage(ctx, "PL123", "", 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(page.Items))
		}
		if page.NextPageToken != "" {
			t.Errorf("expected no continuation token, got %q", page.NextPageToken)
		}

		// A continuation request is a no-op; the proxy has no more pages.
		next, err := provider.PlaylistPage(ctx, "PL123", "tok", 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(next.Items) != 0 {
			t.Errorf("expected empty continuation page, got %d items", len(next.Items))
		}
	})

	t.Run("empty scrape falls back to placeholders", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"videos": []}`))
		}))
		defer server.Close()

		provider := NewProxyProvider(server.URL, logger)
		page, err := provider.PlaylistPage(ctx, "PL123", "", 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Items) != len(placeholderItems) {
			t.Fatalf("expected %d placeholder items, got %d", len(placeholderItems), len(page.Items))
		}
		if page.Items[0].VideoID == "" {
			t.Error("placeholder items must carry video ids")
		}
	})

	t.Run("Search respects the limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("q") != "test query" {
				t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
			}
			w.Write([]byte(`{"results": [
				{"id": "r1", "title": "One", "channelTitle": "A"},
				{"id": "r2", "title": "Two", "channelTitle": "B"},
				{"id": "r3", "title": "Three", "channelTitle": "C"}
			]}`))
		}))
		defer server.Close()

		provider := NewProxyProvider(server.URL, logger)
		items, err := provider.Search(ctx, "test query", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 results, got %d", len(items))
		}
		if items[1].ChannelTitle != "B" {
			t.Errorf("unexpected results %+v", items)
		}
	})

	t.Run("empty search falls back to placeholders", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": []}`))
		}))
		defer server.Close()

		provider := NewProxyProvider(server.URL, logger)
		items, err := provider.Search(ctx, "obscure", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != len(placeholderItems) {
			t.Errorf("expected placeholders, got %d items", len(items))
		}
	})

	t.Run("proxy failure is an API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		provider := NewProxyProvider(server.URL, logger)
		if _, err := provider.PlaylistPage(ctx, "PL123", "", 50); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
