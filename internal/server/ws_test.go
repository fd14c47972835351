package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

func dialBridge(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/player"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial bridge: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPlayerBridge(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("send without a player fails", func(t *testing.T) {
		bridge := NewPlayerBridge(logger)
		if err := bridge.Send(models.PlaybackCommand{Action: models.ActionPlay}); err == nil {
			t.Error("expected an error with no player connected")
		}
		if err := bridge.Reopen(); err == nil {
			t.Error("expected reopen to fail with no player connected")
		}
	})

	t.Run("commands reach the player", func(t *testing.T) {
		bridge := NewPlayerBridge(logger)
		router := NewBasicRouter()
		router.Handler(bridge)
		server := httptest.NewServer(router)
		defer server.Close()
		defer bridge.Close()

		conn := dialBridge(t, server.URL)

		// The upgrade races with the dialer returning; wait for registration.
		deadline := time.Now().Add(time.Second)
		for bridge.Reopen() != nil {
			if time.Now().After(deadline) {
				t.Fatal("player never registered")
			}
			time.Sleep(5 * time.Millisecond)
		}

		cmd := models.PlaybackCommand{Action: models.ActionPlay, VideoID: "v1", Sequence: 7, Timestamp: time.Now()}
		if err := bridge.Send(cmd); err != nil {
			t.Fatalf("send failed: %v", err)
		}

		var got models.PlaybackCommand
		conn.SetReadDeadline(time.Now().Add(time.Second))
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("player read failed: %v", err)
		}
		if got.Action != models.ActionPlay || got.VideoID != "v1" || got.Sequence != 7 {
			t.Errorf("unexpected command %+v", got)
		}
	})

	t.Run("concurrent senders share one connection safely", func(t *testing.T) {
		bridge := NewPlayerBridge(logger)
		router := NewBasicRouter()
		router.Handler(bridge)
		server := httptest.NewServer(router)
		defer server.Close()
		defer bridge.Close()

		conn := dialBridge(t, server.URL)

		deadline := time.Now().Add(time.Second)
		for bridge.Reopen() != nil {
			if time.Now().After(deadline) {
				t.Fatal("player never registered")
			}
			time.Sleep(5 * time.Millisecond)
		}

		// One goroutine per command, the way the playback channel and the
		// HTTP handlers overlap in production.
		const senders = 8
		var wg sync.WaitGroup
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func(seq uint64) {
				defer wg.Done()
				cmd := models.PlaybackCommand{Action: models.ActionPause, Sequence: seq, Timestamp: time.Now()}
				if err := bridge.Send(cmd); err != nil {
					t.Errorf("send failed: %v", err)
				}
			}(uint64(i))
		}
		wg.Wait()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		for i := 0; i < senders; i++ {
			var got models.PlaybackCommand
			if err := conn.ReadJSON(&got); err != nil {
				t.Fatalf("player read %d failed: %v", i, err)
			}
		}
	})

	t.Run("statuses flow back from the player", func(t *testing.T) {
		bridge := NewPlayerBridge(logger)
		router := NewBasicRouter()
		router.Handler(bridge)
		server := httptest.NewServer(router)
		defer server.Close()
		defer bridge.Close()

		conn := dialBridge(t, server.URL)

		status := models.PlaybackStatus{Status: models.StatusEnded, VideoID: "v1", Timestamp: time.Now()}
		if err := conn.WriteJSON(status); err != nil {
			t.Fatalf("player write failed: %v", err)
		}

		select {
		case got := <-bridge.Statuses():
			if got.Status != models.StatusEnded || got.VideoID != "v1" {
				t.Errorf("unexpected status %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for status")
		}
	})

	t.Run("close ends the status stream", func(t *testing.T) {
		bridge := NewPlayerBridge(logger)
		if err := bridge.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := bridge.Close(); err != nil {
			t.Fatalf("second close failed: %v", err)
		}
		if _, ok := <-bridge.Statuses(); ok {
			t.Error("expected a closed status stream")
		}
	})
}
