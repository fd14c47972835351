package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const statusBuffer = 32

// PlayerBridge is the websocket transport between the queue and a remote
// player window. It implements playback.Transport: commands are written to
// the connected player, status reports read from it are surfaced on the
// Statuses stream.
//
// At most one player is connected; a new connection replaces the old one.
type PlayerBridge struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	statuses chan models.PlaybackStatus

	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewPlayerBridge creates a PlayerBridge with no player connected yet.
func NewPlayerBridge(logger *log.Logger) *PlayerBridge {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlayerBridge{
		statuses: make(chan models.PlaybackStatus, statusBuffer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The player window is served from the kiosk itself; skip the
			// origin check so file:// and localhost variants both work.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (b *PlayerBridge) Routes() []string {
	return []string{"GET /ws/player"}
}

// ServeHTTP upgrades the player connection and reads status reports until
// it drops.
func (b *PlayerBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("player websocket upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	if b.conn != nil {
		b.logger.Warn("replacing existing player connection")
		b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()

	b.logger.Info("player connected", "remote", conn.RemoteAddr())
	b.readLoop(conn)
}

// readLoop decodes status reports off one connection until it fails.
func (b *PlayerBridge) readLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		conn.Close()
		b.logger.Info("player disconnected", "remote", conn.RemoteAddr())
	}()

	for {
		var status models.PlaybackStatus
		if err := conn.ReadJSON(&status); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("player read failed", "error", err)
			}
			return
		}

		select {
		case b.statuses <- status:
		default:
			b.logger.Warn("status buffer full, dropping report", "status", status.Status)
		}
	}
}

// Send writes one command to the connected player. The lock is held across
// the write: the playback channel and HTTP handlers send concurrently, and
// the connection allows only one writer at a time.
func (b *PlayerBridge) Send(cmd models.PlaybackCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return fmt.Errorf("no player connected")
	}
	if err := b.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// Statuses yields reports from the connected player.
func (b *PlayerBridge) Statuses() <-chan models.PlaybackStatus {
	return b.statuses
}

// Reopen reports whether a player is available again. The bridge cannot
// dial the player; reconnection happens from the browser side, so this only
// succeeds once a new connection has already arrived.
func (b *PlayerBridge) Reopen() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return fmt.Errorf("no player connected")
	}
	return nil
}

// Close drops the player connection and ends the status stream.
func (b *PlayerBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	close(b.statuses)
	return nil
}
