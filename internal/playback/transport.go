package playback

import (
	"fmt"
	"sync"

	"github.com/desertthunder/jukebox/internal/models"
)

const loopbackBuffer = 16

// Transport carries commands to the playback surface and statuses back.
// Implementations: the in-process loopback below, and the websocket bridge
// the HTTP server exposes for a remote player window.
type Transport interface {
	// Send delivers one command. An error means the surface is unreachable
	// right now; the channel decides whether to reopen and retry.
	Send(cmd models.PlaybackCommand) error

	// Statuses yields reports from the surface. The channel owns the
	// receiving side; the transport closes it on Close.
	Statuses() <-chan models.PlaybackStatus

	// Reopen attempts to re-establish the surface connection.
	Reopen() error

	// Close tears the transport down.
	Close() error
}

// LoopbackTransport wires commands and statuses through in-process channels,
// used by tests and the single-window mode where the player runs in the same
// process.
type LoopbackTransport struct {
	mu       sync.Mutex
	closed   bool
	commands chan models.PlaybackCommand
	statuses chan models.PlaybackStatus
}

// NewLoopbackTransport creates a LoopbackTransport with small buffers.
func NewLoopbackTransport() *LoopbackTransport {
	return &LoopbackTransport{
		commands: make(chan models.PlaybackCommand, loopbackBuffer),
		statuses: make(chan models.PlaybackStatus, loopbackBuffer),
	}
}

// Send queues a command for the local consumer. A full buffer counts as an
// unreachable surface.
func (t *LoopbackTransport) Send(cmd models.PlaybackCommand) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("loopback transport closed")
	}
	select {
	case t.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("loopback command buffer full")
	}
}

// Commands yields the commands the local player consumes.
func (t *LoopbackTransport) Commands() <-chan models.PlaybackCommand {
	return t.commands
}

// Statuses yields reports pushed by the local player.
func (t *LoopbackTransport) Statuses() <-chan models.PlaybackStatus {
	return t.statuses
}

// PushStatus reports a status from the local player side. Pushes after Close
// are dropped.
func (t *LoopbackTransport) PushStatus(status models.PlaybackStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	select {
	case t.statuses <- status:
	default:
	}
}

// Reopen is a no-op; the loopback is always connected.
func (t *LoopbackTransport) Reopen() error {
	return nil
}

// Close shuts the status stream down.
func (t *LoopbackTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.statuses)
	return nil
}
