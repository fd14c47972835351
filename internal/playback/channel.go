// package playback dispatches commands to the playback surface and turns
// its asynchronous status reports into queue transitions.
//
// The surface may live in another window or process; ordering is enforced
// with timestamps and a per-command sequence, and terminal statuses only
// count when they name the track the queue believes is current.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	// reopenRetries bounds the reconnect attempts on a failed send.
	reopenRetries = 2

	// endedDebounce absorbs the near-simultaneous ended/fadeComplete pair
	// the surface emits at the end of a track.
	endedDebounce = 100 * time.Millisecond

	// errorDebounce gives transient player errors a moment to self-resolve
	// before the track is skipped.
	errorDebounce = 1500 * time.Millisecond
)

// Advancer is the queue side of the channel. The queue engine implements it.
type Advancer interface {
	Advance(ctx context.Context) error
	CurrentVideoID() string
}

// Channel binds a Transport to the queue. Commands flow out with fresh
// timestamps and sequence numbers; statuses flow in, are de-duplicated and
// debounced, and drive Advance.
type Channel struct {
	mu            sync.Mutex
	seq           uint64
	lastProcessed time.Time
	lastStatus    models.PlaybackStatus
	pending       bool

	transport Transport
	advancer  Advancer
	audit     func(string)
	logger    *log.Logger

	now   func() time.Time
	after func(time.Duration, func()) *time.Timer
}

// NewChannel creates a Channel over the given transport. audit may be nil.
func NewChannel(transport Transport, advancer Advancer, audit func(string), logger *log.Logger) *Channel {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Channel{
		transport: transport,
		advancer:  advancer,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
		after:     time.AfterFunc,
	}
}

// Start consumes statuses from the transport until the context ends or the
// transport closes its stream.
func (c *Channel) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case status, ok := <-c.transport.Statuses():
				if !ok {
					c.logger.Info("status stream closed")
					return
				}
				c.HandleStatus(ctx, status)
			}
		}
	}()
}

// Play implements the queue's command sink for a track transition.
func (c *Channel) Play(ctx context.Context, item models.QueueItem) error {
	return c.Send(ctx, models.PlaybackCommand{
		Action:  models.ActionPlay,
		VideoID: item.VideoID,
		Title:   item.Title,
		Artist:  item.ChannelTitle,
	})
}

// Pause pauses the surface.
func (c *Channel) Pause(ctx context.Context) error {
	return c.Send(ctx, models.PlaybackCommand{Action: models.ActionPause})
}

// Resume resumes the surface.
func (c *Channel) Resume(ctx context.Context) error {
	return c.Send(ctx, models.PlaybackCommand{Action: models.ActionResume})
}

// FadeOut fades the surface to black, used when the venue closes.
func (c *Channel) FadeOut(ctx context.Context) error {
	return c.Send(ctx, models.PlaybackCommand{Action: models.ActionFadeOut})
}

// Send stamps and delivers a command. A failed delivery is retried after
// reopening the transport, a bounded number of times; when every attempt
// fails the operator guidance is logged and ErrPlayerUnavailable returned.
// Callers log and continue; the queue state has already moved on.
func (c *Channel) Send(ctx context.Context, cmd models.PlaybackCommand) error {
	c.mu.Lock()
	c.seq++
	cmd.Sequence = c.seq
	cmd.Timestamp = c.now()
	c.mu.Unlock()

	err := c.transport.Send(cmd)
	for attempt := 1; err != nil && attempt <= reopenRetries; attempt++ {
		c.logger.Warn("command delivery failed, reopening player connection",
			"action", cmd.Action, "attempt", attempt, "error", err)
		if reopenErr := c.transport.Reopen(); reopenErr != nil {
			err = reopenErr
			continue
		}
		err = c.transport.Send(cmd)
	}
	if err != nil {
		c.logger.Error("player unreachable, open the player manually", "action", cmd.Action, "error", err)
		return fmt.Errorf("%w: %v", shared.ErrPlayerUnavailable, err)
	}
	return nil
}

// HandleStatus applies one status report. Reports strictly older than the
// last processed one are discarded; terminal reports must name the current
// track to take effect.
func (c *Channel) HandleStatus(ctx context.Context, status models.PlaybackStatus) {
	c.mu.Lock()
	if status.Timestamp.Before(c.lastProcessed) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale status", "status", status.Status, "video", status.VideoID)
		return
	}
	c.lastProcessed = status.Timestamp
	c.lastStatus = status
	c.mu.Unlock()

	switch status.Status {
	case models.StatusReady:
		if c.advancer.CurrentVideoID() == "" {
			c.logger.Info("player ready, starting playback")
			c.advance(ctx)
		}

	case models.StatusPlaying:
		c.logger.Debug("playing", "video", status.VideoID, "title", status.Title)

	case models.StatusEnded, models.StatusFadeComplete:
		if !c.matchesCurrent(status) {
			return
		}
		c.debounced(ctx, endedDebounce)

	case models.StatusError, models.StatusUnavailable:
		if !c.matchesCurrent(status) {
			return
		}
		c.logger.Warn("auto-skipping unavailable video", "video", status.VideoID)
		if c.audit != nil {
			c.audit("auto-skipping unavailable video")
		}
		c.debounced(ctx, errorDebounce)
	}
}

// matchesCurrent checks the status against the queue's current track. A
// mismatch means the report belongs to a track the queue already left.
func (c *Channel) matchesCurrent(status models.PlaybackStatus) bool {
	current := c.advancer.CurrentVideoID()
	if current == "" || status.VideoID != current {
		c.logger.Debug("ignoring status for stale track",
			"status", status.Status, "video", status.VideoID, "current", current)
		return false
	}
	return true
}

// debounced schedules a single advance after the delay, dropping further
// terminal reports while one is pending.
func (c *Channel) debounced(ctx context.Context, delay time.Duration) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = true
	c.mu.Unlock()

	c.after(delay, func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		c.advance(ctx)
	})
}

func (c *Channel) advance(ctx context.Context) {
	if err := c.advancer.Advance(ctx); err != nil {
		c.logger.Error("advance failed", "error", err)
	}
}

// LastStatus returns the most recent status report, for the admin surfaces.
func (c *Channel) LastStatus() models.PlaybackStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}
