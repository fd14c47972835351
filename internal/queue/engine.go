// package queue implements the two-tier playback queue: a FIFO priority
// tier of user requests drained ahead of a circular default playlist.
//
// Track identity is always the video id; cleaned titles (parentheticals
// stripped) are used only for display and duplicate heuristics.
package queue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// advanceGuardWindow is how long the advance guard stays held after a
// transition. Concurrent advance calls inside the window are dropped.
const advanceGuardWindow = time.Second

// CommandSink receives the play command for each track the engine advances
// to. The playback channel implements this.
type CommandSink interface {
	Play(ctx context.Context, item models.QueueItem) error
}

// Snapshot is a point-in-time view of the queue for the kiosk and TUI.
type Snapshot struct {
	NowPlaying models.QueueItem   `json:"nowPlaying"`
	Source     models.PlaySource  `json:"source,omitempty"`
	Playing    bool               `json:"playing"`
	Requests   []models.Request   `json:"requests"`
	Upcoming   []models.QueueItem `json:"upcoming"`
}

// Engine owns the queue state. All mutation goes through its methods; the
// playback channel drives Advance, the HTTP/TUI surfaces drive the rest.
type Engine struct {
	mu       sync.Mutex
	priority []models.Request
	playlist []models.QueueItem

	nowPlaying   models.QueueItem
	nowSource    models.PlaySource
	playing      bool
	cleanedTitle string

	advancing bool
	guard     time.Duration
	after     func(time.Duration, func()) *time.Timer

	sink    CommandSink
	session *Session
	logger  *log.Logger
	now     func() time.Time
}

// NewEngine creates an Engine bound to a session. The command sink is wired
// afterwards with BindSink since the playback channel needs the engine first.
func NewEngine(session *Session, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		guard:   advanceGuardWindow,
		after:   time.AfterFunc,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// BindSink attaches the command sink that receives play commands.
func (e *Engine) BindSink(sink CommandSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// SetPlaylist replaces the default playlist wholesale.
func (e *Engine) SetPlaylist(items []models.QueueItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playlist = make([]models.QueueItem, len(items))
	copy(e.playlist, items)
	e.logger.Info("default playlist set", "items", len(items))
}

// Reorder replaces the default playlist with the given order. No validation
// is performed; the caller is trusted to pass a permutation.
func (e *Engine) Reorder(items []models.QueueItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playlist = make([]models.QueueItem, len(items))
	copy(e.playlist, items)
}

// EnqueuePriority appends a request to the priority tier. A video id already
// waiting in the tier is rejected with ErrDuplicateTrack; the default
// playlist and play history are not consulted.
func (e *Engine) EnqueuePriority(item models.QueueItem, requestedBy string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, req := range e.priority {
		if req.Item.VideoID == item.VideoID {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateTrack, item.VideoID)
		}
	}

	req := models.Request{Item: item, RequestedBy: requestedBy, Timestamp: e.now()}
	e.priority = append(e.priority, req)

	if e.session != nil {
		e.session.RecordRequest(req)
		e.session.Audit(fmt.Sprintf("request queued: %s", shared.CleanTitle(item.Title)))
	}
	e.logger.Info("priority request queued", "video", item.VideoID, "position", len(e.priority))
	return nil
}

// Advance moves to the next track: the priority head if any, otherwise the
// default playlist head, which rotates to the tail so the playlist loops.
// A guard drops reentrant calls for the guard window; the double-fire of an
// ended status plus a manual skip lands here as one transition.
func (e *Engine) Advance(ctx context.Context) error {
	e.mu.Lock()

	if e.advancing {
		e.mu.Unlock()
		e.logger.Debug("advance in progress, dropping")
		return nil
	}
	e.advancing = true
	e.after(e.guard, e.releaseGuard)

	var (
		item   models.QueueItem
		source models.PlaySource
	)

	switch {
	case len(e.priority) > 0:
		item = e.priority[0].Item
		e.priority = e.priority[1:]
		source = models.SourceRequest
	case len(e.playlist) > 0:
		item = e.playlist[0]
		e.playlist = append(e.playlist[1:], e.playlist[0])
		source = models.SourceAutoplay
	default:
		e.playing = false
		e.nowPlaying = models.QueueItem{}
		e.cleanedTitle = ""
		e.mu.Unlock()
		e.logger.Warn("queue exhausted")
		return nil
	}

	e.nowPlaying = item
	e.nowSource = source
	e.playing = true
	e.cleanedTitle = shared.CleanTitle(item.Title)
	sink := e.sink
	e.mu.Unlock()

	e.logger.Info("now playing", "title", e.cleanedTitle, "video", item.VideoID, "source", source)
	if e.session != nil {
		e.session.RecordPlay(item, source)
	}

	if sink != nil {
		if err := sink.Play(ctx, item); err != nil {
			e.logger.Warn("play command not delivered", "video", item.VideoID, "error", err)
		}
	}
	return nil
}

func (e *Engine) releaseGuard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advancing = false
}

// Skip advances past the current track. Skipping a user-requested track
// needs confirmed=true; autoplay tracks skip immediately.
func (e *Engine) Skip(ctx context.Context, confirmed bool) error {
	e.mu.Lock()
	source := e.nowSource
	playing := e.playing
	title := e.cleanedTitle
	e.mu.Unlock()

	if playing && source == models.SourceRequest && !confirmed {
		return fmt.Errorf("%w: %s was requested by a user", shared.ErrSkipConfirmation, title)
	}

	if e.session != nil && playing {
		e.session.Audit(fmt.Sprintf("skipped: %s", title))
	}
	return e.Advance(ctx)
}

// ShuffleRemaining reshuffles the default playlist uniformly, keeping the
// entry whose cleaned title matches now-playing at the front so the loop
// continues from the current track.
func (e *Engine) ShuffleRemaining() {
	e.mu.Lock()
	defer e.mu.Unlock()

	pinned := -1
	if e.playing && e.cleanedTitle != "" {
		for i, item := range e.playlist {
			if shared.CleanTitle(item.Title) == e.cleanedTitle {
				pinned = i
				break
			}
		}
	}

	rest := make([]models.QueueItem, 0, len(e.playlist))
	var head []models.QueueItem
	for i, item := range e.playlist {
		if i == pinned {
			head = append(head, item)
			continue
		}
		rest = append(rest, item)
	}

	rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	e.playlist = append(head, rest...)

	if e.session != nil {
		e.session.Audit("playlist shuffled")
	}
}

// Remove deletes the default playlist entry at index i. The now-playing
// entry cannot be removed.
func (e *Engine) Remove(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.playlist) {
		return fmt.Errorf("index %d out of range", i)
	}
	if e.playing && e.playlist[i].VideoID == e.nowPlaying.VideoID {
		return fmt.Errorf("%w: %s", shared.ErrNowPlaying, e.cleanedTitle)
	}

	e.playlist = append(e.playlist[:i], e.playlist[i+1:]...)
	return nil
}

// RemoveRequest deletes the priority tier entry at index i.
func (e *Engine) RemoveRequest(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.priority) {
		return fmt.Errorf("index %d out of range", i)
	}
	e.priority = append(e.priority[:i], e.priority[i+1:]...)
	return nil
}

// NowPlaying returns the current track, its source tier, and whether
// anything is playing.
func (e *Engine) NowPlaying() (models.QueueItem, models.PlaySource, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nowPlaying, e.nowSource, e.playing
}

// CurrentVideoID returns the video id of the tracked current track, or ""
// when idle. The playback channel uses this for its id-match check.
func (e *Engine) CurrentVideoID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return ""
	}
	return e.nowPlaying.VideoID
}

// NowPlayingTitle returns the cleaned display title of the current track.
func (e *Engine) NowPlayingTitle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cleanedTitle
}

// Snapshot returns a copy of the full queue state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		NowPlaying: e.nowPlaying,
		Source:     e.nowSource,
		Playing:    e.playing,
		Requests:   make([]models.Request, len(e.priority)),
		Upcoming:   make([]models.QueueItem, len(e.playlist)),
	}
	copy(snap.Requests, e.priority)
	copy(snap.Upcoming, e.playlist)
	return snap
}
