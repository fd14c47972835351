package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/loader"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/queue"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

// HistoryStore is the slice of the play history repository the API reads.
type HistoryStore interface {
	Recent(limit int) ([]models.PlayLogEntry, error)
}

// JukeboxHandler serves the kiosk API: queue views, request submission,
// playback controls, search, and the quota dashboard.
type JukeboxHandler struct {
	mux     *http.ServeMux
	engine  *queue.Engine
	session *queue.Session
	channel *playback.Channel
	loader  *loader.Loader
	tracker *quota.Tracker
	rotator *quota.Rotator
	apiKeys []string
	history HistoryStore
	logger  *log.Logger
}

// NewJukeboxHandler creates the kiosk API handler. history may be nil when
// persistence is disabled.
func NewJukeboxHandler(
	engine *queue.Engine,
	session *queue.Session,
	channel *playback.Channel,
	ldr *loader.Loader,
	tracker *quota.Tracker,
	rotator *quota.Rotator,
	apiKeys []string,
	history HistoryStore,
	logger *log.Logger,
) *JukeboxHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := &JukeboxHandler{
		mux:     http.NewServeMux(),
		engine:  engine,
		session: session,
		channel: channel,
		loader:  ldr,
		tracker: tracker,
		rotator: rotator,
		apiKeys: apiKeys,
		history: history,
		logger:  logger,
	}

	h.mux.HandleFunc("GET /api/now", h.handleNow)
	h.mux.HandleFunc("GET /api/queue", h.handleQueue)
	h.mux.HandleFunc("POST /api/requests", h.handleRequest)
	h.mux.HandleFunc("POST /api/skip", h.handleSkip)
	h.mux.HandleFunc("POST /api/shuffle", h.handleShuffle)
	h.mux.HandleFunc("POST /api/pause", h.handlePause)
	h.mux.HandleFunc("POST /api/resume", h.handleResume)
	h.mux.HandleFunc("GET /api/search", h.handleSearch)
	h.mux.HandleFunc("GET /api/quota", h.handleQuota)
	h.mux.HandleFunc("GET /api/history", h.handleHistory)
	h.mux.HandleFunc("POST /api/credits", h.handleCredits)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *JukeboxHandler) Routes() []string {
	return []string{
		"GET /api/now",
		"GET /api/queue",
		"POST /api/requests",
		"POST /api/skip",
		"POST /api/shuffle",
		"POST /api/pause",
		"POST /api/resume",
		"GET /api/search",
		"GET /api/quota",
		"GET /api/history",
		"POST /api/credits",
	}
}

// ServeHTTP dispatches to the route handlers.
func (h *JukeboxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *JukeboxHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *JukeboxHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *JukeboxHandler) handleNow(w http.ResponseWriter, r *http.Request) {
	item, source, playing := h.engine.NowPlaying()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"playing":    playing,
		"nowPlaying": item,
		"title":      h.engine.NowPlayingTitle(),
		"source":     source,
		"status":     h.channel.LastStatus(),
		"mode":       h.session.Mode(),
		"credits":    h.session.Credits(),
	})
}

func (h *JukeboxHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *JukeboxHandler) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID      string `json:"videoId"`
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		RequestedBy  string `json:"requestedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("videoId is required"))
		return
	}

	if err := h.session.SpendCredit(); err != nil {
		h.writeError(w, http.StatusPaymentRequired, err)
		return
	}

	item := models.QueueItem{
		ID:           body.VideoID,
		Title:        body.Title,
		ChannelTitle: body.ChannelTitle,
		VideoID:      body.VideoID,
	}
	if err := h.engine.EnqueuePriority(item, body.RequestedBy); err != nil {
		h.session.RefundCredit()
		if errors.Is(err, shared.ErrDuplicateTrack) {
			h.writeError(w, http.StatusConflict, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	// Nothing playing yet: the request should start immediately.
	if _, _, playing := h.engine.NowPlaying(); !playing {
		h.engine.Advance(r.Context())
	}

	h.writeJSON(w, http.StatusAccepted, h.engine.Snapshot())
}

func (h *JukeboxHandler) handleSkip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmed bool `json:"confirmed"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	if err := h.engine.Skip(r.Context(), body.Confirmed); err != nil {
		if errors.Is(err, shared.ErrSkipConfirmation) {
			h.writeError(w, http.StatusConflict, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *JukeboxHandler) handleShuffle(w http.ResponseWriter, r *http.Request) {
	h.engine.ShuffleRemaining()
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *JukeboxHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.playbackControl(r.Context(), w, h.channel.Pause)
}

func (h *JukeboxHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.playbackControl(r.Context(), w, h.channel.Resume)
}

func (h *JukeboxHandler) playbackControl(ctx context.Context, w http.ResponseWriter, control func(context.Context) error) {
	if err := control(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *JukeboxHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.loader.Search(r.Context(), query, limit)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

func (h *JukeboxHandler) handleQuota(w http.ResponseWriter, r *http.Request) {
	keys := make([]models.KeyQuota, 0, len(h.apiKeys))
	for _, key := range h.apiKeys {
		keys = append(keys, h.tracker.Quota(key))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"keys":      keys,
		"exhausted": h.rotator.Exhausted(),
		"rotations": h.rotator.Events(),
	})
}

func (h *JukeboxHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if h.history == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"plays": h.session.Plays()})
		return
	}
	plays, err := h.history.Recent(limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"plays": plays})
}

func (h *JukeboxHandler) handleCredits(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("a positive amount is required"))
		return
	}

	h.session.AddCredits(body.Amount)
	h.writeJSON(w, http.StatusOK, map[string]int{"credits": h.session.Credits()})
}
