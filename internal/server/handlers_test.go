package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/jukebox/internal/loader"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/providers"
	"github.com/desertthunder/jukebox/internal/queue"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

// stubProvider serves fixed search results and playlist items.
type stubProvider struct {
	name    string
	results []models.QueueItem
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error) {
	return s.results, nil
}

func (s *stubProvider) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (*providers.PlaylistPage, error) {
	return &providers.PlaylistPage{Items: s.results}, nil
}

type testFixture struct {
	handler *JukeboxHandler
	engine  *queue.Engine
	session *queue.Session
}

func newTestFixture(t *testing.T, mode queue.Mode) *testFixture {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	session := queue.NewSession(mode, logger)
	engine := queue.NewEngine(session, logger)
	transport := playback.NewLoopbackTransport()
	channel := playback.NewChannel(transport, engine, session.Audit, logger)
	engine.BindSink(channel)

	key := "AIza" + strings.Repeat("x", 35)
	tracker := quota.NewTracker()
	rotator := quota.NewRotator([]string{key}, tracker, true, logger)

	primary := &stubProvider{name: "primary", results: []models.QueueItem{
		{ID: "s1", Title: "Result One", ChannelTitle: "Ch", VideoID: "s1"},
	}}
	ldr := loader.NewLoader(primary, &stubProvider{name: "fallback"}, rotator, logger)

	handler := NewJukeboxHandler(engine, session, channel, ldr, tracker, rotator, []string{key}, nil, logger)
	return &testFixture{handler: handler, engine: engine, session: session}
}

func (f *testFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestJukeboxHandler(t *testing.T) {
	t.Run("now reports idle state", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		rec := f.do(t, http.MethodGet, "/api/now", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Playing bool       `json:"playing"`
			Mode    queue.Mode `json:"mode"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Playing {
			t.Error("expected nothing playing")
		}
		if body.Mode != queue.ModeFreeplay {
			t.Errorf("expected freeplay, got %s", body.Mode)
		}
	})

	t.Run("request starts playback when idle", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		rec := f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1","title":"Song One"}`)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		if now, _, playing := f.engine.NowPlaying(); !playing || now.VideoID != "v1" {
			t.Errorf("expected v1 playing, got %+v playing=%v", now, playing)
		}
	})

	t.Run("duplicate pending request is a conflict", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1","title":"One"}`)
		f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v2","title":"Two"}`)

		rec := f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v2","title":"Two"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("missing video id is a bad request", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		rec := f.do(t, http.MethodPost, "/api/requests", `{"title":"No ID"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("coin mode rejects requests without credits", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeCoin)
		rec := f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1"}`)
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodPost, "/api/credits", `{"amount":2}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1"}`)
		if rec.Code != http.StatusAccepted {
			t.Errorf("expected 202 after adding credits, got %d", rec.Code)
		}
		if f.session.Credits() != 1 {
			t.Errorf("expected 1 credit left, got %d", f.session.Credits())
		}
	})

	t.Run("rejected duplicate refunds the credit", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeCoin)
		f.do(t, http.MethodPost, "/api/credits", `{"amount":3}`)

		rec := f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1"}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v2"}`)

		rec = f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v2"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if f.session.Credits() != 1 {
			t.Errorf("expected the duplicate's credit refunded, got %d", f.session.Credits())
		}
	})

	t.Run("invalid credit amount is a bad request", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeCoin)
		rec := f.do(t, http.MethodPost, "/api/credits", `{"amount":0}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("skipping a user request needs confirmation", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1","title":"One"}`)

		rec := f.do(t, http.MethodPost, "/api/skip", `{"confirmed":false}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodPost, "/api/skip", `{"confirmed":true}`)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("queue snapshot and shuffle", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		f.engine.SetPlaylist([]models.QueueItem{
			{ID: "a", Title: "A", VideoID: "a"},
			{ID: "b", Title: "B", VideoID: "b"},
		})

		rec := f.do(t, http.MethodPost, "/api/shuffle", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		rec = f.do(t, http.MethodGet, "/api/queue", "")
		var snap queue.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		if len(snap.Upcoming) != 2 {
			t.Errorf("expected 2 upcoming items, got %d", len(snap.Upcoming))
		}
	})

	t.Run("search proxies the provider chain", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		rec := f.do(t, http.MethodGet, "/api/search?q=song", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Results []models.QueueItem `json:"results"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Results) != 1 || body.Results[0].VideoID != "s1" {
			t.Errorf("unexpected results %+v", body.Results)
		}
	})

	t.Run("search without a query is a bad request", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		if rec := f.do(t, http.MethodGet, "/api/search", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("quota dashboard lists key estimates", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		rec := f.do(t, http.MethodGet, "/api/quota", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Keys      []models.KeyQuota `json:"keys"`
			Exhausted bool              `json:"exhausted"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Keys) != 1 || len(body.Keys[0].KeySuffix) != 4 {
			t.Errorf("unexpected keys %+v", body.Keys)
		}
		if body.Exhausted {
			t.Error("expected keys not exhausted")
		}
	})

	t.Run("history falls back to the session log", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		f.do(t, http.MethodPost, "/api/requests", `{"videoId":"v1","title":"One"}`)

		rec := f.do(t, http.MethodGet, "/api/history", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Plays []models.PlayLogEntry `json:"plays"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Plays) != 1 || body.Plays[0].VideoID != "v1" {
			t.Errorf("unexpected plays %+v", body.Plays)
		}
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		f := newTestFixture(t, queue.ModeFreeplay)
		if rec := f.do(t, http.MethodPost, "/api/queue", ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware wraps in order", func(t *testing.T) {
		router := NewBasicRouter()
		var order []string

		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		router.Use(mark("outer"), mark("inner"))
		router.Handle("GET /ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		want := []string{"outer", "inner", "handler"}
		for i := range want {
			if i >= len(order) || order[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, order)
			}
		}
	})
}
