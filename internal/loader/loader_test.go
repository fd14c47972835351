package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/providers"
	"github.com/desertthunder/jukebox/internal/quota"
	"github.com/desertthunder/jukebox/internal/shared"
)

// fakeProvider serves canned pages and counts calls.
type fakeProvider struct {
	name      string
	pages     map[string]*providers.PlaylistPage
	err       error
	calls     int
	results   []models.QueueItem
	searchErr error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, limit int) ([]models.QueueItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeProvider) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int) (*providers.PlaylistPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return &providers.PlaylistPage{}, nil
	}
	return page, nil
}

func items(n int, prefix string) []models.QueueItem {
	out := make([]models.QueueItem, n)
	for i := range out {
		id := prefix + strconv.Itoa(i)
		out[i] = models.QueueItem{ID: id, Title: "Track " + id, VideoID: id}
	}
	return out
}

func healthyKeys(t *testing.T) *quota.Rotator {
	t.Helper()
	return quota.NewRotator([]string{"k1"}, quota.NewTracker(), true, shared.NewLogger(io.Discard))
}

func newTestLoader(primary, fallback providers.Provider, keys *quota.Rotator, opts ...Option) *Loader {
	l := NewLoader(primary, fallback, keys, shared.NewLogger(io.Discard), opts...)
	l.shuffle = func([]models.QueueItem) {}
	return l
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("pages through the primary until the token runs out", func(t *testing.T) {
		primary := &fakeProvider{
			name: "primary",
			pages: map[string]*providers.PlaylistPage{
				"":   {Items: items(50, "a"), NextPageToken: "p2"},
				"p2": {Items: items(50, "b"), NextPageToken: "p3"},
				"p3": {Items: items(50, "c"), NextPageToken: "p4"},
				"p4": {Items: items(50, "d"), NextPageToken: "p5"},
				"p5": {Items: items(50, "e"), NextPageToken: "p6"},
				"p6": {Items: items(50, "f"), NextPageToken: ""},
			},
		}
		fallback := &fakeProvider{name: "fallback"}
		l := newTestLoader(primary, fallback, healthyKeys(t))

		got, err := l.Load(ctx, "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 300 {
			t.Errorf("expected all 300 items, got %d", len(got))
		}
		if primary.calls != 6 {
			t.Errorf("expected all 6 pages fetched, got %d calls", primary.calls)
		}
		if fallback.calls != 0 {
			t.Error("fallback should not be consulted on primary success")
		}
	})

	t.Run("page cap bounds a playlist that never ends", func(t *testing.T) {
		// Both pages point back at "loop"; without the cap this never stops.
		primary := &fakeProvider{
			name: "primary",
			pages: map[string]*providers.PlaylistPage{
				"":     {Items: items(50, "a"), NextPageToken: "loop"},
				"loop": {Items: items(50, "b"), NextPageToken: "loop"},
			},
		}
		l := newTestLoader(primary, nil, healthyKeys(t), WithPaging(50, 3))

		got, err := l.Load(ctx, "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if primary.calls != 3 {
			t.Errorf("expected 3 pages fetched, got %d calls", primary.calls)
		}
		if len(got) != 150 {
			t.Errorf("expected 150 items, got %d", len(got))
		}
	})

	t.Run("shuffles primary results once", func(t *testing.T) {
		primary := &fakeProvider{
			name:  "primary",
			pages: map[string]*providers.PlaylistPage{"": {Items: items(10, "a")}},
		}
		l := newTestLoader(primary, nil, healthyKeys(t))
		shuffled := 0
		l.shuffle = func([]models.QueueItem) { shuffled++ }

		if _, err := l.Load(ctx, "PL1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if shuffled != 1 {
			t.Errorf("expected exactly one shuffle, got %d", shuffled)
		}
	})

	t.Run("no credentials skips straight to the fallback", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", pages: map[string]*providers.PlaylistPage{"": {Items: items(5, "a")}}}
		fallback := &fakeProvider{name: "fallback", pages: map[string]*providers.PlaylistPage{"": {Items: items(3, "f")}}}
		l := newTestLoader(primary, fallback, nil)

		got, err := l.Load(ctx, "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if primary.calls != 0 {
			t.Error("primary should not be consulted without credentials")
		}
		if len(got) != 3 {
			t.Errorf("expected fallback items, got %d", len(got))
		}
	})

	t.Run("exhausted keys skip straight to the fallback", func(t *testing.T) {
		tracker := quota.NewTracker()
		tracker.MarkExhausted("k1")
		keys := quota.NewRotator([]string{"k1"}, tracker, true, shared.NewLogger(io.Discard))

		primary := &fakeProvider{name: "primary"}
		fallback := &fakeProvider{name: "fallback", pages: map[string]*providers.PlaylistPage{"": {Items: items(3, "f")}}}
		l := newTestLoader(primary, fallback, keys)

		if _, err := l.Load(ctx, "PL1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if primary.calls != 0 {
			t.Error("primary should not be consulted with exhausted keys")
		}
	})

	t.Run("primary failure falls through without shuffling", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", err: fmt.Errorf("boom")}
		fallback := &fakeProvider{name: "fallback", pages: map[string]*providers.PlaylistPage{"": {Items: items(3, "f")}}}
		l := newTestLoader(primary, fallback, healthyKeys(t))
		shuffled := 0
		l.shuffle = func([]models.QueueItem) { shuffled++ }

		got, err := l.Load(ctx, "PL1")
		if err != nil {
			t.Fatalf("fallback success should not surface an error, got %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected fallback items, got %d", len(got))
		}
		if shuffled != 0 {
			t.Error("fallback results must keep their order")
		}
		if failures, _ := l.Health("PL1"); failures != 1 {
			t.Errorf("expected 1 recorded failure, got %d", failures)
		}
	})

	t.Run("both providers failing yields ErrAllProvidersFailed", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", err: fmt.Errorf("boom")}
		fallback := &fakeProvider{name: "fallback", err: fmt.Errorf("also boom")}
		l := newTestLoader(primary, fallback, healthyKeys(t))

		if _, err := l.Load(ctx, "PL1"); !errors.Is(err, shared.ErrAllProvidersFailed) {
			t.Errorf("expected ErrAllProvidersFailed, got %v", err)
		}
	})

	t.Run("three failures trigger the cooldown", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", err: fmt.Errorf("boom")}
		fallback := &fakeProvider{name: "fallback", pages: map[string]*providers.PlaylistPage{"": {Items: items(1, "f")}}}
		l := newTestLoader(primary, fallback, healthyKeys(t))

		current := time.Now()
		l.now = func() time.Time { return current }

		for i := 0; i < defaultFailureThreshold; i++ {
			if _, err := l.Load(ctx, "PL1"); err != nil {
				t.Fatalf("expected fallback success, got %v", err)
			}
		}
		if primary.calls != defaultFailureThreshold {
			t.Fatalf("expected %d primary attempts, got %d", defaultFailureThreshold, primary.calls)
		}

		// Within the cooldown the primary is not consulted at all.
		if _, err := l.Load(ctx, "PL1"); err != nil {
			t.Fatalf("expected fallback success, got %v", err)
		}
		if primary.calls != defaultFailureThreshold {
			t.Errorf("expected primary suppressed during cooldown, got %d calls", primary.calls)
		}

		// After the cooldown the primary is tried again.
		current = current.Add(defaultCooldown)
		if _, err := l.Load(ctx, "PL1"); err != nil {
			t.Fatalf("expected fallback success, got %v", err)
		}
		if primary.calls != defaultFailureThreshold+1 {
			t.Errorf("expected primary retried after cooldown, got %d calls", primary.calls)
		}
	})

	t.Run("search degrades like load", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", searchErr: fmt.Errorf("boom")}
		fallback := &fakeProvider{name: "fallback", results: items(2, "s")}
		l := newTestLoader(primary, fallback, healthyKeys(t))

		got, err := l.Search(ctx, "query", 10)
		if err != nil {
			t.Fatalf("expected fallback search to succeed, got %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected fallback results, got %d", len(got))
		}

		fallback.searchErr = fmt.Errorf("also boom")
		if _, err := l.Search(ctx, "query", 10); !errors.Is(err, shared.ErrAllProvidersFailed) {
			t.Errorf("expected ErrAllProvidersFailed, got %v", err)
		}
	})

	t.Run("success clears the failure counter", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", pages: map[string]*providers.PlaylistPage{"": {Items: items(2, "a")}}}
		l := newTestLoader(primary, nil, healthyKeys(t))
		l.Seed("PL1", 2, time.Now())

		if _, err := l.Load(ctx, "PL1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if failures, _ := l.Health("PL1"); failures != 0 {
			t.Errorf("expected failures cleared, got %d", failures)
		}
	})
}
