package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// Mode selects how priority requests are paid for.
type Mode string

const (
	ModeFreeplay Mode = "freeplay"
	ModeCoin     Mode = "coin"
)

const (
	maxAuditEntries = 100
	maxPlayLog      = 100
	maxRequestLog   = 100
)

// Session holds the operator-visible state of a running jukebox: playback
// mode, credit balance, and the audit/request/play logs the admin surfaces
// read.
type Session struct {
	mu       sync.Mutex
	mode     Mode
	credits  int
	audit    []models.AuditEntry
	requests []models.Request
	plays    []models.PlayLogEntry
	playSink func(models.PlayLogEntry)
	logger   *log.Logger
	now      func() time.Time
}

// NewSession creates a Session in the given mode. Unknown modes fall back
// to freeplay.
func NewSession(mode Mode, logger *log.Logger) *Session {
	if mode != ModeCoin {
		mode = ModeFreeplay
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{
		mode:   mode,
		logger: logger,
		now:    time.Now,
	}
}

// Mode returns the current playback mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between freeplay and coin mode.
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode != ModeCoin {
		mode = ModeFreeplay
	}
	s.mode = mode
	s.appendAudit(fmt.Sprintf("playback mode set to %s", mode))
}

// Credits returns the current credit balance.
func (s *Session) Credits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits
}

// AddCredits adds n credits to the balance. Non-positive amounts are ignored.
func (s *Session) AddCredits(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credits += n
	s.appendAudit(fmt.Sprintf("%d credit(s) added, balance %d", n, s.credits))
}

// SpendCredit deducts one credit for a priority request. In freeplay mode
// this is a no-op; in coin mode an empty balance yields ErrNoCredits.
func (s *Session) SpendCredit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeCoin {
		return nil
	}
	if s.credits <= 0 {
		return shared.ErrNoCredits
	}
	s.credits--
	return nil
}

// RefundCredit returns the credit for a request that was not accepted.
// A no-op in freeplay mode, mirroring SpendCredit.
func (s *Session) RefundCredit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeCoin {
		return
	}
	s.credits++
	s.appendAudit(fmt.Sprintf("credit refunded, balance %d", s.credits))
}

// Audit appends a message to the capped audit log.
func (s *Session) Audit(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAudit(message)
}

func (s *Session) appendAudit(message string) {
	s.audit = append(s.audit, models.AuditEntry{Timestamp: s.now(), Message: message})
	if len(s.audit) > maxAuditEntries {
		s.audit = s.audit[len(s.audit)-maxAuditEntries:]
	}
}

// AuditLog returns a copy of the audit log, oldest first.
func (s *Session) AuditLog() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.AuditEntry, len(s.audit))
	copy(entries, s.audit)
	return entries
}

// RecordRequest logs a fulfilled priority request.
func (s *Session) RecordRequest(req models.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.requests) > maxRequestLog {
		s.requests = s.requests[len(s.requests)-maxRequestLog:]
	}
}

// Requests returns a copy of the request history, oldest first.
func (s *Session) Requests() []models.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]models.Request, len(s.requests))
	copy(requests, s.requests)
	return requests
}

// SetPlaySink installs a callback invoked for every recorded play, used to
// persist the play history.
func (s *Session) SetPlaySink(sink func(models.PlayLogEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playSink = sink
}

// RecordPlay logs a played track.
func (s *Session) RecordPlay(item models.QueueItem, source models.PlaySource) models.PlayLogEntry {
	s.mu.Lock()

	entry := models.PlayLogEntry{
		Timestamp:    s.now(),
		VideoID:      item.VideoID,
		Title:        item.Title,
		ChannelTitle: item.ChannelTitle,
		Source:       source,
	}
	s.plays = append(s.plays, entry)
	if len(s.plays) > maxPlayLog {
		s.plays = s.plays[len(s.plays)-maxPlayLog:]
	}
	sink := s.playSink
	s.mu.Unlock()

	if sink != nil {
		sink(entry)
	}
	return entry
}

// Plays returns a copy of the play log, oldest first.
func (s *Session) Plays() []models.PlayLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	plays := make([]models.PlayLogEntry, len(s.plays))
	copy(plays, s.plays)
	return plays
}
