package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/jukebox/internal/formatter"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/queue"
	"github.com/desertthunder/jukebox/internal/shared"
)

// HistorySource reads persisted play history for export.
type HistorySource interface {
	Recent(limit int) ([]models.PlayLogEntry, error)
}

// SnapshotSource yields the live queue state. Optional: exports without one
// skip the queue file.
type SnapshotSource interface {
	Snapshot() queue.Snapshot
}

// ArchiveResult contains the files written by one export run.
type ArchiveResult struct {
	HistoryFile string   `json:"historyFile,omitempty"`
	SummaryFile string   `json:"summaryFile,omitempty"`
	QueueFile   string   `json:"queueFile,omitempty"`
	Files       []string `json:"files"`
	PlayCount   int      `json:"playCount"`
}

// Archiver exports play history and the current queue to files on disk.
type Archiver struct {
	history  HistorySource
	snapshot SnapshotSource
	logger   *log.Logger
}

// NewArchiver creates an Archiver. snapshot may be nil.
func NewArchiver(history HistorySource, snapshot SnapshotSource, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Archiver{history: history, snapshot: snapshot, logger: logger}
}

// Run exports up to limit plays and, when a snapshot source is wired, the
// current queue, into outputDir.
func (a *Archiver) Run(ctx context.Context, progress chan<- ProgressUpdate, outputDir string, limit int) (*ArchiveResult, error) {
	if a.history == nil {
		return nil, fmt.Errorf("%w: no play history store", shared.ErrMissingConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := a.history.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read play history: %w", err)
	}

	result := &ArchiveResult{PlayCount: len(entries), Files: []string{}}

	sendProgress(progress, exportHistoryUpdate(len(entries)))
	export, err := formatter.WriteHistoryExport(entries, filepath.Join(outputDir, "jukebox"))
	if err != nil {
		return nil, err
	}
	result.HistoryFile = export.HistoryFile
	result.SummaryFile = export.SummaryFile
	result.Files = append(result.Files, export.HistoryFile, export.SummaryFile)

	if a.snapshot != nil {
		sendProgress(progress, exportQueueUpdate())
		queueFile, err := formatter.WriteQueueExport(a.snapshot.Snapshot(), filepath.Join(outputDir, "queue.md"))
		if err != nil {
			a.logger.Warn("failed to export queue snapshot", "error", err)
		} else {
			result.QueueFile = queueFile
			result.Files = append(result.Files, queueFile)
		}
	}

	sendProgress(progress, exportCompletedUpdate(result.Files))
	return result, nil
}
