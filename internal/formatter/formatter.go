// package formatter exports play history and queue snapshots to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/queue"
	"github.com/desertthunder/jukebox/internal/shared"
)

// HistoryToCSV converts play history to CSV format with columns: Timestamp, VideoID, Title, Channel, Source
func HistoryToCSV(entries []models.PlayLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Timestamp", "VideoID", "Title", "Channel", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Timestamp.Format(time.RFC3339),
			entry.VideoID,
			entry.Title,
			entry.ChannelTitle,
			string(entry.Source),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QueueToMarkdown converts a queue snapshot to Markdown format
func QueueToMarkdown(snap queue.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Jukebox Queue\n\n")

	if snap.Playing {
		buf.WriteString(fmt.Sprintf("**Now Playing**: %s (%s)\n\n", shared.CleanTitle(snap.NowPlaying.Title), snap.Source))
	} else {
		buf.WriteString("**Now Playing**: nothing\n\n")
	}

	buf.WriteString(fmt.Sprintf("**Requests**: %d\n", len(snap.Requests)))
	buf.WriteString(fmt.Sprintf("**Upcoming**: %d\n\n", len(snap.Upcoming)))

	if len(snap.Requests) > 0 {
		buf.WriteString("## Requests\n\n")
		for i, req := range snap.Requests {
			byPart := ""
			if req.RequestedBy != "" {
				byPart = fmt.Sprintf(" (requested by %s)", req.RequestedBy)
			}
			buf.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, shared.CleanTitle(req.Item.Title), byPart))
		}
		buf.WriteString("\n")
	}

	if len(snap.Upcoming) > 0 {
		buf.WriteString("## Upcoming\n\n")
		for i, item := range snap.Upcoming {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, item.ChannelTitle, shared.CleanTitle(item.Title)))
		}
	}

	return buf.Bytes(), nil
}

// QueueToText converts a queue snapshot to plain text format
func QueueToText(snap queue.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	if snap.Playing {
		buf.WriteString(fmt.Sprintf("Now playing: %s\n", shared.CleanTitle(snap.NowPlaying.Title)))
	} else {
		buf.WriteString("Now playing: nothing\n")
	}
	buf.WriteString(fmt.Sprintf("Requests: %d, Upcoming: %d\n\n", len(snap.Requests), len(snap.Upcoming)))

	for i, req := range snap.Requests {
		buf.WriteString(fmt.Sprintf("%d. [request] %s\n", i+1, shared.CleanTitle(req.Item.Title)))
	}
	for i, item := range snap.Upcoming {
		buf.WriteString(fmt.Sprintf("%d. %s\n", len(snap.Requests)+i+1, shared.CleanTitle(item.Title)))
	}

	return buf.Bytes(), nil
}

// HistorySummary aggregates a play history export for the companion JSON file.
type HistorySummary struct {
	Total     int            `json:"total"`
	BySource  map[string]int `json:"bySource"`
	FirstPlay time.Time      `json:"firstPlay,omitzero"`
	LastPlay  time.Time      `json:"lastPlay,omitzero"`
}

// Summarize computes aggregate counts over play history entries.
//
// Entries are expected newest first, the order the store returns them in.
func Summarize(entries []models.PlayLogEntry) HistorySummary {
	summary := HistorySummary{
		Total:    len(entries),
		BySource: map[string]int{},
	}
	for _, entry := range entries {
		summary.BySource[string(entry.Source)]++
	}
	if len(entries) > 0 {
		summary.LastPlay = entries[0].Timestamp
		summary.FirstPlay = entries[len(entries)-1].Timestamp
	}
	return summary
}

// HistoryExportResult contains the paths of files created by WriteHistoryExport
type HistoryExportResult struct {
	HistoryFile string
	SummaryFile string
}

// WriteHistoryExport exports play history to CSV with an accompanying summary JSON file.
//
// Defaults to "jukebox" as the base filename & creates {base}_history.csv and {base}_summary.json
func WriteHistoryExport(entries []models.PlayLogEntry, baseFilepath string) (*HistoryExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "jukebox"
	}

	csvData, err := HistoryToCSV(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	historyFile := baseFilepath + "_history.csv"
	if err := os.WriteFile(historyFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := shared.MarshalJSON(Summarize(entries), true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &HistoryExportResult{
		HistoryFile: historyFile,
		SummaryFile: summaryFile,
	}, nil
}

// WriteQueueExport exports a queue snapshot to Markdown.
//
// Defaults to "queue.md" as the filename.
func WriteQueueExport(snap queue.Snapshot, filepath string) (string, error) {
	if filepath == "" {
		filepath = "queue.md"
	}

	mdData, err := QueueToMarkdown(snap)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}
