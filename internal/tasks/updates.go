package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PersistKeys Phase = iota
	PersistRotations
	PersistHealth
	ExportHistory
	ExportQueue
)

func (p Phase) String() string {
	switch p {
	case PersistKeys:
		return "persist_keys"
	case PersistRotations:
		return "persist_rotations"
	case PersistHealth:
		return "persist_health"
	case ExportHistory:
		return "export_history"
	case ExportQueue:
		return "export_queue"
	default:
		return ""
	}
}

func persistKeyUpdate(step, total int, suffix string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistKeys,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Saving key state ...%s", step, total, suffix),
	}
}

func persistRotationsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistRotations,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving %d rotation events...", count),
	}
}

func persistHealthUpdate(playlistID string, failures int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistHealth,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving playlist health for %s (%d failures)", playlistID, failures),
	}
}

func exportHistoryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportHistory,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Exporting %d plays...", count),
	}
}

func exportQueueUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportQueue,
		Step:    2,
		Total:   2,
		Message: "Exporting queue snapshot...",
	}
}

func exportCompletedUpdate(files []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportQueue,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Export complete (%d files)", len(files)),
		Data:    files,
	}
}
