// Package history keeps a short, newest-first list of generated reports.
// Entries pushed past the capacity are evicted together with their report
// files.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/a3tai/mcp-score-reader/internal/scoring"
)

// TimestampLayout is the format of Entry.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned by Get for an unknown report id.
var ErrNotFound = errors.New("history entry not found")

// Entry describes one generated report.
type Entry struct {
	ID             string                 `json:"id"`
	Type           scoring.EvaluationType `json:"type"`
	FileName       string                 `json:"file_name"`
	OriginalFiles  []string               `json:"original_files"`
	Timestamp      string                 `json:"timestamp"`
	ProcessingTime float64                `json:"processing_time"`
	FilePath       string                 `json:"file_path"`
}

// Store persists report history.
type Store interface {
	// Add inserts e as the newest entry and evicts entries beyond capacity.
	Add(ctx context.Context, e Entry) error
	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Get returns the entry with id or ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)
	// Delete removes the entry with id and its report file. Unknown ids are
	// not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store for backend ("json" or "sqlite") at path.
func Open(backend, path string, capacity int, logger *slog.Logger) (Store, error) {
	switch backend {
	case "json":
		return NewJSONStore(path, capacity, logger), nil
	case "sqlite":
		return OpenSQLiteStore(path, capacity, logger)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", backend)
	}
}

// removeReport deletes a report file, tolerating one that is already gone.
func removeReport(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove report file", "path", path, "error", err)
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
