package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps history in a single JSON file, rewritten on every change.
// An unreadable or corrupt file is treated as empty history.
type JSONStore struct {
	mu       sync.Mutex
	path     string
	capacity int
	logger   *slog.Logger
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string, capacity int, logger *slog.Logger) *JSONStore {
	return &JSONStore{path: path, capacity: capacity, logger: orDefault(logger)}
}

func (s *JSONStore) Add(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]Entry{e}, s.load()...)
	for len(entries) > s.capacity {
		oldest := entries[len(entries)-1]
		entries = entries[:len(entries)-1]
		removeReport(s.logger, oldest.FilePath)
	}
	return s.save(entries)
}

func (s *JSONStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *JSONStore) Get(_ context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.load() {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (s *JSONStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	kept := entries[:0]
	for _, e := range entries {
		if e.ID == id {
			removeReport(s.logger, e.FilePath)
			continue
		}
		kept = append(kept, e)
	}
	return s.save(kept)
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read history", "path", s.path, "error", err)
		}
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("decode history", "path", s.path, "error", err)
		return nil
	}
	return entries
}

// save writes entries to a temporary file and renames it over the history
// file so readers never observe a partial write.
func (s *JSONStore) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("create history temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
