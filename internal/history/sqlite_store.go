package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-score-reader/internal/scoring"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	type            TEXT NOT NULL,
	file_name       TEXT NOT NULL,
	original_files  TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	processing_time REAL NOT NULL,
	file_path       TEXT NOT NULL
);`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// SQLiteStore keeps history in an SQLite database. Insertion order is the
// seq column; newest entries have the highest seq.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
	logger   *slog.Logger
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, capacity int, logger *slog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// A single connection keeps pragmas and :memory: databases consistent.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}

	return &SQLiteStore{db: db, capacity: capacity, logger: orDefault(logger)}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, e Entry) error {
	files, err := json.Marshal(e.OriginalFiles)
	if err != nil {
		return fmt.Errorf("history: encode files: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, type, file_name, original_files, timestamp, processing_time, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.FileName, string(files), e.Timestamp, e.ProcessingTime, e.FilePath)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT seq, file_path FROM reports ORDER BY seq DESC LIMIT -1 OFFSET ?`, s.capacity)
	if err != nil {
		return fmt.Errorf("history: select evicted: %w", err)
	}
	var (
		evictSeqs  []int64
		evictFiles []string
	)
	for rows.Next() {
		var seq int64
		var path string
		if err := rows.Scan(&seq, &path); err != nil {
			rows.Close()
			return fmt.Errorf("history: scan evicted: %w", err)
		}
		evictSeqs = append(evictSeqs, seq)
		evictFiles = append(evictFiles, path)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("history: select evicted: %w", err)
	}

	for _, seq := range evictSeqs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE seq = ?`, seq); err != nil {
			return fmt.Errorf("history: evict: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	for _, path := range evictFiles {
		removeReport(s.logger, path)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, file_name, original_files, timestamp, processing_time, file_path
		 FROM reports ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, file_name, original_files, timestamp, processing_time, file_path
		 FROM reports WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	removeReport(s.logger, e.FilePath)
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (Entry, error) {
	var (
		e     Entry
		typ   string
		files string
	)
	err := r.Scan(&e.ID, &typ, &e.FileName, &files, &e.Timestamp, &e.ProcessingTime, &e.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: scan: %w", err)
	}
	e.Type = scoring.EvaluationType(typ)
	if err := json.Unmarshal([]byte(files), &e.OriginalFiles); err != nil {
		return Entry{}, fmt.Errorf("history: decode files for %s: %w", e.ID, err)
	}
	return e, nil
}
