// Package service orchestrates document parsing, report generation, history
// and statistics for evaluation form batches.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/a3tai/mcp-score-reader/internal/docx"
	"github.com/a3tai/mcp-score-reader/internal/history"
	"github.com/a3tai/mcp-score-reader/internal/report"
	"github.com/a3tai/mcp-score-reader/internal/scoring"
	"github.com/a3tai/mcp-score-reader/internal/security"
	"github.com/a3tai/mcp-score-reader/internal/stats"
)

// ReportDisplayName is the download name of every generated report.
const ReportDisplayName = "综合测评结果.xlsx"

// Errors returned by Service operations.
var (
	ErrNoDocuments    = errors.New("no documents to process")
	ErrRateLimited    = errors.New("too many self-evaluation requests, try again later")
	ErrBatchTooLarge  = errors.New("batch exceeds the total size limit")
	ErrUnauthorized   = errors.New("invalid admin password")
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidType    = errors.New("invalid evaluation type")
)

// selfWindow is the span over which SelfRateLimit is counted.
const selfWindow = time.Minute

// DocxDecoder decodes .docx containers for the scoring core.
var DocxDecoder = scoring.DecoderFunc(func(data []byte) (scoring.Document, error) {
	doc, err := docx.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
})

// Config holds the limits and locations the service works with.
type Config struct {
	UploadDirectory string
	OutputDirectory string
	MaxFileSize     int64
	BatchMaxSize    int64
	HistoryLimit    int
	// SelfRateLimit is the number of self-evaluation requests allowed in
	// any one-minute window. Zero disables the limit.
	SelfRateLimit int
	// Workers bounds parallel document parsing. Zero means GOMAXPROCS.
	Workers       int
	AdminPassword string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock sets the time source used for report names and timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator sets the report id generator. Default: random UUIDs.
func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

// WithStats sets the statistics recorder.
func WithStats(r *stats.Recorder) Option { return func(s *Service) { s.stats = r } }

// Service processes evaluation forms into reports.
type Service struct {
	cfg     Config
	reader  *docx.Reader
	paths   *security.PathValidator
	history history.Store
	stats   *stats.Recorder
	limiter *slidingWindow
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	// limitLog throttles the rate-limit warning.
	limitLog *rate.Sometimes
}

// New creates a service storing report history in store.
func New(cfg Config, store history.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	paths, err := security.NewPathValidator(cfg.UploadDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if cfg.OutputDirectory == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	s := &Service{
		cfg:      cfg,
		reader:   docx.NewReader(cfg.MaxFileSize),
		paths:    paths,
		history:  store,
		stats:    stats.NewRecorder(),
		limiter:  newSlidingWindow(cfg.SelfRateLimit, selfWindow),
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		limitLog: &rate.Sometimes{Interval: selfWindow},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ProcessRequest names the documents of one batch.
type ProcessRequest struct {
	Type  scoring.EvaluationType
	Paths []string
}

// ProcessResult describes a generated report.
type ProcessResult struct {
	ReportID   string
	Type       scoring.EvaluationType
	Records    []scoring.StudentRecord
	Table      *report.Table
	Text       string
	OutputPath string
	Elapsed    time.Duration
}

// ParseFile extracts the record of a single document without producing a
// report.
func (s *Service) ParseFile(ctx context.Context, path string, t scoring.EvaluationType) (scoring.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return scoring.StudentRecord{}, err
	}
	t, err := validType(t)
	if err != nil {
		return scoring.StudentRecord{}, err
	}
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return scoring.StudentRecord{}, fmt.Errorf("security validation failed: %w", err)
	}
	return s.parse(resolved, t)
}

// Process parses every document of req in input order and writes the
// report. Any failing document aborts the request and no report is kept.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	begin := time.Now()
	started := s.now()

	t, err := validType(req.Type)
	if err != nil {
		return nil, err
	}
	req.Type = t

	if len(req.Paths) == 0 {
		return nil, ErrNoDocuments
	}
	if req.Type == scoring.EvaluationSelf && !s.limiter.Allow(s.now()) {
		s.limitLog.Do(func() {
			s.logger.Warn("self-evaluation rate limit reached",
				"limit", s.cfg.SelfRateLimit, "window", selfWindow)
		})
		return nil, ErrRateLimited
	}

	paths, err := s.resolveAll(req)
	if err != nil {
		return nil, err
	}

	records, err := s.parseAll(ctx, paths, req.Type)
	if err != nil {
		return nil, err
	}

	table := report.NewTable(records)
	id := s.newID()
	out := filepath.Join(s.cfg.OutputDirectory,
		fmt.Sprintf("综合测评结果_%s_%s.xlsx", started.Format("20060102150405"), id))
	if err := writeReport(out, table); err != nil {
		return nil, err
	}

	elapsed := time.Since(begin)
	originals := make([]string, len(paths))
	for i, p := range paths {
		originals[i] = filepath.Base(p)
	}
	entry := history.Entry{
		ID:             id,
		Type:           req.Type,
		FileName:       ReportDisplayName,
		OriginalFiles:  originals,
		Timestamp:      started.Format(history.TimestampLayout),
		ProcessingTime: math.Round(elapsed.Seconds()*100) / 100,
		FilePath:       out,
	}
	if err := s.history.Add(ctx, entry); err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("record history: %w", err)
	}
	s.stats.Record(req.Type, len(paths), elapsed)

	s.logger.Info("report generated",
		"id", id, "type", req.Type, "files", len(paths), "elapsed", elapsed)

	return &ProcessResult{
		ReportID:   id,
		Type:       req.Type,
		Records:    records,
		Table:      table,
		Text:       report.RenderText(table.Summary()),
		OutputPath: out,
		Elapsed:    elapsed,
	}, nil
}

// validType normalizes t; the empty type means self.
func validType(t scoring.EvaluationType) (scoring.EvaluationType, error) {
	parsed, err := scoring.ParseEvaluationType(string(t))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
	return parsed, nil
}

func (s *Service) resolveAll(req ProcessRequest) ([]string, error) {
	paths := make([]string, len(req.Paths))
	var total int64
	for i, p := range req.Paths {
		resolved, err := s.paths.Resolve(p)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		info, err := s.reader.Stat(resolved)
		if err != nil {
			return nil, err
		}
		total += info.Size()
		paths[i] = resolved
	}
	if req.Type == scoring.EvaluationBatch && s.cfg.BatchMaxSize > 0 && total > s.cfg.BatchMaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrBatchTooLarge, total, s.cfg.BatchMaxSize)
	}
	return paths, nil
}

// parseAll parses documents concurrently. Results keep input order and the
// reported failure is the first one in input order.
func (s *Service) parseAll(ctx context.Context, paths []string, t scoring.EvaluationType) ([]scoring.StudentRecord, error) {
	records := make([]scoring.StudentRecord, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			records[i], errs[i] = s.parse(p, t)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			s.logger.Warn("document rejected", "file", paths[i], "error", err)
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(paths[i]), err)
		}
	}
	return records, nil
}

func (s *Service) parse(path string, t scoring.EvaluationType) (scoring.StudentRecord, error) {
	data, err := s.reader.Load(path)
	if err != nil {
		return scoring.StudentRecord{}, err
	}
	return scoring.Parse(DocxDecoder, filepath.Base(path), data, t)
}

func writeReport(path string, table *report.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.WriteXLSX(f, table); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Download returns the history entry of a report whose file is present.
// Batch reports require the admin password.
func (s *Service) Download(ctx context.Context, id, password string) (history.Entry, error) {
	entry, err := s.lookup(ctx, id)
	if err != nil {
		return history.Entry{}, err
	}
	if entry.Type == scoring.EvaluationBatch && !s.authorized(password) {
		return history.Entry{}, ErrUnauthorized
	}
	if _, err := os.Stat(entry.FilePath); err != nil {
		return history.Entry{}, ErrReportNotFound
	}
	return entry, nil
}

// Delete removes a report and its file. It requires the admin password.
func (s *Service) Delete(ctx context.Context, id, password string) error {
	if !s.authorized(password) {
		return ErrUnauthorized
	}
	if _, err := s.lookup(ctx, id); err != nil {
		return err
	}
	if err := s.history.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	s.logger.Info("report deleted", "id", id)
	return nil
}

// History returns the most recent reports, newest first.
func (s *Service) History(ctx context.Context) ([]history.Entry, error) {
	return s.history.List(ctx, s.cfg.HistoryLimit)
}

// Statistics returns the processing counters.
func (s *Service) Statistics() stats.Snapshot {
	return s.stats.Snapshot()
}

// UploadDirectory returns the directory document paths are resolved against.
func (s *Service) UploadDirectory() string {
	return s.paths.Root()
}

func (s *Service) lookup(ctx context.Context, id string) (history.Entry, error) {
	entry, err := s.history.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return history.Entry{}, ErrReportNotFound
	}
	if err != nil {
		return history.Entry{}, err
	}
	return entry, nil
}

func (s *Service) authorized(password string) bool {
	if s.cfg.AdminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
}
