// Package stats accumulates processing counters per evaluation type.
package stats

import (
	"math"
	"time"

	"go.uber.org/atomic"

	"github.com/a3tai/mcp-score-reader/internal/scoring"
)

type bucket struct {
	files   atomic.Int64
	elapsed atomic.Duration
}

// Recorder counts processed files and processing time. It is safe for
// concurrent use.
type Recorder struct {
	self  bucket
	batch bucket
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) bucket(t scoring.EvaluationType) *bucket {
	if t == scoring.EvaluationBatch {
		return &r.batch
	}
	return &r.self
}

// Record adds files processed in elapsed time to the bucket for t.
func (r *Recorder) Record(t scoring.EvaluationType, files int, elapsed time.Duration) {
	b := r.bucket(t)
	b.files.Add(int64(files))
	b.elapsed.Add(elapsed)
}

// TypeStats is the breakdown for a single evaluation type.
type TypeStats struct {
	Files          int64   `json:"files" yaml:"files"`
	ProcessingTime float64 `json:"processing_time" yaml:"processing_time"`
}

// Snapshot is a point-in-time view of a Recorder.
type Snapshot struct {
	TotalFiles     int64                                `json:"total_files" yaml:"total_files"`
	AverageSeconds float64                              `json:"avg_time" yaml:"avg_time"`
	ByType         map[scoring.EvaluationType]TypeStats `json:"by_type" yaml:"by_type"`
}

// Snapshot returns current totals. The average is seconds per file rounded
// to two decimals, or 0 when nothing has been processed.
func (r *Recorder) Snapshot() Snapshot {
	s := Snapshot{ByType: make(map[scoring.EvaluationType]TypeStats, 2)}
	var total time.Duration
	for _, t := range []scoring.EvaluationType{scoring.EvaluationSelf, scoring.EvaluationBatch} {
		b := r.bucket(t)
		files, elapsed := b.files.Load(), b.elapsed.Load()
		s.ByType[t] = TypeStats{Files: files, ProcessingTime: round2(elapsed.Seconds())}
		s.TotalFiles += files
		total += elapsed
	}
	if s.TotalFiles > 0 {
		s.AverageSeconds = round2(total.Seconds() / float64(s.TotalFiles))
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
