// Package scoring extracts a student's identity and per-category score totals
// from the paragraphs and tables of a decoded evaluation form.
//
// Everything here is pure: one call handles one document and keeps its state
// on the stack, so documents can be scored in parallel.
package scoring

import (
	"fmt"
	"strings"
)

// Unextracted is reported for an identifier or name that no paragraph supplied.
const Unextracted = "未提取"

// HeaderMarker marks a table header row. Rows containing it are never scored.
const HeaderMarker = "项目"

// EvaluationType selects which column of a scoring row carries the score.
type EvaluationType string

const (
	// EvaluationSelf is a student's self-assessment.
	EvaluationSelf EvaluationType = "self"
	// EvaluationBatch is a class (peer) assessment.
	EvaluationBatch EvaluationType = "batch"
)

// ParseEvaluationType parses a caller-supplied flag. An empty value means self.
func ParseEvaluationType(s string) (EvaluationType, error) {
	switch EvaluationType(strings.ToLower(strings.TrimSpace(s))) {
	case "", EvaluationSelf:
		return EvaluationSelf, nil
	case EvaluationBatch:
		return EvaluationBatch, nil
	default:
		return "", fmt.Errorf("unknown evaluation type %q (must be self or batch)", s)
	}
}

// ScoreColumns maps each evaluation type to the zero-based index of the cell
// holding the score in a scoring row. The index is not checked against the
// table's header text.
var ScoreColumns = map[EvaluationType]int{
	EvaluationBatch: 4,
	EvaluationSelf:  5,
}

// ScoreColumn returns the score column for t. Any type other than batch reads
// the self column.
func ScoreColumn(t EvaluationType) int {
	if col, ok := ScoreColumns[t]; ok {
		return col
	}
	return ScoreColumns[EvaluationSelf]
}

// Category is one of the four fixed scoring buckets.
type Category int

const (
	CategoryMoral    Category = iota // ideological and moral
	CategoryAcademic                 // academics and research
	CategoryArts                     // physical education and arts
	CategoryLabor                    // labor and practice
)

// Categories lists every category in report order.
var Categories = []Category{CategoryMoral, CategoryAcademic, CategoryArts, CategoryLabor}

var categoryLabels = [...]string{
	CategoryMoral:    "思想品德",
	CategoryAcademic: "专业科研",
	CategoryArts:     "体艺",
	CategoryLabor:    "劳动实践",
}

// Label returns the column name used for c in reports.
func (c Category) Label() string {
	if c < 0 || int(c) >= len(categoryLabels) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryLabels[c]
}

func (c Category) String() string {
	return c.Label()
}

// CategoryMapping ties a table heading keyword to the category it opens.
type CategoryMapping struct {
	Keyword  string
	Category Category
}

// CategoryMappings is the fixed heading table. A cell selects a category when
// its text, cut at the first "(" and trimmed, equals a Keyword.
var CategoryMappings = []CategoryMapping{
	{Keyword: "品德", Category: CategoryMoral},
	{Keyword: "专业与科研", Category: CategoryAcademic},
	{Keyword: "体艺", Category: CategoryArts},
	{Keyword: "劳动与实践", Category: CategoryLabor},
}

// Scores holds one running total per category.
type Scores struct {
	Moral    float64 `json:"moral" yaml:"moral"`
	Academic float64 `json:"academic" yaml:"academic"`
	Arts     float64 `json:"arts" yaml:"arts"`
	Labor    float64 `json:"labor" yaml:"labor"`
}

// Get returns the total for c.
func (s Scores) Get(c Category) float64 {
	switch c {
	case CategoryMoral:
		return s.Moral
	case CategoryAcademic:
		return s.Academic
	case CategoryArts:
		return s.Arts
	case CategoryLabor:
		return s.Labor
	default:
		return 0
	}
}

func (s *Scores) add(c Category, v float64) {
	switch c {
	case CategoryMoral:
		s.Moral += v
	case CategoryAcademic:
		s.Academic += v
	case CategoryArts:
		s.Arts += v
	case CategoryLabor:
		s.Labor += v
	}
}

// StudentRecord is the normalized result of scoring one evaluation form.
type StudentRecord struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Scores `yaml:",inline"`
}
