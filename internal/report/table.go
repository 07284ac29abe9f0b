// Package report turns scored student records into the summary table and the
// per-category projections, and writes them as a spreadsheet.
package report

import "github.com/a3tai/mcp-score-reader/internal/scoring"

// Column names shared by every sheet.
const (
	ColumnID   = "学号"
	ColumnName = "姓名"
)

// SummarySheet is the name of the sheet holding every column.
const SummarySheet = "总评分"

// Sheet is a named grid: a header row plus one row per record.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Table is an ordered collection of records.
type Table struct {
	records []scoring.StudentRecord
}

// NewTable copies records, keeping their order.
func NewTable(records []scoring.StudentRecord) *Table {
	return &Table{records: append([]scoring.StudentRecord(nil), records...)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of the records in insertion order.
func (t *Table) Records() []scoring.StudentRecord {
	return append([]scoring.StudentRecord(nil), t.records...)
}

// Summary returns the full table: identifier, name and every category.
func (t *Table) Summary() Sheet {
	columns := []string{ColumnID, ColumnName}
	for _, c := range scoring.Categories {
		columns = append(columns, c.Label())
	}

	rows := make([][]any, 0, len(t.records))
	for _, r := range t.records {
		row := []any{r.ID, r.Name}
		for _, c := range scoring.Categories {
			row = append(row, r.Get(c))
		}
		rows = append(rows, row)
	}
	return Sheet{Name: SummarySheet, Columns: columns, Rows: rows}
}

// Projection returns identifier, name and the total for c, named after c.
func (t *Table) Projection(c scoring.Category) Sheet {
	rows := make([][]any, 0, len(t.records))
	for _, r := range t.records {
		rows = append(rows, []any{r.ID, r.Name, r.Get(c)})
	}
	return Sheet{
		Name:    c.Label(),
		Columns: []string{ColumnID, ColumnName, c.Label()},
		Rows:    rows,
	}
}

// Projections returns one projection per category in report order.
func (t *Table) Projections() []Sheet {
	sheets := make([]Sheet, 0, len(scoring.Categories))
	for _, c := range scoring.Categories {
		sheets = append(sheets, t.Projection(c))
	}
	return sheets
}

// Sheets returns the summary followed by the projections.
func (t *Table) Sheets() []Sheet {
	return append([]Sheet{t.Summary()}, t.Projections()...)
}
