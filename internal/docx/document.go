// Package docx decodes Word (.docx) containers into an ordered view of body
// paragraphs and tables of plain-text cells.
package docx

// Document is the plain-text content of a .docx body.
type Document struct {
	// Paragraphs holds the body-level paragraphs in document order.
	// Paragraphs inside tables are not included.
	Paragraphs []string
	// Tables holds the body-level tables in document order.
	Tables []Table
}

// Table is an ordered list of rows.
type Table struct {
	Rows []Row
}

// Row holds one cell text per grid column. A horizontally merged cell is
// repeated once per column it spans.
type Row struct {
	Cells []string
}

// ParagraphTexts returns the body paragraph texts.
func (d *Document) ParagraphTexts() []string {
	return d.Paragraphs
}

// TableTexts returns every table as rows of cell texts.
func (d *Document) TableTexts() [][][]string {
	tables := make([][][]string, len(d.Tables))
	for i, t := range d.Tables {
		rows := make([][]string, len(t.Rows))
		for j, r := range t.Rows {
			rows[j] = r.Cells
		}
		tables[i] = rows
	}
	return tables
}
