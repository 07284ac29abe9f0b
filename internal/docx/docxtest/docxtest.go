// Package docxtest builds small .docx containers for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentFooter = `</w:body></w:document>`

// Table is a table given as rows of cell texts. A newline in a cell text
// starts a new paragraph inside the cell.
type Table [][]string

// Build returns a .docx containing the paragraphs followed by the tables.
func Build(paragraphs []string, tables ...Table) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(Paragraph(p))
	}
	for _, t := range tables {
		body.WriteString(TableXML(t))
	}
	return BuildBody(body.String())
}

// BuildBody wraps raw w:body content into a .docx container.
func BuildBody(bodyXML string) []byte {
	return BuildParts(map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document.xml":   documentHeader + bodyXML + documentFooter,
	})
}

// BuildParts returns a zip archive holding the given parts.
func BuildParts(parts map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Paragraph renders text as a single-run w:p.
func Paragraph(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`
}

// TableXML renders rows of cell texts as a w:tbl.
func TableXML(t Table) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl>")
	for _, row := range t {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString(Cell(cell))
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

// Cell renders a w:tc, one paragraph per line of text.
func Cell(text string) string {
	var sb strings.Builder
	sb.WriteString("<w:tc>")
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(Paragraph(line))
	}
	sb.WriteString("</w:tc>")
	return sb.String()
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// EvaluationForm builds a typical evaluation form: a header paragraph pair
// and one scoring table whose self column (index 5) and batch column
// (index 4) both hold score.
func EvaluationForm(id, name string, rows ...[]string) []byte {
	table := Table{{"项目", "内容", "说明", "材料", "班评", "自评"}}
	table = append(table, rows...)
	return Build([]string{"学号：" + id, "姓名：" + name}, table)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
