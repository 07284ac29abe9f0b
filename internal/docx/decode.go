package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

const mainDocumentPart = "word/document.xml"

// DecodeBytes decodes an in-memory .docx container.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data), int64(len(data)))
}

// Decode reads word/document.xml from the ZIP container and collects its body
// paragraphs and tables.
func Decode(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, newError(ErrorTypeInvalidArchive, "not a zip container", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == mainDocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, newError(ErrorTypeMissingPart, mainDocumentPart+" not found in archive", nil)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, newError(ErrorTypeInvalidArchive, "open "+mainDocumentPart, err)
	}
	defer rc.Close()

	doc, err := parseBody(rc)
	if err != nil {
		return nil, newError(ErrorTypeMalformedXML, "parse "+mainDocumentPart, err)
	}
	return doc, nil
}

// bodyParser walks the WordprocessingML token stream. Only direct children of
// w:body are collected: w:p as paragraphs and w:tbl as tables. Inside a table
// only the direct w:p children of each w:tc make up the cell text, so nested
// tables and text boxes do not leak into cells.
type bodyParser struct {
	stack []string
	doc   *Document

	para    *strings.Builder
	paraIdx int
	inText  bool

	table    *tableBuilder
	tableIdx int
	cell     *cellBuilder
}

func parseBody(r io.Reader) (*Document, error) {
	p := &bodyParser{
		doc:      &Document{},
		paraIdx:  -1,
		tableIdx: -1,
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t)
		case xml.CharData:
			if p.inText && p.para != nil {
				p.para.Write(t)
			}
		case xml.EndElement:
			p.end(t)
		}
	}

	if len(p.stack) != 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return p.doc, nil
}

func (p *bodyParser) parent() string {
	if len(p.stack) < 2 {
		return ""
	}
	return p.stack[len(p.stack)-2]
}

func (p *bodyParser) start(t xml.StartElement) {
	p.stack = append(p.stack, t.Name.Local)
	idx := len(p.stack) - 1
	parent := p.parent()

	switch t.Name.Local {
	case "tbl":
		if parent == "body" && p.table == nil {
			p.table = &tableBuilder{}
			p.tableIdx = idx
		}
	case "tc":
		if p.table != nil && idx == p.tableIdx+2 {
			p.cell = &cellBuilder{span: 1}
		}
	case "gridSpan":
		if p.cell != nil && parent == "tcPr" && idx == p.tableIdx+4 {
			if n, err := strconv.Atoi(attr(t, "val")); err == nil && n > 1 {
				p.cell.span = n
			}
		}
	case "vMerge":
		if p.cell != nil && parent == "tcPr" && idx == p.tableIdx+4 {
			p.cell.continued = attr(t, "val") != "restart"
		}
	case "p":
		if p.para != nil {
			return
		}
		if parent == "body" || (p.cell != nil && parent == "tc" && idx == p.tableIdx+3) {
			p.para = &strings.Builder{}
			p.paraIdx = idx
		}
	case "t":
		p.inText = p.inRun(idx)
	case "tab":
		if p.inRun(idx) {
			p.para.WriteByte('\t')
		}
	case "br", "cr":
		if p.inRun(idx) {
			p.para.WriteByte('\n')
		}
	}
}

func (p *bodyParser) end(t xml.EndElement) {
	idx := len(p.stack) - 1
	p.stack = p.stack[:idx]

	switch t.Name.Local {
	case "t":
		p.inText = false
	case "p":
		if idx != p.paraIdx {
			return
		}
		text := p.para.String()
		p.para = nil
		p.paraIdx = -1
		if p.cell != nil && idx == p.tableIdx+3 {
			p.cell.paragraphs = append(p.cell.paragraphs, text)
			return
		}
		p.doc.Paragraphs = append(p.doc.Paragraphs, text)
	case "tc":
		if p.cell != nil && idx == p.tableIdx+2 {
			p.table.addCell(p.cell)
			p.cell = nil
		}
	case "tr":
		if p.table != nil && idx == p.tableIdx+1 {
			p.table.endRow()
		}
	case "tbl":
		if p.table != nil && idx == p.tableIdx {
			p.doc.Tables = append(p.doc.Tables, p.table.build())
			p.table = nil
			p.tableIdx = -1
		}
	}
}

// inRun reports whether the element at idx is run content of the paragraph
// being collected: p/r/X or p/hyperlink/r/X.
func (p *bodyParser) inRun(idx int) bool {
	if p.para == nil || idx < 2 || p.stack[idx-1] != "r" {
		return false
	}
	if idx-2 == p.paraIdx {
		return true
	}
	return idx-3 == p.paraIdx && p.stack[idx-2] == "hyperlink"
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type cellBuilder struct {
	paragraphs []string
	span       int
	continued  bool
}

type tableBuilder struct {
	rows []Row
	cur  []string
	prev []string
}

func (b *tableBuilder) addCell(c *cellBuilder) {
	text := strings.Join(c.paragraphs, "\n")
	if c.continued {
		// A vertical merge continuation shows the content of the cell above.
		if col := len(b.cur); col < len(b.prev) {
			text = b.prev[col]
		}
	}
	for i := 0; i < c.span; i++ {
		b.cur = append(b.cur, text)
	}
}

func (b *tableBuilder) endRow() {
	b.rows = append(b.rows, Row{Cells: b.cur})
	b.prev = b.cur
	b.cur = nil
}

func (b *tableBuilder) build() Table {
	return Table{Rows: b.rows}
}
