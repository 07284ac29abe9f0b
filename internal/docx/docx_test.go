package docx

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-score-reader/internal/docx/docxtest"
)

func TestDecodeBytes_ParagraphsAndTables(t *testing.T) {
	data := docxtest.Build(
		[]string{"综合测评表", "学号：2021001", "姓名：张三"},
		docxtest.Table{
			{"项目", "分值"},
			{"品德(20分)", "2.5"},
		},
		docxtest.Table{
			{"体艺", "1"},
		},
	)

	doc, err := DecodeBytes(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"综合测评表", "学号：2021001", "姓名：张三"}, doc.Paragraphs)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, []string{"项目", "分值"}, doc.Tables[0].Rows[0].Cells)
	assert.Equal(t, []string{"品德(20分)", "2.5"}, doc.Tables[0].Rows[1].Cells)
	assert.Equal(t, []string{"体艺", "1"}, doc.Tables[1].Rows[0].Cells)
}

func TestDecodeBytes_TableParagraphsAreNotBodyParagraphs(t *testing.T) {
	data := docxtest.Build([]string{"学号：1"}, docxtest.Table{{"学号：2"}})

	doc, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"学号：1"}, doc.Paragraphs)
}

func TestDecodeBytes_CellParagraphsJoinedWithNewline(t *testing.T) {
	data := docxtest.Build(nil, docxtest.Table{{"第一行\n第二行", "x"}})

	doc, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "第一行\n第二行", doc.Tables[0].Rows[0].Cells[0])
}

func TestDecodeBytes_RunsTabsAndBreaks(t *testing.T) {
	body := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>` +
		`<w:r><w:t>学号</w:t></w:r><w:r><w:t>：</w:t><w:tab/><w:t>123</w:t></w:r>` +
		`<w:hyperlink><w:r><w:t>链接</w:t></w:r></w:hyperlink>` +
		`<w:r><w:br/><w:t>下一行</w:t></w:r></w:p>`

	doc, err := DecodeBytes(docxtest.BuildBody(body))
	require.NoError(t, err)
	require.Len(t, doc.Paragraphs, 1)
	assert.Equal(t, "学号：\t123链接\n下一行", doc.Paragraphs[0])
}

func TestDecodeBytes_HorizontalMergeRepeatsCell(t *testing.T) {
	body := `<w:tbl><w:tr>` +
		`<w:tc><w:tcPr><w:gridSpan w:val="3"/></w:tcPr>` + docxtest.Paragraph("专业与科研") + `</w:tc>` +
		docxtest.Cell("a") + docxtest.Cell("b") +
		`</w:tr></w:tbl>`

	doc, err := DecodeBytes(docxtest.BuildBody(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"专业与科研", "专业与科研", "专业与科研", "a", "b"}, doc.Tables[0].Rows[0].Cells)
}

func TestDecodeBytes_VerticalMergeCopiesCellAbove(t *testing.T) {
	body := `<w:tbl>` +
		`<w:tr><w:tc><w:tcPr><w:vMerge w:val="restart"/></w:tcPr>` + docxtest.Paragraph("品德") + `</w:tc>` +
		docxtest.Cell("1") + `</w:tr>` +
		`<w:tr><w:tc><w:tcPr><w:vMerge/></w:tcPr>` + docxtest.Paragraph("") + `</w:tc>` +
		docxtest.Cell("2") + `</w:tr>` +
		`<w:tr><w:tc><w:tcPr><w:vMerge w:val="continue"/></w:tcPr><w:p/></w:tc>` +
		docxtest.Cell("3") + `</w:tr>` +
		`</w:tbl>`

	doc, err := DecodeBytes(docxtest.BuildBody(body))
	require.NoError(t, err)
	rows := doc.Tables[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"品德", "1"}, rows[0].Cells)
	assert.Equal(t, []string{"品德", "2"}, rows[1].Cells)
	assert.Equal(t, []string{"品德", "3"}, rows[2].Cells)
}

func TestDecodeBytes_NestedTableIgnoredInCellText(t *testing.T) {
	body := `<w:tbl><w:tr><w:tc>` + docxtest.Paragraph("外层") +
		docxtest.TableXML(docxtest.Table{{"内层"}}) + `</w:tc></w:tr></w:tbl>`

	doc, err := DecodeBytes(docxtest.BuildBody(body))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, []string{"外层"}, doc.Tables[0].Rows[0].Cells)
}

func TestDecodeBytes_Failures(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantType ErrorType
	}{
		{name: "not a zip", data: []byte("plain text"), wantType: ErrorTypeInvalidArchive},
		{name: "empty input", data: nil, wantType: ErrorTypeInvalidArchive},
		{
			name:     "missing document part",
			data:     docxtest.BuildParts(map[string]string{"word/styles.xml": "<w:styles/>"}),
			wantType: ErrorTypeMissingPart,
		},
		{
			name:     "malformed xml",
			data:     docxtest.BuildParts(map[string]string{"word/document.xml": "<w:document><w:body><w:p>"}),
			wantType: ErrorTypeMalformedXML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeBytes(tt.data)
			require.Error(t, err)
			assert.Nil(t, doc)

			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantType, de.Type)
			assert.True(t, de.IsDecodeFailure())
			assert.NotEmpty(t, de.Error())
		})
	}
}

func TestDocument_TableTexts(t *testing.T) {
	doc := &Document{
		Paragraphs: []string{"p"},
		Tables: []Table{
			{Rows: []Row{{Cells: []string{"a", "b"}}, {Cells: []string{"c"}}}},
		},
	}
	assert.Equal(t, []string{"p"}, doc.ParagraphTexts())
	assert.Equal(t, [][][]string{{{"a", "b"}, {"c"}}}, doc.TableTexts())
}

func TestReader_ValidateAndRead(t *testing.T) {
	dir := t.TempDir()
	valid := docxtest.WriteFile(t, dir, "form.docx", docxtest.Build([]string{"姓名：李四"}))
	upper := docxtest.WriteFile(t, dir, "FORM.DOCX", docxtest.Build([]string{"姓名：王五"}))
	empty := docxtest.WriteFile(t, dir, "empty.docx", []byte{})
	text := docxtest.WriteFile(t, dir, "notes.txt", []byte("hello"))
	broken := docxtest.WriteFile(t, dir, "broken.docx", []byte("not a zip"))
	large := docxtest.WriteFile(t, dir, "large.docx", make([]byte, 64*1024))

	reader := NewReader(32 * 1024)

	tests := []struct {
		name      string
		path      string
		wantErr   string
		wantType  ErrorType
		wantParas []string
	}{
		{name: "valid document", path: valid, wantParas: []string{"姓名：李四"}},
		{name: "upper case extension", path: upper, wantParas: []string{"姓名：王五"}},
		{name: "empty path", path: "", wantErr: "path cannot be empty"},
		{name: "missing file", path: filepath.Join(dir, "missing.docx"), wantErr: "does not exist"},
		{name: "directory", path: dir, wantErr: "directory"},
		{name: "empty file", path: empty, wantType: ErrorTypeEmptyFile},
		{name: "wrong extension", path: text, wantType: ErrorTypeNotDocx},
		{name: "too large", path: large, wantType: ErrorTypeFileTooLarge},
		{name: "undecodable", path: broken, wantType: ErrorTypeInvalidArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := reader.ReadFile(tt.path)
			switch {
			case tt.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			case tt.wantType != ErrorTypeUnknown:
				require.Error(t, err)
				var de *Error
				require.True(t, errors.As(err, &de), "expected *docx.Error, got %T", err)
				assert.Equal(t, tt.wantType, de.Type)
				assert.Equal(t, tt.path, de.FilePath)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantParas, doc.Paragraphs)
			}
			assert.Equal(t, err == nil, reader.IsValid(tt.path))
		})
	}
}

func TestReader_Load(t *testing.T) {
	dir := t.TempDir()
	data := docxtest.Build([]string{"x"})
	path := docxtest.WriteFile(t, dir, "a.docx", data)

	reader := NewReader(int64(len(data)))
	got, err := reader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), reader.MaxFileSize())
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "NOT_DOCX", ErrorTypeNotDocx.String())
	assert.Equal(t, "MALFORMED_XML", ErrorTypeMalformedXML.String())
	assert.Equal(t, "UNKNOWN", ErrorType(99).String())
	assert.False(t, newError(ErrorTypeFileTooLarge, "x", nil).IsDecodeFailure())
}
