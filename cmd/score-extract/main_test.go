package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-score-reader/internal/docx/docxtest"
	"github.com/a3tai/mcp-score-reader/internal/scoring"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeForm(t *testing.T, dir, name, id, student string) string {
	t.Helper()
	data := docxtest.EvaluationForm(id, student,
		[]string{"品德", "", "", "", "8", "9"},
		[]string{"体艺(10分)", "", "", "", "3", "4.5"},
	)
	return docxtest.WriteFile(t, dir, name, data)
}

func TestParseCommand_JSON(t *testing.T) {
	path := writeForm(t, t.TempDir(), "a.docx", "2021001", "张三")

	out, err := execute(t, "parse", path, "--type", "batch")
	require.NoError(t, err)

	var rec scoring.StudentRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "2021001", rec.ID)
	assert.Equal(t, "张三", rec.Name)
	assert.Equal(t, 8.0, rec.Moral)
	assert.Equal(t, 3.0, rec.Arts)
}

func TestParseCommand_YAML(t *testing.T) {
	path := writeForm(t, t.TempDir(), "a.docx", "2021001", "张三")

	out, err := execute(t, "parse", path, "-o", "yaml")
	require.NoError(t, err)

	var rec scoring.StudentRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "张三", rec.Name)
	assert.Equal(t, 9.0, rec.Moral)
	assert.Equal(t, 4.5, rec.Arts)
}

func TestParseCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeForm(t, dir, "a.docx", "2021001", "张三")
	broken := docxtest.WriteFile(t, dir, "broken.docx", []byte("not a zip"))

	tests := []struct {
		name string
		args []string
	}{
		{name: "no file", args: []string{"parse"}},
		{name: "bad type", args: []string{"parse", path, "--type", "peer"}},
		{name: "bad output", args: []string{"parse", path, "-o", "xml"}},
		{name: "broken document", args: []string{"parse", broken}},
		{name: "missing document", args: []string{"parse", filepath.Join(dir, "missing.docx")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeForm(t, dir, "a.docx", "2021001", "张三")
	b := writeForm(t, dir, "b.docx", "2021002", "李四")
	out := filepath.Join(dir, "report.xlsx")

	stdout, err := execute(t, "report", a, b, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "李四")

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("总评分")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2021001", rows[1][0])
	assert.Equal(t, "2021002", rows[2][0])
}

func TestReportCommand_FailureNamesFile(t *testing.T) {
	dir := t.TempDir()
	a := writeForm(t, dir, "a.docx", "2021001", "张三")
	broken := docxtest.WriteFile(t, dir, "broken.docx", []byte("not a zip"))

	_, err := execute(t, "report", a, broken, "--out", filepath.Join(dir, "r.xlsx"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse broken.docx:"), err.Error())
	assert.NoFileExists(t, filepath.Join(dir, "r.xlsx"))
}
