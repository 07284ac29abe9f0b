package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocument struct {
	paragraphs []string
	tables     [][][]string
}

func (d fakeDocument) ParagraphTexts() []string  { return d.paragraphs }
func (d fakeDocument) TableTexts() [][][]string { return d.tables }

// row builds a six-column scoring row with the given batch and self scores.
func row(first, batch, self string) []string {
	return []string{first, "", "", "", batch, self}
}

func TestParseEvaluationType(t *testing.T) {
	tests := []struct {
		in      string
		want    EvaluationType
		wantErr bool
	}{
		{in: "", want: EvaluationSelf},
		{in: "self", want: EvaluationSelf},
		{in: " Batch ", want: EvaluationBatch},
		{in: "peer", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEvaluationType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreColumn(t *testing.T) {
	assert.Equal(t, 4, ScoreColumn(EvaluationBatch))
	assert.Equal(t, 5, ScoreColumn(EvaluationSelf))
	assert.Equal(t, 5, ScoreColumn(EvaluationType("other")))
}

func TestCategoryLabels(t *testing.T) {
	labels := make([]string, 0, len(Categories))
	for _, c := range Categories {
		labels = append(labels, c.Label())
	}
	assert.Equal(t, []string{"思想品德", "专业科研", "体艺", "劳动实践"}, labels)
	assert.Equal(t, "Category(9)", Category(9).String())
	assert.Len(t, CategoryMappings, 4)
}

func TestExtractHeader(t *testing.T) {
	tests := []struct {
		name       string
		paragraphs []string
		want       Header
	}{
		{
			name:       "full-width colon",
			paragraphs: []string{"学号：2021001", "姓名：张三"},
			want:       Header{ID: "2021001", Name: "张三"},
		},
		{
			name:       "half-width colon with spaces",
			paragraphs: []string{"  学号: 42  ", "姓名:  李四 班级：一班"},
			want:       Header{ID: "42", Name: "李四"},
		},
		{
			name:       "both fields on one line",
			paragraphs: []string{"学号：7788　姓名：王五"},
			want:       Header{ID: "7788", Name: "王五"},
		},
		{
			name:       "ideographic space ends the name",
			paragraphs: []string{"姓名：赵六　性别：男"},
			want:       Header{ID: Unextracted, Name: "赵六"},
		},
		{
			name:       "last match wins",
			paragraphs: []string{"学号：111", "学号：222"},
			want:       Header{ID: "222", Name: Unextracted},
		},
		{
			name:       "identifier needs digits",
			paragraphs: []string{"学号：未知"},
			want:       Header{ID: Unextracted, Name: Unextracted},
		},
		{
			name:       "no labels",
			paragraphs: []string{"综合素质测评表", ""},
			want:       Header{ID: Unextracted, Name: Unextracted},
		},
		{
			name: "no paragraphs",
			want: Header{ID: Unextracted, Name: Unextracted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHeader(tt.paragraphs)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ExtractHeader(tt.paragraphs), "extraction must be repeatable")
		})
	}
}

func TestAggregate_AccumulatesAcrossRows(t *testing.T) {
	tables := [][][]string{{
		row("专业与科研", "2.5", "2.5"),
		row("", "1.5", "1.5"),
	}}

	assert.Equal(t, 4.0, Aggregate(tables, EvaluationBatch).Academic)
	assert.Equal(t, 4.0, Aggregate(tables, EvaluationSelf).Academic)
}

func TestAggregate_ColumnDependsOnEvaluationType(t *testing.T) {
	tables := [][][]string{{
		row("品德", "3", "1"),
		row("", "2", "0.5"),
	}}

	assert.Equal(t, 5.0, Aggregate(tables, EvaluationBatch).Moral)
	assert.Equal(t, 1.5, Aggregate(tables, EvaluationSelf).Moral)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		tables [][][]string
		evalT  EvaluationType
		want   Scores
	}{
		{
			name:  "no headings yields zero",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("其他", "1", "1"),
			}},
			want: Scores{},
		},
		{
			name:  "rows before any heading are ignored",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("", "9", "9"),
				row("体艺", "1", "1"),
			}},
			want: Scores{Arts: 1},
		},
		{
			name:  "header row skipped even with heading keyword",
			evalT: EvaluationBatch,
			tables: [][][]string{{
				{"项目", "品德", "", "", "10", "10"},
				row("品德", "1", "1"),
			}},
			want: Scores{Moral: 1},
		},
		{
			name:  "header marker as substring",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("劳动与实践", "1", "1"),
				{"", "加分项目", "", "", "5", "5"},
				row("", "2", "2"),
			}},
			want: Scores{Labor: 3},
		},
		{
			name:  "parenthesized annotation ignored",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row(" 劳动与实践 (满分10分)", "", "2"),
			}},
			want: Scores{Labor: 2},
		},
		{
			name:  "full-width parenthesis is not an annotation",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("劳动与实践（满分10分）", "", "2"),
			}},
			want: Scores{},
		},
		{
			name:  "heading must match exactly",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("品德表现", "", "2"),
			}},
			want: Scores{},
		},
		{
			name:  "leftmost heading wins",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				{"体艺", "品德", "", "", "", "3"},
			}},
			want: Scores{Arts: 3},
		},
		{
			name:  "new heading switches category",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("品德", "", "1"),
				row("", "", "1"),
				row("专业与科研", "", "2"),
				row("", "", "2"),
			}},
			want: Scores{Moral: 2, Academic: 4},
		},
		{
			name:  "non-numeric cells ignored",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("品德", "", "缺交"),
				row("", "", "-"),
				row("", "", "   "),
				row("", "", " 1.25 "),
			}},
			want: Scores{Moral: 1.25},
		},
		{
			name:  "short rows contribute nothing",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				{"品德", "", "", "", "7"},
				row("", "", "1"),
			}},
			want: Scores{Moral: 1},
		},
		{
			name:  "category does not carry into next table",
			evalT: EvaluationSelf,
			tables: [][][]string{
				{row("品德", "", "1")},
				{row("", "", "5")},
			},
			want: Scores{Moral: 1},
		},
		{
			name:  "all categories",
			evalT: EvaluationBatch,
			tables: [][][]string{{
				row("品德", "1", ""),
				row("专业与科研", "2", ""),
				row("体艺", "3", ""),
				row("劳动与实践", "4", ""),
			}},
			want: Scores{Moral: 1, Academic: 2, Arts: 3, Labor: 4},
		},
		{
			name:  "negative values still add",
			evalT: EvaluationSelf,
			tables: [][][]string{{
				row("体艺", "", "2"),
				row("", "", "-0.5"),
			}},
			want: Scores{Arts: 1.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.tables, tt.evalT))
		})
	}
}

func TestScores_Get(t *testing.T) {
	s := Scores{Moral: 1, Academic: 2, Arts: 3, Labor: 4}
	for i, c := range Categories {
		assert.Equal(t, float64(i+1), s.Get(c))
	}
	assert.Equal(t, 0.0, s.Get(Category(42)))
}

func TestExtract_Defaults(t *testing.T) {
	rec := Extract(fakeDocument{paragraphs: []string{"无关内容"}}, EvaluationSelf)

	assert.Equal(t, Unextracted, rec.ID)
	assert.Equal(t, Unextracted, rec.Name)
	assert.Equal(t, Scores{}, rec.Scores)
}

func TestExtract_FullRecord(t *testing.T) {
	doc := fakeDocument{
		paragraphs: []string{"学号：2021001", "姓名：张三"},
		tables: [][][]string{{
			{"项目", "内容", "", "", "班评", "自评"},
			row("品德(20分)", "2", "3"),
			row("体艺", "1", "1.5"),
		}},
	}

	rec := Extract(doc, EvaluationSelf)
	assert.Equal(t, StudentRecord{
		ID:     "2021001",
		Name:   "张三",
		Scores: Scores{Moral: 3, Arts: 1.5},
	}, rec)
}

func TestParse(t *testing.T) {
	doc := fakeDocument{paragraphs: []string{"姓名：张三"}}

	t.Run("success", func(t *testing.T) {
		dec := DecoderFunc(func([]byte) (Document, error) { return doc, nil })
		rec, err := Parse(dec, "a.docx", []byte("x"), EvaluationBatch)
		require.NoError(t, err)
		assert.Equal(t, "张三", rec.Name)
	})

	t.Run("decode failure", func(t *testing.T) {
		cause := errors.New("zip: not a valid zip file")
		dec := DecoderFunc(func([]byte) (Document, error) { return nil, cause })

		rec, err := Parse(dec, "broken.docx", []byte("x"), EvaluationSelf)
		require.Error(t, err)
		assert.Equal(t, StudentRecord{}, rec)

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "broken.docx", de.Source)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "zip: not a valid zip file")
	})

	t.Run("nil document", func(t *testing.T) {
		dec := DecoderFunc(func([]byte) (Document, error) { return nil, nil })
		_, err := Parse(dec, "empty.docx", nil, EvaluationSelf)
		var de *DecodeError
		assert.True(t, errors.As(err, &de))
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		cell string
		want float64
		ok   bool
	}{
		{cell: "8", want: 8, ok: true},
		{cell: " 2.5 ", want: 2.5, ok: true},
		{cell: "1e1", want: 10, ok: true},
		{cell: "-1", want: -1, ok: true},
		{cell: "２.５", want: 2.5, ok: true},
		{cell: "１０", want: 10, ok: true},
		{cell: "٣", want: 3, ok: true},
		{cell: "𝟗", want: 9, ok: true},
		{cell: "1_0", want: 10, ok: true},
		{cell: "1__0"},
		{cell: "_1"},
		{cell: "0x1p4"},
		{cell: "２．５"},
		{cell: "一"},
		{cell: "缺交"},
		{cell: ""},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			v, ok := parseScore(tt.cell)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v)
			}
		})
	}

	v, ok := parseScore("nan")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))
}

func TestAggregate_FullWidthScores(t *testing.T) {
	tables := [][][]string{{
		row("体艺", "", "２.５"),
		row("", "", "１"),
	}}
	got := Aggregate(tables, EvaluationSelf)
	assert.Equal(t, 3.5, got.Arts)
}
