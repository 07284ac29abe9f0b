package scoring

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Aggregate walks tables (rows of cell texts) in document order and sums the
// score column of every row that belongs to a category.
//
// A heading cell sets the current category for its own row and all following
// rows of the same table until another heading appears. Rows that contain
// HeaderMarker are skipped entirely. Score cells that do not parse as numbers
// are ignored. Rows shorter than the score column contribute nothing.
func Aggregate(tables [][][]string, t EvaluationType) Scores {
	var scores Scores
	col := ScoreColumn(t)

	for _, table := range tables {
		var (
			current Category
			found   bool
		)
		for _, row := range table {
			if isHeaderRow(row) {
				continue
			}

			if c, ok := rowCategory(row); ok {
				current, found = c, true
			}

			if !found || len(row) <= col {
				continue
			}
			if v, ok := parseScore(row[col]); ok {
				scores.add(current, v)
			}
		}
	}
	return scores
}

func isHeaderRow(row []string) bool {
	for _, cell := range row {
		if strings.Contains(cell, HeaderMarker) {
			return true
		}
	}
	return false
}

// rowCategory returns the category of the leftmost heading cell in row.
func rowCategory(row []string) (Category, bool) {
	for _, cell := range row {
		if c, ok := lookupHeading(cell); ok {
			return c, true
		}
	}
	return 0, false
}

func lookupHeading(cell string) (Category, bool) {
	text := strings.TrimSpace(cell)
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	for _, m := range CategoryMappings {
		if text == m.Keyword {
			return m.Category, true
		}
	}
	return 0, false
}

// parseScore reads a score cell the way a lenient numeric conversion does:
// any Unicode decimal digit counts as its ASCII value and single underscores
// may separate digits. Hexadecimal forms are rejected.
func parseScore(cell string) (float64, bool) {
	text := strings.TrimSpace(cell)
	if text == "" || strings.ContainsAny(text, "xX") {
		return 0, false
	}
	text, ok := dropDigitSeparators(strings.Map(asciiDigit, text))
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// asciiDigit maps a Unicode decimal digit (category Nd) to '0'-'9'.
func asciiDigit(r rune) rune {
	if r < utf8.RuneSelf || !unicode.IsDigit(r) {
		return r
	}
	// Nd ranges are runs of complete 0-9 blocks, so the offset from the
	// range start gives the digit value.
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return '0' + (r-lo)%10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return '0' + (r-lo)%10
		}
	}
	return r
}

// dropDigitSeparators removes underscores that sit between two digits and
// reports false for any other underscore.
func dropDigitSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isASCIIDigit(s[i-1]) || !isASCIIDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
