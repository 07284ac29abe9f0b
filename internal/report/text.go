package report

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RenderText renders a sheet as an aligned plain-text table. Widths are
// measured in terminal cells so CJK names line up.
func RenderText(s Sheet) string {
	cells := make([][]string, 0, len(s.Rows)+1)
	cells = append(cells, s.Columns)
	for _, row := range s.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = formatValue(v)
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(s.Columns))
	for _, line := range cells {
		for i, c := range line {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}

	var sb strings.Builder
	for n, line := range cells {
		for i, c := range line {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(line)-1 {
				sb.WriteString(c)
			} else {
				sb.WriteString(runewidth.FillRight(c, widths[i]))
			}
		}
		sb.WriteByte('\n')
		if n == 0 {
			total := 0
			for _, w := range widths {
				total += w
			}
			sb.WriteString(strings.Repeat("-", total+2*(len(widths)-1)))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
