package scoring

import (
	"regexp"
	"strings"
)

// space matches what the form authors' tooling treats as whitespace, which
// includes the ideographic space and other Unicode separators.
const space = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`

var (
	idPattern   = regexp.MustCompile(`学号[:：][` + space + `]*(\p{Nd}+)`)
	namePattern = regexp.MustCompile(`姓名[:：][` + space + `]*([^` + space + `]+)`)
)

// Header is the student identity found in a form's paragraphs.
type Header struct {
	ID   string
	Name string
}

// ExtractHeader scans every paragraph for the identifier and name labels.
// Each paragraph is checked for both; a later match overwrites an earlier one.
// Fields that never match keep the Unextracted sentinel.
func ExtractHeader(paragraphs []string) Header {
	h := Header{ID: Unextracted, Name: Unextracted}
	for _, p := range paragraphs {
		text := strings.TrimSpace(p)
		if m := idPattern.FindStringSubmatch(text); m != nil {
			h.ID = m[1]
		}
		if m := namePattern.FindStringSubmatch(text); m != nil {
			h.Name = m[1]
		}
	}
	return h
}
