package classify

import (
	"strings"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// Stripped-line rule names that are not directive rules.
const (
	StripSectionDelimiter    = "section-delimiter"
	StripTrailingBoilerplate = "trailing-boilerplate"
)

// StrippedLine records one line removed from a retained block and the rule
// that removed it. The verification pass adds these bytes back when checking
// the written artifacts against the source document.
type StrippedLine struct {
	BlockOrder int    `json:"block_order"`
	Rule       string `json:"rule"`
	Text       string `json:"text"`
}

// Strip fills Clean on every block. Retained blocks lose standalone section
// delimiter lines, include directive lines, and a trailing run of boilerplate
// lines; every removed line is returned with its rule name. A line matching
// no removal rule is kept. Discarded blocks keep Clean == Raw so the byte
// accounting still sees them whole.
func Strip(blocks []models.Block, cats []models.Category) ([]models.Block, []StrippedLine) {
	out := make([]models.Block, len(blocks))
	var stripped []StrippedLine
	for i, b := range blocks {
		out[i] = b
		if cats[i] == models.CategoryDiscard {
			out[i].Clean = b.Raw
			continue
		}
		clean, removed := stripBlock(b)
		out[i].Clean = clean
		stripped = append(stripped, removed...)
	}
	return out, stripped
}

func stripBlock(b models.Block) (string, []StrippedLine) {
	lines := parser.SplitLines(b.Raw)
	keep := make([]bool, len(lines))
	for i := range keep {
		keep[i] = true
	}
	var removed []StrippedLine
	drop := func(i int, rule string) {
		keep[i] = false
		removed = append(removed, StrippedLine{BlockOrder: b.Order, Rule: rule, Text: lines[i]})
	}

	for i, line := range lines {
		if parser.IsSectionDelimiter(line) {
			drop(i, StripSectionDelimiter)
			continue
		}
		if rule := parser.MatchDirective(line); rule != "" {
			drop(i, rule)
		}
	}

	// Boilerplate is removed only as a suffix run; the same string earlier in
	// a block is content.
	for i := len(lines) - 1; i >= 0; i-- {
		if !keep[i] || strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if !parser.IsBoilerplate(lines[i]) {
			break
		}
		drop(i, StripTrailingBoilerplate)
	}

	var sb strings.Builder
	for i, line := range lines {
		if keep[i] {
			sb.WriteString(line)
		}
	}
	return sb.String(), removed
}
