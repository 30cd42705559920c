package classify

import (
	"regexp"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// DefaultIntroWindow is how many leading blocks the positional intro rule
// inspects when no explicit window is configured.
const DefaultIntroWindow = 3

// IntroHeuristic reports whether an unmarked block that precedes all workflow
// content reads as introduction material. The classifier consults it only for
// blocks no structural or marker rule claimed; swapping the function changes
// how aggressive the intro guess is without touching the rule table.
type IntroHeuristic func(b models.Block) bool

var headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]`)

// LeadingWindow returns the positional heuristic: a block qualifies as intro
// when it sits within the first window blocks of the document and contains
// no markdown headings. A plain-text block containing a structural delimiter
// line is disqualified too: that shape is a degraded unterminated section,
// which is structure rather than intro prose. A window of zero never
// matches, which turns the intro guess off entirely.
func LeadingWindow(window int) IntroHeuristic {
	return func(b models.Block) bool {
		if b.Order >= window || headingRe.MatchString(b.Raw) {
			return false
		}
		if b.Kind == models.KindText {
			for _, line := range parser.SplitLines(b.Raw) {
				if parser.IsSectionDelimiter(line) {
					return false
				}
			}
		}
		return true
	}
}
