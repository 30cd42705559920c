// Package parser tokenizes a monolithic agent prompt document into typed
// blocks: frontmatter, directive lines, delimited sections, and plain text.
package parser

import (
	"fmt"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

// Warning is a non-fatal condition surfaced during tokenization.
type Warning struct {
	Code       string `json:"code"`
	BlockOrder int    `json:"block_order"`
	Marker     string `json:"marker,omitempty"`
	Message    string `json:"message"`
}

// WarnUnterminatedSection is the code for a section with no closing tag.
const WarnUnterminatedSection = "unterminated_section"

// Tokenize splits data into an ordered list of blocks covering the entire
// input: every byte of source belongs to exactly one block, in order, with
// no gaps and no overlaps. Raw holds verbatim bytes; Clean is left empty
// here and filled in by the stripper.
func Tokenize(data []byte) ([]models.Block, []Warning) {
	lines := SplitLines(string(data))

	var (
		blocks   []models.Block
		warnings []Warning
		para     strings.Builder
	)

	emit := func(kind models.BlockKind, marker, raw string) {
		blocks = append(blocks, models.Block{
			Order:  len(blocks),
			Kind:   kind,
			Marker: marker,
			Raw:    raw,
		})
	}

	flushPara := func() {
		if para.Len() > 0 {
			emit(models.KindText, "", para.String())
			para.Reset()
		}
	}

	i := 0

	// Frontmatter is only recognized when the opening fence is the very first
	// line. With no closing fence the region degrades to plain text below.
	if len(lines) > 0 && isFence(lines[0]) {
		for j := 1; j < len(lines); j++ {
			if isFence(lines[j]) {
				emit(models.KindFrontmatter, "", strings.Join(lines[:j+1], ""))
				i = j + 1
				break
			}
		}
	}

	for i < len(lines) {
		line := lines[i]

		switch {
		case MatchDirective(line) != "":
			flushPara()
			emit(models.KindDirective, "", line)
			i++

		case SectionOpen(line) != "":
			name := SectionOpen(line)
			closeAt := -1
			for j := i + 1; j < len(lines); j++ {
				if SectionClose(lines[j], name) {
					closeAt = j
					break
				}
			}
			flushPara()
			if closeAt < 0 {
				// No closing tag: the remainder of the document becomes one
				// plain-text block. Surfaced to the caller, never silent.
				emit(models.KindText, "", strings.Join(lines[i:], ""))
				warnings = append(warnings, Warning{
					Code:       WarnUnterminatedSection,
					BlockOrder: len(blocks) - 1,
					Marker:     name,
					Message:    fmt.Sprintf("section <%s> has no closing tag; kept as plain text", name),
				})
				i = len(lines)
			} else {
				emit(models.KindSection, name, strings.Join(lines[i:closeAt+1], ""))
				i = closeAt + 1
			}

		case isBlank(line):
			if para.Len() > 0 {
				// Trailing blank lines belong to the paragraph they follow.
				para.WriteString(line)
				flushPara()
			} else if len(blocks) > 0 {
				blocks[len(blocks)-1].Raw += line
			} else {
				para.WriteString(line)
			}
			i++

		default:
			para.WriteString(line)
			i++
		}
	}
	flushPara()

	return blocks, warnings
}

// IncludeTargets returns the deduplicated paths referenced by inclusion
// directives anywhere in the blocks, in first-seen order. Used for the
// discard manifest so operators can audit which partials a document pulled in.
func IncludeTargets(blocks []models.Block) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range blocks {
		for _, m := range includeTargetRe.FindAllStringSubmatch(b.Raw, -1) {
			target := m[1]
			if target == "" {
				target = m[2]
			}
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			if _, ok := seen[target]; ok {
				continue
			}
			seen[target] = struct{}{}
			out = append(out, target)
		}
	}
	return out
}

// SplitLines splits s into lines, each keeping its terminator, so that
// joining the result reproduces s byte for byte.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for idx := 0; idx < len(s); idx++ {
		if s[idx] == '\n' {
			lines = append(lines, s[start:idx+1])
			start = idx + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
