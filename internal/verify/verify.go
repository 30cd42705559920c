// Package verify re-reads written artifacts and checks the
// content-preservation invariant against the source document.
package verify

import (
	"fmt"
	"path"
	"unicode"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/assemble"
	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/models"
)

// FileReader is the read-back capability the pass needs; storage.Provider
// satisfies it.
type FileReader interface {
	Read(path string) ([]byte, error)
}

// Result summarizes the byte accounting of one verification pass.
type Result struct {
	SourceBytes   int `json:"source_bytes"`   // non-whitespace bytes in the source
	ArtifactBytes int `json:"artifact_bytes"` // non-whitespace bytes re-read from disk
	DiscardBytes  int `json:"discard_bytes"`  // non-whitespace bytes in discarded blocks
	StrippedBytes int `json:"stripped_bytes"` // non-whitespace bytes in stripped lines
	Shortfall     int `json:"shortfall"`
}

// Run re-reads every written artifact from dir and accounts for the source
// document's content: artifact bytes plus discarded blocks plus stripped
// lines must cover the source. The measure is non-whitespace bytes, which
// makes the assembler's blank-line separators and trimming invisible to the
// comparison. A shortfall beyond tolerance fails with a ContentLossError
// naming the implicated block range.
func Run(store FileReader, dir string, source []byte,
	blocks []models.Block, cats []models.Category,
	arts []assemble.Artifact, stripped []classify.StrippedLine,
	tolerance int) (Result, error) {

	var res Result
	res.SourceBytes = countInk(source)

	expected := make(map[models.Category]int, len(arts))
	actual := make(map[models.Category]int, len(arts))
	for _, a := range arts {
		if a.Placeholder {
			// Placeholder text is engine output, not source content.
			continue
		}
		data, err := store.Read(path.Join(dir, a.Filename))
		if err != nil {
			return res, fmt.Errorf("verify: reread %s: %w", a.Filename, err)
		}
		expected[a.Category] = countInk([]byte(a.Content))
		actual[a.Category] = countInk(data)
		res.ArtifactBytes += countInk(data)
	}

	for i, b := range blocks {
		if cats[i] == models.CategoryDiscard {
			res.DiscardBytes += countInk([]byte(b.Clean))
		}
	}
	for _, s := range stripped {
		res.StrippedBytes += countInk([]byte(s.Text))
	}

	res.Shortfall = res.SourceBytes - res.ArtifactBytes - res.DiscardBytes - res.StrippedBytes
	if res.Shortfall <= tolerance {
		return res, nil
	}

	// Locate the category with the largest deficit between what the
	// assembler produced and what came back from disk; fall back to the
	// whole document when the writes themselves are intact.
	worst, worstDeficit := models.Category(""), 0
	for cat, want := range expected {
		if d := want - actual[cat]; d > worstDeficit {
			worst, worstDeficit = cat, d
		}
	}
	first, last := blockRange(blocks, cats, worst)
	return res, &apperr.ContentLossError{
		Category:    string(worst),
		FirstBlock:  first,
		LastBlock:   last,
		MissingByte: res.Shortfall,
	}
}

// blockRange returns the first and last block orders assigned to cat, or the
// full document range when cat is empty.
func blockRange(blocks []models.Block, cats []models.Category, cat models.Category) (int, int) {
	first, last := -1, -1
	for i, b := range blocks {
		if cat != "" && cats[i] != cat {
			continue
		}
		if first < 0 {
			first = b.Order
		}
		last = b.Order
	}
	return first, last
}

// countInk counts the non-whitespace bytes in data.
func countInk(data []byte) int {
	n := 0
	for _, c := range data {
		if !unicode.IsSpace(rune(c)) {
			n++
		}
	}
	return n
}
