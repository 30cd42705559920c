// Package assemble turns categorized blocks into the five output artifacts.
package assemble

import (
	"sort"
	"strings"

	"github.com/starford/dagaz/internal/models"
)

// Artifact is one assembled output document plus the metadata the
// verification pass needs to account for it.
type Artifact struct {
	Category    models.Category
	Filename    string
	Content     string
	Placeholder bool  // true when no block contributed content
	BlockOrders []int // orders of the blocks that contributed
}

// placeholderBody returns the fixed body emitted for a category with no
// content. Never an empty or missing file.
func placeholderBody(cat models.Category) string {
	section := strings.ReplaceAll(string(cat), "_", " ")
	return "_No " + section + " content found in the source document._\n"
}

// Build assembles the five artifacts from the classified block stream.
// For each output category it collects the assigned blocks, sorts them by
// Order, and joins their clean text with a single blank line. Build is a pure
// function of its inputs: running it twice yields byte-identical artifacts.
func Build(blocks []models.Block, cats []models.Category) []Artifact {
	byCat := make(map[models.Category][]models.Block)
	for i, b := range blocks {
		c := cats[i]
		if c == models.CategoryDiscard {
			continue
		}
		byCat[c] = append(byCat[c], b)
	}

	out := make([]Artifact, 0, len(models.OutputCategories))
	for _, cat := range models.OutputCategories {
		members := byCat[cat]
		sort.Slice(members, func(i, j int) bool { return members[i].Order < members[j].Order })

		var parts []string
		var orders []int
		for _, b := range members {
			text := strings.TrimSpace(b.Clean)
			if text == "" {
				// A block whose every line was stripped contributes nothing.
				continue
			}
			parts = append(parts, text)
			orders = append(orders, b.Order)
		}

		a := Artifact{
			Category:    cat,
			Filename:    models.ArtifactFilename[cat],
			BlockOrders: orders,
		}
		if len(parts) == 0 {
			a.Content = placeholderBody(cat)
			a.Placeholder = true
		} else {
			a.Content = strings.Join(parts, "\n\n") + "\n"
		}
		out = append(out, a)
	}
	return out
}
