package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/models"
)

// ExtractTraits parses the declared role/domain trait vector out of the
// document's frontmatter block. A document without a frontmatter block yields
// zero-value traits and no error; configuration derivation decides whether an
// empty role is acceptable (it is not). Invalid YAML is an error: a document
// that declares traits we cannot read must not be guessed at.
func ExtractTraits(blocks []models.Block) (models.Traits, error) {
	var fm *models.Block
	for i := range blocks {
		if blocks[i].Kind == models.KindFrontmatter {
			fm = &blocks[i]
			break
		}
	}
	if fm == nil {
		return models.Traits{}, nil
	}

	body := frontmatterBody(fm.Raw)
	var traits models.Traits
	if err := yaml.Unmarshal([]byte(body), &traits); err != nil {
		return models.Traits{}, fmt.Errorf("parser: frontmatter yaml: %w", err)
	}
	traits.Role = strings.ToLower(strings.TrimSpace(traits.Role))
	traits.Domain = strings.ToLower(strings.TrimSpace(traits.Domain))
	traits.Name = strings.TrimSpace(traits.Name)
	return traits, nil
}

// frontmatterBody strips the first and last fence lines from a frontmatter
// block's raw text. Trailing blank lines attached after the closing fence are
// dropped along with it.
func frontmatterBody(raw string) string {
	lines := SplitLines(raw)
	// Trim doc-trailing blanks the tokenizer attached after the closing fence.
	end := len(lines)
	for end > 1 && isBlank(lines[end-1]) && !isFence(lines[end-1]) {
		end--
	}
	if end-1 <= 1 {
		return ""
	}
	return strings.Join(lines[1:end-1], "")
}
