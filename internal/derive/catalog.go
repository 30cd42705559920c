package derive

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/models"
)

// Frequency is the estimated usage frequency of a skill across tasks.
type Frequency string

const (
	FreqRare   Frequency = "rare"
	FreqCommon Frequency = "common"
	FreqMost   Frequency = "most"
)

// rank orders frequencies for threshold comparison.
func (f Frequency) rank() int {
	switch f {
	case FreqRare:
		return 1
	case FreqCommon:
		return 2
	case FreqMost:
		return 3
	}
	return 0
}

// DomainAll marks a skill (or document) as cross-cutting: it matches every
// domain.
const DomainAll = "cross-cutting"

// CatalogEntry is one row of the domain skill catalog: the SkillRef display
// fields plus the inclusion-policy data the deriver reads.
type CatalogEntry struct {
	models.SkillRef `yaml:",inline"`
	Domains         []string  `yaml:"domains"`
	Frequency       Frequency `yaml:"frequency"`
}

// Validate checks one catalog entry.
func (e CatalogEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Path, validation.Required),
		validation.Field(&e.DisplayName, validation.Required),
		validation.Field(&e.Frequency, validation.Required,
			validation.In(FreqRare, FreqCommon, FreqMost)),
		validation.Field(&e.Domains, validation.Required),
	)
}

// Catalog is the full domain skill catalog, loaded once and read-only for
// the rest of the run.
type Catalog struct {
	Skills []CatalogEntry `yaml:"skills"`
}

// Validate checks every entry and rejects duplicate skill ids.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Skills))
	for i, e := range c.Skills {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("derive: catalog entry %d (%s): %w", i, e.ID, err)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("derive: duplicate skill id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// forDomain returns the catalog entries whose domain list covers domain.
// Cross-cutting skills match every domain, and a cross-cutting document
// matches every skill.
func (c *Catalog) forDomain(domain string) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range c.Skills {
		if domain == DomainAll || matchesDomain(e.Domains, domain) {
			out = append(out, e)
		}
	}
	return out
}

func matchesDomain(domains []string, domain string) bool {
	for _, d := range domains {
		if strings.EqualFold(d, domain) || strings.EqualFold(d, DomainAll) {
			return true
		}
	}
	return false
}

// LoadCatalog reads and validates a skill catalog YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("derive: read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("derive: parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
