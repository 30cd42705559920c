// Package derive computes a ConfigurationRecord from a document's trait
// vector. Policy lives in data (the role decision table and the skill
// catalog); this package is the only code that reads either.
package derive

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// RoleSpec is one row of the role decision table.
type RoleSpec struct {
	PrimaryPromptSet string `yaml:"primary_prompt_set"`
	EndingPromptSet  string `yaml:"ending_prompt_set"`
	OutputFormat     string `yaml:"output_format"`
	// BroadContext roles need awareness of the whole catalog: every skill
	// lands in the dynamic set, none precompiled.
	BroadContext bool `yaml:"broad_context"`
	// NoDomainSkills roles do pure structural work: both skill sets stay
	// empty. A valid terminal state, not an error.
	NoDomainSkills bool `yaml:"no_domain_skills"`
}

// DecisionTable maps a declared role to its prompt-set row. Unknown roles
// fail derivation; there is no default row.
type DecisionTable map[string]RoleSpec

// DefaultDecisionTable covers the four roles of the legacy prompt framework.
func DefaultDecisionTable() DecisionTable {
	return DecisionTable{
		"implementer": {PrimaryPromptSet: "developer", EndingPromptSet: "developer", OutputFormat: "output-format-developer"},
		"reviewer":    {PrimaryPromptSet: "reviewer", EndingPromptSet: "reviewer", OutputFormat: "output-format-reviewer"},
		"planner":     {PrimaryPromptSet: "pm", EndingPromptSet: "pm", OutputFormat: "output-format-pm", BroadContext: true},
		"utility":     {PrimaryPromptSet: "developer", EndingPromptSet: "developer", OutputFormat: "output-format-developer", NoDomainSkills: true},
	}
}

// LoadDecisionTable reads a role decision table from a YAML file, for
// deployments whose role vocabulary differs from the built-in default.
func LoadDecisionTable(path string) (DecisionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("derive: read roles table %s: %w", path, err)
	}
	var t DecisionTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("derive: parse roles table %s: %w", path, err)
	}
	for role, spec := range t {
		if spec.PrimaryPromptSet == "" || spec.OutputFormat == "" {
			return nil, fmt.Errorf("derive: role %q is missing prompt set or output format", role)
		}
	}
	return t, nil
}

// Deriver holds the loaded policy tables. Read-only after construction,
// safe for concurrent use across parallel migrations.
type Deriver struct {
	table     DecisionTable
	catalog   *Catalog
	threshold Frequency
}

// New builds a Deriver. A nil table or catalog gets the built-in default;
// an empty threshold gets "most".
func New(table DecisionTable, catalog *Catalog, threshold Frequency) *Deriver {
	if table == nil {
		table = DefaultDecisionTable()
	}
	if catalog == nil {
		catalog = &Catalog{}
	}
	if threshold == "" {
		threshold = FreqMost
	}
	return &Deriver{table: table, catalog: catalog, threshold: threshold}
}

// Derive maps traits through the decision table and partitions the domain's
// skill catalog into precompiled and dynamic tiers. Trait-level flags, when
// declared in the document, override the role row.
func (d *Deriver) Derive(traits models.Traits) (models.ConfigurationRecord, error) {
	spec, ok := d.table[traits.Role]
	if !ok {
		return models.ConfigurationRecord{}, &apperr.RoleError{Role: traits.Role}
	}

	broad := spec.BroadContext
	if traits.BroadContext != nil {
		broad = *traits.BroadContext
	}
	noSkills := spec.NoDomainSkills
	if traits.NoDomainSkills != nil {
		noSkills = *traits.NoDomainSkills
	}

	rec := models.ConfigurationRecord{
		AgentID:           traits.Name,
		Role:              traits.Role,
		Domain:            traits.Domain,
		PrimaryPromptSet:  spec.PrimaryPromptSet,
		EndingPromptSet:   spec.EndingPromptSet,
		OutputFormat:      spec.OutputFormat,
		SkillsPrecompiled: []models.SkillRef{},
		SkillsDynamic:     []models.SkillRef{},
	}
	if rec.EndingPromptSet == "" {
		rec.EndingPromptSet = rec.PrimaryPromptSet
	}

	switch {
	case noSkills:
		// Both sets stay empty.
	case broad:
		for _, e := range d.catalog.Skills {
			rec.SkillsDynamic = append(rec.SkillsDynamic, e.SkillRef)
		}
	default:
		for _, e := range d.catalog.forDomain(traits.Domain) {
			if e.Frequency.rank() >= d.threshold.rank() {
				rec.SkillsPrecompiled = append(rec.SkillsPrecompiled, e.SkillRef)
			} else {
				rec.SkillsDynamic = append(rec.SkillsDynamic, e.SkillRef)
			}
		}
	}

	sortRefs(rec.SkillsPrecompiled)
	sortRefs(rec.SkillsDynamic)
	return rec, nil
}

func sortRefs(refs []models.SkillRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
}
