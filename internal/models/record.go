package models

import "time"

// Traits is the small trait vector extracted from a source document's
// frontmatter. It is the only input to configuration derivation.
type Traits struct {
	Name           string `yaml:"name"`
	Role           string `yaml:"role"`
	Domain         string `yaml:"domain"`
	BroadContext   *bool  `yaml:"broad_context,omitempty"`
	NoDomainSkills *bool  `yaml:"no_domain_skills,omitempty"`
}

// SkillRef is a reference to one entry in the domain skill catalog.
type SkillRef struct {
	ID          string `json:"id" yaml:"id"`
	Path        string `json:"path" yaml:"path"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	UsagePhrase string `json:"usage_phrase" yaml:"usage_phrase"`
}

// ConfigurationRecord describes how a migrated document's artifacts should be
// recombined later: prompt-set selection, output format, and the two-tier
// skill partition. It is derived from Traits, never parsed from prose.
type ConfigurationRecord struct {
	AgentID          string     `json:"agent_id"`
	Role             string     `json:"role"`
	Domain           string     `json:"domain"`
	PrimaryPromptSet string     `json:"primary_prompt_set"`
	EndingPromptSet  string     `json:"ending_prompt_set"`
	OutputFormat     string     `json:"output_format"`
	SkillsPrecompiled []SkillRef `json:"skills_precompiled"`
	SkillsDynamic    []SkillRef `json:"skills_dynamic"`
}

// AgentRecord is a ConfigurationRecord as stored in the registry, with
// provenance fields tying it back to the source document.
type AgentRecord struct {
	ConfigurationRecord
	SourcePath     string    `json:"source_path"`
	SourceChecksum string    `json:"source_checksum"`
	MigratedAt     time.Time `json:"migrated_at"`
}

// DocumentMetadata is a lightweight listing entry for source documents.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
