// Package models defines the domain types for Dagaz.
package models

// BlockKind identifies the structural shape of a tokenized Block.
type BlockKind string

const (
	// KindFrontmatter is the leading fence-delimited metadata region.
	KindFrontmatter BlockKind = "frontmatter"
	// KindDirective is a single infrastructure line (include reference,
	// framework closing line).
	KindDirective BlockKind = "directive"
	// KindSection is a region opened and closed by a matching <name> tag pair.
	KindSection BlockKind = "delimited_section"
	// KindText is everything else: plain paragraphs between recognized boundaries.
	KindText BlockKind = "plain_text"
)

// Category is the single classification bucket assigned to a Block.
type Category string

const (
	CategoryIntro        Category = "intro"
	CategoryWorkflow     Category = "workflow"
	CategoryExamples     Category = "examples"
	CategoryRequirements Category = "critical_requirements"
	CategoryReminders    Category = "critical_reminders"
	CategoryDiscard      Category = "discard"
)

// OutputCategories lists the five emitted categories in artifact order.
// Discard is intentionally absent: discarded blocks never reach an artifact.
var OutputCategories = []Category{
	CategoryIntro,
	CategoryWorkflow,
	CategoryExamples,
	CategoryRequirements,
	CategoryReminders,
}

// ArtifactFilename maps each output category to its fixed file name.
var ArtifactFilename = map[Category]string{
	CategoryIntro:        "intro.md",
	CategoryWorkflow:     "workflow.md",
	CategoryExamples:     "examples.md",
	CategoryRequirements: "critical-requirements.md",
	CategoryReminders:    "critical-reminders.md",
}

// Block is a contiguous span of source text produced by tokenization.
// Blocks are created once by the tokenizer and never mutated; Order is the
// sort key for all later reassembly, so original sequence is preserved per
// category. Raw holds the verbatim source bytes (audit); Clean is Raw after
// the stripper's line-level pass and is what the assembler emits.
type Block struct {
	Order  int       `json:"order"`
	Kind   BlockKind `json:"kind"`
	Marker string    `json:"marker,omitempty"` // delimiter name for delimited sections
	Raw    string    `json:"raw"`
	Clean  string    `json:"clean"`
}
