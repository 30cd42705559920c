package parser

import (
	"strings"
	"testing"
)

func TestExtractTraits(t *testing.T) {
	input := "---\nname: billing-agent\nrole: Reviewer\ndomain: Backend\n---\nbody\n"
	blocks, _ := Tokenize([]byte(input))
	traits, err := ExtractTraits(blocks)
	if err != nil {
		t.Fatalf("ExtractTraits: %v", err)
	}
	if traits.Name != "billing-agent" {
		t.Errorf("name = %q", traits.Name)
	}
	// Role and domain are normalized to lower case.
	if traits.Role != "reviewer" || traits.Domain != "backend" {
		t.Errorf("role = %q, domain = %q", traits.Role, traits.Domain)
	}
	if traits.BroadContext != nil || traits.NoDomainSkills != nil {
		t.Errorf("flags should be unset: %+v", traits)
	}
}

func TestExtractTraits_Flags(t *testing.T) {
	input := "---\nrole: planner\ndomain: cross-cutting\nbroad_context: true\n---\n"
	blocks, _ := Tokenize([]byte(input))
	traits, err := ExtractTraits(blocks)
	if err != nil {
		t.Fatalf("ExtractTraits: %v", err)
	}
	if traits.BroadContext == nil || !*traits.BroadContext {
		t.Error("broad_context flag not extracted")
	}
}

func TestExtractTraits_NoFrontmatter(t *testing.T) {
	blocks, _ := Tokenize([]byte("Just prose.\n"))
	traits, err := ExtractTraits(blocks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if traits.Role != "" || traits.Name != "" {
		t.Errorf("traits = %+v, want zero value", traits)
	}
}

func TestExtractTraits_InvalidYAML(t *testing.T) {
	input := "---\n: bad: yaml: {{{\n---\n"
	blocks, _ := Tokenize([]byte(input))
	if _, err := ExtractTraits(blocks); err == nil {
		t.Error("invalid frontmatter yaml should error, not guess")
	}
}

func TestIsBoilerplate(t *testing.T) {
	for _, b := range Boilerplate() {
		if !IsBoilerplate("  " + b + "\n") {
			t.Errorf("boilerplate not matched: %q", b)
		}
	}
	if IsBoilerplate("Remember: follow the workflow above, mostly.") {
		t.Error("near-match must not count as boilerplate")
	}
}

func TestSectionOpenClose(t *testing.T) {
	if got := SectionOpen("<critical_reminders>\n"); got != "critical_reminders" {
		t.Errorf("SectionOpen = %q", got)
	}
	if got := SectionOpen("not a tag"); got != "" {
		t.Errorf("SectionOpen = %q, want empty", got)
	}
	if got := SectionOpen("<Upper>"); got != "" {
		t.Errorf("marker names are lower case, got %q", got)
	}
	if !SectionClose("</role>\n", "role") {
		t.Error("SectionClose failed on matching tag")
	}
	if SectionClose("</role>", "workflow") {
		t.Error("SectionClose matched wrong name")
	}
}

func TestFrontmatterBody_TrailingBlanks(t *testing.T) {
	input := "---\nname: x\n---\n\n\nBody.\n"
	blocks, _ := Tokenize([]byte(input))
	if blocks[0].Kind != "frontmatter" {
		t.Fatalf("first block = %+v", blocks[0])
	}
	// Blank lines after the closing fence attach to the frontmatter block;
	// the YAML body must exclude both fences and those blanks.
	body := frontmatterBody(blocks[0].Raw)
	if strings.TrimSpace(body) != "name: x" {
		t.Errorf("body = %q", body)
	}
}
