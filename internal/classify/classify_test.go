package classify

import (
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

func mustRuleset(t *testing.T, intro IntroHeuristic) *Ruleset {
	t.Helper()
	rs, err := NewRuleset(DefaultMarkerSets(), intro)
	if err != nil {
		t.Fatalf("NewRuleset: %v", err)
	}
	return rs
}

func nonWS(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

const reviewerDoc = `---
name: review-bot
role: reviewer
---
{{include: shared/header.md}}
You are a meticulous code reviewer.

<critical_requirements>
Never approve failing builds.
</critical_requirements>

# Review Workflow

1. Read the diff.
2. Leave comments.

<examples>
Input: a diff. Output: comments.
</examples>

<preloaded_content>
Giant vendored context here.
</preloaded_content>

<critical_reminders>
Stay terse.
</critical_reminders>

Remember: follow the workflow above exactly as written.
`

func TestClassifyDocument(t *testing.T) {
	blocks, warns := parser.Tokenize([]byte(reviewerDoc))
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %+v", warns)
	}
	rs := mustRuleset(t, nil)
	cats, rules, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []struct {
		cat  models.Category
		rule string
	}{
		{models.CategoryDiscard, RuleFrontmatter},
		{models.CategoryDiscard, RuleDirective},
		{models.CategoryIntro, RuleLeadingIntro},
		{models.CategoryRequirements, RuleMarkerRequirements},
		{models.CategoryWorkflow, RuleWorkflowFallback},
		{models.CategoryWorkflow, RuleWorkflowFallback},
		{models.CategoryExamples, RuleMarkerExamples},
		{models.CategoryDiscard, RuleMarkerPreloaded},
		{models.CategoryReminders, RuleMarkerReminders},
		{models.CategoryDiscard, RuleBoilerplate},
	}
	if len(cats) != len(want) {
		t.Fatalf("got %d assignments, want %d", len(cats), len(want))
	}
	for i, w := range want {
		if cats[i] != w.cat || rules[i] != w.rule {
			t.Errorf("block %d: got %s via %s, want %s via %s", i, cats[i], rules[i], w.cat, w.rule)
		}
	}
}

func TestClassifyHeadingDisqualifiesIntro(t *testing.T) {
	blocks, _ := parser.Tokenize([]byte("# Setup\n\nThen prose.\n"))
	rs := mustRuleset(t, nil)
	cats, _, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for i, cat := range cats {
		if cat != models.CategoryWorkflow {
			t.Errorf("block %d: got %s, want %s", i, cat, models.CategoryWorkflow)
		}
	}
}

func TestClassifyNoIntroAfterWorkflow(t *testing.T) {
	// A wide window keeps the positional predicate true; only the
	// first-workflow cutoff can stop the second paragraph from being intro.
	blocks, _ := parser.Tokenize([]byte("You are X.\n\n# Work\n\nAlso short.\n"))
	rs := mustRuleset(t, LeadingWindow(10))
	cats, _, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []models.Category{models.CategoryIntro, models.CategoryWorkflow, models.CategoryWorkflow}
	for i, w := range want {
		if cats[i] != w {
			t.Errorf("block %d: got %s, want %s", i, cats[i], w)
		}
	}
}

func TestClassifyUnknownMarkerUsesPositionalRule(t *testing.T) {
	blocks, _ := parser.Tokenize([]byte("<weird_tag>\nWho knows.\n</weird_tag>\n"))
	rs := mustRuleset(t, nil)
	cats, rules, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cats[0] != models.CategoryIntro || rules[0] != RuleLeadingIntro {
		t.Fatalf("got %s via %s, want %s via %s", cats[0], rules[0], models.CategoryIntro, RuleLeadingIntro)
	}
}

func TestNewRulesetRejectsOverlap(t *testing.T) {
	sets := DefaultMarkerSets()
	sets.Preloaded = append(sets.Preloaded, "examples")
	_, err := NewRuleset(sets, nil)
	if !errors.Is(err, apperr.ErrAmbiguousClassification) {
		t.Fatalf("got %v, want ErrAmbiguousClassification", err)
	}
}

func TestClassifyAmbiguousMarkerAborts(t *testing.T) {
	// Bypass the constructor to simulate a corrupted rule table; the
	// classifier still has to refuse rather than pick a winner.
	rs := &Ruleset{
		entries: []markerEntry{
			{rule: RuleMarkerReminders, cat: models.CategoryReminders, markers: map[string]struct{}{"x": {}}},
			{rule: RuleMarkerPreloaded, cat: models.CategoryDiscard, markers: map[string]struct{}{"x": {}}},
		},
		intro: LeadingWindow(DefaultIntroWindow),
	}
	blocks, _ := parser.Tokenize([]byte("<x>\nhm\n</x>\n"))
	_, _, err := rs.Classify(blocks)
	if !errors.Is(err, apperr.ErrAmbiguousClassification) {
		t.Fatalf("got %v, want ErrAmbiguousClassification", err)
	}
	var amb *apperr.AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("got %T, want *apperr.AmbiguityError", err)
	}
	if amb.BlockOrder != 0 || len(amb.Rules) != 2 {
		t.Fatalf("unexpected ambiguity detail: %+v", amb)
	}
}

func TestStripSectionDelimiters(t *testing.T) {
	blocks, _ := parser.Tokenize([]byte("<critical_reminders>\nStay terse.\n</critical_reminders>\n"))
	rs := mustRuleset(t, nil)
	cats, _, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	out, stripped := Strip(blocks, cats)
	if out[0].Clean != "Stay terse.\n" {
		t.Fatalf("clean = %q", out[0].Clean)
	}
	if len(stripped) != 2 {
		t.Fatalf("got %d stripped lines, want 2", len(stripped))
	}
	for _, s := range stripped {
		if s.Rule != StripSectionDelimiter {
			t.Errorf("rule = %q, want %q", s.Rule, StripSectionDelimiter)
		}
	}
}

func TestStripDirectiveInsideSection(t *testing.T) {
	doc := "<critical_requirements>\nNever push red.\n{{include: shared/rules.md}}\n</critical_requirements>\n"
	blocks, _ := parser.Tokenize([]byte(doc))
	rs := mustRuleset(t, nil)
	cats, _, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cats[0] != models.CategoryRequirements {
		t.Fatalf("category = %s", cats[0])
	}
	out, stripped := Strip(blocks, cats)
	if out[0].Clean != "Never push red.\n" {
		t.Fatalf("clean = %q", out[0].Clean)
	}
	var sawInclude bool
	for _, s := range stripped {
		if s.Rule == "template-include" {
			sawInclude = true
		}
	}
	if !sawInclude {
		t.Fatalf("include directive not recorded: %+v", stripped)
	}
}

func TestStripTrailingBoilerplateRun(t *testing.T) {
	doc := "Step one.\nRemember: follow the workflow above exactly as written.\n"
	blocks, _ := parser.Tokenize([]byte(doc))
	cats := []models.Category{models.CategoryWorkflow}
	out, stripped := Strip(blocks, cats)
	if out[0].Clean != "Step one.\n" {
		t.Fatalf("clean = %q", out[0].Clean)
	}
	if len(stripped) != 1 || stripped[0].Rule != StripTrailingBoilerplate {
		t.Fatalf("stripped = %+v", stripped)
	}
}

func TestStripKeepsBoilerplateMidBlock(t *testing.T) {
	doc := "Remember: follow the workflow above exactly as written.\nThen keep going.\n"
	blocks, _ := parser.Tokenize([]byte(doc))
	cats := []models.Category{models.CategoryWorkflow}
	out, stripped := Strip(blocks, cats)
	if out[0].Clean != doc {
		t.Fatalf("clean = %q, want unchanged", out[0].Clean)
	}
	if len(stripped) != 0 {
		t.Fatalf("stripped = %+v, want none", stripped)
	}
}

func TestStripDiscardedBlocksKeepRaw(t *testing.T) {
	blocks, _ := parser.Tokenize([]byte("{{include: a.md}}\n"))
	cats := []models.Category{models.CategoryDiscard}
	out, stripped := Strip(blocks, cats)
	if out[0].Clean != out[0].Raw {
		t.Fatalf("discarded block altered: %q != %q", out[0].Clean, out[0].Raw)
	}
	if len(stripped) != 0 {
		t.Fatalf("stripped = %+v, want none", stripped)
	}
}

func TestStripAccounting(t *testing.T) {
	blocks, _ := parser.Tokenize([]byte(reviewerDoc))
	rs := mustRuleset(t, nil)
	cats, _, err := rs.Classify(blocks)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	out, stripped := Strip(blocks, cats)
	perBlock := make(map[int]int)
	for _, s := range stripped {
		perBlock[s.BlockOrder] += nonWS(s.Text)
	}
	for i, b := range out {
		got := nonWS(b.Clean) + perBlock[b.Order]
		if got != nonWS(b.Raw) {
			t.Errorf("block %d: clean %d + stripped %d != raw %d",
				i, nonWS(b.Clean), perBlock[b.Order], nonWS(b.Raw))
		}
	}
	var rejoined strings.Builder
	for _, b := range blocks {
		rejoined.WriteString(b.Raw)
	}
	if rejoined.String() != reviewerDoc {
		t.Fatal("blocks no longer rejoin to the source")
	}
}
