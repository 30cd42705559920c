// Package classify assigns every tokenized block to exactly one output
// category and strips infrastructure lines from the blocks that survive.
// Classification is a pure function of the block stream and the rule table:
// no document state leaks between runs.
package classify

import (
	"fmt"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// Rule names recorded per block in the discard manifest and in run logs.
const (
	RuleFrontmatter        = "frontmatter-kind"
	RuleDirective          = "directive-kind"
	RuleMarkerReminders    = "marker-reminders"
	RuleMarkerRequirements = "marker-requirements"
	RuleMarkerExamples     = "marker-examples"
	RuleMarkerPreloaded    = "marker-preloaded"
	RuleMarkerIntro        = "marker-intro"
	RuleBoilerplate        = "boilerplate-equality"
	RuleLeadingIntro       = "leading-intro"
	RuleWorkflowFallback   = "workflow-fallback"
)

// MarkerSets names the section delimiters that force a category. The sets
// must be pairwise disjoint; NewRuleset rejects a marker claimed twice.
type MarkerSets struct {
	Reminders    []string `yaml:"reminders"`
	Requirements []string `yaml:"requirements"`
	Examples     []string `yaml:"examples"`
	Preloaded    []string `yaml:"preloaded"`
	Intro        []string `yaml:"intro"`
}

// DefaultMarkerSets covers the delimiter vocabulary observed across the
// legacy prompt corpus.
func DefaultMarkerSets() MarkerSets {
	return MarkerSets{
		Reminders:    []string{"critical_reminders", "reminders", "final_reminders"},
		Requirements: []string{"critical_requirements", "requirements", "constraints"},
		Examples:     []string{"examples", "example", "sample_tasks"},
		Preloaded:    []string{"preloaded_content"},
		Intro:        []string{"role", "intro"},
	}
}

// markerEntry is one marker-driven row of the rule table, held in priority
// order.
type markerEntry struct {
	rule    string
	cat     models.Category
	markers map[string]struct{}
}

// Ruleset is the classification rule table. Build it once and share it; a
// Ruleset is read-only after construction and safe for concurrent use.
type Ruleset struct {
	entries []markerEntry
	intro   IntroHeuristic
}

// NewRuleset builds the rule table from the marker configuration and the
// intro heuristic. A nil heuristic gets the positional default.
func NewRuleset(sets MarkerSets, intro IntroHeuristic) (*Ruleset, error) {
	if intro == nil {
		intro = LeadingWindow(DefaultIntroWindow)
	}
	rows := []struct {
		rule    string
		cat     models.Category
		markers []string
	}{
		{RuleMarkerReminders, models.CategoryReminders, sets.Reminders},
		{RuleMarkerRequirements, models.CategoryRequirements, sets.Requirements},
		{RuleMarkerExamples, models.CategoryExamples, sets.Examples},
		{RuleMarkerPreloaded, models.CategoryDiscard, sets.Preloaded},
		{RuleMarkerIntro, models.CategoryIntro, sets.Intro},
	}
	owner := make(map[string]string)
	entries := make([]markerEntry, 0, len(rows))
	for _, row := range rows {
		set := make(map[string]struct{}, len(row.markers))
		for _, m := range row.markers {
			m = strings.ToLower(strings.TrimSpace(m))
			if m == "" {
				continue
			}
			if prev, dup := owner[m]; dup && prev != row.rule {
				return nil, fmt.Errorf("classify: marker %q claimed by both %s and %s: %w",
					m, prev, row.rule, apperr.ErrAmbiguousClassification)
			}
			owner[m] = row.rule
			set[m] = struct{}{}
		}
		entries = append(entries, markerEntry{rule: row.rule, cat: row.cat, markers: set})
	}
	return &Ruleset{entries: entries, intro: intro}, nil
}

// Classify assigns each block exactly one category. The returned slices are
// parallel to blocks: cats[i] and rules[i] describe blocks[i], rules[i] being
// the name of the rule that decided. The assignment is total; an error means
// the document cannot be migrated safely and nothing should be written.
func (r *Ruleset) Classify(blocks []models.Block) (cats []models.Category, rules []string, err error) {
	cats = make([]models.Category, len(blocks))
	rules = make([]string, len(blocks))
	seenWorkflow := false
	for i, b := range blocks {
		switch b.Kind {
		case models.KindFrontmatter:
			cats[i], rules[i] = models.CategoryDiscard, RuleFrontmatter
			continue
		case models.KindDirective:
			cats[i], rules[i] = models.CategoryDiscard, RuleDirective
			continue
		case models.KindSection:
			cat, rule, lerr := r.lookupMarker(b)
			if lerr != nil {
				return nil, nil, lerr
			}
			if rule != "" {
				cats[i], rules[i] = cat, rule
				continue
			}
			// Unknown marker: the positional rule below decides.
		}
		if parser.IsBoilerplate(b.Raw) {
			cats[i], rules[i] = models.CategoryDiscard, RuleBoilerplate
			continue
		}
		if !seenWorkflow && r.intro(b) {
			cats[i], rules[i] = models.CategoryIntro, RuleLeadingIntro
			continue
		}
		cats[i], rules[i] = models.CategoryWorkflow, RuleWorkflowFallback
		seenWorkflow = true
	}
	return cats, rules, nil
}

// lookupMarker scans every rule row for b's marker. More than one row
// claiming the marker with different categories aborts the run instead of
// picking a winner.
func (r *Ruleset) lookupMarker(b models.Block) (models.Category, string, error) {
	var matched []markerEntry
	for _, e := range r.entries {
		if _, ok := e.markers[b.Marker]; ok {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return "", "", nil
	}
	first := matched[0]
	for _, e := range matched[1:] {
		if e.cat != first.cat {
			names := make([]string, 0, len(matched))
			for _, m := range matched {
				names = append(names, m.rule)
			}
			return "", "", &apperr.AmbiguityError{BlockOrder: b.Order, Rules: names}
		}
	}
	return first.cat, first.rule, nil
}
