package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEngine builds an engine over a temp output tree and registry.
func testEngine(t *testing.T, opts Options) (*Engine, storage.Provider, *registry.DB) {
	t.Helper()
	_, out := testutil.TestWorkspace(t)
	reg := testutil.TestRegistry(t)

	rules, err := classify.NewRuleset(classify.DefaultMarkerSets(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Rules == nil {
		opts.Rules = rules
	}
	if opts.Deriver == nil {
		opts.Deriver = derive.New(nil, &derive.Catalog{Skills: []derive.CatalogEntry{
			{SkillRef: models.SkillRef{ID: "api-design", Path: "skills/api-design.md", DisplayName: "API Design"},
				Domains: []string{"backend"}, Frequency: derive.FreqMost},
		}}, "")
	}
	if opts.Output == nil {
		opts.Output = out
	}
	if opts.Registry == nil {
		opts.Registry = reg
	}
	opts.Logger = quietLogger()

	eng, err := NewEngine(opts)
	if err != nil {
		t.Fatal(err)
	}
	return eng, opts.Output, reg
}

const scenarioDoc = `---
name: backend-builder
role: implementer
domain: backend
---
<role>
You are an X.
</role>

<workflow>
## Steps
Do the work in order.
{{include: partials/checklist.md}}
Finish by reporting.
</workflow>
`

func TestMigrateScenario(t *testing.T) {
	eng, out, reg := testEngine(t, Options{})

	report, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if report.AgentID != "backend-builder" {
		t.Errorf("agent id = %q", report.AgentID)
	}

	intro, err := out.Read("backend-builder/intro.md")
	if err != nil {
		t.Fatalf("read intro: %v", err)
	}
	if strings.TrimSpace(string(intro)) != "You are an X." {
		t.Errorf("intro = %q", intro)
	}

	workflow, err := out.Read("backend-builder/workflow.md")
	if err != nil {
		t.Fatalf("read workflow: %v", err)
	}
	if strings.Contains(string(workflow), "{{include") {
		t.Errorf("workflow still contains the include directive: %q", workflow)
	}
	if !strings.Contains(string(workflow), "Do the work in order.") {
		t.Errorf("workflow = %q", workflow)
	}

	examples, err := out.Read("backend-builder/examples.md")
	if err != nil {
		t.Fatalf("read examples: %v", err)
	}
	if !strings.Contains(string(examples), "No examples content found") {
		t.Errorf("examples placeholder missing: %q", examples)
	}

	// Derived record committed to the registry.
	if !report.Committed {
		t.Error("report not committed")
	}
	row, err := reg.GetAgent("backend-builder")
	if err != nil || row == nil {
		t.Fatalf("GetAgent: %v %v", row, err)
	}
	if row.PrimaryPromptSet != "developer" || row.OutputFormat != "output-format-developer" {
		t.Errorf("record = %+v", row)
	}
	if len(row.SkillsPrecompiled) != 1 {
		t.Errorf("precompiled skills = %+v", row.SkillsPrecompiled)
	}

	// Run audit entry.
	runs, err := reg.ListRuns("backend-builder", 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %+v, err %v", runs, err)
	}
	if runs[0].Status != "ok" {
		t.Errorf("run status = %q", runs[0].Status)
	}
}

func TestMigrateWritesDiscardManifest(t *testing.T) {
	eng, out, _ := testEngine(t, Options{})
	if _, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc)); err != nil {
		t.Fatal(err)
	}

	data, err := out.Read("backend-builder/" + ManifestFilename)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID == "" {
		t.Error("manifest run id missing")
	}
	// Frontmatter is discarded whole; the include line is stripped.
	if len(m.Discarded) == 0 {
		t.Error("manifest has no discarded blocks")
	}
	foundInclude := false
	for _, s := range m.StrippedLines {
		if s.Rule == "template-include" {
			foundInclude = true
		}
	}
	if !foundInclude {
		t.Errorf("stripped lines = %+v, want a template-include entry", m.StrippedLines)
	}
	if len(m.IncludeTargets) != 1 || m.IncludeTargets[0] != "partials/checklist.md" {
		t.Errorf("include targets = %v", m.IncludeTargets)
	}
}

func TestUnresolvedRoleWritesNothing(t *testing.T) {
	eng, out, reg := testEngine(t, Options{})
	doc := strings.Replace(scenarioDoc, "role: implementer", "role: wizard", 1)

	_, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(doc))
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
	if !errors.Is(err, apperr.ErrUnresolvedRole) {
		t.Fatalf("err = %v, want ErrUnresolvedRole", err)
	}
	if _, err := out.Read("backend-builder/intro.md"); err == nil {
		t.Error("artifacts were written despite the pre-write failure")
	}
	if row, _ := reg.GetAgent("backend-builder"); row != nil {
		t.Error("registry row exists despite the failure")
	}
}

func TestUnterminatedSectionDegradesWithWarning(t *testing.T) {
	eng, out, _ := testEngine(t, Options{})
	doc := `---
name: ragged
role: implementer
domain: backend
---
Intro paragraph with no marker.

<critical_requirements>
Never skip the checklist.
`
	report, err := eng.Migrate(context.Background(), "ragged.md", []byte(doc))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Marker != "critical_requirements" {
		t.Fatalf("warnings = %+v", report.Warnings)
	}

	// The degraded span lands in workflow, not critical-requirements.
	workflow, _ := out.Read("ragged/workflow.md")
	if !strings.Contains(string(workflow), "Never skip the checklist.") {
		t.Errorf("workflow = %q", workflow)
	}
	reqs, _ := out.Read("ragged/critical-requirements.md")
	if !strings.Contains(string(reqs), "No critical requirements content found") {
		t.Errorf("critical-requirements = %q", reqs)
	}
}

func TestMigrateIsDeterministic(t *testing.T) {
	eng, out, _ := testEngine(t, Options{})

	first, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc))
	if err != nil {
		t.Fatal(err)
	}
	firstIntro, _ := out.Read("backend-builder/intro.md")
	firstWorkflow, _ := out.Read("backend-builder/workflow.md")

	second, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc))
	if err != nil {
		t.Fatal(err)
	}
	secondIntro, _ := out.Read("backend-builder/intro.md")
	secondWorkflow, _ := out.Read("backend-builder/workflow.md")

	if string(firstIntro) != string(secondIntro) || string(firstWorkflow) != string(secondWorkflow) {
		t.Error("artifact bytes differ between identical runs")
	}
	if first.Counts[models.CategoryWorkflow] != second.Counts[models.CategoryWorkflow] {
		t.Error("category counts differ between identical runs")
	}
	a, _ := json.Marshal(first.Record)
	b, _ := json.Marshal(second.Record)
	if string(a) != string(b) {
		t.Errorf("records differ: %s vs %s", a, b)
	}
}

// corruptingStore truncates one file on write to force a verification
// shortfall after a successful-looking write.
type corruptingStore struct {
	storage.Provider
	victim string
}

func (c *corruptingStore) Write(path string, content []byte) error {
	if strings.HasSuffix(path, c.victim) && len(content) > 4 {
		content = content[:4]
	}
	return c.Provider.Write(path, content)
}

func TestVerificationFailureRollsBack(t *testing.T) {
	_, out := testutil.TestWorkspace(t)
	eng, _, reg := testEngine(t, Options{Output: &corruptingStore{Provider: out, victim: "workflow.md"}})

	_, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc))
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if !errors.Is(err, apperr.ErrContentLoss) {
		t.Fatalf("err = %v, want ErrContentLoss", err)
	}
	if _, err := out.Read("backend-builder/intro.md"); err == nil {
		t.Error("destination dir was not rolled back")
	}
	if row, _ := reg.GetAgent("backend-builder"); row != nil {
		t.Error("registry row exists despite rollback")
	}
}

func TestVerificationFailureKeepsSuspect(t *testing.T) {
	_, out := testutil.TestWorkspace(t)
	eng, _, _ := testEngine(t, Options{
		Output:      &corruptingStore{Provider: out, victim: "workflow.md"},
		KeepSuspect: true,
	})

	report, err := eng.Migrate(context.Background(), "backend-builder.md", []byte(scenarioDoc))
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if report == nil || !report.Suspect {
		t.Fatalf("report = %+v, want suspect", report)
	}
	if _, err := out.Read("backend-builder/" + SuspectFilename); err != nil {
		t.Errorf("SUSPECT marker missing: %v", err)
	}
	if _, err := out.Read("backend-builder/intro.md"); err != nil {
		t.Errorf("artifacts should be kept for inspection: %v", err)
	}
}

func TestMigrateAllIsolatesFailures(t *testing.T) {
	eng, _, _ := testEngine(t, Options{})

	good := []byte(scenarioDoc)
	bad := []byte(strings.Replace(scenarioDoc, "role: implementer", "role: wizard", 1))
	bad = []byte(strings.Replace(string(bad), "name: backend-builder", "name: broken", 1))

	outcomes := eng.MigrateAll(context.Background(), []Document{
		{Path: "backend-builder.md", Data: good},
		{Path: "broken.md", Data: bad},
	}, 2)

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Errorf("good doc failed: %v", outcomes[0].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("bad doc should have failed")
	}
}

func TestAgentIDFallsBackToFileStem(t *testing.T) {
	eng, out, _ := testEngine(t, Options{})
	doc := `---
role: implementer
domain: backend
---
Intro text.
`
	report, err := eng.Migrate(context.Background(), "prompts/legacy-agent.md", []byte(doc))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if report.AgentID != "legacy-agent" {
		t.Errorf("agent id = %q", report.AgentID)
	}
	if _, err := out.Read("legacy-agent/intro.md"); err != nil {
		t.Errorf("artifact dir not named after file stem: %v", err)
	}
}
