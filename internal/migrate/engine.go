// Package migrate runs the document migration pipeline: tokenize → classify
// → strip → derive → assemble → write → verify → registry commit.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/assemble"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/derive"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/verify"
)

// SuspectFilename marks an artifact directory whose verification failed but
// was kept for inspection.
const SuspectFilename = "SUSPECT"

// Options configures an Engine. Rules, Deriver, and Output are required;
// Registry is optional (nil skips the commit stage).
type Options struct {
	Rules       *classify.Ruleset
	Deriver     *derive.Deriver
	Output      storage.Provider
	Registry    registry.AgentRegistry
	Logger      *slog.Logger
	Tolerance   int
	KeepSuspect bool
}

// Engine migrates one source document per call. All fields are read-only
// after construction, so one Engine is safe for concurrent use across
// parallel document runs.
type Engine struct {
	rules       *classify.Ruleset
	deriver     *derive.Deriver
	out         storage.Provider
	reg         registry.AgentRegistry
	logger      *slog.Logger
	tolerance   int
	keepSuspect bool
}

// NewEngine validates opts and builds an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Rules == nil {
		return nil, fmt.Errorf("migrate: rules are required")
	}
	if opts.Deriver == nil {
		return nil, fmt.Errorf("migrate: deriver is required")
	}
	if opts.Output == nil {
		return nil, fmt.Errorf("migrate: output storage is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:       opts.Rules,
		deriver:     opts.Deriver,
		out:         opts.Output,
		reg:         opts.Registry,
		logger:      logger,
		tolerance:   opts.Tolerance,
		keepSuspect: opts.KeepSuspect,
	}, nil
}

// Report is the operator-facing summary of one migration run.
type Report struct {
	RunID        string                      `json:"run_id"`
	AgentID      string                      `json:"agent_id"`
	SourcePath   string                      `json:"source_path"`
	Checksum     string                      `json:"checksum"`
	Counts       map[models.Category]int     `json:"counts"`
	Warnings     []parser.Warning            `json:"warnings,omitempty"`
	Stripped     int                         `json:"stripped_lines"`
	Record       models.ConfigurationRecord  `json:"record"`
	Verification verify.Result               `json:"verification"`
	Suspect      bool                        `json:"suspect,omitempty"`
	Dir          string                      `json:"dir"`
	Committed    bool                        `json:"committed"`
}

// Migrate runs the full pipeline for one source document. sourcePath is
// recorded for provenance; data is the document's content. Classification
// and derivation failures abort before any file I/O. A verification failure
// after the writes either rolls the artifact directory back or keeps it
// flagged as suspect, depending on the engine's KeepSuspect setting. It is
// never left as an unflagged partial result.
func (e *Engine) Migrate(ctx context.Context, sourcePath string, data []byte) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks, warnings := parser.Tokenize(data)
	for _, w := range warnings {
		e.logger.Warn("migrate: tokenizer warning",
			slog.String("source", sourcePath),
			slog.String("code", w.Code),
			slog.String("message", w.Message))
	}

	traits, err := parser.ExtractTraits(blocks)
	if err != nil {
		return nil, fmt.Errorf("migrate: %s: %w", sourcePath, err)
	}
	agentID := traits.Name
	if agentID == "" {
		agentID = docStem(sourcePath)
	}

	cats, ruleNames, err := e.rules.Classify(blocks)
	if err != nil {
		return nil, fmt.Errorf("migrate: %s: %w", sourcePath, err)
	}
	blocks, stripped := classify.Strip(blocks, cats)

	traits.Name = agentID
	record, err := e.deriver.Derive(traits)
	if err != nil {
		return nil, fmt.Errorf("migrate: %s: %w", sourcePath, err)
	}

	// Everything from here on touches the output tree.
	runID := uuid.New().String()
	arts := assemble.Build(blocks, cats)
	for _, a := range arts {
		if err := e.out.Write(path.Join(agentID, a.Filename), []byte(a.Content)); err != nil {
			e.rollback(agentID)
			return nil, fmt.Errorf("migrate: write %s: %w", a.Filename, err)
		}
	}

	manifest := buildManifest(runID, sourcePath, blocks, cats, ruleNames, stripped, warnings)
	if err := e.writeManifest(agentID, manifest); err != nil {
		e.rollback(agentID)
		return nil, err
	}

	report := &Report{
		RunID:      runID,
		AgentID:    agentID,
		SourcePath: sourcePath,
		Checksum:   checksum.Sum(data),
		Counts:     countByCategory(cats),
		Warnings:   warnings,
		Stripped:   len(stripped),
		Record:     record,
		Dir:        agentID,
	}

	vres, verr := verify.Run(e.out, agentID, data, blocks, cats, arts, stripped, e.tolerance)
	report.Verification = vres
	if verr != nil {
		if e.keepSuspect {
			report.Suspect = true
			_ = e.out.Write(path.Join(agentID, SuspectFilename), []byte(verr.Error()+"\n"))
			e.logger.Error("migrate: verification failed, directory kept as suspect",
				slog.String("agent", agentID),
				slog.String("error", verr.Error()))
		} else {
			e.rollback(agentID)
			e.logger.Error("migrate: verification failed, artifacts rolled back",
				slog.String("agent", agentID),
				slog.String("error", verr.Error()))
		}
		return report, fmt.Errorf("migrate: %s: %w", sourcePath, verr)
	}

	if e.reg != nil {
		if err := e.commit(report); err != nil {
			return report, err
		}
		report.Committed = true
	}

	e.logger.Info("migrate: done",
		slog.String("agent", agentID),
		slog.String("run", runID),
		slog.Int("blocks", len(blocks)),
		slog.Int("stripped", len(stripped)))
	return report, nil
}

// commit writes the derived record and the run audit entry to the registry.
func (e *Engine) commit(r *Report) error {
	row := registry.AgentRow{
		ID:                r.AgentID,
		SourcePath:        r.SourcePath,
		SourceChecksum:    r.Checksum,
		Role:              r.Record.Role,
		Domain:            r.Record.Domain,
		PrimaryPromptSet:  r.Record.PrimaryPromptSet,
		EndingPromptSet:   r.Record.EndingPromptSet,
		OutputFormat:      r.Record.OutputFormat,
		SkillsPrecompiled: r.Record.SkillsPrecompiled,
		SkillsDynamic:     r.Record.SkillsDynamic,
		MigratedAt:        time.Now(),
	}
	body, err := e.searchBody(r.AgentID)
	if err != nil {
		return err
	}
	if err := e.reg.UpsertAgent(row, body); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", r.AgentID, err)
	}

	counts := make(map[string]int, len(r.Counts))
	for cat, n := range r.Counts {
		counts[string(cat)] = n
	}
	warns := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warns = append(warns, w.Message)
	}
	run := registry.RunRow{
		ID:          r.RunID,
		AgentID:     r.AgentID,
		BlockCounts: counts,
		Warnings:    warns,
		Status:      "ok",
	}
	if err := e.reg.InsertRun(run); err != nil {
		return fmt.Errorf("migrate: record run %s: %w", r.RunID, err)
	}
	return nil
}

// searchBody concatenates the intro and workflow artifacts as the agent's
// searchable text.
func (e *Engine) searchBody(agentID string) (string, error) {
	var sb strings.Builder
	for _, cat := range []models.Category{models.CategoryIntro, models.CategoryWorkflow} {
		data, err := e.out.Read(path.Join(agentID, models.ArtifactFilename[cat]))
		if err != nil {
			return "", fmt.Errorf("migrate: read body %s: %w", agentID, err)
		}
		sb.Write(data)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (e *Engine) rollback(agentID string) {
	if err := e.out.RemoveDir(agentID); err != nil {
		e.logger.Error("migrate: rollback failed",
			slog.String("agent", agentID),
			slog.String("error", err.Error()))
	}
}

func countByCategory(cats []models.Category) map[models.Category]int {
	out := make(map[models.Category]int)
	for _, c := range cats {
		out[c]++
	}
	return out
}

// docStem returns the file name without directories or the .md extension,
// used as the agent id when the frontmatter declares no name.
func docStem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, ".md")
}
