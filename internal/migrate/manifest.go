package migrate

import (
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/starford/dagaz/internal/classify"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// ManifestFilename is written alongside the five artifacts in every
// destination directory.
const ManifestFilename = "discard-manifest.json"

// Manifest is the diagnostic log of everything the pipeline removed and why.
// Advisory output for audit and debugging; nothing downstream consumes it.
type Manifest struct {
	RunID          string                  `json:"run_id"`
	Source         string                  `json:"source"`
	GeneratedAt    time.Time               `json:"generated_at"`
	Discarded      []DiscardedBlock        `json:"discarded_blocks"`
	StrippedLines  []classify.StrippedLine `json:"stripped_lines"`
	IncludeTargets []string                `json:"include_targets,omitempty"`
	Warnings       []parser.Warning        `json:"warnings,omitempty"`
}

// DiscardedBlock records one whole block removed by classification.
type DiscardedBlock struct {
	Order int              `json:"order"`
	Kind  models.BlockKind `json:"kind"`
	Rule  string           `json:"rule"`
	Bytes int              `json:"bytes"`
}

func buildManifest(runID, source string, blocks []models.Block, cats []models.Category,
	ruleNames []string, stripped []classify.StrippedLine, warnings []parser.Warning) Manifest {

	m := Manifest{
		RunID:          runID,
		Source:         source,
		GeneratedAt:    time.Now().UTC(),
		Discarded:      []DiscardedBlock{},
		StrippedLines:  stripped,
		IncludeTargets: parser.IncludeTargets(blocks),
		Warnings:       warnings,
	}
	if m.StrippedLines == nil {
		m.StrippedLines = []classify.StrippedLine{}
	}
	for i, b := range blocks {
		if cats[i] != models.CategoryDiscard {
			continue
		}
		m.Discarded = append(m.Discarded, DiscardedBlock{
			Order: b.Order,
			Kind:  b.Kind,
			Rule:  ruleNames[i],
			Bytes: len(b.Raw),
		})
	}
	return m
}

func (e *Engine) writeManifest(agentID string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("migrate: encode manifest: %w", err)
	}
	if err := e.out.Write(path.Join(agentID, ManifestFilename), append(data, '\n')); err != nil {
		return fmt.Errorf("migrate: write manifest: %w", err)
	}
	return nil
}
