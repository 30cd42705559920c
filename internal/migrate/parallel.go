package migrate

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Document is one migration input for a batch run.
type Document struct {
	Path string
	Data []byte
}

// Outcome pairs one document with its migration result. Err is nil on
// success; Report may be non-nil even on failure (verification failures
// still carry the per-stage summary).
type Outcome struct {
	Path   string
	Report *Report
	Err    error
}

// MigrateAll fans the documents out across at most parallel workers.
// Documents share nothing but the engine's read-only tables, so one failing
// document never cancels the others; every document gets an Outcome, in
// input order.
func (e *Engine) MigrateAll(ctx context.Context, docs []Document, parallel int) []Outcome {
	if parallel <= 0 {
		parallel = 1
	}
	outcomes := make([]Outcome, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, doc := range docs {
		g.Go(func() error {
			report, err := e.Migrate(gCtx, doc.Path, doc.Data)
			outcomes[i] = Outcome{Path: doc.Path, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers report through outcomes, never through the group
	return outcomes
}
