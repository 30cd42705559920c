package migrate

import (
	"context"
	"log/slog"

	"github.com/starford/dagaz/internal/registry"
	"github.com/starford/dagaz/internal/storage"
)

// Sync walks the source-document tree and brings the registry up to date:
//   - new/changed documents are re-migrated
//   - agents whose source document is gone are deleted, artifacts included
func Sync(ctx context.Context, eng *Engine, src storage.Provider, reg registry.AgentRegistry, logger *slog.Logger) error {
	metas, err := src.List("")
	if err != nil {
		return err
	}

	checksums, err := reg.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := src.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := eng.Migrate(ctx, m.Path, data); err != nil {
			logger.Warn("sync: migrate failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: migrated", slog.String("path", m.Path))
		}
	}

	// Remove agents whose source disappeared.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		id, err := reg.DeleteBySourcePath(p)
		if err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if id != "" {
			_ = eng.out.RemoveDir(id)
			logger.Debug("sync: removed stale", slog.String("path", p), slog.String("agent", id))
		}
	}

	return nil
}
