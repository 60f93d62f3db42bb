package service

import (
	"context"
	"fmt"
	"log/slog"

	"grants_fetcher/internal/domain"
)

// RunCoordinator iterates the active providers sequentially and collects
// their results. One provider's fatal error never touches its siblings.
type RunCoordinator struct {
	sources SourceStore
	syncers map[string]Syncer
	logger  *slog.Logger
}

func NewRunCoordinator(sources SourceStore, syncers []Syncer, logger *slog.Logger) *RunCoordinator {
	byName := make(map[string]Syncer, len(syncers))
	for _, s := range syncers {
		byName[s.Source()] = s
	}
	return &RunCoordinator{
		sources: sources,
		syncers: byName,
		logger:  logger,
	}
}

// Run syncs every active provider that has a configured client. The only
// error it returns is failure to load the provider list; per-provider
// failures are reported through the Failed flag on their results.
func (c *RunCoordinator) Run(ctx context.Context) ([]domain.SourceResult, error) {
	sources, err := c.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	c.logger.Info("starting run", "active_sources", len(sources))

	results := make([]domain.SourceResult, 0, len(sources))
	for _, src := range sources {
		syncer, ok := c.syncers[src.Name]
		if !ok {
			c.logger.Warn("no client configured for active source, skipping", "source", src.Name)
			continue
		}

		result, err := syncer.Sync(ctx)
		if err != nil {
			if result == nil {
				result = &domain.SourceResult{Source: src.Name, Failed: true}
			}
			result.Failed = true
			c.logger.Error("provider run failed",
				"source", src.Name,
				"total", result.Total,
				"errors", result.Errors,
				"error", err,
			)
		}
		results = append(results, *result)
	}

	c.logger.Info("run completed", "providers", len(results))
	return results, nil
}
