package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"grants_fetcher/internal/domain"
)

// SourceStore reads provider configuration rows and rolls run totals into
// their cumulative counters.
type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

func (s *SourceStore) ListActive(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := s.db.SelectContext(ctx, &sources, `
		SELECT id, name, display_name, active, last_synced_at, total_fetched, total_loaded
		FROM sources
		WHERE active
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// FinishRun stamps the provider's last sync time and adds the run's totals
// to its cumulative counters.
func (s *SourceStore) FinishRun(ctx context.Context, name string, fetched, loaded int64, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sources SET
			last_synced_at = $2,
			total_fetched = total_fetched + $3,
			total_loaded = total_loaded + $4
		WHERE name = $1`,
		name, syncedAt, fetched, loaded,
	)
	if err != nil {
		return fmt.Errorf("finish run for %s: %w", name, err)
	}
	return nil
}
