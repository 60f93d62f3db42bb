package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CheckpointStore persists per-provider resume state as key/value pairs.
type CheckpointStore struct {
	db *sqlx.DB
}

func NewCheckpointStore(db *sqlx.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Get returns the stored value, or the empty string when the provider has
// no state for the key yet.
func (s *CheckpointStore) Get(ctx context.Context, sourceID, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM ingest_state WHERE source_id = $1 AND key = $2",
		sourceID, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get checkpoint %s/%s: %w", sourceID, key, err)
	}
	return value, nil
}

func (s *CheckpointStore) Save(ctx context.Context, sourceID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_state (source_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (source_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()`,
		sourceID, key, value,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", sourceID, key, err)
	}
	return nil
}
