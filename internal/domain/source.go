package domain

import "time"

// Source is a provider configuration row. Rows are seeded by migration and
// mutated only by the orchestrator after each run.
type Source struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"` // provider key, matches Client.Source()
	DisplayName  string     `db:"display_name"`
	Active       bool       `db:"active"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	TotalFetched int64      `db:"total_fetched"`
	TotalLoaded  int64      `db:"total_loaded"`
}

// Checkpoint keys persisted per provider between runs.
const (
	CheckpointLastOffset = "last_offset"
	CheckpointLastPage   = "last_page"
)

// SourceResult holds the counters for one provider's run. Loaded counts
// newly created grants, Updated counts conflict-updated ones; Errors counts
// dropped records, failed pages and failed dependent writes.
type SourceResult struct {
	Source   string
	Total    int
	Loaded   int
	Updated  int
	Errors   int
	Duration time.Duration
	Failed   bool
}
