package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"grants_fetcher/internal/domain"
)

type GrantStore interface {
	UpsertBatch(ctx context.Context, grants []*domain.Grant) ([]domain.UpsertOutcome, error)
}

type DependentStore interface {
	UpsertDetails(ctx context.Context, grantID int64, d *domain.Details) error
	ReplaceCategories(ctx context.Context, grantID int64, categories []domain.Category) error
	ReplaceKeywords(ctx context.Context, grantID int64, keywords []domain.Keyword) error
	ReplaceContacts(ctx context.Context, grantID int64, contacts []domain.Contact) error
	ReplaceEligibility(ctx context.Context, grantID int64, rules []domain.Eligibility) error
	ReplaceLocations(ctx context.Context, grantID int64, locations []domain.Location) error
}

type CheckpointStore interface {
	Get(ctx context.Context, sourceID, key string) (string, error)
	Save(ctx context.Context, sourceID, key, value string) error
}

type SourceStore interface {
	ListActive(ctx context.Context) ([]domain.Source, error)
	FinishRun(ctx context.Context, name string, fetched, loaded int64, syncedAt time.Time) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, grant *domain.Grant, isNew bool) error
	Close() error
}

// Syncer is one provider's sync run, as the run coordinator sees it.
type Syncer interface {
	Source() string
	Sync(ctx context.Context) (*domain.SourceResult, error)
}
