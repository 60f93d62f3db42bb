package provider

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"time"

	"grants_fetcher/internal/domain"
)

// RawRecord is one provider record exactly as the upstream API returned it.
// Clients decode it inside Transform; the orchestrator stores it verbatim as
// the grant's raw payload snapshot.
type RawRecord = json.RawMessage

// PageParams describe one page request in provider-neutral terms. Each
// client translates them into its own pagination idiom: Offset for
// record-offset APIs, Page for page-number APIs.
type PageParams struct {
	Offset   int
	Page     int
	PageSize int

	// Optional bounds, injected by decorators.
	UpdatedSince *time.Time
	PostedSince  *time.Time
	Statuses     []domain.GrantStatus
}

// Client is the capability set every provider implements. Network I/O
// happens only inside FetchPage; Transform is pure mapping. An empty page or
// one shorter than PageSize signals exhaustion.
type Client interface {
	// Source returns the provider key grants are stored under.
	Source() string
	// Name returns the human-readable provider name.
	Name() string
	// FetchPage retrieves one page of raw records.
	FetchPage(ctx context.Context, params PageParams) ([]RawRecord, error)
	// Transform maps a raw record into a canonical grant with its dependent
	// sub-records. It returns a *domain.NormalizationError when the record
	// cannot yield at least a title and a provider-native id.
	Transform(raw RawRecord) (*domain.NormalizedGrant, error)
}
