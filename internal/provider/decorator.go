package provider

import (
	"context"
	"time"

	"grants_fetcher/internal/domain"
)

// SinceFilter wraps a Client and bounds every page request to records
// modified or posted within a fixed lookback window. All other capabilities
// delegate to the wrapped client, so decorators stack.
type SinceFilter struct {
	Client
	Lookback time.Duration

	now func() time.Time // test seam
}

func NewSinceFilter(client Client, lookback time.Duration) *SinceFilter {
	return &SinceFilter{Client: client, Lookback: lookback, now: time.Now}
}

func (f *SinceFilter) FetchPage(ctx context.Context, params PageParams) ([]RawRecord, error) {
	since := f.now().Add(-f.Lookback).UTC()
	params.UpdatedSince = &since
	params.PostedSince = &since
	return f.Client.FetchPage(ctx, params)
}

// StatusFilter wraps a Client and restricts page requests to the given
// canonical statuses.
type StatusFilter struct {
	Client
	Statuses []domain.GrantStatus
}

func NewStatusFilter(client Client, statuses ...domain.GrantStatus) *StatusFilter {
	return &StatusFilter{Client: client, Statuses: statuses}
}

func (f *StatusFilter) FetchPage(ctx context.Context, params PageParams) ([]RawRecord, error) {
	params.Statuses = f.Statuses
	return f.Client.FetchPage(ctx, params)
}
