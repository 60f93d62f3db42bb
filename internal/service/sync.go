package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"grants_fetcher/internal/config"
	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
	"grants_fetcher/internal/ratelimit"
)

// maxConsecutivePageFailures bounds the skip policy: a provider that fails
// this many pages in a row is down, not flaky, and the run aborts instead of
// skipping to the end of its dataset.
const maxConsecutivePageFailures = 5

// Orchestrator drives the fetch → normalize → upsert loop for one provider.
// Record- and page-level failures are counted and recovered locally; only
// errors the failure policy cannot absorb escape to the run coordinator.
type Orchestrator struct {
	client      provider.Client
	pageSize    int
	grants      GrantStore
	dependents  DependentStore
	checkpoints CheckpointStore
	sources     SourceStore
	txManager   TransactionManager
	publisher   Publisher // optional
	limiter     ratelimit.Limiter
	logger      *slog.Logger
	cfg         config.SyncConfig
}

func NewOrchestrator(
	client provider.Client,
	pageSize int,
	grants GrantStore,
	dependents DependentStore,
	checkpoints CheckpointStore,
	sources SourceStore,
	txManager TransactionManager,
	publisher Publisher,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *Orchestrator {
	return &Orchestrator{
		client:      client,
		pageSize:    pageSize,
		grants:      grants,
		dependents:  dependents,
		checkpoints: checkpoints,
		sources:     sources,
		txManager:   txManager,
		publisher:   publisher,
		limiter:     limiter,
		logger:      logger.With("source", client.Source()),
		cfg:         cfg,
	}
}

func (o *Orchestrator) Source() string { return o.client.Source() }

// Sync runs the provider to exhaustion and returns its counters. Counters
// are flushed into the provider row even when the run fails partway.
func (o *Orchestrator) Sync(ctx context.Context) (*domain.SourceResult, error) {
	startTime := time.Now()
	result := &domain.SourceResult{Source: o.client.Source()}

	o.logger.Info("starting sync",
		"source_name", o.client.Name(),
		"page_size", o.pageSize,
		"full_sync", o.cfg.FullSync,
	)

	offset, page, err := o.resumePoint(ctx)
	if err != nil {
		result.Failed = true
		result.Duration = time.Since(startTime)
		o.flushTotals(ctx, result)
		return result, err
	}

	var fatal error
	consecutiveFailures := 0
	for {
		params := provider.PageParams{Offset: offset, Page: page, PageSize: o.pageSize}

		fetched, short, pageErr := o.processPage(ctx, params, result)
		result.Total += fetched

		if pageErr != nil {
			result.Errors++
			o.logger.Error("page failed",
				"offset", offset,
				"page", page,
				"error", pageErr,
			)
			if o.cfg.PageErrorPolicy == config.PageErrorHalt {
				fatal = pageErr
				break
			}
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutivePageFailures {
				fatal = fmt.Errorf("%d consecutive page failures, last: %w", consecutiveFailures, pageErr)
				break
			}
			// Skip policy: advance past the failed page anyway so the run
			// completes, at the cost of whatever that page held.
			short = false
		} else {
			consecutiveFailures = 0
		}

		offset += o.pageSize
		page++

		if err := o.saveCheckpoint(ctx, offset, page); err != nil {
			fatal = err
			break
		}

		if short {
			break
		}
		if ctx.Err() != nil {
			fatal = ctx.Err()
			break
		}
	}

	if fatal == nil {
		// The checkpoint's job is crash resumption inside a run, not
		// skipping data between runs. A completed pass rewinds to zero so
		// the next run re-reads the provider (bounded by the lookback
		// window in incremental mode) and reports unchanged records as
		// updated instead of never fetching them again.
		if err := o.saveCheckpoint(ctx, 0, 0); err != nil {
			fatal = err
		}
	}

	result.Duration = time.Since(startTime)
	o.flushTotals(ctx, result)

	if fatal != nil {
		result.Failed = true
		return result, fatal
	}

	o.logger.Info("sync completed",
		"total", result.Total,
		"loaded", result.Loaded,
		"updated", result.Updated,
		"errors", result.Errors,
		"duration", result.Duration,
	)
	return result, nil
}

// resumePoint reads the checkpoint, or resets it for a full sync. A nonzero
// checkpoint only survives a run that ended fatally, so resuming from it
// never skips data a completed run left behind.
func (o *Orchestrator) resumePoint(ctx context.Context) (offset, page int, err error) {
	src := o.client.Source()

	if o.cfg.FullSync {
		if err := o.saveCheckpoint(ctx, 0, 0); err != nil {
			return 0, 0, err
		}
		return 0, 0, nil
	}

	rawOffset, err := o.checkpoints.Get(ctx, src, domain.CheckpointLastOffset)
	if err != nil {
		return 0, 0, err
	}
	rawPage, err := o.checkpoints.Get(ctx, src, domain.CheckpointLastPage)
	if err != nil {
		return 0, 0, err
	}

	offset, _ = strconv.Atoi(rawOffset)
	page, _ = strconv.Atoi(rawPage)
	return offset, page, nil
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, offset, page int) error {
	src := o.client.Source()
	if err := o.checkpoints.Save(ctx, src, domain.CheckpointLastOffset, strconv.Itoa(offset)); err != nil {
		return err
	}
	return o.checkpoints.Save(ctx, src, domain.CheckpointLastPage, strconv.Itoa(page))
}

// processPage fetches and loads one page. The returned count is how many raw
// records the provider handed back; short reports whether the page signals
// exhaustion. Record-level failures are folded into result, not returned.
func (o *Orchestrator) processPage(ctx context.Context, params provider.PageParams, result *domain.SourceResult) (int, bool, error) {
	if !o.limiter.Allow() {
		return 0, false, &domain.RateLimitError{
			Source:     o.client.Source(),
			RetryAfter: o.limiter.Reserve(),
		}
	}

	raws, err := o.client.FetchPage(ctx, params)
	if err != nil {
		return 0, false, err
	}
	short := len(raws) < params.PageSize

	batch := make([]*domain.NormalizedGrant, 0, len(raws))
	for _, raw := range raws {
		ng, err := o.client.Transform(raw)
		if err != nil {
			result.Errors++
			o.logger.Debug("dropped record", "error", err)
			continue
		}
		batch = append(batch, ng)
	}

	o.loadBatch(ctx, batch, result)

	return len(raws), short, nil
}

// loadBatch bulk-upserts the canonical records, then fans dependent writes
// out on a bounded worker pool. Fan-out is best-effort per record: a failure
// is counted and logged but never rolls back the canonical upsert.
func (o *Orchestrator) loadBatch(ctx context.Context, batch []*domain.NormalizedGrant, result *domain.SourceResult) {
	batch = o.dedupe(batch, result)
	if len(batch) == 0 {
		return
	}

	grants := make([]*domain.Grant, len(batch))
	byExternalID := make(map[string]*domain.NormalizedGrant, len(batch))
	for i, ng := range batch {
		grants[i] = &ng.Grant
		byExternalID[ng.Grant.ExternalID] = ng
	}

	outcomes, err := o.grants.UpsertBatch(ctx, grants)
	if err != nil {
		// No partial credit: the whole batch failed.
		result.Errors += len(batch)
		o.logger.Error("batch upsert failed", "error",
			&domain.BatchUpsertError{Source: o.client.Source(), Size: len(batch), Err: err})
		return
	}

	var fanoutErrors atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.fanoutWorkers())

	for _, outcome := range outcomes {
		ng, ok := byExternalID[outcome.ExternalID]
		if !ok {
			continue
		}
		if outcome.Created {
			result.Loaded++
		} else {
			result.Updated++
		}

		grantID := outcome.GrantID
		created := outcome.Created
		g.Go(func() error {
			if err := o.saveDependents(ctx, grantID, ng); err != nil {
				fanoutErrors.Add(1)
				o.logger.Warn("dependent write failed",
					"grant_id", grantID,
					"external_id", ng.Grant.ExternalID,
					"error", err,
				)
			}
			if o.publisher != nil {
				if err := o.publisher.Publish(ctx, &ng.Grant, created); err != nil {
					fanoutErrors.Add(1)
					o.logger.Warn("publish failed", "grant_id", grantID, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Errors += int(fanoutErrors.Load())
}

// saveDependents replaces the 1:N sub-records and merges details, all inside
// one transaction per grant.
func (o *Orchestrator) saveDependents(ctx context.Context, grantID int64, ng *domain.NormalizedGrant) error {
	return o.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := o.dependents.UpsertDetails(txCtx, grantID, ng.Details); err != nil {
			return err
		}
		if err := o.dependents.ReplaceCategories(txCtx, grantID, ng.Categories); err != nil {
			return err
		}
		if err := o.dependents.ReplaceKeywords(txCtx, grantID, ng.Keywords); err != nil {
			return err
		}
		if err := o.dependents.ReplaceContacts(txCtx, grantID, ng.Contacts); err != nil {
			return err
		}
		if err := o.dependents.ReplaceEligibility(txCtx, grantID, ng.Eligibility); err != nil {
			return err
		}
		return o.dependents.ReplaceLocations(txCtx, grantID, ng.Locations)
	})
}

// dedupe keeps the last occurrence of each external id; a single multi-row
// upsert cannot touch the same key twice. Dropped duplicates count as errors.
func (o *Orchestrator) dedupe(batch []*domain.NormalizedGrant, result *domain.SourceResult) []*domain.NormalizedGrant {
	seen := make(map[string]int, len(batch))
	out := batch[:0]
	for _, ng := range batch {
		if i, ok := seen[ng.Grant.ExternalID]; ok {
			out[i] = ng
			result.Errors++
			o.logger.Debug("duplicate external id within page", "external_id", ng.Grant.ExternalID)
			continue
		}
		seen[ng.Grant.ExternalID] = len(out)
		out = append(out, ng)
	}
	return out
}

// flushTotals rolls the run's counters into the provider row; runs even
// after a fatal error so partial progress stays visible.
func (o *Orchestrator) flushTotals(ctx context.Context, result *domain.SourceResult) {
	loaded := int64(result.Loaded + result.Updated)
	if err := o.sources.FinishRun(ctx, o.client.Source(), int64(result.Total), loaded, time.Now()); err != nil {
		o.logger.Error("failed to update source counters", "error", err)
	}
}

func (o *Orchestrator) fanoutWorkers() int {
	if o.cfg.FanoutWorkers > 0 {
		return o.cfg.FanoutWorkers
	}
	return 4
}
