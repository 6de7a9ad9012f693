// Package refresh re-fetches stale product records from the upstream
// marketplace across a bounded worker pool.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/upstream"
)

const (
	// defaultBatchLimit caps how many stale rows one run picks up.
	defaultBatchLimit = 500

	// progressStep is the completion fraction between progress logs.
	progressStep = 0.1
)

// ProductStore is the store surface the refresher needs.
type ProductStore interface {
	ListStale(ctx context.Context, source string, threshold time.Duration, limit int) ([]*domain.Product, error)
	Upsert(ctx context.Context, patch *domain.ProductPatch) (*domain.Product, bool, error)
	UpdateSentiment(ctx context.Context, productID int64, score *float64, label *string) error
	SetActive(ctx context.Context, productID int64, active bool) error
}

// Marketplace is the upstream surface the refresher needs.
type Marketplace interface {
	FetchDetail(ctx context.Context, externalID int64) (*upstream.ProductDetail, error)
	FetchReviews(ctx context.Context, externalID int64) ([]string, *domain.ReviewSummary, error)
}

// Rescorer recomputes sentiment given upstream texts already in hand.
type Rescorer interface {
	RecomputeWithTexts(ctx context.Context, p *domain.Product, upstreamTexts []string) (*float64, *string, error)
}

// Refresher re-fetches stale records and reconciles their lifecycle
// state against the upstream marketplace.
type Refresher struct {
	source    string
	workers   int
	threshold time.Duration
	store     ProductStore
	market    Marketplace
	rescorer  Rescorer
	log       logger.Interface
}

// NewRefresher creates a batch refresher.
func NewRefresher(
	source string,
	workers int,
	threshold time.Duration,
	store ProductStore,
	market Marketplace,
	rescorer Rescorer,
	log logger.Interface,
) *Refresher {
	if workers <= 0 {
		workers = 1
	}
	return &Refresher{
		source:    source,
		workers:   workers,
		threshold: threshold,
		store:     store,
		market:    market,
		rescorer:  rescorer,
		log:       log,
	}
}

// RunOnce refreshes every record staler than the threshold and returns
// per-outcome counters. Items are processed independently; one item's
// failure never aborts the run.
func (r *Refresher) RunOnce(ctx context.Context) (*domain.BatchStats, error) {
	runID := uuid.New().String()
	stats := domain.NewBatchStats(runID)
	log := r.log.With("run_id", runID)

	items, err := r.store.ListStale(ctx, r.source, r.threshold, defaultBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("list stale products: %w", err)
	}
	if len(items) == 0 {
		log.Info("no stale products to refresh")
		return stats, nil
	}
	log.Info("refresh run starting",
		"stale_count", len(items),
		"workers", r.workers,
		"threshold", r.threshold.String(),
	)

	var (
		mu        sync.Mutex
		processed int
		nextMark  = progressStep
	)
	work := make(chan *domain.Product)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				res := r.refreshOne(ctx, item)
				mu.Lock()
				stats.Record(res)
				processed++
				done := float64(processed) / float64(len(items))
				if done >= nextMark {
					for done >= nextMark {
						nextMark += progressStep
					}
					log.Info("refresh progress",
						"processed", processed,
						"total", len(items),
					)
				}
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return stats, ctx.Err()
		case work <- item:
		}
	}
	close(work)
	wg.Wait()

	log.Info("refresh run finished",
		"total", stats.Total,
		"outcomes", stats.Outcomes,
	)
	return stats, nil
}

// refreshOne reconciles one stale record. A definitive upstream 404 or
// an unavailable inventory state deactivates the record; a transient
// fetch failure leaves it untouched.
func (r *Refresher) refreshOne(ctx context.Context, item *domain.Product) domain.ItemResult {
	if item.ExternalID == nil {
		return domain.ItemResult{Outcome: domain.OutcomeSkipped, Detail: "no external id"}
	}
	externalID := *item.ExternalID
	result := domain.ItemResult{ExternalID: externalID}

	detail, err := r.market.FetchDetail(ctx, externalID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return r.deactivate(ctx, item, "removed upstream")
		}
		r.log.Warn("stale item fetch failed, leaving untouched",
			"product_id", item.ID,
			"external_id", externalID,
			"error", err.Error(),
		)
		result.Outcome = domain.OutcomeSkipped
		result.Detail = "transient fetch failure"
		return result
	}

	if !detail.Available() {
		return r.deactivate(ctx, item, "inventory unavailable")
	}

	texts, summary, err := r.market.FetchReviews(ctx, externalID)
	reviewsFetched := err == nil
	if err != nil {
		r.log.Warn("review fetch failed during refresh",
			"product_id", item.ID,
			"external_id", externalID,
			"error", err.Error(),
		)
		texts, summary = nil, nil
	}

	active := true
	patch := &domain.ProductPatch{
		Source:       r.source,
		ExternalID:   externalID,
		Brand:        detail.Brand,
		ImageURL:     detail.ImageURL,
		ProductURL:   detail.ProductURL,
		Price:        detail.Price,
		BrandCountry: detail.BrandCountry,
		Origin:       detail.Origin,
		Description:  detail.Description,
		Active:       &active,
	}
	name := detail.Name
	patch.Name = &name
	if summary != nil {
		patch.AvgRating = summary.AvgRating
		patch.ReviewCount = summary.ReviewCount
		patch.PositivePercent = summary.PositivePercent
	}

	updated, _, err := r.store.Upsert(ctx, patch)
	if err != nil {
		result.Outcome = domain.OutcomeError
		result.Detail = err.Error()
		return result
	}

	score, label, err := r.rescorer.RecomputeWithTexts(ctx, updated, texts)
	switch {
	case err != nil:
		r.log.Warn("sentiment recompute failed",
			"product_id", updated.ID,
			"error", err.Error(),
		)
	case score == nil && !reviewsFetched:
		// Upstream text may still exist; a transient review fetch
		// failure is not evidence of no signal, so the stored
		// sentiment stays.
		r.log.Debug("keeping stored sentiment after failed review fetch",
			"product_id", updated.ID,
		)
	default:
		if err := r.store.UpdateSentiment(ctx, updated.ID, score, label); err != nil {
			r.log.Warn("sentiment update failed",
				"product_id", updated.ID,
				"error", err.Error(),
			)
		}
	}

	result.Outcome = domain.OutcomeUpdated
	return result
}

func (r *Refresher) deactivate(ctx context.Context, item *domain.Product, reason string) domain.ItemResult {
	result := domain.ItemResult{ExternalID: *item.ExternalID, Detail: reason}
	if err := r.store.SetActive(ctx, item.ID, false); err != nil {
		result.Outcome = domain.OutcomeError
		result.Detail = err.Error()
		return result
	}
	r.log.Info("product deactivated",
		"product_id", item.ID,
		"external_id", *item.ExternalID,
		"reason", reason,
	)
	result.Outcome = domain.OutcomeDeactivated
	return result
}
