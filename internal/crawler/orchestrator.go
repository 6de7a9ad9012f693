// Package crawler orchestrates keyword discovery, per-candidate
// fetching, persistence, and scoring into ranked search results.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/ranking"
	"github.com/lekhuynh/vietchoice/internal/upstream"
)

// Reasons attached to empty search results.
const (
	ReasonNoCandidates = "no candidates found upstream"
	ReasonAllFailed    = "no candidate could be fetched"
)

// ProductStore is the store surface the orchestrator needs.
type ProductStore interface {
	ListByExternalIDs(ctx context.Context, source string, externalIDs []int64) ([]*domain.Product, error)
	Upsert(ctx context.Context, patch *domain.ProductPatch) (*domain.Product, bool, error)
	UpdateSentiment(ctx context.Context, productID int64, score *float64, label *string) error
}

// Marketplace is the upstream surface the orchestrator needs.
type Marketplace interface {
	DiscoverCandidates(ctx context.Context, keyword string, limit int) ([]int64, error)
	FetchDetail(ctx context.Context, externalID int64) (*upstream.ProductDetail, error)
	FetchReviews(ctx context.Context, externalID int64) ([]string, *domain.ReviewSummary, error)
}

// CategoryResolver maps breadcrumb chains to categories.
type CategoryResolver interface {
	Resolve(ctx context.Context, source string, breadcrumbs []string) (*domain.Category, error)
}

// TextScorer scores already-fetched review text.
type TextScorer interface {
	ScoreTexts(ctx context.Context, texts []string) (*float64, *string)
}

// SearchResult is the aggregate outcome of one keyword search. Reason
// is set only when Products is empty, so callers can tell "nothing
// upstream" from a server failure.
type SearchResult struct {
	Keyword  string                     `json:"keyword"`
	Products []domain.ProductProjection `json:"products"`
	Reason   string                     `json:"reason,omitempty"`
}

// Orchestrator runs the crawl pipeline for one marketplace source.
type Orchestrator struct {
	source      string
	concurrency int
	store       ProductStore
	market      Marketplace
	taxonomy    CategoryResolver
	scorer      TextScorer
	log         logger.Interface
}

// NewOrchestrator creates a crawl orchestrator.
func NewOrchestrator(
	source string,
	concurrency int,
	store ProductStore,
	market Marketplace,
	taxonomy CategoryResolver,
	scorer TextScorer,
	log logger.Interface,
) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		source:      source,
		concurrency: concurrency,
		store:       store,
		market:      market,
		taxonomy:    taxonomy,
		scorer:      scorer,
		log:         log,
	}
}

// Search discovers candidates for a keyword, crawls the ones not yet
// stored, and returns the combined set ranked by quality score. Known
// external IDs are served from the local store without a network call,
// so repeated searches do not re-fetch or re-score.
func (o *Orchestrator) Search(ctx context.Context, keyword string, limit int) (*SearchResult, error) {
	candidateIDs, err := o.market.DiscoverCandidates(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("discover candidates for %q: %w", keyword, err)
	}
	if len(candidateIDs) == 0 {
		return &SearchResult{Keyword: keyword, Products: []domain.ProductProjection{}, Reason: ReasonNoCandidates}, nil
	}

	cached, newIDs, err := o.partition(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	o.log.Info("search candidates partitioned",
		"keyword", keyword,
		"cached", len(cached),
		"new", len(newIDs),
	)

	crawled := o.crawlAll(ctx, newIDs)

	combined := append(cached, crawled...)
	if len(combined) == 0 {
		return &SearchResult{Keyword: keyword, Products: []domain.ProductProjection{}, Reason: ReasonAllFailed}, nil
	}

	return &SearchResult{
		Keyword:  keyword,
		Products: ranking.RankProjections(combined),
	}, nil
}

// partition splits candidate IDs into already-stored products and IDs
// that still need a crawl.
func (o *Orchestrator) partition(ctx context.Context, candidateIDs []int64) ([]*domain.Product, []int64, error) {
	cached, err := o.store.ListByExternalIDs(ctx, o.source, candidateIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("partition candidates: %w", err)
	}

	known := make(map[int64]struct{}, len(cached))
	for _, p := range cached {
		if p.ExternalID != nil {
			known[*p.ExternalID] = struct{}{}
		}
	}

	newIDs := make([]int64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if _, ok := known[id]; !ok {
			newIDs = append(newIDs, id)
		}
	}
	return cached, newIDs, nil
}

// crawlAll runs the per-candidate pipeline over new IDs with a bounded
// fan-out. Each candidate fails independently; a failure is logged and
// dropped from the result set without touching its siblings.
func (o *Orchestrator) crawlAll(ctx context.Context, newIDs []int64) []*domain.Product {
	if len(newIDs) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results = make([]*domain.Product, 0, len(newIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, externalID := range newIDs {
		externalID := externalID
		g.Go(func() error {
			product, err := o.crawlOne(gctx, externalID)
			if err != nil {
				o.log.Warn("candidate crawl failed",
					"external_id", externalID,
					"error", err.Error(),
				)
				return nil
			}
			if product == nil {
				return nil
			}
			mu.Lock()
			results = append(results, product)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	return results
}

// crawlOne runs the full pipeline for a single candidate: detail fetch,
// review fetch, category resolution, upsert, then best-effort
// sentiment. Returns (nil, nil) when the item does not exist upstream.
func (o *Orchestrator) crawlOne(ctx context.Context, externalID int64) (*domain.Product, error) {
	detail, err := o.market.FetchDetail(ctx, externalID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	texts, summary, err := o.market.FetchReviews(ctx, externalID)
	reviewsFetched := err == nil
	if err != nil {
		// Detail alone is worth persisting; reviews can arrive on a
		// later refresh.
		o.log.Warn("review fetch failed, persisting detail only",
			"external_id", externalID,
			"error", err.Error(),
		)
		texts, summary = nil, nil
	}

	var categoryID *int64
	if len(detail.Breadcrumbs) > 0 {
		category, resolveErr := o.taxonomy.Resolve(ctx, o.source, detail.Breadcrumbs)
		if resolveErr != nil {
			o.log.Warn("category resolution failed",
				"external_id", externalID,
				"error", resolveErr.Error(),
			)
		} else {
			categoryID = &category.ID
		}
	}

	product, created, err := o.store.Upsert(ctx, buildPatch(o.source, detail, summary, categoryID))
	if err != nil {
		return nil, err
	}
	o.log.Info("candidate persisted",
		"external_id", externalID,
		"product_id", product.ID,
		"created", created,
	)

	// Sentiment is best-effort; its failure never rolls back the
	// persisted record. A nil score after a failed review fetch is
	// never written: the record may hold sentiment from an earlier
	// crawl, and missing text is not the same as no text.
	score, label := o.scorer.ScoreTexts(ctx, texts)
	if score != nil || reviewsFetched {
		if err := o.store.UpdateSentiment(ctx, product.ID, score, label); err != nil {
			o.log.Warn("sentiment update failed",
				"product_id", product.ID,
				"error", err.Error(),
			)
		} else {
			product.SentimentScore = score
			product.SentimentLabel = label
		}
	}

	return product, nil
}

func buildPatch(source string, detail *upstream.ProductDetail, summary *domain.ReviewSummary, categoryID *int64) *domain.ProductPatch {
	patch := &domain.ProductPatch{
		Source:       source,
		ExternalID:   detail.ExternalID,
		Brand:        detail.Brand,
		CategoryID:   categoryID,
		ImageURL:     detail.ImageURL,
		ProductURL:   detail.ProductURL,
		Price:        detail.Price,
		BrandCountry: detail.BrandCountry,
		Origin:       detail.Origin,
		Description:  detail.Description,
	}
	name := detail.Name
	patch.Name = &name
	if summary != nil {
		patch.AvgRating = summary.AvgRating
		patch.ReviewCount = summary.ReviewCount
		patch.PositivePercent = summary.PositivePercent
	}
	return patch
}
