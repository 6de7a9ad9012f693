package ranking

import (
	"context"
	"fmt"

	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/sentiment"
)

// Recommendation parameters.
const (
	// PriceBand is the allowed deviation from the reference price.
	PriceBand = 0.3

	// MinRecommendReviews is the fewest reviews a candidate may have.
	MinRecommendReviews = 3

	// DefaultRecommendLimit caps the recommendation list.
	DefaultRecommendLimit = 5

	// unboundedMaxPrice stands in for the band ceiling when the
	// reference product has no price.
	unboundedMaxPrice = 1e12
)

// ProductStore is the store surface the recommender needs.
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	CategoryAvgPrice(ctx context.Context, categoryID int64) (*float64, error)
	ListRecommendationCandidates(
		ctx context.Context,
		categoryID int64,
		excludeProductID int64,
		minPrice, maxPrice float64,
		minReviews int,
		poorLabel string,
	) ([]*domain.Product, error)
}

// Recommender suggests comparable same-category products, keeping only
// candidates below the risk ceiling.
type Recommender struct {
	store ProductStore
	log   logger.Interface
}

// NewRecommender creates a new recommender.
func NewRecommender(store ProductStore, log logger.Interface) *Recommender {
	return &Recommender{store: store, log: log}
}

// Recommend returns up to limit products from the reference product's
// category, priced within the band, with enough reviews, not labeled
// negative, and below the risk ceiling. Ordering favors products with
// a sentiment score, then score, rating, and review count. A reference
// product without a category yields an empty list.
func (r *Recommender) Recommend(ctx context.Context, productID int64, limit int) ([]domain.ProductProjection, error) {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	base, err := r.store.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load reference product: %w", err)
	}
	if base.CategoryID == nil {
		return []domain.ProductProjection{}, nil
	}

	minPrice, maxPrice := 0.0, float64(unboundedMaxPrice)
	if base.Price != nil {
		minPrice = *base.Price * (1 - PriceBand)
		maxPrice = *base.Price * (1 + PriceBand)
	}

	candidates, err := r.store.ListRecommendationCandidates(ctx,
		*base.CategoryID, base.ID, minPrice, maxPrice,
		MinRecommendReviews, sentiment.LabelNegative)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	avgPrice, err := r.store.CategoryAvgPrice(ctx, *base.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("category average price: %w", err)
	}

	picked := make([]domain.ProductProjection, 0, limit)
	for _, candidate := range candidates {
		risk := AssessRisk(candidate, avgPrice)
		if risk.Score >= MaxRecommendableRisk {
			r.log.Debug("candidate excluded by risk",
				"product_id", candidate.ID,
				"risk_score", risk.Score,
			)
			continue
		}
		projection := candidate.Projection()
		projection.QualityScore = Quality(candidate)
		picked = append(picked, projection)
		if len(picked) == limit {
			break
		}
	}
	return picked, nil
}
