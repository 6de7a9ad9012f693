// Package ranking computes composite quality scores, risk assessments,
// and recommendations over stored products.
package ranking

import (
	"math"
	"sort"

	"github.com/lekhuynh/vietchoice/internal/domain"
)

// QualityWeights parameterize the composite quality score. Each
// component contributes weight times its value; a missing component
// contributes 0 rather than being skipped, so partial data neither
// sinks a product nor flatters it.
type QualityWeights struct {
	Sentiment       float64
	Rating          float64
	Reviews         float64
	PositivePercent float64
	Popularity      float64
}

// DefaultQualityWeights is the standard ranking used for search
// results.
var DefaultQualityWeights = QualityWeights{
	Sentiment:       0.4,
	Rating:          0.3,
	Reviews:         0.2,
	PositivePercent: 0.1,
}

// FeaturedQualityWeights is the popularity-aware variant used when
// ranking featured products. The base terms shrink to make room for
// the search-appearance term.
var FeaturedQualityWeights = QualityWeights{
	Sentiment:       0.38,
	Rating:          0.28,
	Reviews:         0.19,
	PositivePercent: 0.10,
	Popularity:      0.05,
}

// Quality computes the composite quality score with the default
// weights.
func Quality(p *domain.Product) float64 {
	return QualityWith(p, 0, DefaultQualityWeights)
}

// QualityWith computes the composite quality score under explicit
// weights. appearances is the product's search-appearance count and
// only matters when the weights carry a popularity term.
func QualityWith(p *domain.Product, appearances int, w QualityWeights) float64 {
	score := 0.0
	if p.SentimentScore != nil {
		score += w.Sentiment * *p.SentimentScore
	}
	if p.AvgRating != nil {
		score += w.Rating * *p.AvgRating
	}
	if p.ReviewCount != nil {
		score += w.Reviews * math.Log(float64(*p.ReviewCount)+1)
	}
	if p.PositivePercent != nil {
		score += w.PositivePercent * *p.PositivePercent
	}
	if w.Popularity > 0 && appearances > 0 {
		score += w.Popularity * math.Log(float64(appearances)+1)
	}
	return score
}

// RankProjections sorts projections by quality score descending,
// filling each projection's QualityScore as it goes. Ties keep their
// arrival order.
func RankProjections(products []*domain.Product) []domain.ProductProjection {
	projections := make([]domain.ProductProjection, len(products))
	for i, p := range products {
		projections[i] = p.Projection()
		projections[i].QualityScore = Quality(p)
	}
	sort.SliceStable(projections, func(i, j int) bool {
		return projections[i].QualityScore > projections[j].QualityScore
	})
	return projections
}
