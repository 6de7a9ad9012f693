package ranking

import (
	"github.com/lekhuynh/vietchoice/internal/domain"
)

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Risk component weights and thresholds.
const (
	priceWeight = 0.45
	negWeight   = 0.35
	trustWeight = 0.20

	// Price ratios against the category average price.
	priceSevereRatio = 0.6
	priceLowRatio    = 0.8

	// Negative-review share above which a reason is emitted.
	negRatioWarn = 0.35

	// Minimum review count before positive percent is trusted as
	// evidence; below it a flat deficit applies.
	trustMinReviews     = 5
	defaultTrustDeficit = 0.5

	riskLowCeiling    = 0.3
	riskMediumCeiling = 0.6
)

// MaxRecommendableRisk is the exclusive risk ceiling for products
// eligible as recommendations.
const MaxRecommendableRisk = riskMediumCeiling

// RiskAssessment is the scored risk verdict for one product.
type RiskAssessment struct {
	Score   float64  `json:"risk_score"`
	Level   string   `json:"risk_level"`
	Reasons []string `json:"reasons"`
}

// AssessRisk scores a product's risk from price deviation, negative
// review share, and review-volume trust. categoryAvgPrice may be nil
// when the product's category has no priced peers; the price signal is
// then 0.
func AssessRisk(p *domain.Product, categoryAvgPrice *float64) RiskAssessment {
	reasons := make([]string, 0, 3)

	priceSignal := 0.0
	if categoryAvgPrice != nil && *categoryAvgPrice > 0 && p.Price != nil {
		ratio := *p.Price / *categoryAvgPrice
		switch {
		case ratio < priceSevereRatio:
			priceSignal = 1.0
			reasons = append(reasons, "price is far below the category average")
		case ratio < priceLowRatio:
			priceSignal = 0.5
			reasons = append(reasons, "price is below the category average")
		}
	}

	negRatio := 0.0
	if p.PositivePercent != nil {
		negRatio = 1 - *p.PositivePercent/100
		if negRatio > negRatioWarn {
			reasons = append(reasons, "high share of negative reviews")
		}
	}

	trustDeficit := defaultTrustDeficit
	if p.ReviewCount != nil && *p.ReviewCount >= trustMinReviews {
		trust := 0.0
		if p.PositivePercent != nil {
			trust = *p.PositivePercent / 100
		}
		trustDeficit = 1 - trust
	} else {
		reasons = append(reasons, "not enough reviews to establish trust")
	}

	score := priceWeight*priceSignal + negWeight*negRatio + trustWeight*trustDeficit
	return RiskAssessment{
		Score:   score,
		Level:   riskLevel(score),
		Reasons: reasons,
	}
}

func riskLevel(score float64) string {
	switch {
	case score < riskLowCeiling:
		return RiskLow
	case score < riskMediumCeiling:
		return RiskMedium
	default:
		return RiskHigh
	}
}
