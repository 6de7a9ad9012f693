package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/lekhuynh/vietchoice/internal/domain"
	"github.com/lekhuynh/vietchoice/internal/logger"
)

// ReviewStore reads locally-authored reviews.
type ReviewStore interface {
	ListByProduct(ctx context.Context, productID int64) ([]domain.LocalReview, error)
}

// ReviewFetcher pulls marketplace review text for an external ID.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, externalID int64) ([]string, *domain.ReviewSummary, error)
}

// Service recomputes a product's sentiment from every text source it
// has access to. Source rule: a product without an external ID uses
// local reviews only; a product with one uses marketplace reviews,
// combined with local reviews when any exist.
type Service struct {
	scorer  *Scorer
	reviews ReviewStore
	fetcher ReviewFetcher
	log     logger.Interface
}

// NewService creates a sentiment recomputation service.
func NewService(scorer *Scorer, reviews ReviewStore, fetcher ReviewFetcher, log logger.Interface) *Service {
	return &Service{scorer: scorer, reviews: reviews, fetcher: fetcher, log: log}
}

// Recompute returns the product's new sentiment score and label. Both
// are nil when the product has no reviews at all; nil means "no
// signal", not neutral. When there is no text but ratings exist, the
// score falls back to the mean of rating-derived scores.
func (s *Service) Recompute(ctx context.Context, p *domain.Product) (*float64, *string, error) {
	var upstreamTexts []string
	if p.ExternalID != nil {
		texts, _, fetchErr := s.fetcher.FetchReviews(ctx, *p.ExternalID)
		if fetchErr != nil {
			// Text fetch failure degrades to local-only scoring; the
			// refresh path decides separately what a fetch error means
			// for the record itself.
			s.log.Warn("upstream review fetch failed during rescore",
				"product_id", p.ID,
				"external_id", *p.ExternalID,
				"error", fetchErr.Error(),
			)
		}
		upstreamTexts = texts
	}
	return s.RecomputeWithTexts(ctx, p, upstreamTexts)
}

// RecomputeWithTexts is Recompute with the upstream review texts
// already in hand, for callers that just fetched them. A product
// without an external ID ignores upstreamTexts entirely.
func (s *Service) RecomputeWithTexts(ctx context.Context, p *domain.Product, upstreamTexts []string) (*float64, *string, error) {
	local, err := s.reviews.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list local reviews: %w", err)
	}

	texts := localTexts(local)
	if p.ExternalID != nil {
		texts = append(texts, upstreamTexts...)
	}

	if len(texts) > 0 {
		score := s.scorer.Score(ctx, texts)
		if score == nil {
			return nil, nil, nil
		}
		label := Label(*score)
		return score, &label, nil
	}

	if len(local) == 0 {
		return nil, nil, nil
	}

	// No text anywhere, but ratings exist.
	sum := 0.0
	for _, r := range local {
		rating := 0
		if r.Rating != nil {
			rating = *r.Rating
		}
		sum += RatingScore(rating)
	}
	avg := sum / float64(len(local))
	label := Label(avg)
	return &avg, &label, nil
}

// ScoreTexts scores an already-fetched batch of review texts. The crawl
// path uses this to avoid re-fetching reviews it just pulled.
func (s *Service) ScoreTexts(ctx context.Context, texts []string) (*float64, *string) {
	score := s.scorer.Score(ctx, texts)
	if score == nil {
		return nil, nil
	}
	label := Label(*score)
	return score, &label
}

func localTexts(reviews []domain.LocalReview) []string {
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if r.Comment == nil {
			continue
		}
		if t := strings.TrimSpace(*r.Comment); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}
