package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lekhuynh/vietchoice/internal/domain"
)

// ReviewRepository reads locally-authored reviews. The pipeline only
// consumes these for sentiment scoring; authoring is handled elsewhere.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ListByProduct retrieves local reviews for a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.LocalReview, error) {
	var reviews []domain.LocalReview
	query := `
		SELECT review_id, product_id, user_id, rating, comment, created_at
		FROM user_reviews
		WHERE product_id = $1
		ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &reviews, query, productID); err != nil {
		return nil, fmt.Errorf("list reviews by product: %w", err)
	}
	return reviews, nil
}
