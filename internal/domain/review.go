package domain

import "time"

// LocalReview is a locally-authored product review. Only the comment
// text and star rating participate in sentiment scoring.
type LocalReview struct {
	ID        int64     `db:"review_id"`
	ProductID int64     `db:"product_id"`
	UserID    *int64    `db:"user_id"`
	Rating    *int      `db:"rating"`
	Comment   *string   `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

// ReviewSummary aggregates upstream review statistics for a product.
// PositivePercent is the 4-star-plus share of the star histogram and is
// nil when the upstream payload carries no histogram.
type ReviewSummary struct {
	AvgRating       *float64
	ReviewCount     *int
	PositivePercent *float64
}
