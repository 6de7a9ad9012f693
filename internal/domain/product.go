// Package domain provides domain models used across the application.
package domain

import "time"

// Product represents one catalog item in the local store.
// ExternalID is the upstream marketplace identifier; it is nil for
// locally-authored items. (Source, ExternalID) is unique when present.
type Product struct {
	ID              int64      `db:"product_id"`
	Source          string     `db:"source"`
	ExternalID      *int64     `db:"external_id"`
	Name            string     `db:"name"`
	Brand           *string    `db:"brand"`
	CategoryID      *int64     `db:"category_id"`
	ImageURL        *string    `db:"image_url"`
	ProductURL      *string    `db:"product_url"`
	Price           *float64   `db:"price"`
	AvgRating       *float64   `db:"avg_rating"`
	ReviewCount     *int       `db:"review_count"`
	PositivePercent *float64   `db:"positive_percent"`
	SentimentScore  *float64   `db:"sentiment_score"`
	SentimentLabel  *string    `db:"sentiment_label"`
	BrandCountry    *string    `db:"brand_country"`
	Origin          *string    `db:"origin"`
	Description     *string    `db:"description"`
	Active          bool       `db:"active"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	LastRefreshedAt *time.Time `db:"last_refreshed_at"`
}

// ProductPatch carries freshly fetched fields for an upsert.
// Nil fields are left untouched on an existing record; a fetch that
// omits a field must never null it out.
type ProductPatch struct {
	Source          string
	ExternalID      int64
	Name            *string
	Brand           *string
	CategoryID      *int64
	ImageURL        *string
	ProductURL      *string
	Price           *float64
	AvgRating       *float64
	ReviewCount     *int
	PositivePercent *float64
	BrandCountry    *string
	Origin          *string
	Description     *string
	Active          *bool
}

// ProductProjection is the plain result shape returned to callers of
// search and crawl operations.
type ProductProjection struct {
	ProductID       int64    `json:"product_id"`
	Source          string   `json:"source"`
	ExternalID      *int64   `json:"external_id,omitempty"`
	Name            string   `json:"name"`
	Brand           *string  `json:"brand,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	ImageURL        *string  `json:"image_url,omitempty"`
	ProductURL      *string  `json:"product_url,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	AvgRating       *float64 `json:"avg_rating,omitempty"`
	ReviewCount     *int     `json:"review_count,omitempty"`
	PositivePercent *float64 `json:"positive_percent,omitempty"`
	SentimentScore  *float64 `json:"sentiment_score,omitempty"`
	SentimentLabel  *string  `json:"sentiment_label,omitempty"`
	Origin          *string  `json:"origin,omitempty"`
	BrandCountry    *string  `json:"brand_country,omitempty"`
	QualityScore    float64  `json:"quality_score"`
}

// Projection maps a stored product to its caller-facing shape.
// QualityScore is filled in by the ranking pass, not here.
func (p *Product) Projection() ProductProjection {
	return ProductProjection{
		ProductID:       p.ID,
		Source:          p.Source,
		ExternalID:      p.ExternalID,
		Name:            p.Name,
		Brand:           p.Brand,
		CategoryID:      p.CategoryID,
		ImageURL:        p.ImageURL,
		ProductURL:      p.ProductURL,
		Price:           p.Price,
		AvgRating:       p.AvgRating,
		ReviewCount:     p.ReviewCount,
		PositivePercent: p.PositivePercent,
		SentimentScore:  p.SentimentScore,
		SentimentLabel:  p.SentimentLabel,
		Origin:          p.Origin,
		BrandCountry:    p.BrandCountry,
	}
}
