package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lekhuynh/vietchoice/internal/domain"
)

// productColumns lists the columns selected into domain.Product.
const productColumns = `
	product_id, source, external_id, name, brand, category_id, image_url,
	product_url, price, avg_rating, review_count, positive_percent,
	sentiment_score, sentiment_label, brand_country, origin, description,
	active, created_at, updated_at, last_refreshed_at`

// ProductRepository handles database operations for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its internal ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return &p, nil
}

// GetByExternalID retrieves a product by (source, external_id).
func (r *ProductRepository) GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE source = $1 AND external_id = $2`
	if err := r.db.GetContext(ctx, &p, query, source, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product by external id: %w", err)
	}
	return &p, nil
}

// ListByExternalIDs retrieves the products among the given external IDs
// that already exist locally. Used for the pre-fetch dedup partition.
func (r *ProductRepository) ListByExternalIDs(ctx context.Context, source string, externalIDs []int64) ([]*domain.Product, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var products []*domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE source = $1 AND external_id = ANY($2)`
	if err := r.db.SelectContext(ctx, &products, query, source, pq.Array(externalIDs)); err != nil {
		return nil, fmt.Errorf("list products by external ids: %w", err)
	}
	return products, nil
}

// Upsert creates or patches a product keyed by (source, external_id).
// Only non-nil patch fields overwrite existing values; a fetch that
// omitted a field never nulls it out. Returns the stored row and
// whether it was newly created.
func (r *ProductRepository) Upsert(ctx context.Context, patch *domain.ProductPatch) (*domain.Product, bool, error) {
	query := `
		INSERT INTO products (source, external_id, name, brand, category_id,
			image_url, product_url, price, avg_rating, review_count,
			positive_percent, brand_country, origin, description, active,
			last_refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			COALESCE($15, TRUE), NOW())
		ON CONFLICT (source, external_id)
		DO UPDATE SET
			name              = COALESCE(EXCLUDED.name, products.name),
			brand             = COALESCE(EXCLUDED.brand, products.brand),
			category_id       = COALESCE(EXCLUDED.category_id, products.category_id),
			image_url         = COALESCE(EXCLUDED.image_url, products.image_url),
			product_url       = COALESCE(EXCLUDED.product_url, products.product_url),
			price             = COALESCE(EXCLUDED.price, products.price),
			avg_rating        = COALESCE(EXCLUDED.avg_rating, products.avg_rating),
			review_count      = COALESCE(EXCLUDED.review_count, products.review_count),
			positive_percent  = COALESCE(EXCLUDED.positive_percent, products.positive_percent),
			brand_country     = COALESCE(EXCLUDED.brand_country, products.brand_country),
			origin            = COALESCE(EXCLUDED.origin, products.origin),
			description       = COALESCE(EXCLUDED.description, products.description),
			active            = COALESCE($15, products.active),
			updated_at        = NOW(),
			last_refreshed_at = NOW()
		RETURNING ` + productColumns + `, (xmax = 0) AS was_insert`

	row := struct {
		domain.Product
		WasInsert bool `db:"was_insert"`
	}{}

	err := r.db.GetContext(ctx, &row, query,
		patch.Source,
		patch.ExternalID,
		patch.Name,
		patch.Brand,
		patch.CategoryID,
		patch.ImageURL,
		patch.ProductURL,
		patch.Price,
		patch.AvgRating,
		patch.ReviewCount,
		patch.PositivePercent,
		patch.BrandCountry,
		patch.Origin,
		patch.Description,
		patch.Active,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert product: %w", err)
	}

	return &row.Product, row.WasInsert, nil
}

// UpdateSentiment writes the sentiment score and label for a product.
// Both values may be nil, which records "no signal" explicitly.
func (r *ProductRepository) UpdateSentiment(ctx context.Context, productID int64, score *float64, label *string) error {
	query := `
		UPDATE products
		SET sentiment_score = $2, sentiment_label = $3, updated_at = NOW()
		WHERE product_id = $1`
	result, err := r.db.ExecContext(ctx, query, productID, score, label)
	if wrapErr := execRequireRows(result, err, ErrNotFound); wrapErr != nil {
		return fmt.Errorf("update sentiment: %w", wrapErr)
	}
	return nil
}

// SetActive flips the active flag. Deactivation is the only lifecycle
// exit the pipeline performs; rows are never hard-deleted here.
func (r *ProductRepository) SetActive(ctx context.Context, productID int64, active bool) error {
	query := `UPDATE products SET active = $2, updated_at = NOW(), last_refreshed_at = NOW() WHERE product_id = $1`
	result, err := r.db.ExecContext(ctx, query, productID, active)
	if wrapErr := execRequireRows(result, err, ErrNotFound); wrapErr != nil {
		return fmt.Errorf("set active: %w", wrapErr)
	}
	return nil
}

// ListStale retrieves upstream-sourced products whose last refresh is
// older than the threshold, oldest first.
func (r *ProductRepository) ListStale(ctx context.Context, source string, threshold time.Duration, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = 500
	}
	var products []*domain.Product
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE source = $1
		  AND external_id IS NOT NULL
		  AND (last_refreshed_at IS NULL OR last_refreshed_at < NOW() - $2::interval)
		ORDER BY last_refreshed_at ASC NULLS FIRST
		LIMIT $3`
	interval := fmt.Sprintf("%d seconds", int(threshold.Seconds()))
	if err := r.db.SelectContext(ctx, &products, query, source, interval, limit); err != nil {
		return nil, fmt.Errorf("list stale products: %w", err)
	}
	return products, nil
}

// CategoryAvgPrice returns the average price over a category, or nil
// when the category has no priced products.
func (r *ProductRepository) CategoryAvgPrice(ctx context.Context, categoryID int64) (*float64, error) {
	var avg *float64
	query := `SELECT AVG(price) FROM products WHERE category_id = $1 AND price IS NOT NULL`
	if err := r.db.GetContext(ctx, &avg, query, categoryID); err != nil {
		return nil, fmt.Errorf("category avg price: %w", err)
	}
	return avg, nil
}

// ListRecommendationCandidates retrieves active same-category products
// inside the price band with enough reviews and a non-poor sentiment
// label, best sentiment first.
func (r *ProductRepository) ListRecommendationCandidates(
	ctx context.Context,
	categoryID int64,
	excludeProductID int64,
	minPrice, maxPrice float64,
	minReviews int,
	poorLabel string,
) ([]*domain.Product, error) {
	var products []*domain.Product
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE category_id = $1
		  AND product_id <> $2
		  AND active
		  AND (sentiment_label IS NULL OR sentiment_label <> $5)
		  AND (review_count IS NULL OR review_count >= $6)
		  AND price BETWEEN $3 AND $4
		ORDER BY (sentiment_score IS NOT NULL) DESC,
		         sentiment_score DESC NULLS LAST,
		         avg_rating DESC NULLS LAST,
		         review_count DESC NULLS LAST`
	err := r.db.SelectContext(ctx, &products, query,
		categoryID, excludeProductID, minPrice, maxPrice, poorLabel, minReviews)
	if err != nil {
		return nil, fmt.Errorf("list recommendation candidates: %w", err)
	}
	return products, nil
}
