package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lekhuynh/vietchoice/internal/domain"
)

const categoryColumns = `
	category_id, source, level1, level2, level3, level4, level5,
	canonical_path, level_count, created_at`

// CategoryRepository handles database operations for taxonomy categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetByID retrieves a category by its internal ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE category_id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return &c, nil
}

// GetBySourcePath retrieves a category by its (source, canonical_path) key.
func (r *CategoryRepository) GetBySourcePath(ctx context.Context, source, canonicalPath string) (*domain.Category, error) {
	var c domain.Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE source = $1 AND canonical_path = $2`
	if err := r.db.GetContext(ctx, &c, query, source, canonicalPath); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category by source path: %w", err)
	}
	return &c, nil
}

// Insert creates a new category row. Returns ErrDuplicate when a
// concurrent writer already created the same (source, canonical_path);
// callers resolve that race by re-querying, never by overwriting.
func (r *CategoryRepository) Insert(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (source, level1, level2, level3, level4, level5,
			canonical_path, level_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING category_id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Source, c.Level1, c.Level2, c.Level3, c.Level4, c.Level5,
		c.CanonicalPath, c.LevelCount,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}
