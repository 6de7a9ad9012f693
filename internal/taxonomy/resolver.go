// Package taxonomy resolves breadcrumb chains into canonical categories.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lekhuynh/vietchoice/internal/database"
	"github.com/lekhuynh/vietchoice/internal/domain"
)

// PathSeparator joins normalized level names into the canonical path.
const PathSeparator = " > "

// ErrEmptyPath is returned when a breadcrumb chain normalizes to nothing.
var ErrEmptyPath = errors.New("breadcrumb chain is empty after normalization")

// CategoryStore is the store surface the resolver needs.
type CategoryStore interface {
	GetBySourcePath(ctx context.Context, source, canonicalPath string) (*domain.Category, error)
	Insert(ctx context.Context, c *domain.Category) error
}

// Resolver maps (source, breadcrumb chain) to a Category via idempotent
// get-or-create. It never mutates an existing category.
type Resolver struct {
	store CategoryStore
}

// NewResolver creates a new taxonomy resolver.
func NewResolver(store CategoryStore) *Resolver {
	return &Resolver{store: store}
}

// NormalizeName trims a level name and collapses internal whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// CanonicalPath builds the canonical path and level count from a raw
// breadcrumb chain. Empty levels are dropped; at most
// domain.MaxCategoryLevels survive.
func CanonicalPath(names []string) (string, []string) {
	parts := make([]string, 0, domain.MaxCategoryLevels)
	for _, name := range names {
		normalized := NormalizeName(name)
		if normalized == "" {
			continue
		}
		parts = append(parts, normalized)
		if len(parts) == domain.MaxCategoryLevels {
			break
		}
	}
	return strings.Join(parts, PathSeparator), parts
}

// Resolve returns the category for the given breadcrumb chain, creating
// it when unseen. A uniqueness-constraint violation means a concurrent
// writer won the insert race; the resolver re-reads and returns the
// existing row instead of failing.
func (r *Resolver) Resolve(ctx context.Context, source string, breadcrumbs []string) (*domain.Category, error) {
	canonicalPath, levels := CanonicalPath(breadcrumbs)
	if canonicalPath == "" {
		return nil, ErrEmptyPath
	}

	existing, err := r.store.GetBySourcePath(ctx, source, canonicalPath)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("lookup category: %w", err)
	}

	category := buildCategory(source, canonicalPath, levels)
	insertErr := r.store.Insert(ctx, category)
	if insertErr == nil {
		return category, nil
	}
	if !errors.Is(insertErr, database.ErrDuplicate) {
		return nil, fmt.Errorf("create category: %w", insertErr)
	}

	// Lost the insert race; the winner's row is authoritative.
	existing, err = r.store.GetBySourcePath(ctx, source, canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("re-read category after insert race: %w", err)
	}
	return existing, nil
}

func buildCategory(source, canonicalPath string, levels []string) *domain.Category {
	c := &domain.Category{
		Source:        source,
		CanonicalPath: canonicalPath,
		LevelCount:    len(levels),
	}
	slots := []**string{&c.Level1, &c.Level2, &c.Level3, &c.Level4, &c.Level5}
	for i, name := range levels {
		v := name
		*slots[i] = &v
	}
	return c
}
